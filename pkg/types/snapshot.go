package types

import (
	"sort"
	"time"

	"github.com/ulmjahfar/playlivepro/internal/engine"
)

// LiveState is the resync snapshot: everything a reconnecting session needs
// to rebuild its view, since the push channel guarantees nothing across a
// disconnect window.
type LiveState struct {
	Code             string      `json:"code"`
	Status           string      `json:"status"`
	Locked           bool        `json:"locked"`
	Round            int         `json:"round"`
	Player           *PlayerView `json:"player,omitempty"`
	CurrentBid       int64       `json:"current_bid"`
	LeadingTeamID    string      `json:"leading_team_id,omitempty"`
	NextMinBid       int64       `json:"next_min_bid,omitempty"`
	TimerRemainingMS int64       `json:"timer_remaining_ms"`
	Teams            []TeamView  `json:"teams"`
}

type PlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BasePrice int64  `json:"base_price"`
	Status    string `json:"status"`
	BidCount  int    `json:"bid_count"`
}

type TeamView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Budget        int64  `json:"budget"`
	Spent         int64  `json:"spent"`
	Balance       int64  `json:"balance"`
	PlayersBought int    `json:"players_bought"`
	MaxPlayers    int    `json:"max_players"`
	QuotaFull     bool   `json:"quota_full"`
	Overdraft     bool   `json:"overdraft,omitempty"`
}

func NewTeamView(t *engine.Team) TeamView {
	return TeamView{
		ID:            t.ID,
		Name:          t.Name,
		Budget:        t.Budget,
		Spent:         t.Spent,
		Balance:       t.Balance(),
		PlayersBought: t.PlayersBought,
		MaxPlayers:    t.MaxPlayers,
		QuotaFull:     t.QuotaFull(),
		Overdraft:     t.Overdraft,
	}
}

// NewLiveState builds the snapshot from the aggregate. remaining is how much
// of the armed countdown is left; zero when no timer is running.
func NewLiveState(s *engine.State, remaining time.Duration) *LiveState {
	ls := &LiveState{
		Code:             s.Code,
		Status:           string(s.Status),
		Locked:           s.Locked,
		Round:            s.Round,
		CurrentBid:       s.CurrentBid,
		LeadingTeamID:    s.LeadingTeamID,
		TimerRemainingMS: remaining.Milliseconds(),
	}
	if p := s.ActivePlayer(); p != nil {
		ls.Player = &PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			BasePrice: p.BasePrice,
			Status:    string(p.Status),
			BidCount:  len(p.Bids),
		}
		ls.NextMinBid = s.RequiredNextBid()
	}
	for _, t := range s.Teams {
		ls.Teams = append(ls.Teams, NewTeamView(t))
	}
	sort.Slice(ls.Teams, func(i, j int) bool { return ls.Teams[i].Name < ls.Teams[j].Name })
	return ls
}
