package store

import (
	"encoding/json"
	"time"

	"github.com/ulmjahfar/playlivepro/internal/engine"
)

type TournamentRecord struct {
	ID             string `gorm:"primaryKey"`
	Code           string `gorm:"uniqueIndex;size:32"`
	Name           string
	Status         string `gorm:"size:20"`
	Locked         bool
	Round          int
	ActivePlayerID string
	CurrentBid     int64
	LeadingTeamID  string
	QuotaBypass    bool
	SettingsJSON   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type PlayerRecord struct {
	ID             string `gorm:"primaryKey"`
	TournamentID   string `gorm:"index"`
	Name           string
	BasePrice      int64
	Status         string `gorm:"size:20"`
	SoldPrice      int64
	SoldToTeamID   string
	TxType         string `gorm:"size:20"`
	WithdrawReason string
	Seq            int
	PendedSeq      int
	UpdatedAt      time.Time
}

type TeamRecord struct {
	ID            string `gorm:"primaryKey"`
	TournamentID  string `gorm:"index"`
	Name          string
	Code          string `gorm:"size:32"`
	Budget        int64
	Spent         int64
	PlayersBought int
	MaxPlayers    int
	Overdraft     bool
	UpdatedAt     time.Time
}

type SeatRecord struct {
	ID           string `gorm:"primaryKey"`
	TournamentID string `gorm:"index"`
	TeamID       string `gorm:"index"`
	Label        string
	Role         string `gorm:"size:20"`
	IsLead       bool
	IsVoter      bool
	Status       string `gorm:"size:20"`
	SeatCode     string `gorm:"size:32"`
	PINHash      string
}

type SeatPolicyRecord struct {
	TeamID             string `gorm:"primaryKey"`
	TournamentID       string `gorm:"index"`
	Mode               string `gorm:"size:20"`
	VotersRequired     int
	AllowDynamicQuorum bool
	AllowLeadOverride  bool
}

type BidRecord struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	TournamentID string `gorm:"index"`
	PlayerID     string `gorm:"index"`
	TeamID       string
	Amount       int64
	At           time.Time
}

func marshalSettings(s engine.Settings) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func unmarshalSettings(raw string) engine.Settings {
	if raw == "" {
		return engine.DefaultSettings()
	}
	var s engine.Settings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return engine.DefaultSettings()
	}
	return s
}

func playerRecord(tournamentID string, p *engine.Player) PlayerRecord {
	return PlayerRecord{
		ID:             p.ID,
		TournamentID:   tournamentID,
		Name:           p.Name,
		BasePrice:      p.BasePrice,
		Status:         string(p.Status),
		SoldPrice:      p.SoldPrice,
		SoldToTeamID:   p.SoldToTeamID,
		TxType:         string(p.TxType),
		WithdrawReason: p.WithdrawReason,
		Seq:            p.Seq,
		PendedSeq:      p.PendedSeq,
	}
}

func teamRecord(tournamentID string, t *engine.Team) TeamRecord {
	return TeamRecord{
		ID:            t.ID,
		TournamentID:  tournamentID,
		Name:          t.Name,
		Code:          t.Code,
		Budget:        t.Budget,
		Spent:         t.Spent,
		PlayersBought: t.PlayersBought,
		MaxPlayers:    t.MaxPlayers,
		Overdraft:     t.Overdraft,
	}
}

func (r SeatRecord) seat() *engine.Seat {
	return &engine.Seat{
		ID:       r.ID,
		TeamID:   r.TeamID,
		Label:    r.Label,
		Role:     r.Role,
		IsLead:   r.IsLead,
		IsVoter:  r.IsVoter,
		Status:   engine.SeatStatus(r.Status),
		SeatCode: r.SeatCode,
		PINHash:  r.PINHash,
	}
}
