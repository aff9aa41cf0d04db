package auction

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ulmjahfar/playlivepro/internal/engine"
)

const persistTimeout = 5 * time.Second

// persist writes through the state changes the events describe. The
// in-memory aggregate stays the source of truth; a store failure is logged
// and the auction keeps running on memory.
func (r *Room) persist(cmd engine.Command, events []engine.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	var (
		session bool
		teams   bool
		players = map[string]bool{}
	)
	for _, evt := range events {
		session = true
		switch p := evt.Payload.(type) {
		case engine.PlayerNextPayload:
			players[p.PlayerID] = true
		case engine.BidUpdatePayload:
			r.check(r.st.AppendBid(ctx, r.code, p.PlayerID, engine.Bid{
				TeamID: p.TeamID,
				Amount: p.Amount,
				At:     cmd.At,
			}))
		case engine.PlayerSoldPayload:
			players[p.PlayerID] = true
			teams = true
		case engine.PlayerUnsoldPayload:
			players[p.PlayerID] = true
		case engine.PlayerWithdrawnPayload:
			players[p.PlayerID] = true
			if p.TeamID != "" {
				teams = true
			}
		}
		if evt.Name == engine.EvtAuctionRestarted {
			r.check(r.st.ResetAuction(ctx, r.code))
			return
		}
	}

	for id := range players {
		if p := r.state.Players[id]; p != nil {
			r.check(r.st.SavePlayer(ctx, r.code, p))
		}
	}
	if teams {
		// ledger moves can touch two teams (sale edits); saving the full set
		// is cheap at auction scale and cannot miss one
		for _, t := range r.state.Teams {
			r.check(r.st.SaveTeam(ctx, r.code, t))
		}
	}
	if session {
		r.check(r.st.SaveSession(ctx, r.state))
	}
}

func (r *Room) check(err error) {
	if err != nil {
		r.log.Error("store write failed", zap.Error(err))
	}
}
