package store

import (
	"context"
	"errors"

	"github.com/ulmjahfar/playlivepro/internal/engine"
)

var ErrNotFound = errors.New("store: not found")

// Store persists auction state so it survives process restarts. The room
// treats its in-memory aggregate as the source of truth and writes through
// after each applied command; reads only happen when a room is (re)built.
type Store interface {
	// LoadState rebuilds the full aggregate for a tournament code.
	LoadState(ctx context.Context, code string) (*engine.State, error)
	// SaveSession writes the session row: status, lock, round, block state,
	// settings.
	SaveSession(ctx context.Context, s *engine.State) error
	SavePlayer(ctx context.Context, code string, p *engine.Player) error
	SaveTeam(ctx context.Context, code string, t *engine.Team) error
	AppendBid(ctx context.Context, code, playerID string, b engine.Bid) error
	// ResetAuction clears all derived auction state (statuses, sales, bid
	// history) for the admin restart action.
	ResetAuction(ctx context.Context, code string) error
	// SeatForLogin resolves a seat credential for the seat login flow.
	SeatForLogin(ctx context.Context, tournamentCode, teamCode, seatCode string) (*engine.Seat, error)
}
