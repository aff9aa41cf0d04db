package store

import (
	"context"
	"sync"

	"github.com/ulmjahfar/playlivepro/internal/engine"
)

// Memory is the in-process store: the development default when no database
// DSN is configured, and the backend room/hub tests run against.
type Memory struct {
	mu     sync.RWMutex
	states map[string]*engine.State // by tournament code
}

func NewMemory() *Memory {
	return &Memory{states: map[string]*engine.State{}}
}

// Seed installs a tournament aggregate, replacing any previous copy.
func (m *Memory) Seed(s *engine.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[s.Code] = s.Clone()
}

func (m *Memory) LoadState(_ context.Context, code string) (*engine.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[code]
	if !ok {
		return nil, ErrNotFound
	}
	// Writes land on individual rows of the held aggregate, so derived
	// counters must be rebuilt before the copy is handed out.
	c := s.Clone()
	c.Normalize()
	return c, nil
}

func (m *Memory) SaveSession(_ context.Context, s *engine.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	held, ok := m.states[s.Code]
	if !ok {
		return ErrNotFound
	}
	held.Status = s.Status
	held.Locked = s.Locked
	held.Round = s.Round
	held.ActivePlayerID = s.ActivePlayerID
	held.CurrentBid = s.CurrentBid
	held.LeadingTeamID = s.LeadingTeamID
	held.QuotaBypass = s.QuotaBypass
	held.Settings = s.Settings
	return nil
}

func (m *Memory) SavePlayer(_ context.Context, code string, p *engine.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	held, ok := m.states[code]
	if !ok {
		return ErrNotFound
	}
	cp := *p
	held.Players[p.ID] = &cp
	return nil
}

func (m *Memory) SaveTeam(_ context.Context, code string, t *engine.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	held, ok := m.states[code]
	if !ok {
		return ErrNotFound
	}
	ct := *t
	held.Teams[t.ID] = &ct
	return nil
}

func (m *Memory) AppendBid(_ context.Context, code, playerID string, b engine.Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	held, ok := m.states[code]
	if !ok {
		return ErrNotFound
	}
	p, ok := held.Players[playerID]
	if !ok {
		return ErrNotFound
	}
	p.Bids = append(p.Bids, b)
	return nil
}

func (m *Memory) ResetAuction(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	held, ok := m.states[code]
	if !ok {
		return ErrNotFound
	}
	reset, err := resetClone(held)
	if err != nil {
		return err
	}
	m.states[code] = reset
	return nil
}

func resetClone(s *engine.State) (*engine.State, error) {
	c := s.Clone()
	if _, err := engine.Apply(c, engine.Command{Type: engine.CmdRestart}); err != nil {
		return nil, err
	}
	return c, nil
}

func (m *Memory) SeatForLogin(_ context.Context, tournamentCode, teamCode, seatCode string) (*engine.Seat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	held, ok := m.states[tournamentCode]
	if !ok {
		return nil, ErrNotFound
	}
	var team *engine.Team
	for _, t := range held.Teams {
		if t.Code == teamCode {
			team = t
			break
		}
	}
	if team == nil {
		return nil, ErrNotFound
	}
	for _, seat := range held.Seats {
		if seat.TeamID == team.ID && seat.SeatCode == seatCode {
			cp := *seat
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}
