package engine

import "slices"

// Clone deep-copies the aggregate. Used by the in-memory store and by tests;
// the room itself never needs one, it owns its state outright.
func (s *State) Clone() *State {
	c := *s
	c.Players = make(map[string]*Player, len(s.Players))
	for id, p := range s.Players {
		cp := *p
		cp.Bids = slices.Clone(p.Bids)
		c.Players[id] = &cp
	}
	c.Order = slices.Clone(s.Order)
	c.Teams = make(map[string]*Team, len(s.Teams))
	for id, t := range s.Teams {
		ct := *t
		c.Teams[id] = &ct
	}
	c.Seats = make(map[string]*Seat, len(s.Seats))
	for id, seat := range s.Seats {
		cs := *seat
		c.Seats[id] = &cs
	}
	c.Policies = make(map[string]SeatPolicy, len(s.Policies))
	for id, p := range s.Policies {
		c.Policies[id] = p
	}
	c.Votes = make(map[string]*VoteRound, len(s.Votes))
	for id, r := range s.Votes {
		cr := newVoteRound()
		for seatID, v := range r.Votes {
			cr.Votes[seatID] = v
		}
		c.Votes[id] = cr
	}
	c.Settings.Increment.Slabs = slices.Clone(s.Settings.Increment.Slabs)
	return &c
}
