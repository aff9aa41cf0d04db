package engine

import "time"

// validateBid runs every rejection rule from the bid arbitrator contract.
// It does not mutate state; Apply commits the bid only when this passes.
func validateBid(s *State, teamID string, amount int64) error {
	if !s.Biddable() {
		if s.Locked {
			return ErrLocked
		}
		return reject(ReasonNotBiddable, "auction is %s", s.Status)
	}
	team, ok := s.Teams[teamID]
	if !ok {
		return ErrNotFound
	}
	if s.LeadingTeamID == teamID {
		return reject(ReasonSelfOutbid, "team %s already holds the highest bid", team.Name)
	}
	if required := s.RequiredNextBid(); amount < required {
		return reject(ReasonBelowIncrement, "minimum next bid is %d", required)
	}
	if limit := s.Settings.MaxBidsPerPlayer; limit > 0 && s.ActiveBidCount >= limit {
		return reject(ReasonBidLimit, "bid limit %d reached for this player", limit)
	}
	if team.QuotaFull() && !s.QuotaBypass {
		return reject(ReasonQuotaFull, "team %s is at squad quota (%d)", team.Name, team.MaxPlayers)
	}
	if team.Balance()-amount < 0 {
		return reject(ReasonInsufficientBalance, "team %s balance %d cannot cover %d", team.Name, team.Balance(), amount)
	}
	return nil
}

// applyBid records an already-validated bid: new leader, history append,
// vote-round reset. Accepted bids are the sole trigger for a timer re-arm,
// which the room derives from the bid:update event.
func applyBid(s *State, teamID string, amount int64, source string, at time.Time) Event {
	s.CurrentBid = amount
	s.LeadingTeamID = teamID
	s.ActiveBidCount++
	p := s.ActivePlayer()
	p.Bids = append(p.Bids, Bid{TeamID: teamID, Amount: amount, At: at})
	s.resetVotes()

	return Event{
		Name:  EvtBidUpdate,
		Scope: ScopePublic,
		Payload: BidUpdatePayload{
			PlayerID:   p.ID,
			TeamID:     teamID,
			Amount:     amount,
			NextMinBid: s.RequiredNextBid(),
			BidCount:   s.ActiveBidCount,
			Source:     source,
		},
	}
}
