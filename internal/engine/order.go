package engine

// nextPlayer picks the player to present next. Registration order rules,
// except that once the pending backlog reaches the configured threshold the
// backlog is drained first, oldest pend first. A zero threshold disables the
// retry round entirely; pending players then wait for a force auction.
func nextPlayer(s *State) *Player {
	if p := nextPending(s); p != nil {
		return p
	}
	for _, id := range s.Order {
		if p := s.Players[id]; p.Status == PlayerAvailable {
			return p
		}
	}
	return nil
}

func nextPending(s *State) *Player {
	threshold := s.Settings.PendingRetryThreshold
	if threshold <= 0 {
		return nil
	}
	var count int
	var oldest *Player
	for _, id := range s.Order {
		p := s.Players[id]
		if p.Status != PlayerPending {
			continue
		}
		count++
		if oldest == nil || p.PendedSeq < oldest.PendedSeq {
			oldest = p
		}
	}
	if count >= threshold {
		return oldest
	}
	// Keep draining a backlog that already crossed the threshold even as it
	// shrinks, but only once no fresh players remain to interleave.
	if count > 0 && !anyAvailable(s) {
		return oldest
	}
	return nil
}

func anyAvailable(s *State) bool {
	for _, id := range s.Order {
		if s.Players[id].Status == PlayerAvailable {
			return true
		}
	}
	return false
}
