package engine

type PolicyMode string

const (
	ModeSingle    PolicyMode = "single"
	ModeAny       PolicyMode = "any"
	ModeMajority  PolicyMode = "majority"
	ModeUnanimous PolicyMode = "unanimous"
)

// SeatPolicy is a team's consensus configuration. Quorum decisions are a
// pure function of (policy, votes, eligible seats); see decideTrigger.
type SeatPolicy struct {
	Mode               PolicyMode `json:"mode"`
	VotersRequired     int        `json:"voters_required,omitempty"`
	AllowDynamicQuorum bool       `json:"allow_dynamic_quorum,omitempty"`
	AllowLeadOverride  bool       `json:"allow_lead_override,omitempty"`
}

type VoteAction string

const (
	VoteCall VoteAction = "call"
	VotePass VoteAction = "pass"
)

// VoteRound is the ephemeral seat->vote map for (team, active player). It is
// discarded whenever the player leaves the block or any bid lands.
type VoteRound struct {
	Votes map[string]VoteAction `json:"votes"`
}

func newVoteRound() *VoteRound {
	return &VoteRound{Votes: map[string]VoteAction{}}
}

func (r *VoteRound) tally() (calls, passes int) {
	for _, v := range r.Votes {
		switch v {
		case VoteCall:
			calls++
		case VotePass:
			passes++
		}
	}
	return
}

// eligibleVoters is the seat set quorum is computed against: active voter
// seats, narrowed to the currently-connected ones when the policy allows a
// dynamic quorum and the room reported connections.
func eligibleVoters(s *State, teamID string, policy SeatPolicy, connected []string) []*Seat {
	connectedSet := map[string]bool{}
	for _, id := range connected {
		connectedSet[id] = true
	}
	var out []*Seat
	for _, seat := range s.SeatsForTeam(teamID) {
		if seat.Status != SeatActive || !seat.IsVoter {
			continue
		}
		if policy.AllowDynamicQuorum && len(connected) > 0 && !connectedSet[seat.ID] {
			continue
		}
		out = append(out, seat)
	}
	return out
}

// callsNeeded returns the quorum size for the policy over the eligible set.
// Only meaningful for majority/unanimous; single and any trigger on the
// first call.
func callsNeeded(policy SeatPolicy, eligible int) int {
	switch policy.Mode {
	case ModeMajority:
		if policy.VotersRequired > 0 {
			return policy.VotersRequired
		}
		return (eligible + 1) / 2
	case ModeUnanimous:
		return eligible
	default:
		return 1
	}
}

// decideTrigger applies the quorum policy after the voter's ballot has been
// recorded in the round. Pure: no state mutation.
func decideTrigger(policy SeatPolicy, round *VoteRound, eligible []*Seat, voter *Seat, action VoteAction) bool {
	calls, passes := round.tally()

	// A lead's call short-circuits quorum, except in unanimous mode where a
	// peer's explicit pass stands; the override may expedite consensus but
	// not silence dissent.
	if policy.AllowLeadOverride && voter.IsLead && action == VoteCall {
		if policy.Mode == ModeUnanimous && passes > 0 {
			return false
		}
		return true
	}

	switch policy.Mode {
	case ModeSingle:
		return action == VoteCall && (voter.IsLead || voter.IsVoter)
	case ModeAny:
		return action == VoteCall
	case ModeMajority:
		return calls >= callsNeeded(policy, len(eligible))
	case ModeUnanimous:
		if passes > 0 {
			return false
		}
		return calls >= len(eligible) && len(eligible) > 0
	default:
		return false
	}
}
