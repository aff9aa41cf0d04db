package engine

import "fmt"

type IncrementMode string

const (
	IncrementFixed IncrementMode = "fixed"
	IncrementSlab  IncrementMode = "slab"
)

// Slab maps the current-bid range [From,To) to a bid increment. To == 0 on
// the last slab means open-ended.
type Slab struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
	Step int64 `json:"step"`
}

type IncrementRule struct {
	Mode  IncrementMode `json:"mode"`
	Step  int64         `json:"step,omitempty"`
	Slabs []Slab        `json:"slabs,omitempty"`
}

// Validate is called at settings-save time; StepAt assumes a valid rule.
func (r IncrementRule) Validate() error {
	switch r.Mode {
	case IncrementFixed:
		if r.Step <= 0 {
			return fmt.Errorf("%w: fixed increment step must be positive", ErrInvalid)
		}
		return nil
	case IncrementSlab:
		if len(r.Slabs) == 0 {
			return fmt.Errorf("%w: slab table is empty", ErrInvalid)
		}
		if r.Slabs[0].From != 0 {
			return fmt.Errorf("%w: slab table must start at 0", ErrInvalid)
		}
		for i, sl := range r.Slabs {
			if sl.Step <= 0 {
				return fmt.Errorf("%w: slab %d has non-positive step", ErrInvalid, i)
			}
			last := i == len(r.Slabs)-1
			if sl.To == 0 {
				if !last {
					return fmt.Errorf("%w: only the last slab may be open-ended", ErrInvalid)
				}
				continue
			}
			if sl.To <= sl.From {
				return fmt.Errorf("%w: slab %d is empty or inverted", ErrInvalid, i)
			}
			if !last && r.Slabs[i+1].From != sl.To {
				return fmt.Errorf("%w: gap or overlap between slab %d and %d", ErrInvalid, i, i+1)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown increment mode %q", ErrInvalid, r.Mode)
	}
}

// StepAt returns the increment owed on top of the given current bid. A bid
// beyond the last bounded slab reuses the last slab's step.
func (r IncrementRule) StepAt(current int64) int64 {
	if r.Mode == IncrementFixed {
		return r.Step
	}
	for _, sl := range r.Slabs {
		if current >= sl.From && (sl.To == 0 || current < sl.To) {
			return sl.Step
		}
	}
	return r.Slabs[len(r.Slabs)-1].Step
}

// RequiredNextBid is the lowest amount the arbitrator will accept for the
// player on the block: the base price while no team is leading, otherwise
// the current bid plus its slab/fixed increment.
func (s *State) RequiredNextBid() int64 {
	if s.LeadingTeamID == "" {
		return s.CurrentBid
	}
	return s.CurrentBid + s.Settings.Increment.StepAt(s.CurrentBid)
}
