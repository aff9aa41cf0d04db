package auction

import (
	"time"

	"github.com/ulmjahfar/playlivepro/internal/engine"
)

// updateTimer walks the emitted events in order and leaves the countdown in
// the state the last relevant event implies. Accepted bids and player
// presentation re-arm to the full configured duration; terminal transitions
// cancel. The generation counter makes a stale fire harmless: it arrives in
// the inbox carrying an old gen and is discarded.
func (r *Room) updateTimer(events []engine.Event) {
	for _, evt := range events {
		switch evt.Name {
		case engine.EvtPlayerNext:
			r.arm(r.runningDuration())
		case engine.EvtBidUpdate:
			r.arm(r.runningDuration())
		case engine.EvtLastCallStarted:
			r.arm(time.Duration(r.state.Settings.LastCallSec) * time.Second)
		case engine.EvtAuctionResume, engine.EvtAuctionUnlocked:
			if r.state.Biddable() {
				r.arm(r.runningDuration())
			}
		case engine.EvtAuctionPause, engine.EvtAuctionEnd, engine.EvtAuctionLocked,
			engine.EvtAuctionRestarted, engine.EvtPlayerSold, engine.EvtPlayerUnsold,
			engine.EvtPlayerWithdrawn:
			r.cancelTimer()
		}
	}
}

// runningDuration picks the countdown for the current phase.
func (r *Room) runningDuration() time.Duration {
	if r.state.Status == engine.StatusLastCall {
		return time.Duration(r.state.Settings.LastCallSec) * time.Second
	}
	return time.Duration(r.state.Settings.TimerSec) * time.Second
}

func (r *Room) arm(d time.Duration) {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timerGen++
	gen := r.timerGen
	r.deadline = time.Now().Add(d)
	r.timer = time.AfterFunc(d, func() {
		select {
		case r.inbox <- timerFired{gen: gen}:
		case <-r.ctx.Done():
		}
	})
}

func (r *Room) cancelTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.timerGen++ // invalidate anything already in flight
	r.deadline = time.Time{}
}
