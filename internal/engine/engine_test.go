package engine

import (
	"errors"
	"testing"
)

func fixture() *State {
	s := NewState("t-1", "IPL24")
	s.AddTeam(&Team{ID: "team-a", Name: "Alpha", Code: "AL", Budget: 10000, MaxPlayers: 3})
	s.AddTeam(&Team{ID: "team-b", Name: "Bravo", Code: "BR", Budget: 10000, MaxPlayers: 3})
	s.AddPlayer(&Player{ID: "p1", Name: "One", BasePrice: 1000})
	s.AddPlayer(&Player{ID: "p2", Name: "Two", BasePrice: 500})
	s.AddPlayer(&Player{ID: "p3", Name: "Three", BasePrice: 200})
	return s
}

func mustApply(t *testing.T, s *State, cmd Command) []Event {
	t.Helper()
	events, err := Apply(s, cmd)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", cmd.Type, err)
	}
	return events
}

func rejectReason(t *testing.T, err error) RejectReason {
	t.Helper()
	var rej *RejectedBidError
	if !errors.As(err, &rej) {
		t.Fatalf("expected RejectedBidError, got %v", err)
	}
	return rej.Reason
}

func TestStartPresentsFirstPlayer(t *testing.T) {
	s := fixture()
	events := mustApply(t, s, Command{Type: CmdStart})

	if len(events) != 2 || events[0].Name != EvtAuctionStart || events[1].Name != EvtPlayerNext {
		t.Fatalf("unexpected events: %+v", events)
	}
	if s.Status != StatusRunning || s.ActivePlayerID != "p1" {
		t.Fatalf("status=%s active=%s", s.Status, s.ActivePlayerID)
	}
	if s.CurrentBid != 1000 || s.LeadingTeamID != "" {
		t.Fatalf("opening bid=%d leader=%q", s.CurrentBid, s.LeadingTeamID)
	}
	if s.Players["p1"].Status != PlayerOnBlock {
		t.Fatalf("p1 status = %s", s.Players["p1"].Status)
	}

	if _, err := Apply(s, Command{Type: CmdStart}); !errors.Is(err, ErrConflict) {
		t.Fatalf("second start: want conflict, got %v", err)
	}
}

func TestStartWithNoPlayers(t *testing.T) {
	s := NewState("t-1", "EMPTY")
	if _, err := Apply(s, Command{Type: CmdStart}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("want invalid, got %v", err)
	}
}

func TestBidArbitration(t *testing.T) {
	s := fixture()
	mustApply(t, s, Command{Type: CmdStart})

	// Opening bid lands at base price.
	events := mustApply(t, s, Command{Type: CmdPlaceBid, TeamID: "team-a", Amount: 1000})
	if len(events) != 1 || events[0].Name != EvtBidUpdate {
		t.Fatalf("unexpected events: %+v", events)
	}
	pay := events[0].Payload.(BidUpdatePayload)
	if pay.Amount != 1000 || pay.NextMinBid != 1100 || pay.BidCount != 1 {
		t.Fatalf("payload: %+v", pay)
	}

	// Below the increment.
	_, err := Apply(s, Command{Type: CmdPlaceBid, TeamID: "team-b", Amount: 1050})
	if got := rejectReason(t, err); got != ReasonBelowIncrement {
		t.Fatalf("reason = %s", got)
	}

	// Leader cannot raise its own bid.
	_, err = Apply(s, Command{Type: CmdPlaceBid, TeamID: "team-a", Amount: 1100})
	if got := rejectReason(t, err); got != ReasonSelfOutbid {
		t.Fatalf("reason = %s", got)
	}

	// Balance is enforced against the full amount.
	_, err = Apply(s, Command{Type: CmdPlaceBid, TeamID: "team-b", Amount: 10100})
	if got := rejectReason(t, err); got != ReasonInsufficientBalance {
		t.Fatalf("reason = %s", got)
	}

	mustApply(t, s, Command{Type: CmdPlaceBid, TeamID: "team-b", Amount: 1100})
	if s.LeadingTeamID != "team-b" || s.CurrentBid != 1100 {
		t.Fatalf("leader=%s bid=%d", s.LeadingTeamID, s.CurrentBid)
	}
	if got := len(s.Players["p1"].Bids); got != 2 {
		t.Fatalf("bid history length = %d", got)
	}

	// Unknown team.
	if _, err := Apply(s, Command{Type: CmdPlaceBid, TeamID: "nope", Amount: 1200}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestBidWhenNotBiddable(t *testing.T) {
	s := fixture()
	_, err := Apply(s, Command{Type: CmdPlaceBid, TeamID: "team-a", Amount: 1000})
	if got := rejectReason(t, err); got != ReasonNotBiddable {
		t.Fatalf("reason = %s", got)
	}
}

func TestMaxBidsPerPlayer(t *testing.T) {
	s := fixture()
	s.Settings.MaxBidsPerPlayer = 2
	mustApply(t, s, Command{Type: CmdStart})
	mustApply(t, s, Command{Type: CmdPlaceBid, TeamID: "team-a", Amount: 1000})
	mustApply(t, s, Command{Type: CmdPlaceBid, TeamID: "team-b", Amount: 1100})

	_, err := Apply(s, Command{Type: CmdPlaceBid, TeamID: "team-a", Amount: 1200})
	if got := rejectReason(t, err); got != ReasonBidLimit {
		t.Fatalf("reason = %s", got)
	}
}

func TestTimerExpirySellsToLeader(t *testing.T) {
	s := fixture()
	mustApply(t, s, Command{Type: CmdStart})
	mustApply(t, s, Command{Type: CmdPlaceBid, TeamID: "team-a", Amount: 1000})

	events := mustApply(t, s, Command{Type: CmdTimerExpired})
	if len(events) != 1 || events[0].Name != EvtPlayerSold {
		t.Fatalf("unexpected events: %+v", events)
	}
	pay := events[0].Payload.(PlayerSoldPayload)
	if pay.TeamID != "team-a" || pay.Price != 1000 || pay.TxType != TxAuction {
		t.Fatalf("payload: %+v", pay)
	}

	p := s.Players["p1"]
	if p.Status != PlayerSold || p.SoldPrice != 1000 || p.SoldToTeamID != "team-a" {
		t.Fatalf("player: %+v", p)
	}
	team := s.Teams["team-a"]
	if team.Spent != 1000 || team.PlayersBought != 1 || team.Balance() != 9000 {
		t.Fatalf("team: %+v", team)
	}
	if s.ActivePlayerID != "" || s.LeadingTeamID != "" {
		t.Fatalf("block not cleared: %+v", s)
	}
}

func TestTimerExpiryLastCallThenUnsold(t *testing.T) {
	s := fixture()
	mustApply(t, s, Command{Type: CmdStart})

	events := mustApply(t, s, Command{Type: CmdTimerExpired})
	if len(events) != 1 || events[0].Name != EvtLastCallStarted {
		t.Fatalf("unexpected events: %+v", events)
	}
	if s.Status != StatusLastCall {
		t.Fatalf("status = %s", s.Status)
	}

	// Last call also elapses with no bid: unsold under the default action.
	events = mustApply(t, s, Command{Type: CmdTimerExpired})
	if len(events) != 1 || events[0].Name != EvtPlayerUnsold {
		t.Fatalf("unexpected events: %+v", events)
	}
	pay := events[0].Payload.(PlayerUnsoldPayload)
	if pay.Outcome != PlayerUnsold {
		t.Fatalf("outcome = %s", pay.Outcome)
	}
	if s.Players["p1"].Status != PlayerUnsold || s.ActivePlayerID != "" {
		t.Fatalf("state: %+v", s)
	}
}

func TestBidDuringLastCallStillFinalizes(t *testing.T) {
	s := fixture()
	mustApply(t, s, Command{Type: CmdStart})
	mustApply(t, s, Command{Type: CmdTimerExpired}) // into last call
	mustApply(t, s, Command{Type: CmdPlaceBid, TeamID: "team-b", Amount: 1000})

	events := mustApply(t, s, Command{Type: CmdTimerExpired})
	if len(events) != 1 || events[0].Name != EvtPlayerSold {
		t.Fatalf("unexpected events: %+v", events)
	}
	if s.Players["p1"].SoldToTeamID != "team-b" {
		t.Fatalf("sold to %s", s.Players["p1"].SoldToTeamID)
	}
}

func TestTimeoutPendingAction(t *testing.T) {
	s := fixture()
	s.Settings.EnableLastCall = false
	s.Settings.AutoTimeoutAction = TimeoutPending
	mustApply(t, s, Command{Type: CmdStart})

	events := mustApply(t, s, Command{Type: CmdTimerExpired})
	pay := events[0].Payload.(PlayerUnsoldPayload)
	if pay.Outcome != PlayerPending {
		t.Fatalf("outcome = %s", pay.Outcome)
	}
	if p := s.Players["p1"]; p.Status != PlayerPending || p.PendedSeq != 1 {
		t.Fatalf("player: %+v", p)
	}
}

func TestPendingRetryDrainsOldestFirst(t *testing.T) {
	s := fixture()
	s.Settings.EnableLastCall = false
	s.Settings.AutoTimeoutAction = TimeoutPending
	s.Settings.PendingRetryThreshold = 2
	mustApply(t, s, Command{Type: CmdStart})

	mustApply(t, s, Command{Type: CmdTimerExpired}) // p1 pended
	mustApply(t, s, Command{Type: CmdPresentNext})  // p2 on block
	mustApply(t, s, Command{Type: CmdTimerExpired}) // p2 pended, backlog hits threshold

	mustApply(t, s, Command{Type: CmdPresentNext})
	if s.ActivePlayerID != "p1" {
		t.Fatalf("expected oldest pend p1, got %s", s.ActivePlayerID)
	}
	mustApply(t, s, Command{Type: CmdPlaceBid, TeamID: "team-a", Amount: 1000})
	mustApply(t, s, Command{Type: CmdTimerExpired}) // p1 sold on retry

	// Backlog dropped below the threshold, so the fresh player interleaves
	// ahead of the remaining pend.
	mustApply(t, s, Command{Type: CmdPresentNext})
	if s.ActivePlayerID != "p3" {
		t.Fatalf("expected fresh p3, got %s", s.ActivePlayerID)
	}
	mustApply(t, s, Command{Type: CmdTimerExpired}) // p3 pended

	// No fresh players left: the shrunken backlog still drains.
	mustApply(t, s, Command{Type: CmdPresentNext})
	if s.ActivePlayerID != "p2" {
		t.Fatalf("expected pended p2, got %s", s.ActivePlayerID)
	}
}

func TestAutoNextAdvancesAfterSale(t *testing.T) {
	s := fixture()
	s.Settings.AutoNext = true
	mustApply(t, s, Command{Type: CmdStart})
	mustApply(t, s, Command{Type: CmdPlaceBid, TeamID: "team-a", Amount: 1000})

	events := mustApply(t, s, Command{Type: CmdTimerExpired})
	if len(events) != 2 || events[0].Name != EvtPlayerSold || events[1].Name != EvtPlayerNext {
		t.Fatalf("unexpected events: %+v", events)
	}
	if s.ActivePlayerID != "p2" {
		t.Fatalf("active = %s", s.ActivePlayerID)
	}
}

func TestManualFinalize(t *testing.T) {
	s := fixture()
	mustApply(t, s, Command{Type: CmdStart})

	if _, err := Apply(s, Command{Type: CmdFinalizeSale}); !errors.Is(err, ErrConflict) {
		t.Fatalf("finalize without a bid: want conflict, got %v", err)
	}

	mustApply(t, s, Command{Type: CmdPlaceBid, TeamID: "team-b", Amount: 1000})
	events := mustApply(t, s, Command{Type: CmdFinalizeSale})
	if events[0].Name != EvtPlayerSold {
		t.Fatalf("unexpected events: %+v", events)
	}
	if s.Players["p1"].SoldToTeamID != "team-b" {
		t.Fatalf("sold to %s", s.Players["p1"].SoldToTeamID)
	}
}

func TestFinalizeBudgetHardStop(t *testing.T) {
	s := fixture()
	mustApply(t, s, Command{Type: CmdStart})
	mustApply(t, s, Command{Type: CmdPlaceBid, TeamID: "team-a", Amount: 1000})

	// Drain team-a's budget underneath the standing bid.
	mustApply(t, s, Command{Type: CmdDirectAssign, PlayerID: "p3", TeamID: "team-a", Amount: 9500, BypassBalance: true})

	events, err := Apply(s, Command{Type: CmdTimerExpired})
	if err == nil {
		t.Fatal("expected hard-stop error")
	}
	if len(events) != 1 || events[0].Name != EvtPlayerUnsold {
		t.Fatalf("unexpected events: %+v", events)
	}
	if s.Players["p1"].Status != PlayerUnsold {
		t.Fatalf("player status = %s", s.Players["p1"].Status)
	}
	// The failed sale must not have charged the team.
	if got := s.Teams["team-a"].Spent; got != 9500 {
		t.Fatalf("spent = %d", got)
	}
}

func TestPauseResumeRoundTrip(t *testing.T) {
	s := fixture()
	mustApply(t, s, Command{Type: CmdStart})
	mustApply(t, s, Command{Type: CmdTimerExpired}) // into last call

	mustApply(t, s, Command{Type: CmdPause})
	if s.Status != StatusPaused {
		t.Fatalf("status = %s", s.Status)
	}
	if _, err := Apply(s, Command{Type: CmdPause}); !errors.Is(err, ErrConflict) {
		t.Fatalf("double pause: want conflict, got %v", err)
	}

	mustApply(t, s, Command{Type: CmdResume})
	if s.Status != StatusLastCall {
		t.Fatalf("resume should return to last call, got %s", s.Status)
	}
}

func TestLockFreezesEverythingButUnlock(t *testing.T) {
	s := fixture()
	mustApply(t, s, Command{Type: CmdStart})
	events := mustApply(t, s, Command{Type: CmdLock})
	if events[0].Name != EvtAuctionLocked || !s.Locked {
		t.Fatalf("lock: %+v locked=%v", events, s.Locked)
	}

	if _, err := Apply(s, Command{Type: CmdPlaceBid, TeamID: "team-a", Amount: 1000}); !errors.Is(err, ErrLocked) {
		t.Fatalf("bid while locked: want locked, got %v", err)
	}
	if _, err := Apply(s, Command{Type: CmdPause}); !errors.Is(err, ErrLocked) {
		t.Fatalf("pause while locked: want locked, got %v", err)
	}

	// An in-flight expiry is discarded, not an error.
	events, err := Apply(s, Command{Type: CmdTimerExpired})
	if err != nil || events != nil {
		t.Fatalf("timer while locked: events=%v err=%v", events, err)
	}

	events = mustApply(t, s, Command{Type: CmdUnlock})
	if events[0].Name != EvtAuctionUnlocked || s.Locked {
		t.Fatalf("unlock: %+v locked=%v", events, s.Locked)
	}
}

func TestForceAuctionBypassesQuota(t *testing.T) {
	s := fixture()
	team := s.Teams["team-a"]
	team.MaxPlayers = 1
	team.PlayersBought = 1
	s.Players["p1"].Status = PlayerUnsold
	s.Status = StatusRunning

	events := mustApply(t, s, Command{Type: CmdForceAuction, PlayerID: "p1"})
	pay := events[0].Payload.(PlayerNextPayload)
	if !pay.Forced || !s.QuotaBypass {
		t.Fatalf("forced=%v bypass=%v", pay.Forced, s.QuotaBypass)
	}

	// At quota, but the bypass is armed for this player.
	mustApply(t, s, Command{Type: CmdPlaceBid, TeamID: "team-a", Amount: 1000})
	events = mustApply(t, s, Command{Type: CmdTimerExpired})
	sold := events[0].Payload.(PlayerSoldPayload)
	if sold.TxType != TxForceAuction {
		t.Fatalf("tx = %s", sold.TxType)
	}
	if team.PlayersBought != 2 {
		t.Fatalf("players bought = %d", team.PlayersBought)
	}
}

func TestForceAuctionOnlyForParkedPlayers(t *testing.T) {
	s := fixture()
	s.Status = StatusRunning
	if _, err := Apply(s, Command{Type: CmdForceAuction, PlayerID: "p1"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("available player: want conflict, got %v", err)
	}
}

func TestDirectAssign(t *testing.T) {
	s := fixture()
	s.Status = StatusRunning

	events := mustApply(t, s, Command{Type: CmdDirectAssign, PlayerID: "p2", TeamID: "team-b", Amount: 700})
	pay := events[0].Payload.(PlayerSoldPayload)
	if pay.TxType != TxDirectAssign || pay.Price != 700 {
		t.Fatalf("payload: %+v", pay)
	}
	if s.Teams["team-b"].Spent != 700 {
		t.Fatalf("spent = %d", s.Teams["team-b"].Spent)
	}

	if _, err := Apply(s, Command{Type: CmdDirectAssign, PlayerID: "p2", TeamID: "team-a", Amount: 100}); !errors.Is(err, ErrConflict) {
		t.Fatalf("already sold: want conflict, got %v", err)
	}
	if _, err := Apply(s, Command{Type: CmdDirectAssign, PlayerID: "p3", TeamID: "team-a", Amount: -1}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("negative price: want invalid, got %v", err)
	}
}

func TestDirectAssignZeroPriceGift(t *testing.T) {
	s := fixture()
	s.Status = StatusRunning
	s.Teams["team-a"].Spent = 10000 // fully spent

	mustApply(t, s, Command{Type: CmdDirectAssign, PlayerID: "p3", TeamID: "team-a", Amount: 0})
	if s.Players["p3"].Status != PlayerSold || s.Players["p3"].SoldPrice != 0 {
		t.Fatalf("player: %+v", s.Players["p3"])
	}
}

func TestDirectAssignBalanceBypassMarksOverdraft(t *testing.T) {
	s := fixture()
	s.Status = StatusRunning

	_, err := Apply(s, Command{Type: CmdDirectAssign, PlayerID: "p1", TeamID: "team-a", Amount: 20000})
	if got := rejectReason(t, err); got != ReasonInsufficientBalance {
		t.Fatalf("reason = %s", got)
	}

	mustApply(t, s, Command{Type: CmdDirectAssign, PlayerID: "p1", TeamID: "team-a", Amount: 20000, BypassBalance: true})
	team := s.Teams["team-a"]
	if !team.Overdraft || team.Balance() != -10000 {
		t.Fatalf("team: %+v", team)
	}
}

func TestRevokeSaleRefundsOnce(t *testing.T) {
	s := fixture()
	s.Status = StatusRunning
	mustApply(t, s, Command{Type: CmdDirectAssign, PlayerID: "p1", TeamID: "team-a", Amount: 2000})

	events := mustApply(t, s, Command{Type: CmdRevokeSale, PlayerID: "p1", Reason: "entry error"})
	pay := events[0].Payload.(PlayerWithdrawnPayload)
	if pay.TeamID != "team-a" || pay.Refund != 2000 {
		t.Fatalf("payload: %+v", pay)
	}
	team := s.Teams["team-a"]
	if team.Spent != 0 || team.PlayersBought != 0 {
		t.Fatalf("team after refund: %+v", team)
	}
	p := s.Players["p1"]
	if p.Status != PlayerWithdrawn || p.SoldToTeamID != "" || p.SoldPrice != 0 {
		t.Fatalf("player after revoke: %+v", p)
	}

	// Replayed revoke must not refund twice.
	if _, err := Apply(s, Command{Type: CmdRevokeSale, PlayerID: "p1"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("second revoke: want conflict, got %v", err)
	}
	if team.Spent != 0 {
		t.Fatalf("double refund: spent = %d", team.Spent)
	}
}

func TestWithdrawAndReinstate(t *testing.T) {
	s := fixture()
	s.Status = StatusRunning

	mustApply(t, s, Command{Type: CmdWithdraw, PlayerID: "p2", Reason: "injury"})
	if p := s.Players["p2"]; p.Status != PlayerWithdrawn || p.WithdrawReason != "injury" {
		t.Fatalf("player: %+v", p)
	}
	if _, err := Apply(s, Command{Type: CmdWithdraw, PlayerID: "p2"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("double withdraw: want conflict, got %v", err)
	}

	mustApply(t, s, Command{Type: CmdReinstate, PlayerID: "p2"})
	if p := s.Players["p2"]; p.Status != PlayerAvailable || p.WithdrawReason != "" {
		t.Fatalf("player after reinstate: %+v", p)
	}
}

func TestWithdrawSoldPlayerRequiresRevoke(t *testing.T) {
	s := fixture()
	s.Status = StatusRunning
	mustApply(t, s, Command{Type: CmdDirectAssign, PlayerID: "p1", TeamID: "team-a", Amount: 1500})

	if _, err := Apply(s, Command{Type: CmdWithdraw, PlayerID: "p1"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("want conflict, got %v", err)
	}
}

func TestWithdrawActivePlayerClearsBlock(t *testing.T) {
	s := fixture()
	mustApply(t, s, Command{Type: CmdStart})
	mustApply(t, s, Command{Type: CmdPlaceBid, TeamID: "team-a", Amount: 1000})

	mustApply(t, s, Command{Type: CmdWithdraw, PlayerID: "p1", Reason: "pulled out"})
	if s.ActivePlayerID != "" || s.LeadingTeamID != "" {
		t.Fatalf("block not cleared: %+v", s)
	}
}

func TestEditSoldSameTeamDelta(t *testing.T) {
	s := fixture()
	s.Status = StatusRunning
	mustApply(t, s, Command{Type: CmdDirectAssign, PlayerID: "p1", TeamID: "team-a", Amount: 2000})

	events := mustApply(t, s, Command{Type: CmdEditSold, PlayerID: "p1", TeamID: "team-a", Amount: 2500})
	pay := events[0].Payload.(PlayerSoldPayload)
	if !pay.Edited || pay.Price != 2500 {
		t.Fatalf("payload: %+v", pay)
	}
	team := s.Teams["team-a"]
	if team.Spent != 2500 || team.PlayersBought != 1 {
		t.Fatalf("team: %+v", team)
	}
}

func TestEditSoldReassignsTeams(t *testing.T) {
	s := fixture()
	s.Status = StatusRunning
	mustApply(t, s, Command{Type: CmdDirectAssign, PlayerID: "p1", TeamID: "team-a", Amount: 2000})

	mustApply(t, s, Command{Type: CmdEditSold, PlayerID: "p1", TeamID: "team-b", Amount: 3000})
	if s.Teams["team-a"].Spent != 0 || s.Teams["team-a"].PlayersBought != 0 {
		t.Fatalf("old team not refunded: %+v", s.Teams["team-a"])
	}
	if s.Teams["team-b"].Spent != 3000 || s.Teams["team-b"].PlayersBought != 1 {
		t.Fatalf("new team not charged: %+v", s.Teams["team-b"])
	}
	if s.Players["p1"].SoldToTeamID != "team-b" {
		t.Fatalf("sold to %s", s.Players["p1"].SoldToTeamID)
	}
}

func TestEditSoldAfterCompletion(t *testing.T) {
	s := fixture()
	s.Status = StatusRunning
	mustApply(t, s, Command{Type: CmdDirectAssign, PlayerID: "p1", TeamID: "team-a", Amount: 2000})
	mustApply(t, s, Command{Type: CmdEnd})

	// Corrections stay available after the hammer falls for the last time.
	mustApply(t, s, Command{Type: CmdEditSold, PlayerID: "p1", TeamID: "team-a", Amount: 1800})
	if s.Players["p1"].SoldPrice != 1800 {
		t.Fatalf("price = %d", s.Players["p1"].SoldPrice)
	}
}

func TestEndReleasesActivePlayer(t *testing.T) {
	s := fixture()
	mustApply(t, s, Command{Type: CmdStart})
	mustApply(t, s, Command{Type: CmdEnd})

	if s.Status != StatusCompleted {
		t.Fatalf("status = %s", s.Status)
	}
	if s.Players["p1"].Status != PlayerAvailable {
		t.Fatalf("p1 status = %s", s.Players["p1"].Status)
	}
	if _, err := Apply(s, Command{Type: CmdEnd}); !errors.Is(err, ErrConflict) {
		t.Fatalf("double end: want conflict, got %v", err)
	}
}

func TestAuctionCompletesWhenRosterExhausted(t *testing.T) {
	s := fixture()
	s.Status = StatusRunning
	for _, id := range []string{"p1", "p2", "p3"} {
		mustApply(t, s, Command{Type: CmdDirectAssign, PlayerID: id, TeamID: "team-a", Amount: 100})
	}

	events := mustApply(t, s, Command{Type: CmdPresentNext})
	if len(events) != 1 || events[0].Name != EvtAuctionEnd {
		t.Fatalf("unexpected events: %+v", events)
	}
	if s.Status != StatusCompleted {
		t.Fatalf("status = %s", s.Status)
	}
}

func TestRestartWipesDerivedState(t *testing.T) {
	s := fixture()
	mustApply(t, s, Command{Type: CmdStart})
	mustApply(t, s, Command{Type: CmdPlaceBid, TeamID: "team-a", Amount: 1000})
	mustApply(t, s, Command{Type: CmdTimerExpired}) // p1 sold
	mustApply(t, s, Command{Type: CmdLock})

	events := mustApply(t, s, Command{Type: CmdUnlock})
	if events[0].Name != EvtAuctionUnlocked {
		t.Fatalf("unexpected events: %+v", events)
	}

	events = mustApply(t, s, Command{Type: CmdRestart})
	if len(events) != 2 || events[0].Name != EvtAuctionRestarted || events[1].Name != EvtSyncDisplay {
		t.Fatalf("unexpected events: %+v", events)
	}
	if s.Status != StatusNotStarted || s.Round != 0 || s.Locked {
		t.Fatalf("session: %+v", s)
	}
	for id, p := range s.Players {
		if p.Status != PlayerAvailable || p.SoldToTeamID != "" || len(p.Bids) != 0 {
			t.Fatalf("player %s not reset: %+v", id, p)
		}
	}
	for id, team := range s.Teams {
		if team.Spent != 0 || team.PlayersBought != 0 || team.Overdraft {
			t.Fatalf("team %s not reset: %+v", id, team)
		}
	}
}

func TestMarkUnsoldSkipsPlayer(t *testing.T) {
	s := fixture()
	s.Status = StatusRunning

	mustApply(t, s, Command{Type: CmdMarkUnsold, PlayerID: "p3"})
	if s.Players["p3"].Status != PlayerUnsold {
		t.Fatalf("status = %s", s.Players["p3"].Status)
	}

	mustApply(t, s, Command{Type: CmdDirectAssign, PlayerID: "p1", TeamID: "team-a", Amount: 1000})
	if _, err := Apply(s, Command{Type: CmdMarkUnsold, PlayerID: "p1"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("sold player: want conflict, got %v", err)
	}
}

func TestUpdateSettingsValidation(t *testing.T) {
	s := fixture()

	bad := DefaultSettings()
	bad.TimerSec = 0
	if _, err := Apply(s, Command{Type: CmdUpdateSettings, Settings: &bad}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("zero timer: want invalid, got %v", err)
	}

	good := DefaultSettings()
	good.TimerSec = 45
	good.AutoTimeoutAction = TimeoutPending
	events := mustApply(t, s, Command{Type: CmdUpdateSettings, Settings: &good})
	if events[0].Name != EvtSyncDisplay {
		t.Fatalf("unexpected events: %+v", events)
	}
	if s.Settings.TimerSec != 45 {
		t.Fatalf("settings not applied: %+v", s.Settings)
	}
}

func TestLedgerInvariantAcrossFlight(t *testing.T) {
	s := fixture()
	s.Settings.AutoNext = true
	mustApply(t, s, Command{Type: CmdStart})
	mustApply(t, s, Command{Type: CmdPlaceBid, TeamID: "team-a", Amount: 1000})
	mustApply(t, s, Command{Type: CmdTimerExpired}) // p1 sold, p2 presented
	mustApply(t, s, Command{Type: CmdPlaceBid, TeamID: "team-b", Amount: 500})
	mustApply(t, s, Command{Type: CmdTimerExpired}) // p2 sold, p3 presented
	mustApply(t, s, Command{Type: CmdRevokeSale, PlayerID: "p1"})

	for id, team := range s.Teams {
		var sum int64
		for _, p := range s.Players {
			if p.Status == PlayerSold && p.SoldToTeamID == id {
				sum += p.SoldPrice
			}
		}
		if sum != team.Spent {
			t.Fatalf("team %s: spent %d != sum of sales %d", id, team.Spent, sum)
		}
	}
}
