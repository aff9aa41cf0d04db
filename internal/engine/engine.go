package engine

import (
	"fmt"
	"time"
)

type CommandType string

const (
	CmdStart          CommandType = "Start"
	CmdPresentNext    CommandType = "PresentNext"
	CmdPlaceBid       CommandType = "PlaceBid"
	CmdTimerExpired   CommandType = "TimerExpired"
	CmdFinalizeSale   CommandType = "FinalizeSale"
	CmdPause          CommandType = "Pause"
	CmdResume         CommandType = "Resume"
	CmdEnd            CommandType = "End"
	CmdLock           CommandType = "Lock"
	CmdUnlock         CommandType = "Unlock"
	CmdRestart        CommandType = "Restart"
	CmdMarkUnsold     CommandType = "MarkUnsold"
	CmdWithdraw       CommandType = "Withdraw"
	CmdForceAuction   CommandType = "ForceAuction"
	CmdDirectAssign   CommandType = "DirectAssign"
	CmdRevokeSale     CommandType = "RevokeSale"
	CmdReinstate      CommandType = "Reinstate"
	CmdEditSold       CommandType = "EditSold"
	CmdCastVote       CommandType = "CastVote"
	CmdUpdateSettings CommandType = "UpdateSettings"
)

type Command struct {
	Type     CommandType
	TeamID   string
	PlayerID string
	SeatID   string
	Amount   int64
	Reason   string
	Vote     VoteAction
	// BypassBalance is the explicit admin override for direct-assign and
	// sale edits; never set implicitly.
	BypassBalance bool
	Source        string
	Settings      *Settings
	// At is the wall-clock timestamp the room stamps on bid-producing
	// commands; the engine itself never reads a clock.
	At time.Time
	// ConnectedSeats is supplied by the room for dynamic-quorum tallies.
	ConnectedSeats []string
}

// Apply runs one command against the auction aggregate. The caller owns s
// and must serialize calls; on error the state is unchanged, with one
// exception: a failed sale finalization degrades the player to unsold and
// returns both that event and the error, per the budget hard-stop rule.
func Apply(s *State, cmd Command) ([]Event, error) {
	if s.Locked {
		switch cmd.Type {
		case CmdUnlock:
			return applyUnlock(s)
		case CmdLock:
			return nil, nil // already locked
		case CmdTimerExpired:
			return nil, nil // timer races a freeze: discard
		default:
			return nil, ErrLocked
		}
	}

	switch cmd.Type {
	case CmdStart:
		return applyStart(s)
	case CmdPresentNext:
		return applyPresentNext(s)
	case CmdPlaceBid:
		return applyPlaceBid(s, cmd)
	case CmdTimerExpired:
		return applyTimerExpired(s)
	case CmdFinalizeSale:
		return applyFinalizeSale(s, cmd)
	case CmdPause:
		return applyPause(s)
	case CmdResume:
		return applyResume(s)
	case CmdEnd:
		return applyEnd(s)
	case CmdLock:
		s.Locked = true
		return []Event{publicEvent(EvtAuctionLocked, nil)}, nil
	case CmdUnlock:
		return nil, nil // not locked
	case CmdRestart:
		return applyRestart(s)
	case CmdMarkUnsold:
		return applyMarkUnsold(s, cmd)
	case CmdWithdraw:
		return applyWithdraw(s, cmd)
	case CmdForceAuction:
		return applyForceAuction(s, cmd)
	case CmdDirectAssign:
		return applyDirectAssign(s, cmd)
	case CmdRevokeSale:
		return applyRevokeSale(s, cmd)
	case CmdReinstate:
		return applyReinstate(s, cmd)
	case CmdEditSold:
		return applyEditSold(s, cmd)
	case CmdCastVote:
		return applyCastVote(s, cmd)
	case CmdUpdateSettings:
		return applyUpdateSettings(s, cmd)
	default:
		return nil, ErrUnsupportedCommand
	}
}

// presentPlayer puts p on the block: opening bid at base price, no leader,
// fresh vote rounds. Exits LastCall if the previous player left one behind.
func presentPlayer(s *State, p *Player, forced bool) []Event {
	p.Status = PlayerOnBlock
	s.ActivePlayerID = p.ID
	s.CurrentBid = p.BasePrice
	s.LeadingTeamID = ""
	s.ActiveBidCount = 0
	s.QuotaBypass = forced
	s.resetVotes()
	s.Round++
	s.Status = StatusRunning

	return []Event{publicEvent(EvtPlayerNext, PlayerNextPayload{
		PlayerID:   p.ID,
		Name:       p.Name,
		BasePrice:  p.BasePrice,
		OpeningBid: p.BasePrice,
		Round:      s.Round,
		Forced:     forced,
	})}
}

func applyStart(s *State) ([]Event, error) {
	if s.Status != StatusNotStarted {
		return nil, fmt.Errorf("%w: auction already %s", ErrConflict, s.Status)
	}
	p := nextPlayer(s)
	if p == nil {
		return nil, fmt.Errorf("%w: no available players", ErrInvalid)
	}
	s.Status = StatusRunning
	events := []Event{publicEvent(EvtAuctionStart, nil)}
	return append(events, presentPlayer(s, p, false)...), nil
}

func applyPresentNext(s *State) ([]Event, error) {
	if s.Status != StatusRunning && s.Status != StatusLastCall {
		return nil, fmt.Errorf("%w: auction is %s", ErrConflict, s.Status)
	}
	if s.ActivePlayerID != "" {
		return nil, fmt.Errorf("%w: player %s still on the block", ErrConflict, s.ActivePlayerID)
	}
	return advanceOrComplete(s), nil
}

// advanceOrComplete presents the next eligible player, or completes the
// auction when none remain.
func advanceOrComplete(s *State) []Event {
	if p := nextPlayer(s); p != nil {
		return presentPlayer(s, p, false)
	}
	s.Status = StatusCompleted
	s.clearBlock()
	return []Event{publicEvent(EvtAuctionEnd, nil)}
}

func applyPlaceBid(s *State, cmd Command) ([]Event, error) {
	if err := validateBid(s, cmd.TeamID, cmd.Amount); err != nil {
		return nil, err
	}
	return []Event{applyBid(s, cmd.TeamID, cmd.Amount, cmd.Source, cmd.At)}, nil
}

func applyTimerExpired(s *State) ([]Event, error) {
	// Expiry against an already-transitioned state is a race, not an error.
	if (s.Status != StatusRunning && s.Status != StatusLastCall) || s.ActivePlayerID == "" {
		return nil, nil
	}

	if s.LeadingTeamID != "" {
		events, err := finalizeSale(s)
		if err != nil {
			return events, err
		}
		return appendAutoNext(s, events), nil
	}

	// No bid. One short last call if configured and not already in it.
	if s.Status == StatusRunning && s.Settings.EnableLastCall && s.Settings.LastCallSec > 0 {
		s.Status = StatusLastCall
		return []Event{publicEvent(EvtLastCallStarted, LastCallPayload{
			PlayerID: s.ActivePlayerID,
			Seconds:  s.Settings.LastCallSec,
		})}, nil
	}

	events := timeoutPlayer(s)
	return appendAutoNext(s, events), nil
}

func appendAutoNext(s *State, events []Event) []Event {
	if !s.Settings.AutoNext {
		return events
	}
	return append(events, advanceOrComplete(s)...)
}

// timeoutPlayer resolves an expired no-bid player per the auto-timeout
// setting: parked as pending for a retry round, or unsold outright.
func timeoutPlayer(s *State) []Event {
	p := s.ActivePlayer()
	outcome := PlayerUnsold
	if s.Settings.AutoTimeoutAction == TimeoutPending {
		outcome = PlayerPending
		s.pendedCounter++
		p.PendedSeq = s.pendedCounter
	}
	p.Status = outcome
	s.clearBlock()
	return []Event{publicEvent(EvtPlayerUnsold, PlayerUnsoldPayload{PlayerID: p.ID, Outcome: outcome})}
}

// finalizeSale sells the active player to the leading team. A failed budget
// or quota check is a hard stop: the player degrades to unsold and the error
// is surfaced rather than leaving a sold-but-unaffordable state.
func finalizeSale(s *State) ([]Event, error) {
	p := s.ActivePlayer()
	team := s.Teams[s.LeadingTeamID]
	price := s.CurrentBid

	if err := chargeTeam(team, price, Override{Quota: s.QuotaBypass}); err != nil {
		p.Status = PlayerUnsold
		s.clearBlock()
		evt := publicEvent(EvtPlayerUnsold, PlayerUnsoldPayload{PlayerID: p.ID, Outcome: PlayerUnsold})
		return []Event{evt}, fmt.Errorf("finalize sale for %s: %w", p.ID, err)
	}

	tx := TxAuction
	if s.QuotaBypass {
		tx = TxForceAuction
	}
	markSold(p, team.ID, price, tx)
	s.clearBlock()
	return []Event{publicEvent(EvtPlayerSold, PlayerSoldPayload{
		PlayerID: p.ID,
		TeamID:   team.ID,
		Price:    price,
		TxType:   tx,
	})}, nil
}

// markSold is the only place sold fields are set; they are set together and
// cleared together (see clearSold).
func markSold(p *Player, teamID string, price int64, tx TxType) {
	p.Status = PlayerSold
	p.SoldPrice = price
	p.SoldToTeamID = teamID
	p.TxType = tx
}

func clearSold(p *Player) {
	p.SoldPrice = 0
	p.SoldToTeamID = ""
	p.TxType = ""
}

func applyFinalizeSale(s *State, cmd Command) ([]Event, error) {
	if s.ActivePlayerID == "" {
		return nil, fmt.Errorf("%w: no player on the block", ErrConflict)
	}
	if cmd.PlayerID != "" && cmd.PlayerID != s.ActivePlayerID {
		return nil, fmt.Errorf("%w: player %s is not on the block", ErrConflict, cmd.PlayerID)
	}
	if s.LeadingTeamID == "" {
		return nil, fmt.Errorf("%w: no bid to finalize", ErrConflict)
	}
	events, err := finalizeSale(s)
	if err != nil {
		return events, err
	}
	return appendAutoNext(s, events), nil
}

func applyPause(s *State) ([]Event, error) {
	if s.Status != StatusRunning && s.Status != StatusLastCall {
		return nil, fmt.Errorf("%w: auction is %s", ErrConflict, s.Status)
	}
	s.pausedFrom = s.Status
	s.Status = StatusPaused
	return []Event{publicEvent(EvtAuctionPause, nil)}, nil
}

func applyResume(s *State) ([]Event, error) {
	if s.Status != StatusPaused {
		return nil, fmt.Errorf("%w: auction is %s", ErrConflict, s.Status)
	}
	s.Status = s.pausedFrom
	if s.Status == "" {
		s.Status = StatusRunning
	}
	s.pausedFrom = ""
	return []Event{publicEvent(EvtAuctionResume, nil)}, nil
}

func applyEnd(s *State) ([]Event, error) {
	if s.Status == StatusCompleted {
		return nil, fmt.Errorf("%w: auction already completed", ErrConflict)
	}
	if p := s.ActivePlayer(); p != nil {
		p.Status = PlayerAvailable
	}
	s.clearBlock()
	s.Status = StatusCompleted
	s.pausedFrom = ""
	return []Event{publicEvent(EvtAuctionEnd, nil)}, nil
}

func applyUnlock(s *State) ([]Event, error) {
	s.Locked = false
	return []Event{publicEvent(EvtAuctionUnlocked, nil)}, nil
}

// applyRestart wipes all derived auction state back to initial. The only
// supported way to re-run a tournament's auction.
func applyRestart(s *State) ([]Event, error) {
	for _, p := range s.Players {
		p.Status = PlayerAvailable
		p.WithdrawReason = ""
		p.Bids = nil
		p.PendedSeq = 0
		clearSold(p)
	}
	for _, t := range s.Teams {
		t.Spent = 0
		t.PlayersBought = 0
		t.Overdraft = false
	}
	s.clearBlock()
	s.Status = StatusNotStarted
	s.Round = 0
	s.Locked = false
	s.pausedFrom = ""
	s.pendedCounter = 0
	return []Event{
		publicEvent(EvtAuctionRestarted, nil),
		publicEvent(EvtSyncDisplay, nil),
	}, nil
}

func applyMarkUnsold(s *State, cmd Command) ([]Event, error) {
	p, ok := s.Players[cmd.PlayerID]
	if !ok {
		return nil, fmt.Errorf("%w: player %s", ErrNotFound, cmd.PlayerID)
	}
	if s.Status == StatusCompleted {
		return nil, fmt.Errorf("%w: auction already completed", ErrConflict)
	}
	switch {
	case s.ActivePlayerID == p.ID:
		s.clearBlock()
	case p.Status == PlayerAvailable || p.Status == PlayerPending:
		// skipped without ever going on the block
	default:
		return nil, fmt.Errorf("%w: player is %s", ErrConflict, p.Status)
	}
	p.Status = PlayerUnsold
	return []Event{publicEvent(EvtPlayerUnsold, PlayerUnsoldPayload{PlayerID: p.ID, Outcome: PlayerUnsold})}, nil
}

func applyWithdraw(s *State, cmd Command) ([]Event, error) {
	p, ok := s.Players[cmd.PlayerID]
	if !ok {
		return nil, fmt.Errorf("%w: player %s", ErrNotFound, cmd.PlayerID)
	}
	switch p.Status {
	case PlayerSold:
		return nil, fmt.Errorf("%w: player is sold, revoke the sale instead", ErrConflict)
	case PlayerWithdrawn:
		return nil, fmt.Errorf("%w: player already withdrawn", ErrConflict)
	}
	if s.ActivePlayerID == p.ID {
		s.clearBlock()
	}
	p.Status = PlayerWithdrawn
	p.WithdrawReason = cmd.Reason
	return []Event{publicEvent(EvtPlayerWithdrawn, PlayerWithdrawnPayload{
		PlayerID: p.ID,
		Reason:   cmd.Reason,
	})}, nil
}

// applyForceAuction returns a parked player to the block with the quota
// bypass armed for the eventual sale.
func applyForceAuction(s *State, cmd Command) ([]Event, error) {
	if s.Status != StatusRunning && s.Status != StatusLastCall {
		return nil, fmt.Errorf("%w: auction is %s", ErrConflict, s.Status)
	}
	if s.ActivePlayerID != "" {
		return nil, fmt.Errorf("%w: player %s still on the block", ErrConflict, s.ActivePlayerID)
	}
	p, ok := s.Players[cmd.PlayerID]
	if !ok {
		return nil, fmt.Errorf("%w: player %s", ErrNotFound, cmd.PlayerID)
	}
	if p.Status != PlayerPending && p.Status != PlayerUnsold {
		return nil, fmt.Errorf("%w: player is %s", ErrConflict, p.Status)
	}
	return presentPlayer(s, p, true), nil
}

func applyDirectAssign(s *State, cmd Command) ([]Event, error) {
	if s.Status == StatusCompleted {
		return nil, fmt.Errorf("%w: auction already completed", ErrConflict)
	}
	p, ok := s.Players[cmd.PlayerID]
	if !ok {
		return nil, fmt.Errorf("%w: player %s", ErrNotFound, cmd.PlayerID)
	}
	team, ok := s.Teams[cmd.TeamID]
	if !ok {
		return nil, fmt.Errorf("%w: team %s", ErrNotFound, cmd.TeamID)
	}
	if cmd.Amount < 0 {
		return nil, fmt.Errorf("%w: negative price", ErrInvalid)
	}
	switch p.Status {
	case PlayerSold:
		return nil, fmt.Errorf("%w: player already sold", ErrConflict)
	case PlayerWithdrawn:
		return nil, fmt.Errorf("%w: player is withdrawn, reinstate first", ErrConflict)
	}

	// Quota is always bypassed for a direct assign; balance only on the
	// explicit admin flag, or for a zero-price gift.
	ov := Override{Quota: true, Balance: cmd.BypassBalance || cmd.Amount == 0}
	if err := chargeTeam(team, cmd.Amount, ov); err != nil {
		return nil, err
	}
	if s.ActivePlayerID == p.ID {
		s.clearBlock()
	}
	markSold(p, team.ID, cmd.Amount, TxDirectAssign)
	return []Event{publicEvent(EvtPlayerSold, PlayerSoldPayload{
		PlayerID: p.ID,
		TeamID:   team.ID,
		Price:    cmd.Amount,
		TxType:   TxDirectAssign,
	})}, nil
}

// applyRevokeSale reverses a completed sale. Idempotence: the second revoke
// finds the player withdrawn and errors without a second refund.
func applyRevokeSale(s *State, cmd Command) ([]Event, error) {
	p, ok := s.Players[cmd.PlayerID]
	if !ok {
		return nil, fmt.Errorf("%w: player %s", ErrNotFound, cmd.PlayerID)
	}
	if p.Status != PlayerSold {
		return nil, fmt.Errorf("%w: player is %s, not sold", ErrConflict, p.Status)
	}
	team := s.Teams[p.SoldToTeamID]
	refund := p.SoldPrice
	refundTeam(team, refund)
	clearSold(p)
	p.Status = PlayerWithdrawn
	p.WithdrawReason = cmd.Reason
	return []Event{publicEvent(EvtPlayerWithdrawn, PlayerWithdrawnPayload{
		PlayerID: p.ID,
		Reason:   cmd.Reason,
		TeamID:   team.ID,
		Refund:   refund,
	})}, nil
}

func applyReinstate(s *State, cmd Command) ([]Event, error) {
	if s.Status == StatusCompleted {
		return nil, fmt.Errorf("%w: auction already completed", ErrConflict)
	}
	p, ok := s.Players[cmd.PlayerID]
	if !ok {
		return nil, fmt.Errorf("%w: player %s", ErrNotFound, cmd.PlayerID)
	}
	if p.Status != PlayerWithdrawn {
		return nil, fmt.Errorf("%w: player is %s, not withdrawn", ErrConflict, p.Status)
	}
	p.Status = PlayerAvailable
	p.WithdrawReason = ""
	return []Event{publicEvent(EvtPlayerReinstated, PlayerWithdrawnPayload{PlayerID: p.ID})}, nil
}

// applyEditSold corrects a recorded sale: price delta for the same team, or
// a refund/charge pair when the buyer changes. Corrective, so it remains
// available after completion.
func applyEditSold(s *State, cmd Command) ([]Event, error) {
	p, ok := s.Players[cmd.PlayerID]
	if !ok {
		return nil, fmt.Errorf("%w: player %s", ErrNotFound, cmd.PlayerID)
	}
	if p.Status != PlayerSold {
		return nil, fmt.Errorf("%w: player is %s, not sold", ErrConflict, p.Status)
	}
	newTeam, ok := s.Teams[cmd.TeamID]
	if !ok {
		return nil, fmt.Errorf("%w: team %s", ErrNotFound, cmd.TeamID)
	}
	if cmd.Amount < 0 {
		return nil, fmt.Errorf("%w: negative price", ErrInvalid)
	}

	oldTeam := s.Teams[p.SoldToTeamID]
	if newTeam.ID == oldTeam.ID {
		delta := cmd.Amount - p.SoldPrice
		if newTeam.Balance()-delta < 0 && !cmd.BypassBalance {
			return nil, reject(ReasonInsufficientBalance,
				"team %s balance %d cannot absorb price change to %d", newTeam.Name, newTeam.Balance(), cmd.Amount)
		}
		newTeam.Spent += delta
		newTeam.Overdraft = newTeam.Balance() < 0
	} else {
		if err := chargeTeam(newTeam, cmd.Amount, Override{Quota: true, Balance: cmd.BypassBalance}); err != nil {
			return nil, err
		}
		refundTeam(oldTeam, p.SoldPrice)
	}

	p.SoldPrice = cmd.Amount
	p.SoldToTeamID = newTeam.ID
	return []Event{publicEvent(EvtPlayerSold, PlayerSoldPayload{
		PlayerID: p.ID,
		TeamID:   newTeam.ID,
		Price:    cmd.Amount,
		TxType:   p.TxType,
		Edited:   true,
	})}, nil
}

func applyCastVote(s *State, cmd Command) ([]Event, error) {
	seat, ok := s.Seats[cmd.SeatID]
	if !ok {
		return nil, fmt.Errorf("%w: seat %s", ErrNotFound, cmd.SeatID)
	}
	if seat.TeamID != cmd.TeamID || seat.Status != SeatActive {
		return nil, fmt.Errorf("%w: seat %s cannot vote for team %s", ErrUnauthorized, cmd.SeatID, cmd.TeamID)
	}
	if !seat.IsVoter && !seat.IsLead {
		return nil, fmt.Errorf("%w: seat %s is not a voter", ErrUnauthorized, cmd.SeatID)
	}
	if !s.Biddable() {
		if s.Locked {
			return nil, ErrLocked
		}
		return nil, reject(ReasonNotBiddable, "auction is %s", s.Status)
	}
	if cmd.Vote != VoteCall && cmd.Vote != VotePass {
		return nil, fmt.Errorf("%w: vote must be call or pass", ErrInvalid)
	}

	policy, ok := s.Policies[cmd.TeamID]
	if !ok {
		policy = SeatPolicy{Mode: ModeAny}
	}
	round := s.Votes[cmd.TeamID]
	if round == nil {
		round = newVoteRound()
		s.Votes[cmd.TeamID] = round
	}
	round.Votes[seat.ID] = cmd.Vote

	eligible := eligibleVoters(s, cmd.TeamID, policy, cmd.ConnectedSeats)
	triggered := decideTrigger(policy, round, eligible, seat, cmd.Vote)
	calls, passes := round.tally()
	tally := Event{
		Name:   EvtVoteTally,
		Scope:  ScopeTeam,
		TeamID: cmd.TeamID,
		Payload: VoteTallyPayload{
			TeamID:    cmd.TeamID,
			PlayerID:  s.ActivePlayerID,
			SeatID:    seat.ID,
			Action:    cmd.Vote,
			Calls:     calls,
			Passes:    passes,
			Needed:    callsNeeded(policy, len(eligible)),
			Triggered: triggered,
		},
	}
	if !triggered {
		return []Event{tally}, nil
	}

	amount := s.RequiredNextBid()
	if err := validateBid(s, cmd.TeamID, amount); err != nil {
		// Consensus reached but the bid cannot stand (self-outbid, balance,
		// quota). The tally is still reported; the error goes to the caller.
		return []Event{tally}, err
	}
	bid := applyBid(s, cmd.TeamID, amount, "vote", cmd.At)
	return []Event{tally, bid}, nil
}

func applyUpdateSettings(s *State, cmd Command) ([]Event, error) {
	if cmd.Settings == nil {
		return nil, fmt.Errorf("%w: missing settings", ErrInvalid)
	}
	next := *cmd.Settings
	if next.TimerSec <= 0 {
		return nil, fmt.Errorf("%w: timer must be positive", ErrInvalid)
	}
	if next.EnableLastCall && next.LastCallSec <= 0 {
		return nil, fmt.Errorf("%w: last-call timer must be positive", ErrInvalid)
	}
	if next.AutoTimeoutAction != TimeoutPending && next.AutoTimeoutAction != TimeoutUnsold {
		return nil, fmt.Errorf("%w: unknown auto-timeout action %q", ErrInvalid, next.AutoTimeoutAction)
	}
	if err := next.Increment.Validate(); err != nil {
		return nil, err
	}
	s.Settings = next
	return []Event{publicEvent(EvtSyncDisplay, nil)}, nil
}
