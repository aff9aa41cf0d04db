package engine

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("stale auction state")
	ErrLocked             = errors.New("auction locked")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalid            = errors.New("invalid")
	ErrUnsupportedCommand = errors.New("unsupported command")
)

// RejectReason classifies why a bid was refused. All of these are
// user-recoverable and are surfaced inline to the bidder.
type RejectReason string

const (
	ReasonBelowIncrement      RejectReason = "below_increment"
	ReasonQuotaFull           RejectReason = "quota_full"
	ReasonInsufficientBalance RejectReason = "insufficient_balance"
	ReasonSelfOutbid          RejectReason = "self_outbid"
	ReasonBidLimit            RejectReason = "bid_limit_reached"
	ReasonNotBiddable         RejectReason = "not_biddable"
)

type RejectedBidError struct {
	Reason RejectReason
	Detail string
}

func (e *RejectedBidError) Error() string {
	if e.Detail == "" {
		return "bid rejected: " + string(e.Reason)
	}
	return fmt.Sprintf("bid rejected: %s: %s", e.Reason, e.Detail)
}

func reject(reason RejectReason, format string, args ...any) error {
	return &RejectedBidError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}
