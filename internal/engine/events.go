package engine

// Scope controls which subscribers see an event. Public events reach every
// session; team events reach admins plus that team's seats; admin events
// reach admin sessions only.
type Scope string

const (
	ScopePublic Scope = "public"
	ScopeTeam   Scope = "team"
	ScopeAdmin  Scope = "admin"
)

const (
	EvtAuctionStart     = "auction:start"
	EvtAuctionPause     = "auction:pause"
	EvtAuctionResume    = "auction:resume"
	EvtAuctionEnd       = "auction:end"
	EvtAuctionLocked    = "auction:locked"
	EvtAuctionUnlocked  = "auction:unlocked"
	EvtAuctionRestarted = "auction:restarted"
	EvtLastCallStarted  = "auction:last-call-started"
	EvtPlayerWithdrawn  = "player:withdrawn"
	EvtPlayerNext       = "player:next"
	EvtPlayerReinstated = "player:reinstated"
	EvtPlayerSold       = "player:sold"
	EvtPlayerUnsold     = "player:unsold"
	EvtBidUpdate        = "bid:update"
	EvtVoteTally        = "vote:tally"
	EvtSyncDisplay      = "sync:display"
)

// Event is one state change as produced by Apply, in emission order. The
// room fans these out without reordering.
type Event struct {
	Name    string `json:"name"`
	Scope   Scope  `json:"-"`
	TeamID  string `json:"team_id,omitempty"` // set for ScopeTeam
	Payload any    `json:"payload,omitempty"`
}

type PlayerNextPayload struct {
	PlayerID   string `json:"player_id"`
	Name       string `json:"name"`
	BasePrice  int64  `json:"base_price"`
	OpeningBid int64  `json:"opening_bid"`
	Round      int    `json:"round"`
	Forced     bool   `json:"forced,omitempty"`
}

type BidUpdatePayload struct {
	PlayerID   string `json:"player_id"`
	TeamID     string `json:"team_id"`
	Amount     int64  `json:"amount"`
	NextMinBid int64  `json:"next_min_bid"`
	BidCount   int    `json:"bid_count"`
	Source     string `json:"source,omitempty"`
}

type PlayerSoldPayload struct {
	PlayerID string `json:"player_id"`
	TeamID   string `json:"team_id"`
	Price    int64  `json:"price"`
	TxType   TxType `json:"tx_type"`
	Edited   bool   `json:"edited,omitempty"`
}

type PlayerUnsoldPayload struct {
	PlayerID string       `json:"player_id"`
	Outcome  PlayerStatus `json:"outcome"` // unsold or pending
}

type PlayerWithdrawnPayload struct {
	PlayerID string `json:"player_id"`
	Reason   string `json:"reason,omitempty"`
	TeamID   string `json:"team_id,omitempty"` // refunded team, when a sale was revoked
	Refund   int64  `json:"refund,omitempty"`
}

type LastCallPayload struct {
	PlayerID string `json:"player_id"`
	Seconds  int    `json:"seconds"`
}

type VoteTallyPayload struct {
	TeamID    string     `json:"team_id"`
	PlayerID  string     `json:"player_id"`
	SeatID    string     `json:"seat_id"`
	Action    VoteAction `json:"action"`
	Calls     int        `json:"calls"`
	Passes    int        `json:"passes"`
	Needed    int        `json:"needed"`
	Triggered bool       `json:"triggered"`
}

func publicEvent(name string, payload any) Event {
	return Event{Name: name, Scope: ScopePublic, Payload: payload}
}
