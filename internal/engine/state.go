package engine

import "time"

// Status is the lifecycle status of an auction session. Locked is tracked
// separately on State because it can overlay any running status.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusRunning    Status = "running"
	StatusPaused     Status = "paused"
	StatusLastCall   Status = "last_call"
	StatusCompleted  Status = "completed"
)

type PlayerStatus string

const (
	PlayerAvailable PlayerStatus = "available"
	PlayerOnBlock   PlayerStatus = "on_block"
	PlayerPending   PlayerStatus = "pending"
	PlayerSold      PlayerStatus = "sold"
	PlayerUnsold    PlayerStatus = "unsold"
	PlayerWithdrawn PlayerStatus = "withdrawn"
)

type TxType string

const (
	TxAuction      TxType = "auction"
	TxDirectAssign TxType = "direct_assign"
	TxForceAuction TxType = "force_auction"
)

// TimeoutAction is what happens to an unbid player when its timer runs out.
type TimeoutAction string

const (
	TimeoutPending TimeoutAction = "pending"
	TimeoutUnsold  TimeoutAction = "unsold"
)

type SeatStatus string

const (
	SeatInvited  SeatStatus = "invited"
	SeatActive   SeatStatus = "active"
	SeatDisabled SeatStatus = "disabled"
)

// Bid is one accepted bid in a player's history. Append-only.
type Bid struct {
	TeamID string    `json:"team_id"`
	Amount int64     `json:"amount"`
	At     time.Time `json:"at"`
}

type Player struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	BasePrice      int64        `json:"base_price"`
	Status         PlayerStatus `json:"status"`
	SoldPrice      int64        `json:"sold_price,omitempty"`
	SoldToTeamID   string       `json:"sold_to,omitempty"`
	TxType         TxType       `json:"tx_type,omitempty"`
	WithdrawReason string       `json:"withdraw_reason,omitempty"`
	Bids           []Bid        `json:"bids,omitempty"`
	// Seq is registration order; PendedSeq orders the pending-retry queue.
	Seq       int `json:"seq"`
	PendedSeq int `json:"pended_seq,omitempty"`
}

type Team struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Code          string `json:"code"`
	Budget        int64  `json:"budget"`
	Spent         int64  `json:"spent"`
	PlayersBought int    `json:"players_bought"`
	MaxPlayers    int    `json:"max_players"`
	// Overdraft marks that an admin balance bypass pushed this team negative.
	Overdraft bool `json:"overdraft,omitempty"`
}

func (t *Team) Balance() int64 { return t.Budget - t.Spent }

func (t *Team) QuotaFull() bool {
	return t.MaxPlayers > 0 && t.PlayersBought >= t.MaxPlayers
}

// Seat is a delegated remote-control identity under a team. The PIN hash is
// bcrypt; it never leaves the server.
type Seat struct {
	ID       string     `json:"id"`
	TeamID   string     `json:"team_id"`
	Label    string     `json:"label"`
	Role     string     `json:"role"`
	IsLead   bool       `json:"is_lead"`
	IsVoter  bool       `json:"is_voter"`
	Status   SeatStatus `json:"status"`
	SeatCode string     `json:"seat_code"`
	PINHash  string     `json:"-"`
}

type Settings struct {
	TimerSec              int           `json:"timer_sec"`
	LastCallSec           int           `json:"last_call_sec"`
	EnableLastCall        bool          `json:"enable_last_call"`
	AutoNext              bool          `json:"auto_next"`
	AutoTimeoutAction     TimeoutAction `json:"auto_timeout_action"`
	MaxBidsPerPlayer      int           `json:"max_bids_per_player"` // 0 = unlimited
	PendingRetryThreshold int           `json:"pending_retry_threshold"`
	Increment             IncrementRule `json:"increment"`
}

// DefaultSettings matches the defaults new tournaments are provisioned with.
func DefaultSettings() Settings {
	return Settings{
		TimerSec:          30,
		LastCallSec:       10,
		EnableLastCall:    true,
		AutoNext:          false,
		AutoTimeoutAction: TimeoutUnsold,
		Increment:         IncrementRule{Mode: IncrementFixed, Step: 100},
	}
}

// State is the full auction aggregate for one tournament. It is owned by a
// single room goroutine; Apply is the only mutator.
type State struct {
	TournamentID string
	Code         string
	Status       Status
	Locked       bool
	Round        int
	Settings     Settings

	ActivePlayerID string
	CurrentBid     int64
	LeadingTeamID  string
	ActiveBidCount int
	// QuotaBypass is set when the active player was force-auctioned; the
	// eventual sale skips the squad-quota check.
	QuotaBypass bool

	Players  map[string]*Player
	Order    []string // player ids in registration order
	Teams    map[string]*Team
	Seats    map[string]*Seat
	Policies map[string]SeatPolicy // keyed by team id
	Votes    map[string]*VoteRound // keyed by team id, scoped to active player

	pendedCounter int
	// pausedFrom remembers whether Paused was entered from Running or
	// LastCall so resume returns to the right phase.
	pausedFrom Status
}

func NewState(tournamentID, code string) *State {
	return &State{
		TournamentID: tournamentID,
		Code:         code,
		Status:       StatusNotStarted,
		Settings:     DefaultSettings(),
		Players:      map[string]*Player{},
		Teams:        map[string]*Team{},
		Seats:        map[string]*Seat{},
		Policies:     map[string]SeatPolicy{},
		Votes:        map[string]*VoteRound{},
	}
}

// AddPlayer registers a player in presentation order.
func (s *State) AddPlayer(p *Player) {
	if p.Status == "" {
		p.Status = PlayerAvailable
	}
	p.Seq = len(s.Order)
	s.Players[p.ID] = p
	s.Order = append(s.Order, p.ID)
}

func (s *State) AddTeam(t *Team) {
	s.Teams[t.ID] = t
	if _, ok := s.Policies[t.ID]; !ok {
		s.Policies[t.ID] = SeatPolicy{Mode: ModeAny}
	}
}

func (s *State) AddSeat(seat *Seat) {
	s.Seats[seat.ID] = seat
}

// ActivePlayer returns the player on the block, or nil.
func (s *State) ActivePlayer() *Player {
	if s.ActivePlayerID == "" {
		return nil
	}
	return s.Players[s.ActivePlayerID]
}

// Biddable reports whether bids and votes may currently be accepted.
func (s *State) Biddable() bool {
	if s.Locked {
		return false
	}
	return (s.Status == StatusRunning || s.Status == StatusLastCall) && s.ActivePlayerID != ""
}

// SeatsForTeam returns the team's seats. Order is unspecified; callers only
// count or filter.
func (s *State) SeatsForTeam(teamID string) []*Seat {
	var out []*Seat
	for _, seat := range s.Seats {
		if seat.TeamID == teamID {
			out = append(out, seat)
		}
	}
	return out
}

// Normalize rebuilds internal counters after the aggregate is reassembled
// from persisted rows.
func (s *State) Normalize() {
	s.pendedCounter = 0
	for _, p := range s.Players {
		if p.PendedSeq > s.pendedCounter {
			s.pendedCounter = p.PendedSeq
		}
	}
}

func (s *State) resetVotes() {
	s.Votes = map[string]*VoteRound{}
}

func (s *State) clearBlock() {
	s.ActivePlayerID = ""
	s.CurrentBid = 0
	s.LeadingTeamID = ""
	s.ActiveBidCount = 0
	s.QuotaBypass = false
	s.resetVotes()
}
