package auction

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ulmjahfar/playlivepro/internal/engine"
	"github.com/ulmjahfar/playlivepro/internal/store"
	"github.com/ulmjahfar/playlivepro/pkg/types"
)

// Role decides which event scopes a subscriber receives.
type Role string

const (
	RolePublic Role = "public"
	RoleSeat   Role = "seat"
	RoleAdmin  Role = "admin"
)

type Msg interface{ isRoomMsg() }

// Join subscribes a session to the room's event stream. The room replies
// with an immediate snapshot on the outbox.
type Join struct {
	SessionID string
	Role      Role
	TeamID    string
	SeatID    string
	Outbox    chan types.ServerMessage
}

type Leave struct{ SessionID string }

// Do applies one engine command. Reply is mandatory; the result carries the
// emitted events, the command error, and a post-command snapshot.
type Do struct {
	Cmd   engine.Command
	Reply chan Result
}

type Result struct {
	Events []engine.Event
	Err    error
	State  *types.LiveState
}

type GetSnapshot struct{ Reply chan *types.LiveState }

type Shutdown struct{}

type timerFired struct{ gen uint64 }

func (Join) isRoomMsg()        {}
func (Leave) isRoomMsg()       {}
func (Do) isRoomMsg()          {}
func (GetSnapshot) isRoomMsg() {}
func (Shutdown) isRoomMsg()    {}
func (timerFired) isRoomMsg()  {}

type subscriber struct {
	role   Role
	teamID string
	seatID string
	outbox chan types.ServerMessage
}

// Room owns one tournament's auction state. A single goroutine consumes the
// inbox, so every mutation on this tournament is serialized while separate
// tournaments run fully in parallel.
type Room struct {
	code    string
	inbox   chan Msg
	state   *engine.State
	version int
	subs    map[string]*subscriber
	st      store.Store
	log     *zap.Logger

	timerGen uint64
	timer    *time.Timer
	deadline time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

func NewRoom(parent context.Context, st store.Store, initial *engine.State, log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		code:   initial.Code,
		inbox:  make(chan Msg, 64),
		state:  initial,
		subs:   map[string]*subscriber{},
		st:     st,
		log:    log.With(zap.String("tournament", initial.Code)),
		ctx:    ctx,
		cancel: cancel,
	}
	go r.loop()
	return r
}

func (r *Room) Code() string      { return r.code }
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done closes when the room has shut down; senders should stop using Inbox.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

// Execute applies a command synchronously: the HTTP/WS layers' entry point.
func (r *Room) Execute(ctx context.Context, cmd engine.Command) (Result, error) {
	reply := make(chan Result, 1)
	select {
	case r.inbox <- Do{Cmd: cmd, Reply: reply}:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-r.ctx.Done():
		return Result{}, r.ctx.Err()
	}
	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Snapshot returns the authoritative current state for reconnect resync.
func (r *Room) Snapshot(ctx context.Context) (*types.LiveState, error) {
	reply := make(chan *types.LiveState, 1)
	select {
	case r.inbox <- GetSnapshot{Reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.ctx.Done():
		return nil, r.ctx.Err()
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.subs[msg.SessionID] = &subscriber{
					role:   msg.Role,
					teamID: msg.TeamID,
					seatID: msg.SeatID,
					outbox: msg.Outbox,
				}
				msg.Outbox <- types.ServerMessage{Type: "snapshot", Version: r.version, State: r.snapshot()}

			case Leave:
				if sub := r.subs[msg.SessionID]; sub != nil {
					// sole sender closing: lets the session's writer exit
					close(sub.outbox)
					delete(r.subs, msg.SessionID)
				}

			case Do:
				msg.Reply <- r.apply(msg.Cmd)

			case GetSnapshot:
				msg.Reply <- r.snapshot()

			case timerFired:
				if msg.gen != r.timerGen {
					// a re-arm beat this expiry to the inbox; discard
					r.log.Debug("stale timer fire dropped", zap.Uint64("gen", msg.gen))
					continue
				}
				r.deadline = time.Time{}
				res := r.apply(engine.Command{Type: engine.CmdTimerExpired})
				if res.Err != nil {
					// e.g. finalize hit a budget hard stop; the player was
					// degraded to unsold and admins see it in the event flow
					r.log.Error("timer expiry", zap.Error(res.Err))
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) apply(cmd engine.Command) Result {
	if cmd.At.IsZero() {
		cmd.At = time.Now()
	}
	if cmd.Type == engine.CmdCastVote {
		cmd.ConnectedSeats = r.connectedSeats(cmd.TeamID)
	}
	events, err := engine.Apply(r.state, cmd)
	if len(events) > 0 {
		r.persist(cmd, events)
		r.broadcast(events)
		r.updateTimer(events)
	}
	if err != nil {
		r.log.Debug("command rejected",
			zap.String("cmd", string(cmd.Type)),
			zap.Error(err))
	}
	return Result{Events: events, Err: err, State: r.snapshot()}
}

func (r *Room) snapshot() *types.LiveState {
	return types.NewLiveState(r.state, r.remaining())
}

func (r *Room) remaining() time.Duration {
	if r.deadline.IsZero() {
		return 0
	}
	if d := time.Until(r.deadline); d > 0 {
		return d
	}
	return 0
}

func (r *Room) connectedSeats(teamID string) []string {
	var out []string
	for _, sub := range r.subs {
		if sub.role == RoleSeat && sub.teamID == teamID && sub.seatID != "" {
			out = append(out, sub.seatID)
		}
	}
	return out
}

// broadcast fans events out in engine emission order, one version per event.
// Slow subscribers are dropped rather than allowed to stall the room.
func (r *Room) broadcast(events []engine.Event) {
	for _, evt := range events {
		r.version++
		msg := types.ServerMessage{Type: "event", Version: r.version, Event: evt.Name, Payload: evt.Payload}
		for id, sub := range r.subs {
			if !visibleTo(evt, sub) {
				continue
			}
			select {
			case sub.outbox <- msg:
			default:
				close(sub.outbox)
				delete(r.subs, id)
				r.log.Warn("dropped slow subscriber", zap.String("session", id))
			}
		}
	}
}

func visibleTo(evt engine.Event, sub *subscriber) bool {
	switch evt.Scope {
	case engine.ScopePublic:
		return true
	case engine.ScopeAdmin:
		return sub.role == RoleAdmin
	case engine.ScopeTeam:
		return sub.role == RoleAdmin || (sub.role == RoleSeat && sub.teamID == evt.TeamID)
	default:
		return false
	}
}

func (r *Room) shutdown() {
	r.cancelTimer()
	for id, sub := range r.subs {
		close(sub.outbox)
		delete(r.subs, id)
	}
	r.cancel()
}
