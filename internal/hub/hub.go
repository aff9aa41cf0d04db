package hub

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ulmjahfar/playlivepro/internal/auction"
	"github.com/ulmjahfar/playlivepro/internal/store"
)

type HubMsg interface{ isHubMsg() }

// EnsureRoom returns the live room for a tournament code, loading its state
// from the store on first touch. Reply receives nil when the tournament does
// not exist.
type EnsureRoom struct {
	Code  string
	Reply chan *auction.Room
}

// RemoveRoom shuts a room down and forgets it; the next EnsureRoom reloads
// from the store. Used after an auction restart.
type RemoveRoom struct {
	Code string
}

type ShutdownHub struct{}

func (EnsureRoom) isHubMsg()  {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Hub is the registry actor mapping tournament codes to rooms. Rooms for
// different tournaments run independently; the hub only serializes lookup
// and creation.
type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*auction.Room
	st     store.Store
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, st store.Store, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  map[string]*auction.Room{},
		st:     st,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Ensure is the synchronous wrapper the HTTP/WS layers use.
func (h *Hub) Ensure(ctx context.Context, code string) (*auction.Room, error) {
	reply := make(chan *auction.Room, 1)
	select {
	case h.inbox <- EnsureRoom{Code: code, Reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case room := <-reply:
		if room == nil {
			return nil, store.ErrNotFound
		}
		return room, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureRoom:
				if room := h.rooms[msg.Code]; room != nil {
					msg.Reply <- room
					break
				}
				msg.Reply <- h.load(msg.Code)

			case RemoveRoom:
				if room := h.rooms[msg.Code]; room != nil {
					room.Inbox() <- auction.Shutdown{}
					delete(h.rooms, msg.Code)
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) load(code string) *auction.Room {
	st, err := h.st.LoadState(h.ctx, code)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.Error("load tournament", zap.String("code", code), zap.Error(err))
		}
		return nil
	}
	room := auction.NewRoom(h.ctx, h.st, st, h.log)
	h.rooms[code] = room
	h.log.Info("room created", zap.String("code", code))
	return room
}

func (h *Hub) shutdown() {
	for code, room := range h.rooms {
		room.Inbox() <- auction.Shutdown{}
		delete(h.rooms, code)
	}
	h.cancel()
}
