package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ulmjahfar/playlivepro/internal/auction"
	"github.com/ulmjahfar/playlivepro/internal/auth"
	"github.com/ulmjahfar/playlivepro/internal/config"
	"github.com/ulmjahfar/playlivepro/internal/engine"
	"github.com/ulmjahfar/playlivepro/internal/hub"
	"github.com/ulmjahfar/playlivepro/pkg/types"
)

const writeTimeout = 3 * time.Second

type Handler struct {
	hub *hub.Hub
	cfg config.Config
	log *zap.Logger
}

func NewHandler(h *hub.Hub, cfg config.Config, log *zap.Logger) *Handler {
	return &Handler{hub: h, cfg: cfg, log: log}
}

// Serve subscribes a session to a tournament's event stream. Role comes
// from credentials: the admin token or a seat JWT in the query string;
// everything else is a public display. Only seats may send frames.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	role := auction.RolePublic
	var claims *auth.SeatClaims
	if q := r.URL.Query().Get("admin_token"); q != "" && q == h.cfg.AdminToken {
		role = auction.RoleAdmin
	} else if raw := r.URL.Query().Get("token"); raw != "" {
		c, err := auth.ParseSeatToken(h.cfg.JWTSecret, raw)
		if err != nil || c.TournamentCode != code {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		role, claims = auction.RoleSeat, c
	}

	room, err := h.hub.Ensure(r.Context(), code)
	if err != nil {
		http.Error(w, "tournament not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	out := make(chan types.ServerMessage, 16)
	join := auction.Join{
		SessionID: uuid.NewString(),
		Role:      role,
		Outbox:    out,
	}
	if claims != nil {
		join.TeamID = claims.TeamID
		join.SeatID = claims.SeatID
	}
	select {
	case room.Inbox() <- join:
	case <-room.Done():
		return
	}
	defer func() {
		select {
		case room.Inbox() <- auction.Leave{SessionID: join.SessionID}:
		case <-room.Done():
		}
	}()

	// Writer goroutine: pushes snapshots/events until the room closes the
	// outbox (shutdown or slow-subscriber drop).
	writeCtx, writeCancel := context.WithCancel(r.Context())
	defer writeCancel()
	go func() {
		for msg := range out {
			payload, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
			_ = conn.Write(ctx, websocket.MessageText, payload)
			cancel()
		}
	}()

	// Reader loop. Public and admin sessions are read-only here; their
	// writes go through the REST API.
	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			return
		}
		if claims == nil {
			continue
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			h.writeError(r.Context(), conn, "bad json")
			continue
		}
		cmd, ok := toCommand(cm, claims)
		if !ok {
			h.writeError(r.Context(), conn, "unknown type")
			continue
		}

		res, err := room.Execute(r.Context(), cmd)
		if err != nil {
			return
		}
		if res.Err != nil {
			h.writeError(r.Context(), conn, res.Err.Error())
		}
	}
}

func toCommand(m types.ClientMessage, claims *auth.SeatClaims) (engine.Command, bool) {
	switch m.Type {
	case "PlaceBid":
		return engine.Command{
			Type:   engine.CmdPlaceBid,
			TeamID: claims.TeamID,
			Amount: m.Amount,
			Source: "seat",
		}, true
	case "CastVote":
		return engine.Command{
			Type:   engine.CmdCastVote,
			TeamID: claims.TeamID,
			SeatID: claims.SeatID,
			Vote:   engine.VoteAction(m.Action),
		}, true
	default:
		return engine.Command{}, false
	}
}

func (h *Handler) writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	payload, _ := json.Marshal(types.ServerMessage{Type: "error", Error: msg})
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}
