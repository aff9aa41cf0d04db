package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ulmjahfar/playlivepro/internal/auth"
	"github.com/ulmjahfar/playlivepro/internal/config"
	"github.com/ulmjahfar/playlivepro/internal/engine"
	"github.com/ulmjahfar/playlivepro/internal/hub"
	"github.com/ulmjahfar/playlivepro/internal/store"
)

type Server struct {
	hub *hub.Hub
	st  store.Store
	cfg config.Config
	log *zap.Logger
}

func NewServer(h *hub.Hub, st store.Store, cfg config.Config, log *zap.Logger) *Server {
	return &Server{hub: h, st: st, cfg: cfg, log: log}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// --- seat login ---

type seatLoginRequest struct {
	TournamentCode string `json:"tournament_code"`
	TeamCode       string `json:"team_code"`
	SeatCode       string `json:"seat_code"`
	PIN            string `json:"pin"`
}

type seatLoginResponse struct {
	Token  string `json:"token"`
	TeamID string `json:"team_id"`
	SeatID string `json:"seat_id"`
}

func (s *Server) SeatLogin(w http.ResponseWriter, r *http.Request) {
	var req seatLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json", "")
		return
	}
	seat, err := s.st.SeatForLogin(r.Context(), req.TournamentCode, req.TeamCode, req.SeatCode)
	if err != nil {
		// do not leak whether team or seat code was wrong
		writeError(w, http.StatusUnauthorized, "invalid seat credentials", "")
		return
	}
	if seat.Status != engine.SeatActive || !auth.VerifyPIN(seat.PINHash, req.PIN) {
		writeError(w, http.StatusUnauthorized, "invalid seat credentials", "")
		return
	}
	token, err := auth.NewSeatToken(s.cfg.JWTSecret, req.TournamentCode, seat.TeamID, seat.ID, s.cfg.SeatTTL)
	if err != nil {
		s.log.Error("seat token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", "")
		return
	}
	writeJSON(w, http.StatusOK, seatLoginResponse{Token: token, TeamID: seat.TeamID, SeatID: seat.ID})
}

// --- live reads ---

func (s *Server) LiveState(w http.ResponseWriter, r *http.Request) {
	room, err := s.hub.Ensure(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	snap, err := room.Snapshot(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) LiveTeams(w http.ResponseWriter, r *http.Request) {
	room, err := s.hub.Ensure(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	snap, err := room.Snapshot(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Teams)
}

// --- bidding and voting ---

type placeBidRequest struct {
	TeamID string `json:"team_id,omitempty"` // admin only; seats bid as their own team
	Amount int64  `json:"amount"`
}

func (s *Server) PlaceBid(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req placeBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json", "")
		return
	}

	cmd := engine.Command{Type: engine.CmdPlaceBid, Amount: req.Amount, Source: "admin"}
	if s.isAdmin(r) {
		cmd.TeamID = req.TeamID
	} else {
		claims, err := s.seatClaims(r, code)
		if err != nil {
			s.writeErr(w, err)
			return
		}
		cmd.TeamID = claims.TeamID
		cmd.Source = "seat"
	}
	s.execute(w, r, code, cmd)
}

type castVoteRequest struct {
	Action string `json:"action"` // "call" | "pass"
}

func (s *Server) CastVote(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	claims, err := s.seatClaims(r, code)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	var req castVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json", "")
		return
	}
	s.execute(w, r, code, engine.Command{
		Type:   engine.CmdCastVote,
		TeamID: claims.TeamID,
		SeatID: claims.SeatID,
		Vote:   engine.VoteAction(req.Action),
	})
}

// --- admin session controls ---

// SessionControl builds a handler for the plain status transitions that
// carry no request body.
func (s *Server) SessionControl(cmdType engine.CommandType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.execute(w, r, chi.URLParam(r, "code"), engine.Command{Type: cmdType})
	}
}

type withReason struct {
	Reason string `json:"reason"`
}

func (s *Server) WithdrawPlayer(w http.ResponseWriter, r *http.Request) {
	var req withReason
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.execute(w, r, chi.URLParam(r, "code"), engine.Command{
		Type:     engine.CmdWithdraw,
		PlayerID: chi.URLParam(r, "playerID"),
		Reason:   req.Reason,
	})
}

func (s *Server) RevokeSale(w http.ResponseWriter, r *http.Request) {
	var req withReason
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.execute(w, r, chi.URLParam(r, "code"), engine.Command{
		Type:     engine.CmdRevokeSale,
		PlayerID: chi.URLParam(r, "playerID"),
		Reason:   req.Reason,
	})
}

func (s *Server) PlayerControl(cmdType engine.CommandType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.execute(w, r, chi.URLParam(r, "code"), engine.Command{
			Type:     cmdType,
			PlayerID: chi.URLParam(r, "playerID"),
		})
	}
}

type assignRequest struct {
	TeamID        string `json:"team_id"`
	Price         int64  `json:"price"`
	BypassBalance bool   `json:"bypass_balance,omitempty"`
}

func (s *Server) DirectAssign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json", "")
		return
	}
	s.execute(w, r, chi.URLParam(r, "code"), engine.Command{
		Type:          engine.CmdDirectAssign,
		PlayerID:      chi.URLParam(r, "playerID"),
		TeamID:        req.TeamID,
		Amount:        req.Price,
		BypassBalance: req.BypassBalance,
	})
}

func (s *Server) UpdateSoldPlayer(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json", "")
		return
	}
	s.execute(w, r, chi.URLParam(r, "code"), engine.Command{
		Type:          engine.CmdEditSold,
		PlayerID:      chi.URLParam(r, "playerID"),
		TeamID:        req.TeamID,
		Amount:        req.Price,
		BypassBalance: req.BypassBalance,
	})
}

func (s *Server) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings engine.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "bad json", "")
		return
	}
	s.execute(w, r, chi.URLParam(r, "code"), engine.Command{
		Type:     engine.CmdUpdateSettings,
		Settings: &settings,
	})
}

// --- plumbing ---

// execute routes a command through the tournament's room and renders the
// outcome: the post-command snapshot on success, the mapped error otherwise.
func (s *Server) execute(w http.ResponseWriter, r *http.Request, code string, cmd engine.Command) {
	room, err := s.hub.Ensure(r.Context(), code)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	res, err := room.Execute(r.Context(), cmd)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if res.Err != nil {
		s.writeErr(w, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		State  any `json:"state"`
		Events any `json:"events,omitempty"`
	}{State: res.State, Events: res.Events})
}

func (s *Server) isAdmin(r *http.Request) bool {
	return s.cfg.AdminToken != "" && r.Header.Get("X-Admin-Token") == s.cfg.AdminToken
}

// seatClaims authenticates a seat request and pins the token to the
// tournament in the URL.
func (s *Server) seatClaims(r *http.Request, code string) (*auth.SeatClaims, error) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" {
		return nil, auth.ErrInvalidToken
	}
	claims, err := auth.ParseSeatToken(s.cfg.JWTSecret, raw)
	if err != nil {
		return nil, err
	}
	if claims.TournamentCode != code {
		return nil, auth.ErrInvalidToken
	}
	return claims, nil
}

// AdminOnly gates the admin route group on the shared token header.
func (s *Server) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.isAdmin(r) {
			writeError(w, http.StatusUnauthorized, "admin token required", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	var rej *engine.RejectedBidError
	switch {
	case errors.As(err, &rej):
		writeError(w, http.StatusUnprocessableEntity, rej.Detail, string(rej.Reason))
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, engine.ErrConflict):
		writeError(w, http.StatusConflict, err.Error(), "")
	case errors.Is(err, engine.ErrLocked):
		writeError(w, http.StatusLocked, err.Error(), "")
	case errors.Is(err, engine.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error(), "")
	case errors.Is(err, engine.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error(), "")
	default:
		s.log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, reason string) {
	writeJSON(w, status, struct {
		Error  string `json:"error"`
		Reason string `json:"reason,omitempty"`
	}{Error: msg, Reason: reason})
}
