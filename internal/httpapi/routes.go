package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ulmjahfar/playlivepro/internal/engine"
	"github.com/ulmjahfar/playlivepro/internal/ws"
)

func SetupRoutes(s *Server, wsHandler *ws.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/ws", wsHandler.Serve)

	r.Route("/api", func(r chi.Router) {
		r.Post("/seats/login", s.SeatLogin)

		r.Route("/auctions/{code}", func(r chi.Router) {
			// public reads: the snapshot resync contract
			r.Get("/state", s.LiveState)
			r.Get("/teams", s.LiveTeams)

			// seat or admin
			r.Post("/bids", s.PlaceBid)
			r.Post("/votes", s.CastVote)

			// admin controls
			r.Group(func(r chi.Router) {
				r.Use(s.AdminOnly)

				r.Post("/start", s.SessionControl(engine.CmdStart))
				r.Post("/pause", s.SessionControl(engine.CmdPause))
				r.Post("/resume", s.SessionControl(engine.CmdResume))
				r.Post("/end", s.SessionControl(engine.CmdEnd))
				r.Post("/lock", s.SessionControl(engine.CmdLock))
				r.Post("/unlock", s.SessionControl(engine.CmdUnlock))
				r.Post("/restart", s.SessionControl(engine.CmdRestart))
				r.Post("/next", s.SessionControl(engine.CmdPresentNext))
				r.Post("/finalize", s.SessionControl(engine.CmdFinalizeSale))
				r.Put("/settings", s.UpdateSettings)

				r.Route("/players/{playerID}", func(r chi.Router) {
					r.Post("/force-auction", s.PlayerControl(engine.CmdForceAuction))
					r.Post("/direct-assign", s.DirectAssign)
					r.Post("/revoke", s.RevokeSale)
					r.Post("/reinstate", s.PlayerControl(engine.CmdReinstate))
					r.Post("/unsold", s.PlayerControl(engine.CmdMarkUnsold))
					r.Post("/withdraw", s.WithdrawPlayer)
					r.Put("/sale", s.UpdateSoldPlayer)
				})
			})
		})
	})

	return r
}
