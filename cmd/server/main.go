package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ulmjahfar/playlivepro/internal/config"
	"github.com/ulmjahfar/playlivepro/internal/httpapi"
	"github.com/ulmjahfar/playlivepro/internal/hub"
	"github.com/ulmjahfar/playlivepro/internal/store"
	"github.com/ulmjahfar/playlivepro/internal/ws"
)

func main() {
	cfg := config.Load()

	log, err := buildLogger(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	var st store.Store
	if cfg.DatabaseDSN != "" {
		g, err := store.Open(cfg.DatabaseDSN)
		if err != nil {
			log.Fatal("open database", zap.Error(err))
		}
		st = g
		log.Info("using postgres store")
	} else {
		st = store.NewMemory()
		log.Warn("no DATABASE_DSN set; auction state will not survive restarts")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(ctx, st, log)
	server := httpapi.NewServer(h, st, cfg, log)
	wsHandler := ws.NewHandler(h, cfg, log)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(server, wsHandler),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server", zap.Error(err))
	}
	log.Info("shut down cleanly")
}

func buildLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
