package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kobohq/kobo-clipper/internal/api"
	"github.com/kobohq/kobo-clipper/internal/config"
	"github.com/kobohq/kobo-clipper/internal/handler"
	"github.com/kobohq/kobo-clipper/internal/handler/message"
	"github.com/kobohq/kobo-clipper/internal/model/session"
	"github.com/kobohq/kobo-clipper/internal/protocol"
	"github.com/kobohq/kobo-clipper/internal/service/coordinator"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	if os.Getenv("CLIPPER_DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file, using system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	store, err := session.Open(cfg.Storage.SessionFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open session store")
	}

	gateway := api.NewClient(cfg.API.BaseURL)
	gateway.SetTenant(cfg.API.CompanyID, cfg.API.BrandID)

	svc := coordinator.NewService(store, gateway)

	dispatcher := protocol.NewDispatcher()
	message.BindCoordinator(dispatcher, svc)

	router := handler.NewRouter(message.New(dispatcher))

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", serverCfg.Addr).Msg("clipper daemon listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
