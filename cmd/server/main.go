package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/avdeev/tandem/internal/adapters/http"
	signaladapter "github.com/avdeev/tandem/internal/adapters/signal"
	"github.com/avdeev/tandem/internal/app"
	"github.com/avdeev/tandem/internal/config"
	"github.com/avdeev/tandem/internal/database"
	"github.com/avdeev/tandem/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	store, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer store.Close()

	reg := app.NewRegistry()
	notify := signaladapter.NewNotifier(reg)
	ledger := app.NewLedger(store, notify, cfg.RecordRetries, cfg.RecordBackoff)
	matchmaker := app.NewMatchmaker(store, ledger, notify)
	relay := app.NewRelay(ledger, notify)

	// Disconnect cleanup runs before the registry drops the handle:
	// first leave the queue or pool, then force-end any live room.
	reg.OnDisconnect(func(id domain.ConnID) {
		matchmaker.Leave(id)
		ledger.ForceEndByConnection(context.Background(), id)
	})

	ctl := signaladapter.NewController(cfg, reg, matchmaker, ledger, relay, notify)

	r := router.SetupRouter(ctx, cfg, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Tandem server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
