package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Jacksery/bus-tracker/internal/api"
	"github.com/Jacksery/bus-tracker/internal/bus"
	"github.com/Jacksery/bus-tracker/internal/config"
	"github.com/Jacksery/bus-tracker/internal/db"
	"github.com/Jacksery/bus-tracker/internal/metrics"
	"github.com/Jacksery/bus-tracker/internal/registry"
	"github.com/Jacksery/bus-tracker/internal/wager"
)

func main() {
	log := newLogger()

	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mcol := metrics.NewCollector(log.With().Str("component", "metrics").Logger())
	var metricsSrvCancel context.CancelFunc
	if cfg.MetricsAddr != "" {
		mctx, mcancel := context.WithCancel(ctx)
		metricsSrvCancel = mcancel
		srv := mcol.Serve(cfg.MetricsAddr)
		go func() {
			<-mctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db open error")
	}
	defer sqlDB.Close()
	if err := db.Ping(ctx, sqlDB); err != nil {
		log.Fatal().Err(err).Msg("db ping error")
	}

	// Seed the registry with journeys around the current instant
	reg := registry.New()
	if n, err := refreshJourneys(ctx, sqlDB, reg, cfg, mcol); err != nil {
		log.Fatal().Err(err).Msg("initial journey fetch error")
	} else if n == 0 {
		log.Warn().Msg("no journeys loaded for the current window")
	} else {
		log.Info().Int("journeys", n).Msg("registry seeded")
	}

	// NATS: inbound revision feed and outbound wager notices
	natsBus, err := bus.Connect(cfg.NATSURL, cfg.LogNATSSubjects, mcol, log.With().Str("component", "bus").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("nats error")
	}
	defer natsBus.Close()

	sub, err := natsBus.SubscribeRevisions(cfg.FeedSubject, func(rev bus.Revision) {
		if !reg.Revise(rev.RecordID, rev.ExpectedDeparture, rev.RecordedAt) {
			log.Debug().Str("record", rev.RecordID).Msg("revision dropped (unknown or stale)")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Msg("subscribe error")
	}
	defer sub.Unsubscribe()

	// Wager book and settlement sweep
	store := wager.NewStore(cfg.StartingBalance, wager.Limits{MinStake: cfg.MinStake, MaxStake: cfg.MaxStake})
	mcol.SetBalance(store.Balance())
	resolver := wager.NewResolver(reg, store, cfg.ResolveInterval, mcol, log.With().Str("component", "resolver").Logger())
	go resolver.Run(ctx)

	// Periodic journey refresh and registry pruning
	go func() {
		ticker := time.NewTicker(cfg.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if _, err := refreshJourneys(ctx, sqlDB, reg, cfg, mcol); err != nil {
				mcol.RefreshErrors.Inc()
				log.Error().Err(err).Msg("journey refresh error")
				continue
			}
			if removed := reg.Prune(time.Now().In(cfg.Location), cfg.Retention); removed > 0 {
				log.Info().Int("removed", removed).Msg("pruned finished journeys")
				mcol.RecordsTracked.Set(float64(reg.Len()))
			}
		}
	}()

	apiSrv := api.NewServer(reg, store, natsBus, mcol, log.With().Str("component", "api").Logger())
	srv := apiSrv.Serve(cfg.HTTPAddr)

	// Block until context cancelled
	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	if metricsSrvCancel != nil {
		metricsSrvCancel()
	}
	log.Info().Msg("shutdown complete")
}

func refreshJourneys(ctx context.Context, sqlDB *sql.DB, reg *registry.Registry, cfg *config.Config, mcol *metrics.Collector) (int, error) {
	now := time.Now().In(cfg.Location)
	recs, err := db.FetchActiveJourneys(ctx, sqlDB, now, cfg.Lookback, cfg.PreloadHorizon)
	if err != nil {
		return 0, err
	}
	stored := 0
	for _, rec := range recs {
		if reg.Upsert(rec) {
			stored++
		}
	}
	mcol.JourneysLoaded.Add(float64(stored))
	mcol.RecordsTracked.Set(float64(reg.Len()))
	return stored, nil
}

func newLogger() zerolog.Logger {
	if strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(writer).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
