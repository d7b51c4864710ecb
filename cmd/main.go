package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timoknapp/orienteering-finder/pkg/api"
	"github.com/timoknapp/orienteering-finder/pkg/cache"
	"github.com/timoknapp/orienteering-finder/pkg/competition"
	"github.com/timoknapp/orienteering-finder/pkg/config"
	"github.com/timoknapp/orienteering-finder/pkg/eventor"
	"github.com/timoknapp/orienteering-finder/pkg/logger"
	"github.com/timoknapp/orienteering-finder/pkg/metrics"
	"github.com/timoknapp/orienteering-finder/pkg/models"
	"github.com/timoknapp/orienteering-finder/pkg/openstreetmap"
	"github.com/timoknapp/orienteering-finder/pkg/scheduler"
	"github.com/timoknapp/orienteering-finder/pkg/storage"
	"github.com/timoknapp/orienteering-finder/pkg/suggest"
)

const pageFetchTimeout = 20 * time.Second

type closableStore interface {
	storage.Store
	io.Closer
}

func openStore(ctx context.Context, cfg config.Config) (closableStore, error) {
	if cfg.RedisAddr != "" {
		logger.Info("Using Redis store at %s (db %d)", cfg.RedisAddr, cfg.RedisDB)
		return storage.OpenRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}
	logger.Info("Using bbolt store at %s", cfg.StorePath())
	return storage.OpenBoltStore(cfg.StorePath())
}

func main() {
	logger.Info("Starting Orienteering Competition Finder backend server...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	metrics.Init()

	geocache, err := cache.NewBoltStore(cfg.GeocodeCachePath())
	if err != nil {
		logger.Error("Failed to open geocode cache: %v", err)
		os.Exit(1)
	}
	defer geocache.Close()
	if stats, err := geocache.GetCacheStatistics(); err == nil {
		logger.Info("Geocode cache initialized: %v", stats)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	list, err := competition.LoadSample()
	if err != nil {
		logger.Error("Failed to load competitions: %v", err)
		os.Exit(1)
	}
	service := competition.NewService(list, store)
	logger.Info("Loaded %d competitions", len(list))

	hc := &http.Client{Timeout: cfg.GeocodeTimeout}
	resolver := openstreetmap.NewResolver(geocache, cfg.GeocodeTimeout,
		openstreetmap.NewNominatim(cfg.NominatimURL, cfg.UserAgent, hc),
		openstreetmap.NewPhoton(cfg.PhotonURL, cfg.UserAgent, hc),
	)
	hub := suggest.NewHub(cfg.SuggestQuiet, resolver.Suggest)
	fetcher := eventor.NewFetcher(cfg.UserAgent, pageFetchTimeout)

	sched, err := scheduler.New(cfg.Scheduler, func(ctx context.Context) error {
		removed, err := geocache.CleanupFailed()
		if err != nil {
			return err
		}
		res := competition.Warmup(ctx, service, resolver, fetcher, models.DateOf(time.Now()))
		logger.Info("Warmup finished: %+v (%d permanently failed cache entries removed)", res, removed)
		return ctx.Err()
	})
	if err != nil {
		logger.Error("Failed to create scheduler: %v", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()
	metrics.SetReloadCallback(sched.Reload)
	if cfg.Scheduler.Enabled {
		go sched.RunNow()
	}

	server := api.NewServer(service, resolver, hub, store)
	metrics.RegisterComponent("scheduler", func() any { return sched.Status() })
	metrics.RegisterComponent("api", func() any { return server.Status() })
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed: %v", err)
		}
	}()

	logger.Info("Starting HTTP server on %s...", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed to start: %v", err)
	}
}
