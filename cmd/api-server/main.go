package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/logger"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/scheduling"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	zlog.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.Duration("booking_min", cfg.BookingMinDuration),
		zap.Duration("booking_max", cfg.BookingMaxDuration),
		zap.Duration("search_max", cfg.SearchMaxDuration))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy := scheduling.Policy{
		BookingMinDuration: cfg.BookingMinDuration,
		BookingMaxDuration: cfg.BookingMaxDuration,
		SearchMaxDuration:  cfg.SearchMaxDuration,
		OpenHour:           cfg.OpenHour,
		CloseHour:          cfg.CloseHour,
		MaxAlternatives:    cfg.MaxAlternatives,
		SearchHorizonDays:  cfg.SearchHorizonDays,
	}

	store := scheduling.NewStore()
	locker := scheduling.NewMutexLocker()
	strategy := scheduling.NewFirstAvailableStrategy(policy)
	svc := scheduling.NewService(store, locker, strategy, policy, zlog)
	agg := scheduling.NewAggregator(svc)

	collector := metrics.NewCollector("clinic_scheduling")

	sweeper := scheduling.NewSweeper(svc, cfg.SweepInterval, cfg.NoShowGrace, zlog)
	sweeper.OnMarked(func(count int) { collector.NoShowsMarked.Add(float64(count)) })
	go sweeper.Run(rootCtx)

	router := api.NewRouter(api.RouterConfig{
		Service:    svc,
		Aggregator: agg,
		Metrics:    collector,
		Logger:     zlog,
		Env:        cfg.Env,
		Version:    version,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		zlog.Info("listening", zap.String("addr", srv.Addr))
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("http server error", zap.Error(err))
		}
	case <-rootCtx.Done():
		zlog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
	zlog.Info("api-server stopped")
}
