package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saxenaaman628/trip-poll/config"
	"github.com/saxenaaman628/trip-poll/internal/api"
	"github.com/saxenaaman628/trip-poll/internal/controller"
	"github.com/saxenaaman628/trip-poll/internal/metrics"
	"github.com/saxenaaman628/trip-poll/internal/orchestrator"
	"github.com/saxenaaman628/trip-poll/internal/places"
	"github.com/saxenaaman628/trip-poll/internal/ranking"
	"github.com/saxenaaman628/trip-poll/internal/redis"
	redishandler "github.com/saxenaaman628/trip-poll/internal/redisHandler"
	"github.com/saxenaaman628/trip-poll/internal/store"
)

func main() {
	config.LoadEnv()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec, err := metrics.NewPrometheus(reg, "trip_poll")
	if err != nil {
		return err
	}

	st, closeStore, err := newStore(ctx, cfg, rec, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	placesClient, err := places.New(cfg.PlacesKey, places.WithMetrics(rec), places.WithLogger(logger))
	if err != nil {
		return err
	}

	orch := orchestrator.New(st, placesClient, placesClient,
		orchestrator.WithRanker(ranking.Engine{K: cfg.TopK, MaxVariance: cfg.MaxVariance, Weights: ranking.DefaultWeights}),
		orchestrator.WithSearchRadius(cfg.SearchRadiusM),
		orchestrator.WithTimeout(cfg.ExternalTimeout),
		orchestrator.WithLeaseTTL(cfg.GenerationLease),
		orchestrator.WithMetrics(rec),
		orchestrator.WithLogger(logger),
	)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	api.RegisterRoutes(r, api.Deps{
		Controller: controller.New(orch),
		Reader:     api.NewReader(orch),
		JWTSecret:  cfg.JWTSecret,
		TokenTTL:   cfg.TokenTTL,
		Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "store", cfg.StoreBackend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newStore(ctx context.Context, cfg config.Config, rec metrics.Recorder, logger *slog.Logger) (store.Store, func(), error) {
	if cfg.StoreBackend == "memory" {
		logger.Warn("using in-memory store, data is lost on restart")
		return store.NewMemory(), func() {}, nil
	}

	rdb, err := redis.NewClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	st := redishandler.NewStore(rdb,
		redishandler.WithMaxRetries(cfg.TxMaxRetries),
		redishandler.WithMetrics(rec),
		redishandler.WithLogger(logger),
	)
	return st, func() { _ = rdb.Close() }, nil
}
