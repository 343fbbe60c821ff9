package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/tobiodua/bankcore/internal/api"
	"github.com/tobiodua/bankcore/internal/api/middleware"
	"github.com/tobiodua/bankcore/internal/config"
	"github.com/tobiodua/bankcore/internal/db"
	"github.com/tobiodua/bankcore/internal/idempotency"
	"github.com/tobiodua/bankcore/internal/ledger"
	"github.com/tobiodua/bankcore/internal/observability"
	"github.com/tobiodua/bankcore/internal/store"
	"github.com/tobiodua/bankcore/internal/store/memory"
	"github.com/tobiodua/bankcore/internal/store/postgres"
	"github.com/tobiodua/bankcore/internal/worker"
	"go.uber.org/zap"
)

// Run bootstraps the ledger services, the integrity worker and the HTTP
// server, blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pool *pgxpool.Pool
	var st store.Store
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pool, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		pg := postgres.New(pool)
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		st = pg
	default:
		st = memory.New(memory.WithLockRetry(cfg.LockRetryLimit, cfg.LockRetryDelay))
	}
	logger.Info("storage ready", zap.String("driver", cfg.StorageDriver))

	var redisClient *redis.Client
	var idemStore *idempotency.Store
	if cfg.RedisURL != "" {
		redisClient, err = newRedisClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		idemStore = idempotency.NewStore(redisClient, cfg.IdempotencyTTL)
	} else {
		logger.Warn("redis not configured, idempotency replay disabled")
	}

	directory := ledger.NewDirectory(st)
	registry := ledger.NewRegistry(st)
	postingLedger := ledger.NewLedger(st)
	coordinator := ledger.NewCoordinator(st)
	cards := ledger.NewCards(st)
	integrity := ledger.NewIntegrity(st)

	integrityWorker := worker.NewIntegrityWorker(integrity).WithInterval(cfg.IntegrityInterval)
	stopWorker := integrityWorker.Run(ctx)
	logger.Info("integrity worker started", zap.Duration("interval", cfg.IntegrityInterval))

	router := &api.Router{
		Directory:   directory,
		Registry:    registry,
		Ledger:      postingLedger,
		Coordinator: coordinator,
		Cards:       cards,
		Pool:        pool,
		Redis:       redisClient,
		Idempotency: idemStore,
		Logger:      logger,
		JWTSecret:   []byte(cfg.JWTSecret),
		JWTIssuer:   cfg.JWTIssuer,
		JWTAudience: cfg.JWTAudience,
		TokenTTL:    cfg.TokenTTL,
		PublicRPS:   cfg.PublicRateLimitRPS,
		AuthRPS:     cfg.AuthRateLimitRPS,
	}

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping integrity worker")
	stopWorker()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
