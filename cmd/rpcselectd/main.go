// Command rpcselectd runs the RPC endpoint selection and failover
// engine as a standalone daemon: a background health loop and an admin
// HTTP surface backed by a Postgres-or-memory store and a
// Redis-or-memory selection cache.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/R3E-Network/service_layer/infrastructure/rpcselect"
	rpccache "github.com/R3E-Network/service_layer/infrastructure/rpcselect/cache"
	"github.com/R3E-Network/service_layer/infrastructure/rpcselect/httpapi"
	"github.com/R3E-Network/service_layer/infrastructure/rpcselect/migrations"
	"github.com/R3E-Network/service_layer/infrastructure/rpcselect/prober"
	rpcstore "github.com/R3E-Network/service_layer/infrastructure/rpcselect/store"
	"github.com/R3E-Network/service_layer/pkg/logger"
)

func main() {
	migrateOnStart := flag.Bool("migrate", true, "apply embedded database migrations on startup (ignored for in-memory store)")
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log := logger.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := buildStore(ctx, cfg, *migrateOnStart)
	if err != nil {
		log.WithError(err).Fatal("rpcselectd: failed to build store")
	}
	defer closeStore()

	cache, closeCache := buildCache(cfg)
	defer closeCache()

	metrics := rpcselect.NewMetrics(prometheus.DefaultRegisterer)

	engineCfg := rpcselect.Config{
		CacheDuration:         time.Duration(cfg.RPC.CacheDurationSeconds) * time.Second,
		MaxConsecutiveErrors:  cfg.RPC.MaxConsecutiveErrors,
		RequestTimeout:        time.Duration(cfg.RPC.RequestTimeoutSeconds) * time.Second,
		AllowDisabledFallback: cfg.RPC.AllowDisabledFallback,
		HealthCheckInterval:   time.Duration(cfg.RPC.HealthCheckIntervalMins) * time.Minute,
		EnableHealthChecks:    cfg.RPC.EnableHealthChecks,
		Backoff: rpcselect.BackoffConfig{
			Base: time.Duration(cfg.RPC.BaseBackoffMinutes) * time.Minute,
			Max:  time.Duration(cfg.RPC.MaxBackoffMinutes) * time.Minute,
		},
		CacheKeyPrefix: cfg.RPC.CacheKeyPrefix,
	}

	selector := rpcselect.NewSelector(store, cache, nil, log, engineCfg).WithMetrics(metrics)
	healthLoop := rpcselect.NewHealthLoop(store, prober.New(), nil, log, engineCfg, selector.InvalidateChain).WithMetrics(metrics)

	go healthLoop.Run(ctx)

	router := httpapi.NewRouter(store, selector)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		log.WithField("addr", addr).Info("rpcselectd: admin HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("rpcselectd: HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("rpcselectd: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("rpcselectd: graceful shutdown failed")
	}
}

func buildStore(ctx context.Context, cfg *Config, migrateOnStart bool) (rpcselect.Store, func(), error) {
	dsn := cfg.Database.ResolvedDSN()
	if cfg.Database.UseMemory || dsn == "" {
		return rpcstore.NewMemory(), func() {}, nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if migrateOnStart {
		if err := migrations.Apply(ctx, db.DB); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
	}

	return rpcstore.NewPostgres(db), func() { _ = db.Close() }, nil
}

func buildCache(cfg *Config) (rpcselect.Cache, func()) {
	if cfg.Redis.UseMemory {
		return rpccache.NewMemory(), func() {}
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return rpccache.NewRedis(client), func() { _ = client.Close() }
}
