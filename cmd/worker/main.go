// ===========================================
// URL Shortener - Hit Worker Entry Point
// ===========================================
// Drains the hit-event queue and keeps total_hits eventually
// consistent with what the redirect path has actually served.
//
// Follows the same fail-fast-at-startup, manual-DI, graceful-shutdown
// shape as cmd/server.
// ===========================================

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/theakinwande/shortlink/internal/config"
	"github.com/theakinwande/shortlink/internal/hitstorage"
	"github.com/theakinwande/shortlink/internal/obs"
	"github.com/theakinwande/shortlink/internal/queue"
	"github.com/theakinwande/shortlink/internal/store"
	"github.com/theakinwande/shortlink/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := obs.NewLogger(os.Getenv("GIN_MODE") != "release")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting hit worker")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := store.Connect(ctx, store.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    int32(cfg.Database.MaxOpenConns),
		MaxIdleConns:    int32(cfg.Database.MaxIdleConns),
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:         mustParseRedisAddr(cfg.Redis.URL),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	queueStrategy, err := queue.New(queue.Config{
		Backend:       queue.Backend(cfg.Queue.Backend),
		RedisClient:   redisClient,
		Stream:        cfg.Queue.Stream,
		ConsumerGroup: cfg.Queue.ConsumerGroup,
		ClaimMinIdle:  cfg.Queue.ClaimMinIdle,
	})
	if err != nil {
		logger.Error("failed to build queue strategy", "error", err)
		os.Exit(1)
	}

	hitStorage, err := hitstorage.New(ctx, hitstorage.Config{
		Backend:        hitstorage.Backend(cfg.HitStorage.Backend),
		SQLitePath:     cfg.HitStorage.SQLitePath,
		ColumnStoreURL: cfg.HitStorage.ColumnStoreURL,
		BufferSize:     cfg.HitStorage.BufferSize,
		FlushInterval:  cfg.HitStorage.FlushInterval,
	})
	if err != nil {
		logger.Error("failed to build hit storage strategy", "error", err)
		os.Exit(1)
	}
	defer hitStorage.Close(context.Background())

	metrics := obs.NewWorkerMetrics(prometheus.DefaultRegisterer)

	w := worker.New(queueStrategy, hitStorage, st, worker.Config{
		BatchSize:     cfg.Queue.BatchSize,
		PollBlock:     cfg.Queue.PollInterval,
		FlushInterval: cfg.HitStorage.FlushInterval,
	}, logger, metrics)

	runCtx, runCancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- w.Run(runCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down hit worker")
	runCancel()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("worker stopped with error", "error", err)
		}
	case <-time.After(30 * time.Second):
		logger.Error("worker shutdown deadline exceeded")
	}

	logger.Info("hit worker stopped")
}

// mustParseRedisAddr extracts host:port from a redis:// URL, falling
// back to treating the value as a bare address if parsing fails.
func mustParseRedisAddr(rawURL string) string {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return rawURL
	}
	return opts.Addr
}
