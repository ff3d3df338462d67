// ===========================================
// URL Shortener - Server Entry Point
// ===========================================
// This is where everything comes together.
//
// RESPONSIBILITY:
// 1. Load configuration
// 2. Initialize dependencies (Postgres, Redis, hit storage)
// 3. Construct the cache/queue/short-code strategies from config
// 4. Set up HTTP server with middleware
// 5. Handle graceful shutdown
//
// DESIGN PRINCIPLE: "Fail Fast at Startup"
// If any critical dependency fails, crash immediately.
// Better to fail during deployment than serve broken requests.
// ===========================================

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/theakinwande/shortlink/internal/cache"
	"github.com/theakinwande/shortlink/internal/config"
	"github.com/theakinwande/shortlink/internal/hitstorage"
	"github.com/theakinwande/shortlink/internal/httpapi"
	"github.com/theakinwande/shortlink/internal/obs"
	"github.com/theakinwande/shortlink/internal/queue"
	"github.com/theakinwande/shortlink/internal/shortcode"
	"github.com/theakinwande/shortlink/internal/shortener"
	"github.com/theakinwande/shortlink/internal/store"
)

// Version is set at build time using ldflags.
// go build -ldflags "-X main.Version=1.0.0"
var Version = "dev"

func main() {
	// Step 0: load .env if present, silently ignored otherwise.
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := obs.NewLogger(os.Getenv("GIN_MODE") != "release")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting server", "version", Version, "port", cfg.Server.Port)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("connecting to postgres")
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

	logger.Info("connecting to redis")
	redisClient := redis.NewClient(&redis.Options{
		Addr:         mustParseRedisAddr(cfg.Redis.URL),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	cacheStrategy, err := cache.New(cache.Config{
		Backend:     cache.Backend(cfg.Cache.Backend),
		RedisClient: redisClient,
		Name:        "server-cache",
	})
	if err != nil {
		logger.Error("failed to build cache strategy", "error", err)
		os.Exit(1)
	}

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

	codeStrategy, err := shortcode.New(shortcode.Config{
		Type:       shortcode.StrategyType(cfg.ShortCode.Strategy),
		Salt:       cfg.ShortCode.Salt,
		Length:     cfg.ShortCode.Length,
		MaxRetries: cfg.ShortCode.MaxRetries,
		Checker:    st,
	})
	if err != nil {
		logger.Error("failed to build short code strategy", "error", err)
		os.Exit(1)
	}

	service := shortener.New(st, cacheStrategy, queueStrategy, hitStorage, codeStrategy, shortener.Config{
		BaseURL:  cfg.Shortener.BaseURL,
		CacheTTL: cfg.Shortener.CacheTTL,
	}, logger)

	urlHandler := httpapi.NewURLHandler(service)
	healthHandler := httpapi.NewHealthHandler(Version, map[string]httpapi.Checker{
		"postgres": st.Health,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	})

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.DebugMode)
	}
	router := httpapi.NewRouter(urlHandler, healthHandler)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

// mustParseRedisAddr extracts host:port from a redis:// URL, falling
// back to treating the value as a bare address if parsing fails —
// this keeps REDIS_URL=localhost:6379 working for local development.
func mustParseRedisAddr(rawURL string) string {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return rawURL
	}
	return opts.Addr
}
