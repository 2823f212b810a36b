// Package main is the entrypoint for the task tracker API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/cache"
	"github.com/taskflow/taskflow/internal/config"
	"github.com/taskflow/taskflow/internal/handler"
	"github.com/taskflow/taskflow/internal/metrics"
	"github.com/taskflow/taskflow/internal/middleware"
	"github.com/taskflow/taskflow/internal/realtime"
	"github.com/taskflow/taskflow/internal/repository"
	"github.com/taskflow/taskflow/internal/repository/memstore"
	"github.com/taskflow/taskflow/internal/repository/mongostore"
	"github.com/taskflow/taskflow/internal/server"
	"github.com/taskflow/taskflow/internal/service"
)

// store is what every driver provides.
type store interface {
	service.UserStore
	service.TaskStore
	handler.HealthChecker
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	recorder := metrics.NewPrometheus()

	hasher, err := auth.NewHasher(cfg.PasswordHasher, cfg.BcryptCost)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL, cfg.TokenIssuer)
	if err != nil {
		return err
	}
	policy, err := service.ParseForeignTaskPolicy(cfg.ForeignTaskPolicy)
	if err != nil {
		return err
	}

	db, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Redis is optional. Without it events stay in process and the user
	// cache and auth rate limiter are off.
	var (
		redisCache *cache.Cache
		userCache  service.UserCache
		limiter    middleware.RateLimiter
		readyCache handler.HealthChecker
	)
	if cfg.RedisEnabled() {
		redisCache, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			closeStore(ctx)
			return fmt.Errorf("connect to redis %s: %s", redactURL(cfg.RedisURL), sanitizeError(err, cfg.RedisURL))
		}
		logger.Info("connected to Redis", slog.String("redis_url", redactURL(cfg.RedisURL)))
		userCache, limiter, readyCache = redisCache, redisCache, redisCache
	}

	hub := realtime.NewHub(cfg.StreamBuffer, recorder)

	var (
		publisher realtime.Publisher = hub
		relay     *realtime.Relay
	)
	if redisCache != nil {
		publisher = realtime.NewRedisPublisher(redisCache.Client())
		relay = realtime.NewRelay(redisCache.Client(), hub, logger)
	}
	events := realtime.NewBroadcaster(publisher, cfg.EventPublishTimeout, logger, recorder)

	authService, err := service.NewAuthService(db, userCache, hasher, tokens, logger, recorder)
	if err != nil {
		if redisCache != nil {
			_ = redisCache.Close()
		}
		closeStore(ctx)
		return err
	}
	taskService := service.NewTaskService(db, events, policy, logger, recorder)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	router := handler.NewRouter(handler.RouterConfig{
		Logger:  logger,
		Auth:    authService,
		Tasks:   taskService,
		Stream:  realtime.NewStreamHandler(hub, logger, cfg.StreamPingInterval),
		Metrics: recorder.Handler(),
		Store:   db,
		Cache:   readyCache,
		RateLimit: middleware.RateLimitConfig{
			Logger:            logger,
			Limiter:           limiter,
			Enabled:           cfg.RateLimitAuthEnabled,
			RequestsPerMinute: cfg.RateLimitAuthRPM,
			Burst:             cfg.RateLimitAuthBurst,
		},
		CORS:         corsCfg,
		Security:     middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()},
		MaxBodyBytes: cfg.MaxRequestBodySize,
	})

	srv := server.New(router, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Shutdown runs in reverse registration order: the relay stops first,
	// then in-flight publishes drain, then the hub closes its streams, and
	// the connections go last.
	srv.OnShutdown("store", func(ctx context.Context) error {
		closeStore(ctx)
		return nil
	})
	if redisCache != nil {
		srv.OnShutdown("redis", func(context.Context) error { return redisCache.Close() })
	}
	srv.OnShutdown("hub", func(context.Context) error { return hub.Close() })
	srv.OnShutdown("broadcaster", events.Wait)
	if relay != nil {
		relayCtx, cancelRelay := context.WithCancel(ctx)
		go func() {
			if err := relay.Run(relayCtx); err != nil {
				logger.Error("relay stopped", "error", err)
			}
		}()
		srv.OnShutdown("relay", func(ctx context.Context) error {
			defer cancelRelay()
			return relay.Shutdown(ctx)
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"store", cfg.StoreDriver,
		"redis", cfg.RedisEnabled(),
		"foreign_task_policy", string(policy),
	)

	return srv.Run()
}

// openStore connects the configured driver. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store, func(context.Context), error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		s, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to mongo %s: %s", redactURL(cfg.MongoURI), sanitizeError(err, cfg.MongoURI))
		}
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = s.Close(ctx)
			return nil, nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		logger.Info("connected to MongoDB",
			slog.String("mongo_uri", redactURL(cfg.MongoURI)),
			slog.String("database", cfg.MongoDatabase),
		)
		return s, func(ctx context.Context) { _ = s.Close(ctx) }, nil

	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return memstore.New(), func(context.Context) {}, nil

	default:
		repo, err := repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database %s: %s", redactURL(cfg.DatabaseURL), sanitizeError(err, cfg.DatabaseURL))
		}
		logger.Info("connected to database", slog.String("database_url", redactURL(cfg.DatabaseURL)))
		return repo, func(context.Context) { repo.Close() }, nil
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
