package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-seat-sync/internal/broadcast"
	"github.com/iliyamo/cinema-seat-sync/internal/config"
	"github.com/iliyamo/cinema-seat-sync/internal/database"
	"github.com/iliyamo/cinema-seat-sync/internal/gateway"
	"github.com/iliyamo/cinema-seat-sync/internal/handler"
	"github.com/iliyamo/cinema-seat-sync/internal/middleware"
	"github.com/iliyamo/cinema-seat-sync/internal/queue"
	"github.com/iliyamo/cinema-seat-sync/internal/repository"
	"github.com/iliyamo/cinema-seat-sync/internal/router"
	"github.com/iliyamo/cinema-seat-sync/internal/service"
	"github.com/iliyamo/cinema-seat-sync/internal/session"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)

	e := echo.New()
	e.HideBanner = true
	e.Logger = logger

	// Redis is optional for rate limiting but required by the redis store.
	var rdb *redis.Client
	rlCfg := config.LoadRateLimitConfig()
	if rlCfg.Enabled || cfg.StoreDriver == config.DriverRedis {
		client, err := config.NewRedisClient(config.LoadRedisConfig())
		if err != nil {
			if cfg.StoreDriver == config.DriverRedis {
				logger.Fatalf("redis store: %v", err)
			}
			logger.Warnf("rate limiting disabled: %v", err)
		} else {
			rdb = client
			defer rdb.Close()
		}
	}

	store, closeStore, err := openStore(cfg, rdb, logger)
	if err != nil {
		logger.Fatalf("reservation store (%s): %v", cfg.StoreDriver, err)
	}
	defer closeStore()

	var publisher service.EventPublisher
	if cfg.RabbitURL != "" {
		publisher = queue.NewPublisher(cfg.RabbitURL, logger)
	}

	registry := session.NewRegistry()
	coordinator := service.NewCoordinator(store, broadcast.New(registry), service.Options{
		ShowingID:     cfg.ShowingID,
		DefaultHolder: cfg.DefaultHolder,
		StoreTimeout:  cfg.StoreTimeout,
		Publisher:     publisher,
	}, logger)
	gw := gateway.New(store, registry, cfg.ShowingID, cfg.StoreTimeout, logger)

	opts := router.Options{AllowedOrigins: cfg.AllowedOrigins}
	if rdb != nil && rlCfg.Enabled {
		opts.RateLimit = middleware.NewTokenBucket(rlCfg, rdb)
	}
	router.RegisterRoutes(e, router.Handlers{
		Sync:  handler.NewSyncHandler(gw, coordinator, cfg.AllowedOrigins, logger),
		Seats: &handler.SeatsHandler{Store: store, ShowingID: cfg.ShowingID, Timeout: cfg.StoreTimeout},
	}, opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AuditConsumer && cfg.RabbitURL != "" {
		consumer := queue.NewAuditConsumer(cfg.RabbitURL, cfg.AuditLogPath, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("audit consumer stopped: %v", err)
			}
		}()
	}

	go func() {
		logger.Infof("listening on %s (env=%s, store=%s, showing=%s)", cfg.Addr(), cfg.Env, cfg.StoreDriver, cfg.ShowingID)
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

// openStore builds the configured reservation store and returns a cleanup
// func.  Failing to reach the store at startup is the one fatal condition.
func openStore(cfg config.Config, rdb *redis.Client, logger *log.Logger) (repository.ReservationStore, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cfg.StoreDriver {
	case config.DriverMySQL:
		db, err := database.OpenMySQL(cfg.StoreURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.MigrateMySQL(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info("connected to MySQL")
		return repository.NewReservationRepo(db), func() { _ = db.Close() }, nil
	case config.DriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.StoreURL, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := database.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("connected to PostgreSQL")
		return repository.NewPostgresStore(pool), pool.Close, nil
	case config.DriverRedis:
		logger.Info("using Redis reservation store")
		return repository.NewRedisStore(rdb, cfg.RedisPrefix), func() {}, nil
	default:
		logger.Warn("using in-memory reservation store; reservations are lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}
}

func newLogger(level string) *log.Logger {
	l := log.New("seat-sync")
	l.SetHeader(`${time_rfc3339} ${level} ${prefix} ${short_file}:${line}`)
	switch level {
	case "debug":
		l.SetLevel(log.DEBUG)
	case "warn":
		l.SetLevel(log.WARN)
	case "error":
		l.SetLevel(log.ERROR)
	default:
		l.SetLevel(log.INFO)
	}
	return l
}
