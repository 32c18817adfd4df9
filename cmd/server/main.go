package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/availability"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/config"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/database"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/handler"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/hold"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/middleware"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/queue"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/repository"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/router"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/seatlock"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/utils"
)

func main() {
	cfg := config.Load()
	logger, err := utils.InitLogger(cfg.LogPath, cfg.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// A nil client would become a non-nil interface; keep rdb nil instead.
	var rdb redis.UniversalClient
	client, pinged := config.NewRedisClient()
	if client != nil {
		rdb = client
		defer client.Close()
		if !pinged {
			logger.Warn("redis not reachable at startup; holds use in-process state until it answers")
		}
	}

	var outbox *queue.Outbox
	if cfg.EventsEnabled {
		outbox = queue.NewOutbox(cfg.EventBuffer, logger)
	}

	holds := hold.NewStore(rdb, outbox, logger, hold.Config{
		DefaultTTL:     cfg.HoldTTL,
		MaxTTL:         cfg.HoldMaxTTL,
		BackendTimeout: cfg.BackendTimeout,
		RetryInterval:  cfg.BackendRetryInterval,
		SweepInterval:  cfg.SweepInterval,
		KeyPrefix:      cfg.HoldKeyPrefix,
	})
	locks := seatlock.New(rdb, outbox, logger, seatlock.Config{
		DefaultTTL:     cfg.SeatLockTTL,
		BackendTimeout: cfg.BackendTimeout,
		RetryInterval:  cfg.BackendRetryInterval,
		KeyPrefix:      cfg.SeatLockPrefix,
	})

	tables := repository.NewTableRepo(db)
	engine := &availability.Engine{
		Tables:       tables,
		Reservations: repository.NewReservationRepo(db),
		Holds:        holds,
		Dwell:        cfg.Dwell,
		Location:     loc,
		Log:          logger.Named("availability"),
	}

	health := &handler.HealthHandler{DB: db}
	if rdb != nil {
		health.Redis = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger.Named("http")))
	router.RegisterRoutes(e, router.Handlers{
		JWTSecret:    cfg.JWTSecret,
		Health:       health,
		Availability: &handler.AvailabilityHandler{Engine: engine, Log: logger},
		Tables:       &handler.TableHandler{Tables: tables, Log: logger},
		Holds:        &handler.HoldHandler{Holds: holds, Tables: tables, Log: logger},
		SeatLocks:    &handler.SeatLockHandler{Locks: locks, Tables: tables, Log: logger},
		RateLimit:    middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger.Named("ratelimit")),
		Cache:        middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger.Named("cache")),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		holds.Run(gctx)
		return nil
	})
	if outbox != nil {
		pub := &queue.Publisher{URL: cfg.RabbitURL, Exchange: cfg.EventsExchange, Log: logger.Named("events")}
		g.Go(func() error { return ignoreCanceled(pub.Run(gctx, outbox.Events())) })
	}
	if cfg.AuditEnabled {
		audit := &queue.AuditConsumer{
			URL:      cfg.RabbitURL,
			Exchange: cfg.EventsExchange,
			Queue:    cfg.AuditQueue,
			Dir:      cfg.LogPath,
			Log:      logger.Named("audit"),
		}
		g.Go(func() error { return ignoreCanceled(audit.Run(gctx)) })
	}
	g.Go(func() error {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
