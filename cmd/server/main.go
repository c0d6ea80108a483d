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

	"github.com/go-telegram/bot"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Freeeeeet/ltrc_platform/internal/app"
	"github.com/Freeeeeet/ltrc_platform/internal/availability"
	"github.com/Freeeeeet/ltrc_platform/internal/booking"
	"github.com/Freeeeeet/ltrc_platform/internal/calendar"
	"github.com/Freeeeeet/ltrc_platform/internal/config"
	"github.com/Freeeeeet/ltrc_platform/internal/controller/telegram"
	"github.com/Freeeeeet/ltrc_platform/internal/controller/web"
	"github.com/Freeeeeet/ltrc_platform/internal/identity"
	"github.com/Freeeeeet/ltrc_platform/internal/metrics"
	"github.com/Freeeeeet/ltrc_platform/internal/repository"
	"github.com/Freeeeeet/ltrc_platform/internal/repository/base"
	"github.com/Freeeeeet/ltrc_platform/internal/service"
)

const (
	sweepInterval   = time.Hour
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting LTRC platform",
		zap.String("environment", cfg.Environment),
		zap.Stringer("log_level", logger.Level()),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("availability_mode", cfg.AvailabilityMode),
		zap.Bool("telegram", cfg.TelegramEnabled()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
	logger.Info("👋 Shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pool, err := base.Open(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("✅ Connected to database")

	migrator, err := app.NewMigrator(pool, cfg.MigrationsDir, logger)
	if err != nil {
		return err
	}
	err = migrator.Run(ctx)
	_ = migrator.Close()
	if err != nil {
		return err
	}

	accountRepo := repository.NewAccountRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	meetingRepo := repository.NewMeetingRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)

	checks := []web.ReadyCheck{{Name: "postgres", Check: pool.Ping}}

	var throttle identity.Throttle
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()

		throttle = identity.NewRedisThrottle(rdb, int(cfg.SignInPerMinute), time.Minute, "ltrc:signin")
		checks = append(checks, web.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		logger.Info("Sign-in throttling enabled (redis)", zap.Float64("per_minute", cfg.SignInPerMinute))
	} else {
		throttle = identity.NewLocalThrottle(cfg.SignInPerMinute, cfg.SignInBurst)
		logger.Info("Sign-in throttling enabled (in-memory)", zap.Float64("per_minute", cfg.SignInPerMinute))
	}

	provider, err := identity.NewProvider(accountRepo, sessionRepo, identity.Options{
		Secret:     cfg.JWTSecret,
		SessionTTL: cfg.SessionTTL,
		Throttle:   throttle,
	}, logger)
	if err != nil {
		return err
	}

	accountService := service.NewAccountService(provider, userRepo, logger)
	userService := service.NewUserService(userRepo, logger)
	settingsService := service.NewSettingsService(settingsRepo, logger)

	today := func() calendar.Date { return calendar.DateOf(time.Now().In(cfg.Location)) }
	source, err := availability.FromMode(cfg.AvailabilityMode, today, settingsService)
	if err != nil {
		return err
	}

	m := metrics.New()
	engine := booking.NewEngine(m.InstrumentSink(meetingRepo), meetingRepo, userService, source, logger,
		booking.WithLocation(cfg.Location),
	)

	scheduler := app.NewScheduler(provider, sweepInterval, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	server, err := web.NewServer(web.Deps{
		Accounts: accountService,
		Stats:    userService,
		Settings: settingsService,
		Engine:   engine,
		Sessions: provider,
		Metrics:  m,
		Checks:   checks,
	}, web.Options{
		CORSOrigins:  cfg.CORSOrigins,
		SecureCookie: cfg.IsProduction(),
	}, logger)
	if err != nil {
		return err
	}
	defer server.Close()

	if cfg.TelegramEnabled() {
		b, err := bot.New(cfg.TelegramToken)
		if err != nil {
			return err
		}
		controller := telegram.NewController(b, provider, engine, m, logger)
		if err := controller.RegisterHandlers(ctx); err != nil {
			logger.Warn("Telegram commands menu not set", zap.Error(err))
		}
		go controller.Start(ctx)
		logger.Info("✅ Telegram bot started")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🚀 HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	return nil
}
