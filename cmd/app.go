package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"storefront/storebot/internal/bot"
	"storefront/storebot/internal/commerce"
	"storefront/storebot/internal/config"
	"storefront/storebot/internal/handler"
	"storefront/storebot/internal/metrics"
	"storefront/storebot/internal/model"
	"storefront/storebot/internal/repository"
	"storefront/storebot/internal/service"
	"storefront/storebot/internal/telegram"
	jwtpkg "storefront/storebot/pkg/jwt"
)

// app holds everything the serve and poll commands share.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	jwt        *jwtpkg.Manager
	storefront *handler.StorefrontHandler
	dispatcher *bot.Dispatcher
	telegram   *telegram.Client
	closers    []func() error
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Format == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}

// buildApp wires the application. requireBot makes a missing Telegram
// token fatal; otherwise only the HTTP API runs.
func buildApp(configPath string, requireBot bool) (*app, error) {
	// 1. Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	// 3. Register metrics
	metrics.Register()

	// 4. Initialize state store (Redis or in-memory)
	var stateStore repository.StateStore
	switch cfg.State.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, redisClient.Close)
		stateStore = repository.NewRedisStateStore(redisClient)
		logger.Info("using Redis state store")
	case "memory":
		stateStore = repository.NewMemoryStateStore()
		logger.Info("using in-memory state store")
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}

	// 5. Initialize order repository (PostgreSQL or in-memory)
	var orders repository.OrderRepository
	switch cfg.Orders.Backend {
	case "postgres":
		db, err := config.NewPostgresDB(cfg.Database.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		if cfg.Database.Postgres.AutoMigrate {
			if err := model.AutoMigrate(db); err != nil {
				return nil, fmt.Errorf("auto-migrate: %w", err)
			}
			logger.Info("database migration completed")
		}
		orders = repository.NewPGOrderRepository(db)
		logger.Info("using PostgreSQL order log")
	case "memory":
		orders = repository.NewMemoryOrderRepository()
		logger.Info("using in-memory order log")
	default:
		return nil, fmt.Errorf("unknown orders backend %q", cfg.Orders.Backend)
	}

	// 6. Initialize commerce client
	commerceClient, err := commerce.NewClient(cfg.Commerce, logger)
	if err != nil {
		return nil, err
	}

	// 7. Initialize services
	cache := service.NewCacheManager(stateStore, commerceClient, cfg.Cache.SafetyMargin, logger)
	catalog := service.NewCatalogService(cache, commerceClient)
	carts := service.NewCartService(cache, commerceClient, cfg.Cart.TreatMissingAsRemoved, logger)

	var mailer service.MailSender
	if cfg.SMTP.Enabled() {
		mailer, err = service.NewSMTPSender(cfg.SMTP)
		if err != nil {
			return nil, fmt.Errorf("init smtp sender: %w", err)
		}
		logger.Info("order confirmation mail enabled", zap.String("host", cfg.SMTP.Host))
	}
	checkout := service.NewCheckoutService(cache, carts, commerceClient, orders, mailer, logger)

	// 8. Initialize JWT manager
	if cfg.JWT.SigningKey == "" {
		logger.Warn("jwt signing_key is empty; storefront API tokens are not secure")
	}
	a.jwt = jwtpkg.NewManager(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)

	// 9. Initialize handlers
	a.storefront = handler.NewStorefrontHandler(catalog, carts, checkout, logger)

	// 10. Initialize Telegram bot
	if cfg.Telegram.Token == "" {
		if requireBot {
			return nil, errors.New("telegram token is required")
		}
		logger.Warn("telegram token not set; running storefront API only")
		return a, nil
	}
	a.telegram, err = telegram.NewClient(cfg.Telegram, logger)
	if err != nil {
		return nil, err
	}
	a.dispatcher = bot.NewDispatcher(a.telegram, catalog, carts, checkout, stateStore, logger)

	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// runHTTP serves until ctx is cancelled, then shuts down gracefully.
func (a *app) runHTTP(ctx context.Context, router http.Handler) error {
	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	a.logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.logger.Info("server exited gracefully")
	return nil
}
