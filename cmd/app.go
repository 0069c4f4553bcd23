package main

import (
	"context"
	"fmt"
	"time"

	"alphaboutique/config"
	"alphaboutique/internal/api"
	"alphaboutique/internal/domain"
	"alphaboutique/internal/handler"
	"alphaboutique/internal/metrics"
	"alphaboutique/internal/notify"
	"alphaboutique/internal/repository"
	"alphaboutique/internal/service"
	"alphaboutique/internal/state"
	"alphaboutique/traits/cache"
	"alphaboutique/traits/database"
	"alphaboutique/traits/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const shutdownFlushTimeout = 5 * time.Second

// app holds everything one process needs: config, durable storage, the
// three stores and the services built on them
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	queue    *repository.WriteQueue
	stores   handler.Stores
	services handler.Services

	closers []func() error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}
	if err := cfg.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	zapLogger, err := logger.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   zapLogger,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	kv, err := a.openStorage(ctx)
	if err != nil {
		_ = a.close()
		return nil, err
	}
	a.queue = repository.NewWriteQueue(kv, zapLogger, a.metrics)

	a.stores = handler.Stores{
		Session: state.NewSessionStore(cfg.SessionKey, a.queue, zapLogger, a.metrics),
		Cart:    state.NewCartStore(cfg.CartKey, a.queue, zapLogger, a.metrics),
		Theme:   state.NewThemeStore(cfg.ThemeKey, domain.ParseColorScheme(cfg.DeviceScheme), a.queue, zapLogger, a.metrics),
	}
	a.stores.Session.Initialize(ctx)
	a.stores.Cart.Initialize(ctx)
	a.stores.Theme.Initialize(ctx)

	notifier, err := notify.New(cfg, zapLogger)
	if err != nil {
		_ = a.close()
		return nil, fmt.Errorf("init telegram notifier: %w", err)
	}

	client := api.NewClient(cfg, zapLogger, a.metrics)
	a.services = handler.Services{
		Auth:     service.NewAuthService(client, a.stores.Session, cfg, zapLogger),
		Checkout: service.NewCheckoutService(client, a.stores.Cart, a.stores.Session, zapLogger),
		Requests: service.NewRequestService(client, a.stores.Session, zapLogger),
		Admin:    service.NewAdminService(client, a.stores.Session, notifier, zapLogger),
		Catalog:  client,
	}

	zapLogger.Info("Alpha Boutique initialized",
		zap.String("portal", cfg.Portal),
		zap.String("environment", cfg.Environment),
		zap.String("storage", cfg.StorageBackend),
		zap.String("api", cfg.APIBaseURL),
	)
	return a, nil
}

// openStorage picks the durable key-value backend named in the config
func (a *app) openStorage(ctx context.Context) (repository.KVStore, error) {
	switch a.cfg.StorageBackend {
	case config.StorageRedis:
		client, err := cache.InitRedis(ctx, a.cfg, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		return repository.NewRedisKVRepository(client, a.cfg.StoragePrefix, a.logger), nil

	case config.StorageMemory:
		a.logger.Warn("Using in-memory storage, state will not survive a restart")
		return repository.NewMemoryKVRepository(), nil

	default:
		db, err := database.InitDatabase(a.cfg, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := database.CreateTables(db, a.logger); err != nil {
			return nil, fmt.Errorf("create tables: %w", err)
		}
		return repository.NewSQLiteKVRepository(db, a.logger), nil
	}
}

func (a *app) webHandler() *handler.Handler {
	return handler.NewHandler(a.cfg, a.logger, a.metrics, a.registry, a.stores, a.services)
}

// close drains pending writes, then releases storage. It runs after the
// command context is canceled, so the flush gets a fresh deadline.
func (a *app) close() error {
	var err error
	if a.queue != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
		err = multierr.Append(err, a.queue.Close(flushCtx))
		cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	if err != nil {
		a.logger.Error("Shutdown finished with errors", zap.Errors("errors", multierr.Errors(err)))
	}
	_ = a.logger.Sync()
	return err
}
