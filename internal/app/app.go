// Package app assembles storage, messaging and services from config. The
// api, worker and slotctl binaries share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jwalitptl/booking-api/internal/config"
	"github.com/jwalitptl/booking-api/internal/handler/health"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/internal/repository/cache"
	"github.com/jwalitptl/booking-api/internal/repository/memory"
	"github.com/jwalitptl/booking-api/internal/repository/postgres"
	"github.com/jwalitptl/booking-api/internal/service/event"
	"github.com/jwalitptl/booking-api/internal/service/provider"
	"github.com/jwalitptl/booking-api/internal/service/slot"
	"github.com/jwalitptl/booking-api/pkg/lock"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/messaging"
	"github.com/jwalitptl/booking-api/pkg/messaging/rabbitmq"
	"github.com/jwalitptl/booking-api/pkg/messaging/redis"
	"github.com/jwalitptl/booking-api/pkg/metrics"
	"github.com/jwalitptl/booking-api/pkg/worker"
)

const metricsNamespace = "booking"

type App struct {
	Config   *config.Config
	Logger   *logger.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	// DB and Redis are nil when not configured.
	DB    *sqlx.DB
	Redis *goredis.Client

	Providers repository.ProviderRepository
	Slots     repository.SlotRepository
	Outbox    repository.OutboxRepository

	ProviderService *provider.Service
	SlotService     *slot.Service
	EventService    *event.Service

	Broker messaging.Broker
	Locker lock.Locker

	closers []func() error
}

// NewLogger builds the process logger from config and installs it as the
// global zerolog logger.
func NewLogger(cfg config.LogConfig) *logger.Logger {
	l := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		Pretty:     cfg.Pretty,
	})
	logger.SetGlobal(l)
	return l
}

// New connects to the configured backends. Without a database host the
// app keeps all state in process memory.
func New(ctx context.Context, cfg *config.Config, l *logger.Logger) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &App{
		Config:   cfg,
		Logger:   l,
		Registry: reg,
		Metrics:  metrics.NewMetrics(metricsNamespace, "", reg),
	}

	if err := a.openStorage(); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.openBroker(); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.ProviderService = provider.NewService(a.Providers)
	n, err := a.ProviderService.Seed(ctx, cfg.Providers)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to seed providers: %w", err)
	}
	l.Info("Seeded providers", "count", n)

	a.EventService = event.NewService(a.Outbox, cfg.Outbox.Retention)
	a.SlotService = slot.NewService(
		slot.NewSeededEngine(cfg.Slots.Seed),
		a.Providers,
		a.Slots,
		a.EventService,
		a.Metrics,
		slot.Config{
			DefaultHorizonDays: cfg.Slots.DefaultHorizonDays,
			MaxHorizonDays:     cfg.Slots.MaxHorizonDays,
		},
	)

	return a, nil
}

func (a *App) openStorage() error {
	cfg := a.Config

	var providers repository.ProviderRepository
	if cfg.Database.Enabled() {
		db, err := postgres.NewDB(cfg.Database)
		if err != nil {
			return err
		}
		a.DB = db
		a.closers = append(a.closers, db.Close)

		if cfg.Database.AutoMigrate {
			n, err := postgres.Migrate(db)
			if err != nil {
				return err
			}
			a.Logger.Info("Applied migrations", "count", n)
		}

		providers = postgres.NewProviderRepository(db)
		a.Slots = postgres.NewSlotRepository(db)
		a.Outbox = postgres.NewOutboxRepository(db)
	} else {
		a.Logger.Warn("No database configured, state is kept in memory")
		providers = memory.NewProviderRepository()
		a.Slots = memory.NewSlotRepository()
		a.Outbox = memory.NewOutboxRepository()
	}

	a.Providers = cache.NewProviderRepository(providers, cfg.Cache.ProviderTTL, cfg.Cache.CleanupInterval)

	if cfg.Redis.Enabled() {
		client, err := redis.NewClient(cfg.Redis.ToBrokerConfig())
		if err != nil {
			return err
		}
		a.Redis = client
		a.closers = append(a.closers, client.Close)
		a.Locker = lock.NewRedisLocker(client)
	} else {
		a.Locker = lock.LocalLocker{}
	}
	return nil
}

func (a *App) openBroker() error {
	cfg := a.Config
	zl := a.Logger.Zerolog()

	switch cfg.Broker.Driver {
	case config.BrokerRedis:
		if a.Redis == nil {
			return fmt.Errorf("broker driver redis requires redis.url")
		}
		a.Broker = redis.NewRedisBrokerWithClient(a.Redis, zl)
	case config.BrokerRabbitMQ:
		broker, err := rabbitmq.NewBroker(cfg.Broker.RabbitMQ.ToBrokerConfig(), zl)
		if err != nil {
			return err
		}
		a.Broker = broker
		a.closers = append(a.closers, broker.Close)
	default:
		broker := messaging.NewMemoryBroker()
		a.Broker = broker
		a.closers = append(a.closers, broker.Close)
	}
	return nil
}

// OutboxProcessor relays outbox events to the broker.
func (a *App) OutboxProcessor() *worker.OutboxProcessor {
	return worker.NewOutboxProcessor(a.Outbox, a.Broker, a.Config.Outbox.ToWorkerConfig(), a.Logger, a.Metrics)
}

// Checks are the readiness probes of the configured backends.
func (a *App) Checks() map[string]health.Check {
	checks := map[string]health.Check{}
	if a.DB != nil {
		checks["database"] = a.DB.PingContext
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}
	}
	return checks
}

// InMemory reports whether state lives only in this process, in which case
// the api also runs the scheduled jobs and the notifier.
func (a *App) InMemory() bool {
	return a.DB == nil
}

// Close releases backends in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
