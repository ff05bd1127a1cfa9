package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/booking-api/internal/app"
	"github.com/jwalitptl/booking-api/internal/config"
	"github.com/jwalitptl/booking-api/internal/email"
	"github.com/jwalitptl/booking-api/internal/handler/health"
	"github.com/jwalitptl/booking-api/internal/handler/prometheus"
	providerHandler "github.com/jwalitptl/booking-api/internal/handler/provider"
	slotHandler "github.com/jwalitptl/booking-api/internal/handler/slot"
	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/internal/router"
	"github.com/jwalitptl/booking-api/internal/service/notification"
	"github.com/jwalitptl/booking-api/internal/worker"
	"github.com/jwalitptl/booking-api/pkg/messaging"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal(err, "failed to initialize application")
	}
	defer a.Close()

	enforcer, err := middleware.NewCapabilityEnforcer(cfg.Capabilities)
	if err != nil {
		logger.Fatal(err, "failed to load capability policies")
	}
	caps := middleware.NewCapabilityMiddleware(enforcer)

	httpMetrics := prometheus.New(a.Registry, "booking")

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.Security.AllowedOrigins
	corsConfig.AllowMethods = cfg.Security.AllowedMethods
	corsConfig.AllowHeaders = cfg.Security.AllowedHeaders

	routerConfig := router.RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSConfig:     corsConfig,
		Metrics:        httpMetrics,
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerConfig.RateBurst = cfg.RateLimit.Burst
	}

	r := router.NewRouter(
		health.NewHandler(a.Checks(), httpMetrics.Handler()),
		routerConfig,
		providerHandler.NewHandler(a.ProviderService, caps),
		slotHandler.NewHandler(a.SlotService, caps),
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	run(func() { a.OutboxProcessor().Start(ctx) })

	// Nothing outside this process can see in-memory state, so the
	// scheduled jobs and the notifier run here.
	if a.InMemory() {
		if err := startEmbeddedWorker(ctx, a, run); err != nil {
			logger.Fatal(err, "failed to start embedded worker")
		}
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "server forced to shutdown")
	}

	cancel()
	wg.Wait()
	logger.Info("Server exited")
}

func startEmbeddedWorker(ctx context.Context, a *app.App, run func(func())) error {
	var emailCfg email.Config
	if err := envconfig.Process("notify", &emailCfg); err != nil {
		return fmt.Errorf("failed to load notifier config: %w", err)
	}
	notifier := notification.NewService(email.NewService(emailCfg), messaging.NewBrokerAdapter(a.Broker))
	if err := notifier.Start(ctx); err != nil {
		return err
	}

	scheduler := worker.NewScheduler(a.Locker, a.Metrics, worker.SchedulerConfig{
		LockKey: a.Config.Worker.LeaderLockKey,
		LockTTL: a.Config.Worker.LeaderLockTTL,
	})
	if err := worker.Register(scheduler,
		a.Config.Worker.RegenerateCron,
		a.Config.Worker.CleanupCron,
		a.SlotService,
		a.EventService,
	); err != nil {
		return err
	}
	run(func() { scheduler.Start(ctx) })
	return nil
}
