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

	"github.com/gin-gonic/gin"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/booking-api/internal/app"
	"github.com/jwalitptl/booking-api/internal/config"
	"github.com/jwalitptl/booking-api/internal/email"
	"github.com/jwalitptl/booking-api/internal/handler/health"
	"github.com/jwalitptl/booking-api/internal/handler/prometheus"
	"github.com/jwalitptl/booking-api/internal/service/notification"
	"github.com/jwalitptl/booking-api/internal/worker"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/messaging"
)

func setupHealthCheck(a *app.App, port int, logger *logger.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	metrics := prometheus.New(a.Registry, "booking_worker")
	health.NewHandler(a.Checks(), metrics.Handler()).RegisterRoutes(engine.Group(""))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: engine,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "Health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logger := app.NewLogger(cfg.Log)

	var emailCfg email.Config
	if err := envconfig.Process("notify", &emailCfg); err != nil {
		logger.Fatal(err, "Failed to load notifier config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal(err, "Failed to initialize worker")
	}
	defer a.Close()

	if a.InMemory() {
		logger.Warn("Worker running without a database only sees its own state")
	}

	notifier := notification.NewService(email.NewService(emailCfg), messaging.NewBrokerAdapter(a.Broker))
	if err := notifier.Start(ctx); err != nil {
		logger.Fatal(err, "Failed to start notifier")
	}

	scheduler := worker.NewScheduler(a.Locker, a.Metrics, worker.SchedulerConfig{
		LockKey: cfg.Worker.LeaderLockKey,
		LockTTL: cfg.Worker.LeaderLockTTL,
	})
	if err := worker.Register(scheduler, cfg.Worker.RegenerateCron, cfg.Worker.CleanupCron, a.SlotService, a.EventService); err != nil {
		logger.Fatal(err, "Failed to schedule jobs")
	}

	srv := setupHealthCheck(a, cfg.Worker.HealthPort, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutting down...")
		cancel()
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scheduler.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		a.OutboxProcessor().Start(ctx)
	}()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
