package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/booking-api/pkg/lock"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

// JobFunc is one run of a scheduled job.
type JobFunc func(ctx context.Context) error

type SchedulerConfig struct {
	// LockKey prefixes the per-job leader lock.
	LockKey string
	LockTTL time.Duration
}

// Scheduler runs cron jobs so that only one replica executes a given job
// at a time. Replicas that lose the lock skip the run.
type Scheduler struct {
	cron    *cron.Cron
	locker  lock.Locker
	metrics *metrics.Metrics
	config  SchedulerConfig

	mu  sync.RWMutex
	ctx context.Context
}

func NewScheduler(locker lock.Locker, m *metrics.Metrics, config SchedulerConfig) *Scheduler {
	if config.LockKey == "" {
		config.LockKey = "slotgen:leader"
	}
	if config.LockTTL <= 0 {
		config.LockTTL = 10 * time.Minute
	}
	return &Scheduler{
		cron:    cron.New(),
		locker:  locker,
		metrics: m,
		config:  config,
		ctx:     context.Background(),
	}
}

// Add registers fn under a standard cron spec or descriptor (@hourly).
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	if _, err := s.cron.AddFunc(spec, func() {
		_ = s.RunJob(s.context(), name, fn)
	}); err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	return nil
}

// Start runs the schedule until ctx is done and waits for running jobs.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")

	<-ctx.Done()
	<-s.cron.Stop().Done()
	log.Info().Msg("Scheduler stopped")
}

// RunJob executes fn once under the job's leader lock. It returns the
// job's error; a skipped run returns nil.
func (s *Scheduler) RunJob(ctx context.Context, name string, fn JobFunc) error {
	key := s.config.LockKey + ":" + name

	acquired, token, err := s.locker.TryLock(ctx, key, s.config.LockTTL)
	if err != nil {
		s.metrics.WorkerRuns.WithLabelValues(name, "lock_error").Inc()
		log.Error().Err(err).Str("job", name).Msg("Failed to acquire job lock")
		return err
	}
	if !acquired {
		s.metrics.WorkerRuns.WithLabelValues(name, "skipped").Inc()
		log.Debug().Str("job", name).Msg("Job held by another worker")
		return nil
	}
	defer func() {
		if err := s.locker.Unlock(context.Background(), key, token); err != nil {
			log.Warn().Err(err).Str("job", name).Msg("Failed to release job lock")
		}
	}()

	start := time.Now()
	if err := fn(ctx); err != nil {
		s.metrics.WorkerRuns.WithLabelValues(name, "error").Inc()
		log.Error().Err(err).Str("job", name).Dur("duration", time.Since(start)).Msg("Job failed")
		return err
	}
	s.metrics.WorkerRuns.WithLabelValues(name, "success").Inc()
	log.Info().Str("job", name).Dur("duration", time.Since(start)).Msg("Job finished")
	return nil
}

func (s *Scheduler) context() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}
