package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	JobRegenerateSlots = "regenerate_slots"
	JobOutboxCleanup   = "outbox_cleanup"
)

// SlotRegenerator refreshes every provider's horizon.
type SlotRegenerator interface {
	RegenerateAll(ctx context.Context) (int, error)
}

// OutboxCleaner deletes delivered events.
type OutboxCleaner interface {
	CleanupProcessedEvents(ctx context.Context, now time.Time) (int64, error)
}

// RegenerateSlots keeps each provider's horizon populated as days roll
// over. A provider that fails is reported but does not stop the rest.
func RegenerateSlots(svc SlotRegenerator) JobFunc {
	return func(ctx context.Context) error {
		done, err := svc.RegenerateAll(ctx)
		log.Info().Int("providers", done).Msg("Regenerated slots")
		if err != nil {
			return fmt.Errorf("failed to regenerate slots: %w", err)
		}
		return nil
	}
}

func CleanupOutbox(svc OutboxCleaner, now func() time.Time) JobFunc {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) error {
		rows, err := svc.CleanupProcessedEvents(ctx, now())
		if err != nil {
			return err
		}
		log.Info().Int64("events", rows).Msg("Cleaned up processed outbox events")
		return nil
	}
}

// Register adds both jobs to s.
func Register(s *Scheduler, regenerateSpec, cleanupSpec string, slots SlotRegenerator, outbox OutboxCleaner) error {
	if err := s.Add(JobRegenerateSlots, regenerateSpec, RegenerateSlots(slots)); err != nil {
		return err
	}
	return s.Add(JobOutboxCleanup, cleanupSpec, CleanupOutbox(outbox, nil))
}
