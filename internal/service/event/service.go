package event

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
)

const eventExpiry = 24 * time.Hour

type Service struct {
	outboxRepo repository.OutboxRepository
	retention  time.Duration
}

var _ EventService = (*Service)(nil)

func NewService(outboxRepo repository.OutboxRepository, retention time.Duration) *Service {
	if retention <= 0 {
		retention = eventExpiry
	}
	return &Service{
		outboxRepo: outboxRepo,
		retention:  retention,
	}
}

func (s *Service) Emit(ctx context.Context, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   payloadJSON,
	}

	if err := s.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}

	return nil
}

// CleanupProcessedEvents deletes events processed longer than the
// retention period before now.
func (s *Service) CleanupProcessedEvents(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-s.retention)
	count, err := s.outboxRepo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup events: %w", err)
	}
	return count, nil
}
