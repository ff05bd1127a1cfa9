package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-api/internal/model"
)

// All repository interfaces in one file
type (
	// SlotRepository owns every provider's slot collection.
	SlotRepository interface {
		// Merge inserts the slots whose id is not stored yet and leaves
		// stored slots untouched, so a booked slot is never reopened.
		Merge(ctx context.Context, slots []*model.Slot) (int, error)
		Get(ctx context.Context, id string) (*model.Slot, error)
		List(ctx context.Context, filter model.SlotFilter) ([]*model.Slot, error)
		// Reserve flips IsAvailable from true to false and stamps
		// ReservedAt. Concurrent callers on the same id see exactly one
		// success.
		Reserve(ctx context.Context, id string) (*model.Slot, error)
		// Open marks the listed slots available. Booked slots are skipped.
		Open(ctx context.Context, ids []string) (int, error)
	}

	// ProviderRepository is the provider directory.
	ProviderRepository interface {
		Get(ctx context.Context, id string) (*model.Provider, error)
		List(ctx context.Context) ([]*model.Provider, error)
		Upsert(ctx context.Context, provider *model.Provider) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
