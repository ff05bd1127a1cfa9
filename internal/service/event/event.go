package event

import (
	"context"
)

// EventService records domain events in the outbox.
type EventService interface {
	Emit(ctx context.Context, eventType string, payload interface{}) error
}
