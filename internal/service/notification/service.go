package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/booking-api/internal/email"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/pkg/messaging"
)

const (
	maxRetries = 3
	retryDelay = 2 * time.Second
)

// Service sends booking confirmations for reserved slots.
type Service interface {
	Start(ctx context.Context) error
	HandleSlotReserved(ctx context.Context, payload []byte) error
}

type service struct {
	emailSvc   email.Service
	broker     messaging.MessageBroker
	retryDelay time.Duration
}

func NewService(emailSvc email.Service, broker messaging.MessageBroker) Service {
	return &service{
		emailSvc:   emailSvc,
		broker:     broker,
		retryDelay: retryDelay,
	}
}

// Start subscribes to reservation events until ctx is done.
func (s *service) Start(ctx context.Context) error {
	if err := s.broker.Subscribe(ctx, model.EventSlotReserved, func(msg []byte) error {
		return s.HandleSlotReserved(ctx, msg)
	}); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", model.EventSlotReserved, err)
	}
	return nil
}

func (s *service) HandleSlotReserved(ctx context.Context, payload []byte) error {
	var event model.SlotReservedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("invalid %s payload: %w", model.EventSlotReserved, err)
	}
	if event.Slot == nil {
		return fmt.Errorf("invalid %s payload: missing slot", model.EventSlotReserved)
	}
	if event.Contact == nil || event.Contact.Email == "" {
		log.Debug().Str("slot_id", event.Slot.ID).Msg("reservation without contact, no confirmation sent")
		return nil
	}

	subject, body := confirmation(&event)

	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = s.emailSvc.SendCustom(ctx, event.Contact.Email, subject, body); err == nil {
			log.Info().Str("slot_id", event.Slot.ID).Msg("booking confirmation sent")
			return nil
		}
		log.Warn().Err(err).Int("attempt", attempt).Str("slot_id", event.Slot.ID).Msg("failed to send confirmation")
		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retryDelay):
			}
		}
	}
	return fmt.Errorf("failed to send confirmation for slot %s: %w", event.Slot.ID, err)
}

func confirmation(event *model.SlotReservedEvent) (string, string) {
	slot := event.Slot
	subject := fmt.Sprintf("Appointment confirmed: %s at %s", slot.DateString(), slot.Time)

	var b strings.Builder
	name := event.Contact.PatientName
	if name == "" {
		name = "patient"
	}
	fmt.Fprintf(&b, "Dear %s,\n\n", name)
	fmt.Fprintf(&b, "Your %s appointment is booked for %s at %s (%d minutes).\n",
		slot.Category, slot.DateString(), slot.Time, slot.Duration)
	fmt.Fprintf(&b, "Reference: %s\n", slot.ID)
	return subject, b.String()
}
