package slot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

const (
	DefaultHorizonDays = 30
	MaxHorizonDays     = 90
)

// EventEmitter records domain events for asynchronous delivery.
type EventEmitter interface {
	Emit(ctx context.Context, eventType string, payload interface{}) error
}

type Config struct {
	DefaultHorizonDays int
	MaxHorizonDays     int
	Clock              Clock
}

// Query narrows the slots returned by ListSlots.
type Query struct {
	HorizonDays   int
	Date          *time.Time
	AvailableOnly bool
}

type Service struct {
	engine    *Engine
	providers repository.ProviderRepository
	slots     repository.SlotRepository
	events    EventEmitter
	metrics   *metrics.Metrics
	config    Config
}

func NewService(
	engine *Engine,
	providers repository.ProviderRepository,
	slots repository.SlotRepository,
	events EventEmitter,
	m *metrics.Metrics,
	config Config,
) *Service {
	if config.DefaultHorizonDays <= 0 {
		config.DefaultHorizonDays = DefaultHorizonDays
	}
	if config.MaxHorizonDays <= 0 {
		config.MaxHorizonDays = MaxHorizonDays
	}
	if config.Clock == nil {
		config.Clock = SystemClock
	}
	return &Service{
		engine:    engine,
		providers: providers,
		slots:     slots,
		events:    events,
		metrics:   m,
		config:    config,
	}
}

func (s *Service) DefaultHorizon() int {
	return s.config.DefaultHorizonDays
}

// GenerateSlots generates the provider's horizon, adds the slots the store
// does not hold yet and returns the stored view of the window. Slots
// booked earlier stay booked. Near-term days of the stored view are
// topped up to MinAvailablePerDay from slots that were never booked.
func (s *Service) GenerateSlots(ctx context.Context, providerID string, horizonDays int) ([]*model.Slot, error) {
	if horizonDays > s.config.MaxHorizonDays {
		return nil, apperrors.BadRequest(
			fmt.Sprintf("horizon must not exceed %d days", s.config.MaxHorizonDays), nil)
	}

	provider, err := s.providers.Get(ctx, providerID)
	if err != nil {
		return nil, err
	}

	timer := prometheus.NewTimer(s.metrics.GenerationDuration)
	defer timer.ObserveDuration()

	now := s.config.Clock.Now()
	generated, err := s.engine.GenerateSlots(provider, horizonDays, now)
	if err != nil {
		return nil, err
	}
	s.observeGenerated(providerID, generated)

	inserted, err := s.slots.Merge(ctx, generated)
	if err != nil {
		return nil, fmt.Errorf("failed to merge slots for provider %s: %w", providerID, err)
	}
	s.metrics.SlotsMerged.WithLabelValues(providerID).Add(float64(inserted))

	today := model.Day(now)
	filter := model.SlotFilter{
		ProviderID: providerID,
		From:       today,
		To:         today.AddDate(0, 0, horizonDays),
	}
	view, err := s.slots.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots for provider %s: %w", providerID, err)
	}

	// Days stored while they were far out carry no floor of their own.
	if ids := floorCandidates(view, today); len(ids) > 0 {
		opened, err := s.slots.Open(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to open slots for provider %s: %w", providerID, err)
		}
		if opened > 0 {
			log.Debug().Str("provider_id", providerID).Int("opened", opened).Msg("near-term availability floor applied")
			if view, err = s.slots.List(ctx, filter); err != nil {
				return nil, fmt.Errorf("failed to list slots for provider %s: %w", providerID, err)
			}
		}
	}

	if inserted > 0 {
		s.emit(ctx, model.EventSlotsGenerated, &model.SlotsGeneratedEvent{
			ProviderID:     providerID,
			HorizonDays:    horizonDays,
			SlotCount:      inserted,
			AvailableCount: len(FilterAvailable(view)),
			GeneratedAt:    now,
		})
	}

	return view, nil
}

// ListSlots generates the provider's horizon and applies q.
func (s *Service) ListSlots(ctx context.Context, providerID string, q Query) ([]*model.Slot, error) {
	slots, err := s.GenerateSlots(ctx, providerID, q.HorizonDays)
	if err != nil {
		return nil, err
	}
	if q.Date != nil {
		slots = FilterSlotsByDate(slots, *q.Date)
	}
	if q.AvailableOnly {
		slots = FilterAvailable(slots)
	}
	return slots, nil
}

// RegenerateAll refreshes the default horizon of every provider. A failing
// provider does not stop the others.
func (s *Service) RegenerateAll(ctx context.Context) (int, error) {
	providers, err := s.providers.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list providers: %w", err)
	}

	var errs []error
	done := 0
	for _, p := range providers {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := s.GenerateSlots(ctx, p.ID, s.config.DefaultHorizonDays); err != nil {
			errs = append(errs, fmt.Errorf("provider %s: %w", p.ID, err))
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

// ReserveSlot books slotID. Exactly one of any number of concurrent
// callers for the same slot succeeds; the rest get SlotAlreadyBookedError.
func (s *Service) ReserveSlot(ctx context.Context, slotID string, contact *model.BookingContact) (*model.Slot, error) {
	slot, err := s.slots.Reserve(ctx, slotID)
	if err != nil {
		var (
			notFound *model.SlotNotFoundError
			booked   *model.SlotAlreadyBookedError
		)
		switch {
		case errors.As(err, &notFound):
			s.metrics.SlotReservations.WithLabelValues("not_found").Inc()
		case errors.As(err, &booked):
			s.metrics.SlotReservations.WithLabelValues("conflict").Inc()
			log.Warn().Str("slot_id", slotID).Msg("slot already booked")
		default:
			s.metrics.SlotReservations.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("failed to reserve slot %s: %w", slotID, err)
		}
		return nil, err
	}
	s.metrics.SlotReservations.WithLabelValues("success").Inc()

	s.emit(ctx, model.EventSlotReserved, &model.SlotReservedEvent{
		Slot:       slot,
		Contact:    contact,
		ReservedAt: s.config.Clock.Now(),
	})

	return slot, nil
}

func (s *Service) GetSlot(ctx context.Context, slotID string) (*model.Slot, error) {
	return s.slots.Get(ctx, slotID)
}

// floorCandidates returns, for each day of view within the guarantee
// window that has fewer than MinAvailablePerDay open slots, the earliest
// closed slots that were never booked, enough to reach the floor. view
// must be ordered by (date, time).
func floorCandidates(view []*model.Slot, today time.Time) []string {
	limit := today.AddDate(0, 0, GuaranteeWindowDays+1)

	var ids []string
	for start := 0; start < len(view); {
		end := start + 1
		for end < len(view) && view[end].Date.Equal(view[start].Date) {
			end++
		}
		day := view[start:end]
		start = end

		if !day[0].Date.Before(limit) {
			break
		}
		available := len(FilterAvailable(day))
		for _, s := range day {
			if available >= MinAvailablePerDay {
				break
			}
			if !s.IsAvailable && !s.Booked() {
				ids = append(ids, s.ID)
				available++
			}
		}
	}
	return ids
}

// emit never fails the caller; the state change has already happened.
func (s *Service) emit(ctx context.Context, eventType string, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, eventType, payload); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to emit event")
	}
}

func (s *Service) observeGenerated(providerID string, slots []*model.Slot) {
	available := len(FilterAvailable(slots))
	s.metrics.SlotsGenerated.WithLabelValues(providerID, strconv.FormatBool(true)).Add(float64(available))
	s.metrics.SlotsGenerated.WithLabelValues(providerID, strconv.FormatBool(false)).Add(float64(len(slots) - available))
}
