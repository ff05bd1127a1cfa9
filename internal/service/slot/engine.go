// Package slot generates provider availability and reserves slots.
//
// Engine is pure: given a provider, a horizon and a clock reading it
// produces the candidate slot list. Service binds the engine to the
// provider directory and the slot store, which owns the booked state.
package slot

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/jwalitptl/booking-api/internal/model"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

const (
	// MinAvailablePerDay is the availability floor for near-term days.
	MinAvailablePerDay = 2
	// GuaranteeWindowDays is the last day offset the floor applies to.
	GuaranteeWindowDays = 7
)

// RandSource is the randomness the engine draws from. *rand.Rand
// satisfies it.
type RandSource interface {
	Float64() float64
	Intn(n int) int
}

type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// lockedSource serialises access to a RandSource that is not safe for
// concurrent use.
type lockedSource struct {
	mu  sync.Mutex
	src RandSource
}

func (l *lockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

func (l *lockedSource) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Intn(n)
}

type Engine struct {
	rand RandSource
}

// NewEngine wraps src so the engine can be shared between goroutines.
func NewEngine(src RandSource) *Engine {
	return &Engine{rand: &lockedSource{src: src}}
}

// NewSeededEngine returns an engine whose draws are reproducible for a
// given seed. A zero seed uses the current time.
func NewSeededEngine(seed int64) *Engine {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewEngine(rand.New(rand.NewSource(seed)))
}

// GenerateSlots returns every slot of provider for the horizonDays
// calendar days starting at the day of now, ordered by (date, time).
func (e *Engine) GenerateSlots(provider *model.Provider, horizonDays int, now time.Time) ([]*model.Slot, error) {
	if provider == nil {
		return nil, apperrors.BadRequest("provider is required", nil)
	}
	if horizonDays < 0 {
		return nil, apperrors.BadRequest(fmt.Sprintf("horizon must not be negative, got %d", horizonDays), nil)
	}
	if provider.StartHour < 0 || provider.EndHour > 24 || provider.StartHour >= provider.EndHour {
		return nil, apperrors.BadRequest(
			fmt.Sprintf("provider %s has invalid working hours %d-%d", provider.ID, provider.StartHour, provider.EndHour), nil)
	}

	today := model.Day(now)
	slots := make([]*model.Slot, 0, horizonDays*provider.TicksPerDay())

	for offset := 0; offset < horizonDays; offset++ {
		date := today.AddDate(0, 0, offset)
		if !provider.WorksOn(date) {
			continue
		}
		slots = append(slots, e.generateDay(provider, date, offset)...)
	}

	return slots, nil
}

func (e *Engine) generateDay(provider *model.Provider, date time.Time, offset int) []*model.Slot {
	day := make([]*model.Slot, 0, provider.TicksPerDay())
	available := 0

	for hour := provider.StartHour; hour < provider.EndHour; hour++ {
		for minute := 0; minute < 60; minute += int(model.SlotDuration / time.Minute) {
			clock := fmt.Sprintf("%02d:%02d", hour, minute)
			isAvailable := e.rand.Float64() < AvailabilityProbability(offset, hour)
			if isAvailable {
				available++
			}
			day = append(day, &model.Slot{
				ID:          model.SlotID(provider.ID, date, clock),
				ProviderID:  provider.ID,
				Date:        date,
				Time:        clock,
				Duration:    int(model.SlotDuration / time.Minute),
				IsAvailable: isAvailable,
				Category:    model.GeneratedCategories[e.rand.Intn(len(model.GeneratedCategories))],
			})
		}
	}

	if offset <= GuaranteeWindowDays {
		ensureMinimumAvailable(day, available, MinAvailablePerDay)
	}
	return day
}

// ensureMinimumAvailable opens the earliest closed slots until at least
// min slots of the day are available or the day runs out of slots.
func ensureMinimumAvailable(day []*model.Slot, available, min int) {
	for _, s := range day {
		if available >= min {
			return
		}
		if !s.IsAvailable {
			s.IsAvailable = true
			available++
		}
	}
}
