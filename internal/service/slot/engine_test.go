package slot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

// fixedSource returns the same draw every time.
type fixedSource struct {
	f float64
	i int
}

func (s fixedSource) Float64() float64 { return s.f }
func (s fixedSource) Intn(n int) int   { return s.i % n }

// cyclingSource walks Intn through 0..n-1.
type cyclingSource struct {
	f    float64
	next int
}

func (s *cyclingSource) Float64() float64 { return s.f }
func (s *cyclingSource) Intn(n int) int {
	v := s.next % n
	s.next++
	return v
}

var (
	// Monday
	monday = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	p1     = &model.Provider{ID: "P1", Name: "Dr. Sarah Johnson", StartHour: 8, EndHour: 17}
)

func TestGenerateSlotsExampleDay(t *testing.T) {
	engine := NewEngine(fixedSource{f: 0})

	slots, err := engine.GenerateSlots(p1, 1, monday)
	require.NoError(t, err)
	require.Len(t, slots, 18)

	assert.Equal(t, "2024-01-15-08:00-P1", slots[0].ID)
	assert.Equal(t, "08:00", slots[0].Time)
	assert.Equal(t, "2024-01-15-16:30-P1", slots[17].ID)
	assert.Equal(t, "16:30", slots[17].Time)

	for i, s := range slots {
		assert.Equal(t, "P1", s.ProviderID)
		assert.Equal(t, "2024-01-15", s.DateString())
		assert.Equal(t, 30, s.Duration)
		assert.True(t, s.IsAvailable)
		assert.Equal(t, model.SlotID("P1", s.Date, s.Time), s.ID)
		if i > 0 {
			assert.True(t, slots[i-1].Before(*s), "slots must be ordered")
		}
	}
}

func TestGenerateSlotsHorizonBoundary(t *testing.T) {
	engine := NewEngine(fixedSource{f: 0.5})

	slots, err := engine.GenerateSlots(p1, 0, monday)
	require.NoError(t, err)
	assert.Empty(t, slots)

	slots, err = engine.GenerateSlots(p1, 1, monday)
	require.NoError(t, err)
	for _, s := range slots {
		assert.Equal(t, "2024-01-15", s.DateString())
	}

	_, err = engine.GenerateSlots(p1, -1, monday)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))
}

func TestGenerateSlotsRejectsInvalidProvider(t *testing.T) {
	engine := NewEngine(fixedSource{})

	_, err := engine.GenerateSlots(nil, 1, monday)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))

	_, err = engine.GenerateSlots(&model.Provider{ID: "x", StartHour: 17, EndHour: 8}, 1, monday)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))

	_, err = engine.GenerateSlots(&model.Provider{ID: "x", StartHour: 8, EndHour: 25}, 1, monday)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))
}

func TestGenerateSlotsWorkingHours(t *testing.T) {
	providers := []*model.Provider{
		{ID: "1", StartHour: 8, EndHour: 17},
		{ID: "4", StartHour: 7, EndHour: 18},
		{ID: "5", StartHour: 10, EndHour: 19},
		{ID: "night", StartHour: 0, EndHour: 24, WeekendEligible: true},
	}

	for _, p := range providers {
		for seed := int64(1); seed <= 5; seed++ {
			slots, err := NewSeededEngine(seed).GenerateSlots(p, 30, monday)
			require.NoError(t, err)
			require.NotEmpty(t, slots)

			for _, s := range slots {
				start := s.Start()
				assert.GreaterOrEqual(t, start.Hour(), p.StartHour, s.ID)
				assert.LessOrEqual(t, start.Add(model.SlotDuration).Sub(s.Date), time.Duration(p.EndHour)*time.Hour, s.ID)
				assert.Contains(t, model.GeneratedCategories, s.Category)
			}
		}
	}
}

func TestGenerateSlotsWeekends(t *testing.T) {
	saturday := time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)
	engine := NewEngine(fixedSource{f: 0.3})

	slots, err := engine.GenerateSlots(p1, 2, saturday)
	require.NoError(t, err)
	assert.Empty(t, slots)

	slots, err = engine.GenerateSlots(p1, 14, monday)
	require.NoError(t, err)
	days := map[string]bool{}
	for _, s := range slots {
		wd := s.Date.Weekday()
		assert.NotEqual(t, time.Saturday, wd, s.ID)
		assert.NotEqual(t, time.Sunday, wd, s.ID)
		days[s.DateString()] = true
	}
	assert.Len(t, days, 10)

	weekender := &model.Provider{ID: "3", StartHour: 8, EndHour: 16, WeekendEligible: true}
	slots, err = engine.GenerateSlots(weekender, 2, saturday)
	require.NoError(t, err)
	assert.Len(t, slots, 2*weekender.TicksPerDay())
	assert.Equal(t, "2024-01-20-08:00-3", slots[0].ID)
	assert.Equal(t, "2024-01-21-15:30-3", slots[len(slots)-1].ID)
}

func TestGenerateSlotsMinimumAvailability(t *testing.T) {
	// 0.99 is above every tier, so the draw never opens a slot.
	engine := NewEngine(fixedSource{f: 0.99})
	p := &model.Provider{ID: "7", StartHour: 9, EndHour: 12, WeekendEligible: true}

	slots, err := engine.GenerateSlots(p, 30, monday)
	require.NoError(t, err)

	today := model.Day(monday)
	perDay := map[int][]*model.Slot{}
	for _, s := range slots {
		offset := int(s.Date.Sub(today).Hours() / 24)
		perDay[offset] = append(perDay[offset], s)
	}
	require.Len(t, perDay, 30)

	for offset, day := range perDay {
		available := FilterAvailable(day)
		if offset <= GuaranteeWindowDays {
			require.Len(t, available, MinAvailablePerDay, "day %d", offset)
			assert.Equal(t, "09:00", available[0].Time)
			assert.Equal(t, "09:30", available[1].Time)
		} else {
			assert.Empty(t, available, "day %d", offset)
		}
	}
}

func TestGenerateSlotsMinimumAvailabilityShortDay(t *testing.T) {
	engine := NewEngine(fixedSource{f: 0.99})
	p := &model.Provider{ID: "short", StartHour: 12, EndHour: 13}

	slots, err := engine.GenerateSlots(p, 1, monday)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Len(t, FilterAvailable(slots), 2)
}

func TestGenerateSlotsUsesTierThresholds(t *testing.T) {
	// 0.65 is below the morning tier (0.8) and above the afternoon tier
	// (0.6) of day zero.
	engine := NewEngine(fixedSource{f: 0.65})

	slots, err := engine.GenerateSlots(p1, 1, monday)
	require.NoError(t, err)
	for _, s := range slots {
		morning := s.Start().Hour() < 12
		assert.Equal(t, morning, s.IsAvailable, s.ID)
	}

	// A draw equal to the probability is not a success, so only the
	// availability floor opens slots.
	engine = NewEngine(fixedSource{f: 0.8})
	slots, err = engine.GenerateSlots(p1, 1, monday)
	require.NoError(t, err)
	available := FilterAvailable(slots)
	require.Len(t, available, MinAvailablePerDay)
	assert.Equal(t, "08:00", available[0].Time)
	assert.Equal(t, "08:30", available[1].Time)
}

func TestGenerateSlotsCategories(t *testing.T) {
	engine := NewEngine(&cyclingSource{f: 0})

	slots, err := engine.GenerateSlots(p1, 1, monday)
	require.NoError(t, err)
	for i, s := range slots {
		assert.Equal(t, model.GeneratedCategories[i%len(model.GeneratedCategories)], s.Category)
		assert.NotEqual(t, model.SlotCategoryEmergency, s.Category)
	}
}

func TestGenerateSlotsIdentityIsDeterministic(t *testing.T) {
	a, err := NewSeededEngine(1).GenerateSlots(p1, 30, monday)
	require.NoError(t, err)
	b, err := NewSeededEngine(2).GenerateSlots(p1, 30, monday.Add(5*time.Hour))
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
	}

	c, err := NewSeededEngine(1).GenerateSlots(p1, 30, monday)
	require.NoError(t, err)
	for i := range a {
		assert.Equal(t, a[i].IsAvailable, c[i].IsAvailable)
		assert.Equal(t, a[i].Category, c[i].Category)
	}
}

func TestGenerateSlotsIgnoresTimeZoneOfNow(t *testing.T) {
	zone := time.FixedZone("UTC+10", 10*60*60)
	localMonday := time.Date(2024, 1, 15, 7, 0, 0, 0, zone)

	slots, err := NewEngine(fixedSource{}).GenerateSlots(p1, 1, localMonday)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, "2024-01-15-08:00-P1", slots[0].ID)
}
