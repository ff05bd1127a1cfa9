package model

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// SlotDuration is the fixed length of every generated slot.
const SlotDuration = 30 * time.Minute

type SlotCategory string

const (
	SlotCategoryConsultation SlotCategory = "consultation"
	SlotCategoryFollowUp     SlotCategory = "follow-up"
	SlotCategoryRoutine      SlotCategory = "routine"
	// SlotCategoryEmergency is accepted on the wire but never generated.
	SlotCategoryEmergency SlotCategory = "emergency"
)

// GeneratedCategories are the categories the generator draws from.
var GeneratedCategories = []SlotCategory{
	SlotCategoryConsultation,
	SlotCategoryFollowUp,
	SlotCategoryRoutine,
}

func (c SlotCategory) Valid() bool {
	switch c {
	case SlotCategoryConsultation, SlotCategoryFollowUp, SlotCategoryRoutine, SlotCategoryEmergency:
		return true
	}
	return false
}

// Slot is one bookable 30-minute unit of a provider's calendar.
// Only IsAvailable and ReservedAt change after creation. ReservedAt is set
// by a reservation and never cleared; a slot without it may still be
// opened by the near-term availability floor.
type Slot struct {
	ID          string       `json:"id" db:"id"`
	ProviderID  string       `json:"provider_id" db:"provider_id"`
	Date        time.Time    `json:"-" db:"slot_date"`
	Time        string       `json:"time" db:"slot_time"`
	Duration    int          `json:"duration" db:"duration"`
	IsAvailable bool         `json:"is_available" db:"is_available"`
	Category    SlotCategory `json:"category" db:"category"`
	ReservedAt  *time.Time   `json:"-" db:"reserved_at"`
}

// Booked reports whether a reservation has taken the slot.
func (s Slot) Booked() bool {
	return s.ReservedAt != nil
}

// SlotID builds the stable identity of a slot from its coordinates.
func SlotID(providerID string, date time.Time, clock string) string {
	return fmt.Sprintf("%s-%s-%s", date.Format(DateLayout), clock, providerID)
}

// DateString returns the civil date of the slot.
func (s Slot) DateString() string {
	return s.Date.Format(DateLayout)
}

// Start returns the wall-clock start of the slot on its date.
func (s Slot) Start() time.Time {
	clock, err := time.Parse(ClockLayout, s.Time)
	if err != nil {
		return s.Date
	}
	return s.Date.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute)
}

// Before orders slots by (date, time).
func (s Slot) Before(o Slot) bool {
	if !s.Date.Equal(o.Date) {
		return s.Date.Before(o.Date)
	}
	return s.Time < o.Time
}

type slotJSON struct {
	ID          string       `json:"id"`
	ProviderID  string       `json:"provider_id"`
	Date        string       `json:"date"`
	Time        string       `json:"time"`
	Duration    int          `json:"duration"`
	IsAvailable bool         `json:"is_available"`
	Category    SlotCategory `json:"category"`
}

func (s Slot) MarshalJSON() ([]byte, error) {
	return json.Marshal(slotJSON{
		ID:          s.ID,
		ProviderID:  s.ProviderID,
		Date:        s.DateString(),
		Time:        s.Time,
		Duration:    s.Duration,
		IsAvailable: s.IsAvailable,
		Category:    s.Category,
	})
}

func (s *Slot) UnmarshalJSON(data []byte) error {
	var raw slotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := ParseDate(raw.Date)
	if err != nil {
		return fmt.Errorf("invalid slot date %q: %w", raw.Date, err)
	}
	if !raw.Category.Valid() {
		return fmt.Errorf("invalid slot category %q", raw.Category)
	}
	*s = Slot{
		ID:          raw.ID,
		ProviderID:  raw.ProviderID,
		Date:        date,
		Time:        raw.Time,
		Duration:    raw.Duration,
		IsAvailable: raw.IsAvailable,
		Category:    raw.Category,
	}
	return nil
}

// SlotFilter narrows a provider's stored slots.
type SlotFilter struct {
	ProviderID    string
	From          time.Time
	To            time.Time
	AvailableOnly bool
}

// BookingContact is supplied by the caller of a reservation and only
// travels with the resulting event.
type BookingContact struct {
	PatientName string `json:"patient_name,omitempty" validate:"omitempty,max=200"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
}

// SlotReservedEvent is the payload of EventSlotReserved.
type SlotReservedEvent struct {
	Slot       *Slot           `json:"slot"`
	Contact    *BookingContact `json:"contact,omitempty"`
	ReservedAt time.Time       `json:"reserved_at"`
}

// SlotsGeneratedEvent is the payload of EventSlotsGenerated.
type SlotsGeneratedEvent struct {
	ProviderID     string    `json:"provider_id"`
	HorizonDays    int       `json:"horizon_days"`
	SlotCount      int       `json:"slot_count"`
	AvailableCount int       `json:"available_count"`
	GeneratedAt    time.Time `json:"generated_at"`
}

const (
	EventSlotReserved   = "slot.reserved"
	EventSlotsGenerated = "slots.generated"
)
