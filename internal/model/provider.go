package model

import (
	"time"
)

// Provider is the owner of a schedule. Working hours are whole hours,
// slots are generated for StartHour <= hour < EndHour.
type Provider struct {
	ID              string `json:"id" db:"id" mapstructure:"id" validate:"required,max=64"`
	Name            string `json:"name" db:"name" mapstructure:"name" validate:"required"`
	Specialty       string `json:"specialty,omitempty" db:"specialty" mapstructure:"specialty"`
	StartHour       int    `json:"start_hour" db:"start_hour" mapstructure:"start_hour" validate:"min=0,max=23"`
	EndHour         int    `json:"end_hour" db:"end_hour" mapstructure:"end_hour" validate:"min=1,max=24,gtfield=StartHour"`
	WeekendEligible bool   `json:"weekend_eligible" db:"weekend_eligible" mapstructure:"weekend_eligible"`
	Timestamps      `mapstructure:",squash"`
}

// WorksOn reports whether the provider has slots on the given day.
func (p *Provider) WorksOn(day time.Time) bool {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return p.WeekendEligible
	}
	return true
}

// TicksPerDay is the number of slots in one working day.
func (p *Provider) TicksPerDay() int {
	return (p.EndHour - p.StartHour) * int(time.Hour/SlotDuration)
}
