package slot

import (
	"time"

	"github.com/jwalitptl/booking-api/internal/model"
)

// FilterSlotsByDate keeps the slots that fall on the calendar day of date,
// ignoring its time of day. Order is preserved.
func FilterSlotsByDate(slots []*model.Slot, date time.Time) []*model.Slot {
	out := make([]*model.Slot, 0)
	for _, s := range slots {
		if model.SameDay(s.Date, date) {
			out = append(out, s)
		}
	}
	return out
}

// FilterAvailable keeps the slots that can still be reserved.
func FilterAvailable(slots []*model.Slot) []*model.Slot {
	out := make([]*model.Slot, 0, len(slots))
	for _, s := range slots {
		if s.IsAvailable {
			out = append(out, s)
		}
	}
	return out
}
