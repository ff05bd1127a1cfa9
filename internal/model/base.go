package model

import (
	"time"
)

const (
	// DateLayout is the wire format of a civil date.
	DateLayout = "2006-01-02"
	// ClockLayout is the wire format of a time of day.
	ClockLayout = "15:04"
)

// Timestamps contains the bookkeeping columns shared by persisted models
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Day truncates t to midnight UTC of its calendar day, dropping the zone.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ParseDate parses a yyyy-mm-dd string into a civil date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
