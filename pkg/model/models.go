package model

import "time"

// MigraineSeverity represents how bad a migraine was
type MigraineSeverity string

const (
	SeverityMild     MigraineSeverity = "mild"
	SeverityModerate MigraineSeverity = "moderate"
	SeveritySevere   MigraineSeverity = "severe"
)

// Valid reports whether the severity is one of the known values
func (s MigraineSeverity) Valid() bool {
	switch s {
	case SeverityMild, SeverityModerate, SeveritySevere:
		return true
	}
	return false
}

// MigraineEvent represents a logged migraine. Events are never mutated once recorded.
type MigraineEvent struct {
	ID              string           `json:"id"`
	Date            time.Time        `json:"date"`
	StartTime       string           `json:"start_time"` // HH:MM, local
	EndTime         *string          `json:"end_time,omitempty"`
	Severity        MigraineSeverity `json:"severity"`
	Symptoms        []string         `json:"symptoms"`
	Triggers        []string         `json:"triggers"`
	MedicationTaken []string         `json:"medication_taken,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	Location        *string          `json:"location,omitempty"`
	DurationMinutes *float64         `json:"duration_minutes,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// DayRecord summarizes one calendar day of tracking.
// Migraine is a non-owning reference to the day's migraine, if any.
type DayRecord struct {
	Date         time.Time       `json:"date"`
	HasMigraine  bool            `json:"has_migraine"`
	Migraine     *MigraineEvent  `json:"migraine,omitempty"`
	Entries      TrackingEntries `json:"tracking_entries"`
	TrackedCount int             `json:"tracked_count"`
}

// SameDate reports whether a and b carry the same calendar date.
// Each value is read in its own location; dates are not shifted between zones.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DateOnly truncates t to midnight in its own location
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
