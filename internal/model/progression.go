package model

import "time"

// SessionRecord is one completed countdown, focus or break, kept in the
// profile history for charts and the tier predicates that filter by
// duration.
type SessionRecord struct {
	Timestamp       time.Time `json:"timestamp"`
	DurationMinutes int       `json:"durationMinutes"`
	Category        string    `json:"category"`
	Kind            string    `json:"kind"`
}

type HarvestedItem struct {
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// Profile is the cumulative progression state for one identity. Level is
// monotone: it only ever moves up, one tier at a time, as the unlock
// predicates over the cumulative totals are met.
type Profile struct {
	Level              int             `json:"level"`
	TotalFocusMinutes  int             `json:"totalFocusMinutes"`
	ResourcePoints     int             `json:"resourcePoints"`
	CompletedTaskCount int             `json:"completedTaskCount"`
	Experience         int             `json:"experience"`
	LifetimeExperience int             `json:"lifetimeExperience"`
	StreakDays         int             `json:"streakDays"`
	LastActiveDate     string          `json:"lastActiveDate,omitempty"`
	SessionHistory     []SessionRecord `json:"sessionHistory"`
	HarvestedItems     []HarvestedItem `json:"harvestedItems"`
}

func NewProfile() *Profile {
	return &Profile{
		Level:          1,
		SessionHistory: []SessionRecord{},
		HarvestedItems: []HarvestedItem{},
	}
}
