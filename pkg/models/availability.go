package models

import "time"

type Availability struct {
	ID              string    `json:"id"`
	EspecialistaID  string    `json:"especialista_id"`
	DayOfWeek       int       `json:"day_of_week"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	IsAvailable     bool      `json:"is_available"`
	IntervalMinutes int       `json:"interval_minutes"`
	MaxSessions     int       `json:"max_sessions"`
	Exceptions      []string  `json:"exceptions"`
	UpdatedAt       time.Time `json:"updated_at"`
	// Synthesized marks entries that have no stored row yet.
	Synthesized bool `json:"synthesized"`
}
