package messaging

import "time"

// AttendanceComputedEvent is the JSON payload published after a day's
// aggregate is (re)computed. Identity plus day is the record key; consumers
// re-read the row, so the event only needs enough to locate and describe it.
type AttendanceComputedEvent struct {
	Identity        string    `json:"identity"`
	Day             string    `json:"day"`
	Status          string    `json:"status"`
	DurationMinutes int64     `json:"durationMinutes"`
	ComputedAt      time.Time `json:"computedAt"`
}
