package model

import (
	"time"
)

// AttendanceStatus classifies a person's day from their punch span.
type AttendanceStatus string

const (
	StatusAbsent  AttendanceStatus = "ABSENT"
	StatusShort   AttendanceStatus = "SHORT"
	StatusPresent AttendanceStatus = "PRESENT"
)

// DeliveryStatus tracks asynchronous downstream processing of an attendance record.
type DeliveryStatus string

const (
	DeliveryPending    DeliveryStatus = "PENDING"
	DeliveryProcessing DeliveryStatus = "PROCESSING"
	DeliveryCompleted  DeliveryStatus = "COMPLETED"
	DeliveryFailed     DeliveryStatus = "FAILED"
)

// DeviceStatus is the liveness state of a terminal.
type DeviceStatus string

const (
	DeviceOnline  DeviceStatus = "ONLINE"
	DeviceOffline DeviceStatus = "OFFLINE"
)

// PunchRecord is one clock event pushed by a terminal. The optional device
// fields are nil when the line did not carry them.
type PunchRecord struct {
	ID           int64     `json:"id"`
	Identity     string    `json:"identity"`
	Timestamp    time.Time `json:"timestamp"`
	Status       *string   `json:"status,omitempty"`
	VerifyMethod *string   `json:"verifyMethod,omitempty"`
	WorkCode     *string   `json:"workCode,omitempty"`
	Reserved     *string   `json:"reserved,omitempty"`
	RawLine      string    `json:"rawLine"`
}

// AttendanceRecord is the per-(identity, day) aggregate derived from punches.
// ReportStatus and EmailStatus track the downstream queue jobs for the record.
type AttendanceRecord struct {
	Identity         string           `json:"identity"`
	Day              time.Time        `json:"day"`
	FirstTimestamp   time.Time        `json:"firstTimestamp"`
	LastTimestamp    time.Time        `json:"lastTimestamp"`
	DurationMinutes  int64            `json:"durationMinutes"`
	Status           AttendanceStatus `json:"status"`
	ReportStatus     DeliveryStatus   `json:"reportStatus"`
	ReportRetryCount int              `json:"reportRetryCount"`
	EmailStatus      DeliveryStatus   `json:"emailStatus"`
	EmailRetryCount  int              `json:"emailRetryCount"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// DeviceRecord is the persisted liveness state of one terminal. The cache in
// the liveness tracker is authoritative at any instant; this row lags behind
// and is reconciled by the sweep.
type DeviceRecord struct {
	SerialNumber string       `json:"serialNumber"`
	Status       DeviceStatus `json:"status"`
	LastSeen     time.Time    `json:"lastSeen"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// DayKey formats a day as the canonical aggregation key.
func DayKey(day time.Time) string {
	return day.UTC().Format("2006-01-02")
}
