package models

import "time"

// Tracker API actions queued for the external tracker service.
const (
	TrackerTaskInsert = "insert"
	TrackerTaskRemove = "remove"
)

// TrackerTask is a durably queued notification for the external tracker
// service. Delivery is at-least-once; the worker marks rows done after a
// successful send.
type TrackerTask struct {
	ID        int64
	InfoHash  []byte
	Action    string
	Attempts  int
	CreatedAt time.Time
}
