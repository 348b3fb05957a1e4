package models

import "time"

// AdminLogEntry is an append-only audit record written on destructive
// moderation actions.
type AdminLogEntry struct {
	ID        int64
	Log       string
	AdminID   *int64
	CreatedAt time.Time
}

// RangeBan blocks anonymous uploads from an IP range until lifted.
type RangeBan struct {
	ID      int64
	CIDR    string
	Enabled bool
}
