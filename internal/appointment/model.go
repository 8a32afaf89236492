package appointment

import (
	"time"
)

// Appointment is a stored booking as read back by a lookup.
type Appointment struct {
	ID         int64
	Username   string
	IDCard     string
	Department *string
	// Date holds only the calendar day; the clock part is always zero.
	Date *time.Time
	// Time is the time of day as an offset from midnight.
	Time          *time.Duration
	AccessToken   string
	TokenExpireAt time.Time
}
