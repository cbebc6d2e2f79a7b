package core

import (
	"time"
)

// Timestamp represents a point in time with timezone awareness
type Timestamp time.Time

// Now returns the current timestamp
func Now() Timestamp {
	return Timestamp(time.Now())
}

// IsZero checks if the timestamp is zero
func (t Timestamp) IsZero() bool {
	return time.Time(t).IsZero()
}

// Since returns the elapsed wall time since t
func (t Timestamp) Since() time.Duration {
	return time.Since(time.Time(t))
}

// Format renders the timestamp as RFC3339 for reports
func (t Timestamp) Format() string {
	return time.Time(t).Format(time.RFC3339)
}
