package service

import "time"

// Clock returns the current time. Services stamp every write from their clock.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}
