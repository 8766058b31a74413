package service

import "time"

// Clock returns the current time. Services default to UTC wall time; tests
// inject a fixed or advancing clock.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }
