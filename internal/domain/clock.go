package domain

import "time"

// Clock abstracts the time source so suspension and expiry logic can be
// tested without real wall-clock delays.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
