// Package clock provides the current time to the services, so it can be replaced in tests.
package clock

import "time"

// Clock tells the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// System returns the Clock backed by the operating system time.
func System() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Fixed is a Clock that always returns the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time {
	return time.Time(f)
}
