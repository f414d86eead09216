package frms

import "time"

// Clock supplies the default reference date for an evaluation.
// Tests substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

// RealClock provides actual system time.
type RealClock struct{}

// Now returns the current system time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns the same instant.
type FixedClock struct {
	CurrentTime time.Time
}

// Now returns the fixed time.
func (c *FixedClock) Now() time.Time {
	return c.CurrentTime
}

// ZonedClock reports another clock's time in a fixed location, so the civil
// day of a defaulted reference date is the location's day.
type ZonedClock struct {
	Clock    Clock // nil means RealClock
	Location *time.Location
}

// Now returns the wrapped clock's time in Location.
func (c ZonedClock) Now() time.Time {
	var now time.Time
	if c.Clock == nil {
		now = time.Now()
	} else {
		now = c.Clock.Now()
	}
	if c.Location == nil {
		return now
	}
	return now.In(c.Location)
}
