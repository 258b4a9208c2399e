package coordinator

import "time"

// Clock abstracts wall time so tests can drive reconciliation with a virtual
// clock instead of ambient timers
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock
func SystemClock() Clock {
	return systemClock{}
}
