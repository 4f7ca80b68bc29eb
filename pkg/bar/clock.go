package bar

import "time"

// Clock abstracts time for the engine so tests can drive timed wakes
// deterministically. The real implementation delegates to the time package.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer is the subset of time.Timer the engine uses.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// realClock is the Clock used outside tests.
type realClock struct{}

// NewClock returns a Clock backed by the time package.
func NewClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) NewTimer(d time.Duration) Timer {
	return realTimer{time.NewTimer(d)}
}

type realTimer struct {
	t *time.Timer
}

func (t realTimer) C() <-chan time.Time {
	return t.t.C
}

func (t realTimer) Stop() bool {
	return t.t.Stop()
}
