package outputcache

import "time"

// Clock abstracts the current wall-clock time so tests can supply a fake one
// instead of depending on time.Now.
type Clock interface {
	Now() time.Time
}

// systemClock is the Clock backed by the real wall clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
