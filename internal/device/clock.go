package device

import "time"

// Clock abstracts time so the tick loop can be driven deterministically in
// tests. The debounce delay is the only deliberate sleep inside a tick.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock is the real wall clock.
var SystemClock Clock = systemClock{}
