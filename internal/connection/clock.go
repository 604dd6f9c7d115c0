package connection

import "time"

// Clock schedules deferred callbacks. The manager uses it for the retry delay.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

// Timer is a pending callback returned by Clock.AfterFunc.
type Timer interface {
	// Stop prevents the callback from firing. Returns false if it already fired
	// or was stopped.
	Stop() bool
}

type realClock struct{}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock {
	return realClock{}
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (realClock) Now() time.Time {
	return time.Now()
}
