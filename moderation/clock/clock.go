// Time source and timer abstraction for the moderation engine.
//
// Engine code never calls `time.Now`, `time.NewTicker`, or `time.AfterFunc` directly; it goes through a Clock so that tests can drive periodic sweeps and delayed actions deterministically with Manual.
package clock

import (
	"time"
)

type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
	// Runs f once after d has elapsed, in its own goroutine.
	AfterFunc(d time.Duration, f func()) Timer
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type Timer interface {
	// Returns false if the timer already fired or was stopped.
	Stop() bool
}

// Wall-clock implementation backed by the time package.
type Real struct{}

var _ Clock = Real{}

func (Real) Now() time.Time {
	return time.Now()
}

func (Real) NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time {
	return r.t.C
}

func (r realTicker) Stop() {
	r.t.Stop()
}
