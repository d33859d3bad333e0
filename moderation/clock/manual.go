package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock which only moves when told to. Intended for tests.
//
// Timer callbacks registered with AfterFunc run synchronously inside Advance (in deadline order), not in separate goroutines. Tickers deliver at most one pending tick, like time.Ticker drops ticks for slow receivers.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*manualTimer
	tickers []*manualTicker
}

var _ Clock = (*Manual)(nil)

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTicker{
		clock:  m,
		period: d,
		next:   m.now.Add(d),
		c:      make(chan time.Time, 1),
	}
	m.tickers = append(m.tickers, t)
	return t
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{clock: m, deadline: m.now.Add(d), f: f}
	m.timers = append(m.timers, t)
	return t
}

// Number of timers which have neither fired nor been stopped.
func (m *Manual) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Moves the clock forward, firing any tickers and timers which come due.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.now = target

	for _, t := range m.tickers {
		if t.stopped {
			continue
		}
		for !t.next.After(target) {
			select {
			case t.c <- t.next:
			default:
			}
			t.next = t.next.Add(t.period)
		}
	}

	var due []*manualTimer
	var pending []*manualTimer
	for _, t := range m.timers {
		if !t.deadline.After(target) {
			due = append(due, t)
		} else {
			pending = append(pending, t)
		}
	}
	m.timers = pending
	m.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].deadline.Before(due[j].deadline)
	})
	for _, t := range due {
		t.f()
	}
}

type manualTimer struct {
	clock    *Manual
	deadline time.Time
	f        func()
}

func (t *manualTimer) Stop() bool {
	m := t.clock
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, other := range m.timers {
		if other == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return true
		}
	}
	return false
}

type manualTicker struct {
	clock   *Manual
	period  time.Duration
	next    time.Time
	c       chan time.Time
	stopped bool
}

func (t *manualTicker) C() <-chan time.Time {
	return t.c
}

func (t *manualTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
}
