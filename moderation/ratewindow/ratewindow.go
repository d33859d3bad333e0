// Per-channel message rate detection using a tumbling one-second window.
//
// The window is a fixed bucket which resets on the first message after it expires, not a sliding window. That keeps bookkeeping O(1) per message at the cost of some precision around bucket edges. At most one breach is reported per window, regardless of how far over the threshold the count climbs.
package ratewindow

import (
	"time"

	"github.com/wggdev/ratebot/moderation/event"
)

// Length of each counting bucket.
const WindowLength = time.Second

type Decision int

const (
	None Decision = iota
	Breach
)

func (d Decision) String() string {
	if d == Breach {
		return "breach"
	}
	return "none"
}

// Counting state for one channel.
type State struct {
	Count       int
	WindowStart time.Time
	// Last time a breach was reported. Zero value means no breach in the current window.
	LastWarnedAt time.Time
}

// Tracks rate windows for every monitored channel.
//
// Not safe for concurrent use: the engine owns a Monitor and only touches it from its event loop.
type Monitor struct {
	windows map[event.ChannelKey]*State
}

func NewMonitor() *Monitor {
	return &Monitor{
		windows: make(map[event.ChannelKey]*State),
	}
}

// Counts one message for the channel and reports whether it tipped the channel over its threshold.
//
// A threshold of zero or less means no rate is configured; no state is allocated in that case.
func (m *Monitor) OnMessage(key event.ChannelKey, threshold int, now time.Time) Decision {
	if threshold <= 0 {
		return None
	}
	st, ok := m.windows[key]
	if !ok {
		st = &State{WindowStart: now}
		m.windows[key] = st
	}
	if now.Sub(st.WindowStart) >= WindowLength {
		st.Count = 0
		st.WindowStart = now
		st.LastWarnedAt = time.Time{}
	}
	st.Count++

	if st.Count < threshold {
		return None
	}
	if !st.LastWarnedAt.IsZero() && now.Sub(st.LastWarnedAt) < WindowLength {
		return None
	}
	st.LastWarnedAt = now
	return Breach
}

// Returns a copy of the current window for a channel, if one exists.
func (m *Monitor) Window(key event.ChannelKey) (State, bool) {
	st, ok := m.windows[key]
	if !ok {
		return State{}, false
	}
	return *st, true
}

// Number of channels with window state.
func (m *Monitor) Len() int {
	return len(m.windows)
}
