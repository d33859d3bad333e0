// Escalation and decay of channel slowmode (per-user post delay, in seconds).
//
// A Controller remembers, for each channel it has escalated, the slowmode level the channel had before the episode began ("baseline"). Breaches raise the level in fixed steps up to a ceiling; quiet intervals lower it in the same steps until it is back at baseline, at which point tracking ends.
package slowmode

import (
	"sort"
	"time"

	"github.com/wggdev/ratebot/moderation/event"
)

// Size of each escalation or decay step, in seconds.
const Step = 5

const (
	DefaultCeiling       = 30
	DefaultDecayInterval = 20 * time.Second
)

// Applies a slowmode level to the live channel.
type ApplyFunc func(level int) error

// Per-channel escalation bookkeeping.
type Escalation struct {
	// Slowmode level when escalation began; the decay target.
	Baseline int
	// Last time a breach or decay step touched this channel.
	LastInfractionAt time.Time
	// Cached copy of the level last applied. The live channel remains authoritative.
	CurrentLevel int
}

// Result of a breach or decay step.
type Outcome struct {
	Previous int
	// Level in effect after this step (equal to Previous if nothing was applied)
	Level int
	// The apply callback was invoked and succeeded.
	Changed bool
	// Tracking for the channel ended (decay only).
	Stopped bool
	// The decay interval had elapsed (decay only).
	Due bool
}

// Not safe for concurrent use; owned by the engine event loop.
type Controller struct {
	states map[event.ChannelKey]*Escalation
}

func NewController() *Controller {
	return &Controller{
		states: make(map[event.ChannelKey]*Escalation),
	}
}

// Handles a rate breach on a channel whose live slowmode is `current`.
//
// If the stepped-up level is higher than `current`, `apply` is called with it. If apply fails the error is returned and no state is modified, so the next breach retries from the same starting point.
func (c *Controller) OnBreach(key event.ChannelKey, now time.Time, current, ceiling int, apply ApplyFunc) (Outcome, error) {
	out := Outcome{Previous: current, Level: current}
	level := min(current+Step, ceiling)
	if level > current {
		if err := apply(level); err != nil {
			return out, err
		}
		out.Level = level
		out.Changed = true
	}

	st, ok := c.states[key]
	if !ok {
		st = &Escalation{Baseline: current}
		c.states[key] = st
	}
	st.LastInfractionAt = now
	st.CurrentLevel = out.Level
	return out, nil
}

// Reports whether the decay interval has elapsed for a tracked channel. Untracked channels are never due.
func (c *Controller) Due(key event.ChannelKey, now time.Time, interval time.Duration) bool {
	st, ok := c.states[key]
	if !ok {
		return false
	}
	return now.Sub(st.LastInfractionAt) >= interval
}

// Attempts one decay step for a tracked channel whose live slowmode is `current`.
//
// Nothing happens until `interval` has passed since the last infraction (or last decay step). Once due, the level drops by one Step but never below baseline. When the resulting level equals baseline the channel stops being tracked; otherwise the infraction time is reset so the next step waits another full interval.
//
// If apply fails the error is returned and state is left as it was; the step will be retried on the next tick.
func (c *Controller) DecayTick(key event.ChannelKey, now time.Time, current int, interval time.Duration, apply ApplyFunc) (Outcome, error) {
	out := Outcome{Previous: current, Level: current}
	st, ok := c.states[key]
	if !ok {
		return out, nil
	}
	if now.Sub(st.LastInfractionAt) < interval {
		return out, nil
	}
	out.Due = true

	level := max(current-Step, st.Baseline)
	if level < current {
		if err := apply(level); err != nil {
			return out, err
		}
		out.Level = level
		out.Changed = true
	}

	if level == st.Baseline {
		delete(c.states, key)
		out.Stopped = true
		return out, nil
	}
	st.LastInfractionAt = now
	st.CurrentLevel = out.Level
	return out, nil
}

// Returns a copy of the escalation state for a channel, if tracked.
func (c *Controller) Get(key event.ChannelKey) (Escalation, bool) {
	st, ok := c.states[key]
	if !ok {
		return Escalation{}, false
	}
	return *st, true
}

// Lists tracked channels. Order carries no meaning; keys are sorted so that sweeps are reproducible.
func (c *Controller) Tracked() []event.ChannelKey {
	out := make([]event.ChannelKey, 0, len(c.states))
	for k := range c.states {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

func (c *Controller) Len() int {
	return len(c.states)
}
