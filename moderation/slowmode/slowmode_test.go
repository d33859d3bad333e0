package slowmode

import (
	"fmt"
	"testing"
	"time"

	"github.com/wggdev/ratebot/moderation/event"

	"github.com/stretchr/testify/assert"
)

var testKey = event.ChannelKey{GuildID: "857689267744800800", ChannelID: "1326315584417435648"}

// fake live channel: records every applied level
type liveChannel struct {
	level   int
	applied []int
	fail    error
}

func (l *liveChannel) apply(level int) error {
	if l.fail != nil {
		return l.fail
	}
	l.level = level
	l.applied = append(l.applied, level)
	return nil
}

func TestEscalationConvergesToCeiling(t *testing.T) {
	assert := assert.New(t)
	c := NewController()
	live := &liveChannel{}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		_, err := c.OnBreach(testKey, now.Add(time.Duration(i)*time.Second), live.level, 30, live.apply)
		assert.NoError(err)
	}
	assert.Equal(30, live.level)
	assert.Equal([]int{5, 10, 15, 20, 25, 30}, live.applied)

	st, ok := c.Get(testKey)
	assert.True(ok)
	assert.Equal(0, st.Baseline)
	assert.Equal(30, st.CurrentLevel)
	assert.Equal(now.Add(9*time.Second), st.LastInfractionAt)
}

func TestEscalationTwoSteps(t *testing.T) {
	assert := assert.New(t)
	c := NewController()
	live := &liveChannel{}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	out, err := c.OnBreach(testKey, now, live.level, 30, live.apply)
	assert.NoError(err)
	assert.Equal(Outcome{Previous: 0, Level: 5, Changed: true}, out)

	out, err = c.OnBreach(testKey, now.Add(time.Second), live.level, 30, live.apply)
	assert.NoError(err)
	assert.Equal(Outcome{Previous: 5, Level: 10, Changed: true}, out)
}

func TestEscalationPartialStepAtCeiling(t *testing.T) {
	assert := assert.New(t)
	c := NewController()
	live := &liveChannel{level: 8}
	now := time.Now()

	out, err := c.OnBreach(testKey, now, live.level, 10, live.apply)
	assert.NoError(err)
	assert.Equal(10, out.Level)

	out, err = c.OnBreach(testKey, now, live.level, 10, live.apply)
	assert.NoError(err)
	assert.False(out.Changed)
	assert.Equal(10, out.Level)
	assert.Equal([]int{10}, live.applied)

	st, _ := c.Get(testKey)
	assert.Equal(8, st.Baseline)
}

func TestEscalationApplyFailureLeavesState(t *testing.T) {
	assert := assert.New(t)
	c := NewController()
	live := &liveChannel{fail: fmt.Errorf("missing permissions")}
	now := time.Now()

	_, err := c.OnBreach(testKey, now, 0, 30, live.apply)
	assert.Error(err)
	_, ok := c.Get(testKey)
	assert.False(ok)
	assert.Equal(0, c.Len())

	// existing state is not touched either
	live.fail = nil
	_, err = c.OnBreach(testKey, now, 0, 30, live.apply)
	assert.NoError(err)
	live.fail = fmt.Errorf("missing permissions")
	_, err = c.OnBreach(testKey, now.Add(time.Minute), live.level, 30, live.apply)
	assert.Error(err)
	st, _ := c.Get(testKey)
	assert.Equal(now, st.LastInfractionAt)
	assert.Equal(5, st.CurrentLevel)
}

func TestDecayStepsSpacedByInterval(t *testing.T) {
	assert := assert.New(t)
	c := NewController()
	live := &liveChannel{level: 0}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	interval := 20 * time.Second

	// escalate 0 -> 15
	for i := 0; i < 3; i++ {
		_, err := c.OnBreach(testKey, start, live.level, 30, live.apply)
		assert.NoError(err)
	}
	assert.Equal(15, live.level)

	// not yet due
	out, err := c.DecayTick(testKey, start.Add(15*time.Second), live.level, interval, live.apply)
	assert.NoError(err)
	assert.False(out.Due)
	assert.False(c.Due(testKey, start.Add(15*time.Second), interval))
	assert.Equal(15, live.level)

	// due exactly at interval
	now := start.Add(interval)
	assert.True(c.Due(testKey, now, interval))
	out, err = c.DecayTick(testKey, now, live.level, interval, live.apply)
	assert.NoError(err)
	assert.Equal(Outcome{Previous: 15, Level: 10, Changed: true, Due: true}, out)

	// a tick 5s later is not due: the interval restarted at the decay step
	out, err = c.DecayTick(testKey, now.Add(5*time.Second), live.level, interval, live.apply)
	assert.NoError(err)
	assert.False(out.Due)
	assert.Equal(10, live.level)

	now = now.Add(interval)
	out, err = c.DecayTick(testKey, now, live.level, interval, live.apply)
	assert.NoError(err)
	assert.Equal(5, out.Level)
	assert.False(out.Stopped)

	now = now.Add(interval)
	out, err = c.DecayTick(testKey, now, live.level, interval, live.apply)
	assert.NoError(err)
	assert.Equal(Outcome{Previous: 5, Level: 0, Changed: true, Stopped: true, Due: true}, out)
	assert.Equal(0, c.Len())

	assert.Equal([]int{5, 10, 15, 10, 5, 0}, live.applied)
}

func TestDecayNeverBelowBaseline(t *testing.T) {
	assert := assert.New(t)
	c := NewController()
	live := &liveChannel{level: 3}
	start := time.Now()

	_, err := c.OnBreach(testKey, start, live.level, 30, live.apply)
	assert.NoError(err)
	assert.Equal(8, live.level)

	out, err := c.DecayTick(testKey, start.Add(time.Minute), live.level, 20*time.Second, live.apply)
	assert.NoError(err)
	assert.Equal(3, out.Level)
	assert.True(out.Stopped)
	assert.Equal(3, live.level)
}

func TestDecayExternalChangeBelowBaseline(t *testing.T) {
	assert := assert.New(t)
	c := NewController()
	live := &liveChannel{level: 10}
	start := time.Now()

	_, err := c.OnBreach(testKey, start, live.level, 30, live.apply)
	assert.NoError(err)

	// a moderator manually turned slowmode off
	live.level = 0
	out, err := c.DecayTick(testKey, start.Add(time.Minute), live.level, 20*time.Second, live.apply)
	assert.NoError(err)
	assert.False(out.Changed)
	assert.True(out.Stopped)
	assert.Equal(0, live.level)
	assert.Equal([]int{15}, live.applied)
}

func TestDecayApplyFailureRetries(t *testing.T) {
	assert := assert.New(t)
	c := NewController()
	live := &liveChannel{}
	start := time.Now()

	_, err := c.OnBreach(testKey, start, live.level, 30, live.apply)
	assert.NoError(err)

	live.fail = fmt.Errorf("boom")
	_, err = c.DecayTick(testKey, start.Add(time.Minute), live.level, 20*time.Second, live.apply)
	assert.Error(err)
	st, ok := c.Get(testKey)
	assert.True(ok)
	assert.Equal(start, st.LastInfractionAt)

	live.fail = nil
	out, err := c.DecayTick(testKey, start.Add(time.Minute+5*time.Second), live.level, 20*time.Second, live.apply)
	assert.NoError(err)
	assert.True(out.Stopped)
}

func TestDecayUntracked(t *testing.T) {
	assert := assert.New(t)
	c := NewController()

	called := false
	out, err := c.DecayTick(testKey, time.Now(), 10, time.Second, func(int) error {
		called = true
		return nil
	})
	assert.NoError(err)
	assert.False(called)
	assert.False(out.Due)
}

func TestTrackedSorted(t *testing.T) {
	assert := assert.New(t)
	c := NewController()
	noop := func(int) error { return nil }
	b := event.ChannelKey{GuildID: "2", ChannelID: "1"}
	a := event.ChannelKey{GuildID: "1", ChannelID: "9"}

	_, _ = c.OnBreach(b, time.Now(), 0, 30, noop)
	_, _ = c.OnBreach(a, time.Now(), 0, 30, noop)
	assert.Equal([]event.ChannelKey{a, b}, c.Tracked())
}
