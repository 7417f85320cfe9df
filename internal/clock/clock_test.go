package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct{ days int }

func (c *counter) OnDayPassed() { c.days++ }

func frames(c *Clock, n int) {
	for range n {
		c.Tick()
	}
}

func TestDayCadencePerSpeed(t *testing.T) {
	cases := []struct {
		mode   SpeedMode
		frames int
	}{
		{SpeedSlow, 480},
		{SpeedNormal, 240},
		{SpeedFast, 180},
		{SpeedFastest, 120},
	}
	for _, tc := range cases {
		t.Run(tc.mode.String(), func(t *testing.T) {
			c := New()
			c.SetSpeed(tc.mode)
			l := &counter{}
			c.Subscribe(l)

			frames(c, tc.frames-1)
			assert.Zero(t, l.days)
			c.Tick()
			assert.Equal(t, 1, l.days)

			frames(c, tc.frames*6)
			assert.Equal(t, 7, l.days)
			assert.Equal(t, 7, c.DaysSinceStart())
			assert.Equal(t, 1, c.WeeksSinceStart())
		})
	}
}

func TestSetSpeedKeepsAccumulator(t *testing.T) {
	c := New()
	l := &counter{}
	c.Subscribe(l)

	frames(c, 150)
	c.SetSpeed(SpeedFastest)
	// Already past 120 frames; the next tick completes the day.
	c.Tick()
	assert.Equal(t, 1, l.days)

	c.SetSpeed(SpeedFastest)
	assert.Equal(t, SpeedFastest, c.Speed())
	frames(c, 120)
	assert.Equal(t, 2, l.days)
}

func TestHoursAdvanceEveryTenFrames(t *testing.T) {
	c := New()
	frames(c, 9)
	assert.Zero(t, c.Hours())
	c.Tick()
	assert.InDelta(t, 1.0, c.Hours(), 1e-12)
	assert.Equal(t, "Week 1 Day 1, 01:00", c.SimTime())
}

func TestPauseGatesTick(t *testing.T) {
	c := New()
	l := &counter{}
	c.Subscribe(l)

	c.Pause()
	require.True(t, c.Paused())
	frames(c, 1000)
	assert.Zero(t, l.days)
	assert.Zero(t, c.Hours())

	c.Resume()
	frames(c, 240)
	assert.Equal(t, 1, l.days)
}

func TestNotifyOrderAndIdentity(t *testing.T) {
	c := New()
	var order []string
	a := DayFunc(func() { order = append(order, "a") })
	b := DayFunc(func() { order = append(order, "b") })
	c.Subscribe(&a)
	c.Subscribe(&b)

	frames(c, 240)
	assert.Equal(t, []string{"a", "b"}, order)

	c.Unsubscribe(&a)
	c.Unsubscribe(&counter{}) // not subscribed
	frames(c, 240)
	assert.Equal(t, []string{"a", "b", "b"}, order)
	assert.Equal(t, 1, c.Listeners())
}

func TestSubscribeDuringNotificationWaitsForNextDay(t *testing.T) {
	c := New()
	late := &counter{}
	var hook DayFunc
	hook = func() {
		c.Subscribe(late)
		c.Unsubscribe(&hook)
	}
	c.Subscribe(&hook)

	frames(c, 240)
	assert.Zero(t, late.days)
	frames(c, 240)
	assert.Equal(t, 1, late.days)
	assert.Equal(t, 1, c.Listeners())
}

func TestReentrantTickPanics(t *testing.T) {
	c := New()
	bad := DayFunc(func() { c.Tick() })
	c.Subscribe(&bad)
	assert.Panics(t, func() { frames(c, 240) })
}

func TestUnknownSpeed(t *testing.T) {
	_, err := ParseSpeed(3)
	assert.Error(t, err)
	m, err := ParseSpeed(-1)
	require.NoError(t, err)
	assert.Equal(t, SpeedSlow, m)

	c := New()
	assert.Panics(t, func() { c.SetSpeed(SpeedMode(7)) })
}
