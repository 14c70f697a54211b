package anim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type manualClock struct{ t time.Time }

func (c *manualClock) Now() time.Time { return c.t }

func (c *manualClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *manualClock { return &manualClock{t: time.Unix(1700000000, 0)} }

func TestEasingEndpoints(t *testing.T) {
	for _, e := range []Easing{Linear, CubicInOut, CubicOut} {
		require.InDelta(t, 0, e(0), 1e-12)
		require.InDelta(t, 1, e(1), 1e-12)
	}
	require.InDelta(t, 0.5, CubicInOut(0.5), 1e-12)
	require.InDelta(t, 0.875, CubicOut(0.5), 1e-12)
}

func TestLerp(t *testing.T) {
	i := Lerp([]float64{0, 10}, []float64{10, 20, 99})
	require.Equal(t, []float64{5, 15}, i(0.5))
	require.Equal(t, []float64{10, 20}, i(1))
}

func TestSchedulerFinalFrameOnce(t *testing.T) {
	c := newClock()
	s := NewScheduler(c)
	s.Start(Request{Target: "map", Property: "transform", From: []float64{0}, To: []float64{100}, Duration: time.Second, Easing: Linear})

	c.Advance(250 * time.Millisecond)
	fs := s.Tick()
	require.Len(t, fs, 1)
	require.False(t, fs[0].Done)
	require.InDelta(t, 25, fs[0].Value[0], 1e-9)

	c.Advance(time.Second)
	fs = s.Tick()
	require.Len(t, fs, 1)
	require.True(t, fs[0].Done)
	require.Equal(t, []float64{100}, fs[0].Value)

	require.Empty(t, s.Tick())
	require.True(t, s.Idle())
}

func TestSchedulerLastWriteWins(t *testing.T) {
	c := newClock()
	s := NewScheduler(c)
	superseded := 0
	s.OnSupersede = func(string, string) { superseded++ }

	require.False(t, s.Start(Request{Target: "map", Property: "transform", From: []float64{0}, To: []float64{100}, Duration: time.Second}))
	c.Advance(100 * time.Millisecond)
	require.True(t, s.Start(Request{Target: "map", Property: "transform", From: []float64{50}, To: []float64{0}, Duration: time.Second}))
	require.Equal(t, 1, superseded)
	require.Equal(t, 1, s.Len())

	c.Advance(2 * time.Second)
	fs := s.Tick()
	require.Len(t, fs, 1)
	require.Equal(t, []float64{0}, fs[0].Value)
}

func TestSchedulerIndependentSlotsAndCancel(t *testing.T) {
	c := newClock()
	s := NewScheduler(c)
	s.Start(Request{Target: "map", Property: "transform", From: []float64{0}, To: []float64{1}, Duration: time.Second})
	s.Start(Request{Target: "75", Property: "fill", From: []float64{0}, To: []float64{1}, Duration: 500 * time.Millisecond})
	s.Start(Request{Target: "13", Property: "fill", From: []float64{1}, To: []float64{0}, Duration: 500 * time.Millisecond})

	require.True(t, s.Cancel("map", "transform"))
	require.False(t, s.Cancel("map", "transform"))
	require.Equal(t, 2, s.Len())

	c.Advance(time.Second)
	fs := s.Tick()
	require.Len(t, fs, 2)
	require.Equal(t, "13", fs[0].Target)
	require.Equal(t, "75", fs[1].Target)

	require.True(t, s.Idle())
}

func TestSchedulerZeroDuration(t *testing.T) {
	s := NewScheduler(newClock())
	s.Start(Request{Target: "a", Property: "p", From: []float64{3}, To: []float64{7}})
	fs := s.Tick()
	require.Len(t, fs, 1)
	require.True(t, fs[0].Done)
	require.Equal(t, []float64{7}, fs[0].Value)
}

func TestZoomInterpolatorEndpoints(t *testing.T) {
	mk := ZoomInterpolator(800, 600)
	from := []float64{0, 0, 1}
	to := []float64{-1200, -900, 4}
	i := mk(from, to)

	start := i(0)
	require.InDelta(t, 0, start[0], 1e-9)
	require.InDelta(t, 0, start[1], 1e-9)
	require.InDelta(t, 1, start[2], 1e-9)
	require.Equal(t, to, i(1))

	mid := i(0.5)
	require.Greater(t, mid[2], 0.0)
	require.Len(t, mid, 3)
}

func TestZoomInterpolatorPureScale(t *testing.T) {
	// 以视口中心为不动点的纯缩放：视图中心不变，k 按指数变化
	i := ZoomInterpolator(800, 600)([]float64{0, 0, 1}, []float64{-400, -300, 2})
	mid := i(0.5)
	require.InDelta(t, 1.4142135623730951, mid[2], 1e-9)
	require.InDelta(t, 400-400*mid[2], mid[0], 1e-9)
	require.InDelta(t, 300-300*mid[2], mid[1], 1e-9)
}

func TestZoomInterpolatorFallsBackToLerp(t *testing.T) {
	i := ZoomInterpolator(800, 600)([]float64{0, 0, 0}, []float64{10, 10, 2})
	require.Equal(t, []float64{5, 5, 1}, i(0.5))
}
