package view

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"popmap/internal/anim"
	"popmap/internal/carto"
	"popmap/internal/population"
)

type manualClock struct{ t time.Time }

func (c *manualClock) Now() time.Time { return c.t }

func square(x0, y0, x1, y1 float64) orb.MultiPolygon {
	return orb.MultiPolygon{{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}}
}

type fixture struct {
	clock *manualClock
	sel   *Selection
	ctl   *Controller
	layer *carto.Layer
	data  *population.Dataset
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	features := []carto.Feature{
		{RawCode: "75", Name: "Paris", Geometry: square(2.2, 48.8, 2.5, 48.9)},
		{RawCode: "13", Name: "Bouches-du-Rhône", Geometry: square(4.2, 43.2, 5.8, 43.9)},
		{RawCode: float64(1), Name: "Ain", Geometry: square(4.7, 45.6, 6.1, 46.5)},
		{RawCode: "2A", Name: "Corse-du-Sud", Geometry: square(8.5, 41.3, 9.4, 42.4)},
	}
	deps := []population.Departement{
		{ID: "75", Nom: "Paris",
			Ensemble: population.NewTranche(nil, nil, nil, nil, nil, population.Int(2133111)),
			Hommes:   population.NewTranche(nil, nil, nil, nil, nil, population.Int(1004505)),
			Femmes:   population.NewTranche(nil, nil, nil, nil, nil, population.Int(1128606)),
		},
		{ID: "13", Nom: "Bouches-du-Rhône", Ensemble: population.NewTranche(nil, nil, nil, nil, nil, population.Int(2069762))},
		{ID: "01", Nom: "Ain"},
	}
	vp := carto.Viewport{Width: 800, Height: 900}
	clk := &manualClock{t: time.Unix(1700000000, 0)}
	sel := NewSelection()
	ctl := NewController(sel, anim.NewScheduler(clk))
	layer := carto.BuildLayer(features, carto.Boundaries(features), vp)
	ds := population.NewDataset(deps, "test")
	ctl.SetData(ds)
	ctl.SetLayer(layer)
	return &fixture{clock: clk, sel: sel, ctl: ctl, layer: layer, data: ds}
}

// settle：推进时钟直到全部动画结束
func (f *fixture) settle() {
	f.clock.t = f.clock.t.Add(2 * time.Second)
	f.ctl.Tick()
}

func TestSelectionIdempotent(t *testing.T) {
	s := NewSelection()
	var got []Change
	unsub := s.Subscribe(func(c Change) { got = append(got, c) })

	d := &population.Departement{ID: "75"}
	require.True(t, s.Set(d, OriginSearch))
	require.False(t, s.Set(d, OriginSearch))
	require.Len(t, got, 1)
	require.Same(t, d, got[0].Next)
	require.Nil(t, got[0].Prev)
	require.Equal(t, OriginSearch, got[0].Origin)

	require.True(t, s.Set(nil, OriginReset))
	require.Len(t, got, 2)
	require.Same(t, d, got[1].Prev)

	unsub()
	unsub()
	s.Set(d, OriginMap)
	require.Len(t, got, 2)
	require.Same(t, d, s.Get())
}

func TestSelectionSubscriberMayReadCell(t *testing.T) {
	s := NewSelection()
	var seen *population.Departement
	s.Subscribe(func(Change) { seen = s.Get() })
	d := &population.Departement{ID: "13"}
	s.Set(d, OriginMap)
	require.Same(t, d, seen)
}

func TestClickParisSelectsExactRecordAndZooms(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.ctl.Click("75"))

	require.Same(t, &f.data.Departements[0], f.sel.Get())
	require.EqualValues(t, 2133111, *f.sel.Get().Ensemble.Total)
	require.Equal(t, StateZoomed, f.ctl.State())

	f.settle()
	paris := f.layer.Region("75")
	want := carto.ZoomToBounds(paris.Bounds, f.layer.Viewport)
	require.Equal(t, want, f.ctl.Transform())
	require.InDelta(t, 1/want.K, f.ctl.StrokeWidth(), 1e-12)
	require.Equal(t, 1.0, f.ctl.Fill("75"))
}

func TestClickLeadingZeroCodeMatches(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.ctl.Click("01"))
	require.Same(t, &f.data.Departements[2], f.sel.Get())
}

func TestClickUnmatchedRegionClearsSelectionButZooms(t *testing.T) {
	f := newFixture(t)
	f.ctl.Click("75")
	require.NotNil(t, f.sel.Get())

	require.True(t, f.ctl.Click("2A"))
	require.Nil(t, f.sel.Get())
	require.Equal(t, StateZoomed, f.ctl.State())
	require.Equal(t, "2A", f.ctl.Focus().Code)

	require.False(t, f.ctl.Click("99"))
	require.Equal(t, "2A", f.ctl.Focus().Code)
}

func TestRetargetAndBackground(t *testing.T) {
	f := newFixture(t)
	f.ctl.Click("75")
	f.clock.t = f.clock.t.Add(300 * time.Millisecond)
	f.ctl.Tick()

	f.ctl.Click("13")
	require.Equal(t, "13", f.ctl.Focus().Code)
	f.settle()
	require.Equal(t, carto.ZoomToBounds(f.layer.Region("13").Bounds, f.layer.Viewport), f.ctl.Transform())
	require.Equal(t, 0.0, f.ctl.Fill("75"))

	f.ctl.Background()
	require.Nil(t, f.sel.Get())
	require.Equal(t, StateIdle, f.ctl.State())
	f.settle()
	require.Equal(t, carto.Identity, f.ctl.Transform())
}

func TestClickAtBackground(t *testing.T) {
	f := newFixture(t)
	f.ctl.Click("75")
	f.settle()
	require.Nil(t, f.ctl.ClickAt(orb.Point{-1000, -1000}))
	require.Nil(t, f.sel.Get())
	f.settle()
	require.Equal(t, carto.Identity, f.ctl.Transform())
}

func TestClickAtHitsRegion(t *testing.T) {
	f := newFixture(t)
	pt := f.layer.Projection.Project(orb.Point{5, 43.5})
	r := f.ctl.ClickAt(pt)
	require.NotNil(t, r)
	require.Equal(t, "13", r.Code)
	require.Same(t, &f.data.Departements[1], f.sel.Get())
}

func TestExternalSelectionDrivesZoom(t *testing.T) {
	f := newFixture(t)
	f.sel.Set(&f.data.Departements[1], OriginSearch)
	require.Equal(t, StateZoomed, f.ctl.State())
	f.settle()
	target := f.ctl.Transform()
	require.Equal(t, carto.ZoomToBounds(f.layer.Region("13").Bounds, f.layer.Viewport), target)

	// 第二次设置同一记录：不通知，变换不变
	require.False(t, f.sel.Set(&f.data.Departements[1], OriginSearch))
	_, changed := f.ctl.Tick()
	require.False(t, changed)
	require.Equal(t, target, f.ctl.Transform())

	// 统计中有但几何中没有的编码：视图不变
	f.sel.Set(&population.Departement{ID: "971"}, OriginSearch)
	require.Equal(t, "13", f.ctl.Focus().Code)

	f.sel.Set(nil, OriginSearch)
	require.Equal(t, StateIdle, f.ctl.State())
	f.settle()
	require.Equal(t, carto.Identity, f.ctl.Transform())
}

func TestGestureCancelsAnimationAndClamps(t *testing.T) {
	f := newFixture(t)
	f.ctl.Click("75")
	f.ctl.Wheel(orb.Point{400, 450}, -100000, 0)
	require.Equal(t, carto.MaxScale, f.ctl.Transform().K)
	before := f.ctl.Transform()
	f.settle()
	require.Equal(t, before, f.ctl.Transform(), "zoom animation cancelled")
	require.NotNil(t, f.sel.Get(), "gestures never change selection")

	f.ctl.Pan(10, -5)
	require.Equal(t, before.X+10, f.ctl.Transform().X)
	f.ctl.Gesture(carto.Transform{K: 0.2})
	require.Equal(t, carto.MinScale, f.ctl.Transform().K)
}

func TestHoverTooltip(t *testing.T) {
	f := newFixture(t)
	f.ctl.SetSurface(Surface{Left: 10, Top: 20, Width: 800, Height: 900}, Scroll{Y: 100})

	tip := f.ctl.Hover("75")
	require.NotNil(t, tip)
	require.False(t, tip.NoData)
	require.Equal(t, "Paris", tip.Name)
	require.Len(t, tip.Lines, 3)
	require.Equal(t, "Population totale", tip.Lines[0].Label)
	require.Equal(t, population.Format(population.Int(2133111)), tip.Lines[0].Value)

	c := f.layer.Region("75").Centroid
	require.InDelta(t, 10+c[0], tip.Anchor[0], 1e-9)
	require.InDelta(t, 20+c[1]+100, tip.Anchor[1], 1e-9)
	require.InDelta(t, tip.Anchor[0]+30, tip.Panel[0], 1e-9)

	// 直接切换到下一个区域，无中间空状态
	next := f.ctl.Hover("13")
	require.Equal(t, "13", next.Code)
	require.Same(t, next, f.ctl.Tooltip())

	require.False(t, f.ctl.Leave("75"), "leaving a region that is no longer hovered")
	require.NotNil(t, f.ctl.Tooltip())
	require.True(t, f.ctl.Leave("13"))
	require.Nil(t, f.ctl.Tooltip())
	require.Nil(t, f.sel.Get(), "hover never selects")
}

func TestHoverWithoutStatisticsShowsNoData(t *testing.T) {
	f := newFixture(t)
	tip := f.ctl.Hover("2A")
	require.NotNil(t, tip)
	require.True(t, tip.NoData)
	require.Equal(t, "Corse-du-Sud", tip.Name)
	require.Equal(t, []Line{{Label: NoDataText}}, tip.Lines)
}

func TestHoverMissingFigureShowsPlaceholder(t *testing.T) {
	f := newFixture(t)
	tip := f.ctl.Hover("13")
	require.Equal(t, population.Placeholder, tip.Lines[1].Value)
}

func TestPositionScalesWithSurfaceAndTransform(t *testing.T) {
	r := &carto.Region{Centroid: orb.Point{100, 50}}
	vp := carto.Viewport{Width: 800, Height: 400}
	p := Position(r, carto.Transform{X: 10, Y: 0, K: 2}, vp, Surface{Left: 5, Top: 5, Width: 400, Height: 200}, Scroll{X: 1, Y: 2})
	require.InDelta(t, 5+(210)*0.5+1, p[0], 1e-9)
	require.InDelta(t, 5+(100)*0.5+2, p[1], 1e-9)
	require.Equal(t, orb.Point{}, Position(nil, carto.Identity, vp, Surface{}, Scroll{}))
}

func TestSetLayerRetargetsZoom(t *testing.T) {
	f := newFixture(t)
	f.ctl.Click("13")
	f.settle()

	features := []carto.Feature{{RawCode: "13", Name: "Bouches-du-Rhône", Geometry: square(4.2, 43.2, 5.8, 43.9)}}
	wide := carto.BuildLayer(features, nil, carto.Viewport{Width: 1200, Height: 900})
	f.ctl.SetLayer(wide)
	require.Equal(t, StateZoomed, f.ctl.State())
	require.Equal(t, carto.ZoomToBounds(wide.Region("13").Bounds, wide.Viewport), f.ctl.Transform())

	f.ctl.SetLayer(carto.BuildLayer(features[:0], nil, carto.Viewport{Width: 1200, Height: 900}))
	require.Equal(t, StateIdle, f.ctl.State())
	require.Equal(t, carto.Identity, f.ctl.Transform())
}

func TestControllerWithoutLayer(t *testing.T) {
	sel := NewSelection()
	ctl := NewController(sel, anim.NewScheduler(&manualClock{}))
	defer ctl.Close()
	require.False(t, ctl.Click("75"))
	require.Nil(t, ctl.Hover("75"))
	sel.Set(&population.Departement{ID: "75"}, OriginSearch)
	require.Equal(t, StateIdle, ctl.State())
}

func TestReconcile(t *testing.T) {
	prev := map[string]string{"1": "a", "2": "b", "3": "c"}
	next := map[string]string{"2": "b", "3": "C", "4": "d", "0": "z"}
	d := Reconcile(prev, next, func(a, b string) bool { return a == b })
	require.Equal(t, []string{"z", "d"}, d.Insert)
	require.Equal(t, []string{"C"}, d.Update)
	require.Equal(t, []string{"1"}, d.Remove)
	require.False(t, d.Empty())

	require.True(t, Reconcile(next, next, nil).Empty())
	require.Equal(t, []string{"a", "b", "c"}, Reconcile(nil, prev, nil).Insert)
}
