package view

import (
	"math"
	"time"

	"github.com/paulmach/orb"

	"popmap/internal/anim"
	"popmap/internal/carto"
	"popmap/internal/population"
)

const (
	// 动画槽位
	TransformTarget   = "map"
	TransformProperty = "transform"
	FillProperty      = "fill"

	ZoomDuration = 750 * time.Millisecond
	FillDuration = 500 * time.Millisecond
	FadeDuration = 250 * time.Millisecond

	wheelPixelFactor = 0.002
	wheelLineFactor  = 0.05
)

// 区域绘制颜色：填充强度 0 为 FillBase，1 为 FillHighlight
const (
	FillBase      = "transparent"
	FillHighlight = "#00ff00"
	StrokeBase    = "#e5e5e530"
	StrokeHover   = "#f59e42"
)

// Palette：随渲染层下发，客户端按填充强度在 fill 与 fill_highlight 之间插值，悬停区域描边为 stroke_hover
var Palette = map[string]string{
	"fill":           FillBase,
	"fill_highlight": FillHighlight,
	"stroke":         StrokeBase,
	"stroke_hover":   StrokeHover,
}

type State int

const (
	StateIdle State = iota
	StateZoomed
)

func (s State) String() string {
	if s == StateZoomed {
		return "zoomed"
	}
	return "idle"
}

// Frame：推送给客户端的视图帧
type Frame struct {
	Transform   carto.Transform    `json:"transform"`
	StrokeWidth float64            `json:"stroke_width"`
	Fills       map[string]float64 `json:"fills"`
	Hover       string             `json:"hover,omitempty"`
	State       string             `json:"state"`
	Focus       string             `json:"focus,omitempty"`
	Animating   bool               `json:"animating"`
}

// 文档注释：交互与缩放控制器
// 背景：点击区域缩放到其包围盒并设置选中；点击背景或重置回到全图并清空选中；外部（搜索框）改变选中时反向驱动缩放。悬停与缩放状态并行跟踪，悬停从不改变选中。
// 约束：缩放变换只由本控制器修改；自身写入选中时不响应回调；非并发安全，只能由会话 goroutine 调用。
type Controller struct {
	sel   *Selection
	sched *anim.Scheduler
	layer *carto.Layer
	data  *population.Dataset

	transform carto.Transform
	state     State
	focus     *carto.Region
	fills     map[string]float64
	hover     *Tooltip

	surface Surface
	scroll  Scroll

	writing bool
	dirty   bool
	unsub   func()
}

func NewController(sel *Selection, sched *anim.Scheduler) *Controller {
	c := &Controller{sel: sel, sched: sched, transform: carto.Identity, fills: make(map[string]float64)}
	c.unsub = sel.Subscribe(c.onSelection)
	return c
}

// Close：取消选中订阅
func (c *Controller) Close() {
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
}

func (c *Controller) State() State { return c.state }

func (c *Controller) Transform() carto.Transform { return c.transform }

func (c *Controller) StrokeWidth() float64 { return c.transform.StrokeWidth() }

func (c *Controller) Layer() *carto.Layer { return c.layer }

func (c *Controller) Tooltip() *Tooltip { return c.hover }

// Focus：当前缩放目标区域；空闲时为 nil
func (c *Controller) Focus() *carto.Region { return c.focus }

// Fill：区域当前填充强度
func (c *Controller) Fill(code string) float64 { return c.fills[code] }

// SetData：统计快照变化；已有选中不再由本控制器重新解析
func (c *Controller) SetData(ds *population.Dataset) { c.data = ds }

// SetSurface：客户端上报画布矩形与滚动偏移
func (c *Controller) SetSurface(s Surface, sc Scroll) {
	c.surface, c.scroll = s, sc
}

// 文档注释：切换渲染层（视口尺寸变化或几何首次就绪）
// 约束：缩放状态按编码在新层中重新定位并直接跳到目标，不做动画；找不到时回到全图；悬停清空。
func (c *Controller) SetLayer(l *carto.Layer) {
	c.layer = l
	c.hover = nil
	c.sched.Cancel(TransformTarget, TransformProperty)
	c.dirty = true
	if c.focus == nil || l == nil {
		c.focus, c.state, c.transform = nil, StateIdle, carto.Identity
		return
	}
	r := l.Region(c.focus.Code)
	if r == nil {
		c.focus, c.state, c.transform = nil, StateIdle, carto.Identity
		return
	}
	c.focus = r
	c.transform = carto.ZoomToBounds(r.Bounds, l.Viewport)
}

func (c *Controller) lookup(code string) *population.Departement {
	if c.data == nil || c.data.Index == nil {
		return nil
	}
	return c.data.Index.Lookup(code)
}

func (c *Controller) setSelection(dep *population.Departement, origin Origin) {
	c.writing = true
	defer func() { c.writing = false }()
	c.sel.Set(dep, origin)
}

// Click：按归一编码点击区域；编码不在当前层中时返回 false 且不做任何改变
func (c *Controller) Click(code string) bool {
	r := c.layer.Region(population.NormalizeCode(code))
	if r == nil {
		return false
	}
	c.clickRegion(r)
	return true
}

// ClickRegion：直接按区域点击（用于没有编码、只能按渲染键寻址的区域）
func (c *Controller) ClickRegion(r *carto.Region) {
	if r == nil {
		return
	}
	c.clickRegion(r)
}

// ClickAt：按画布坐标点击；未命中任何区域视为点击背景
func (c *Controller) ClickAt(pt orb.Point) *carto.Region {
	r := c.layer.HitTest(pt, c.transform)
	if r == nil {
		c.Background()
		return nil
	}
	c.clickRegion(r)
	return r
}

// clickRegion：缩放到区域；选中为匹配到的记录，统计中没有该编码时为 nil
func (c *Controller) clickRegion(r *carto.Region) {
	c.zoomTo(r)
	c.highlight(r.Code)
	c.setSelection(c.lookup(r.Code), OriginMap)
}

// Background：点击背景，回到全图并清空选中
func (c *Controller) Background() { c.toIdle(OriginMap) }

// Reset：重置按钮
func (c *Controller) Reset() { c.toIdle(OriginReset) }

func (c *Controller) toIdle(origin Origin) {
	c.zoomOut()
	c.setSelection(nil, origin)
}

func (c *Controller) zoomOut() {
	c.state, c.focus = StateIdle, nil
	c.animateTransform(carto.Identity)
	c.highlight("")
}

func (c *Controller) zoomTo(r *carto.Region) {
	c.state, c.focus = StateZoomed, r
	c.animateTransform(carto.ZoomToBounds(r.Bounds, c.layer.Viewport))
}

// onSelection：外部写入选中时驱动视图；找不到对应区域时保持当前视图
func (c *Controller) onSelection(ch Change) {
	if c.writing || c.layer == nil {
		return
	}
	if ch.Next == nil {
		c.zoomOut()
		return
	}
	r := c.layer.Region(population.NormalizeCode(ch.Next.ID))
	if r == nil {
		return
	}
	c.zoomTo(r)
	c.highlight(r.Code)
}

func (c *Controller) animateTransform(target carto.Transform) {
	vp := carto.Viewport{}
	if c.layer != nil {
		vp = c.layer.Viewport
	}
	c.sched.Start(anim.Request{
		Target:      TransformTarget,
		Property:    TransformProperty,
		From:        c.transform.Vector(),
		To:          target.Vector(),
		Duration:    ZoomDuration,
		Easing:      anim.CubicInOut,
		Interpolate: anim.ZoomInterpolator(vp.Width, vp.Height),
	})
	c.dirty = true
}

// highlight：code 渐显为高亮色，其余已着色区域淡出；code 为空时全部淡出
func (c *Controller) highlight(code string) {
	for k, v := range c.fills {
		if k == code || v == 0 {
			continue
		}
		c.sched.Start(anim.Request{Target: k, Property: FillProperty, From: []float64{v}, To: []float64{0}, Duration: FadeDuration, Easing: anim.CubicInOut})
	}
	if population.IsNoMatch(code) {
		return
	}
	if _, ok := c.fills[code]; !ok {
		c.fills[code] = 0
	}
	c.sched.Start(anim.Request{Target: code, Property: FillProperty, From: []float64{c.fills[code]}, To: []float64{1}, Duration: FillDuration, Easing: anim.CubicOut})
	c.dirty = true
}

// gesture：手势直接修改变换并取消进行中的缩放动画，不改变选中
func (c *Controller) gesture(t carto.Transform) {
	c.sched.Cancel(TransformTarget, TransformProperty)
	c.transform = t.Clamped()
	c.dirty = true
}

// Wheel：滚轮缩放，以指针位置为不动点；deltaMode 0 像素、1 行、2 页
func (c *Controller) Wheel(pt orb.Point, deltaY float64, deltaMode int) {
	f := wheelPixelFactor
	switch deltaMode {
	case 1:
		f = wheelLineFactor
	case 2:
		f = 1
	}
	c.gesture(c.transform.ScaleAt(pt, math.Pow(2, -deltaY*f)))
}

// Pan：拖拽平移
func (c *Controller) Pan(dx, dy float64) { c.gesture(c.transform.Translate(dx, dy)) }

// Gesture：客户端直接给出的变换（捏合），K 夹到合法区间
func (c *Controller) Gesture(t carto.Transform) { c.gesture(t) }

// Hover：按编码悬停；编码不在当前层中时清空提示
func (c *Controller) Hover(code string) *Tooltip {
	return c.hoverRegion(c.layer.Region(population.NormalizeCode(code)))
}

// HoverRegion：直接按区域悬停；r 为 nil 时清空提示
func (c *Controller) HoverRegion(r *carto.Region) *Tooltip { return c.hoverRegion(r) }

// HoverAt：按画布坐标悬停
func (c *Controller) HoverAt(pt orb.Point) *Tooltip {
	return c.hoverRegion(c.layer.HitTest(pt, c.transform))
}

func (c *Controller) hoverRegion(r *carto.Region) *Tooltip {
	if r == nil {
		c.hover = nil
		c.dirty = true
		return nil
	}
	if c.hover != nil && c.hover.Code == r.Code && !population.IsNoMatch(r.Code) {
		return c.hover
	}
	anchor := Position(r, c.transform, c.layer.Viewport, c.surface, c.scroll)
	c.hover = NewTooltip(r, c.lookup(r.Code), anchor)
	c.dirty = true
	return c.hover
}

// Leave：仅当离开的正是当前悬停区域时清空；返回是否清空
func (c *Controller) Leave(code string) bool {
	if c.hover == nil || c.hover.Code != population.NormalizeCode(code) {
		return false
	}
	c.hover = nil
	c.dirty = true
	return true
}

// 文档注释：推进一帧
// 约束：返回 false 表示自上次以来没有任何变化，调用方可跳过推送。
func (c *Controller) Tick() (Frame, bool) {
	for _, f := range c.sched.Tick() {
		if f.Target == TransformTarget && f.Property == TransformProperty {
			c.transform = carto.TransformFromVector(f.Value)
		} else if f.Property == FillProperty && len(f.Value) > 0 {
			if f.Done && f.Value[0] == 0 {
				delete(c.fills, f.Target)
			} else {
				c.fills[f.Target] = f.Value[0]
			}
		}
		c.dirty = true
	}
	if !c.dirty {
		return Frame{}, false
	}
	c.dirty = false
	return c.Frame(), true
}

// Frame：当前视图快照
func (c *Controller) Frame() Frame {
	fills := make(map[string]float64, len(c.fills))
	for k, v := range c.fills {
		fills[k] = v
	}
	fr := Frame{
		Transform:   c.transform,
		StrokeWidth: c.transform.StrokeWidth(),
		Fills:       fills,
		State:       c.state.String(),
		Animating:   !c.sched.Idle(),
	}
	if c.hover != nil {
		fr.Hover = c.hover.Code
	}
	if c.focus != nil {
		fr.Focus = c.focus.Code
	}
	return fr
}
