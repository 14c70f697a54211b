package carto

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	MinScale = 1.0
	MaxScale = 8.0
	// fitRatio：缩放到要素时包围盒占视口的比例
	fitRatio = 0.9
)

// 文档注释：缩放平移仿射变换（屏幕 = K·p + (X, Y)）
// 约束：手势与缩放到要素得到的 K 位于 [MinScale, MaxScale]，平滑过渡的中间帧可短暂越界；由交互控制器独占修改。
type Transform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

var Identity = Transform{K: 1}

func ClampScale(k float64) float64 {
	if math.IsNaN(k) || k < MinScale {
		return MinScale
	}
	if k > MaxScale {
		return MaxScale
	}
	return k
}

func (t Transform) Apply(p orb.Point) orb.Point {
	return orb.Point{p[0]*t.K + t.X, p[1]*t.K + t.Y}
}

func (t Transform) Invert(p orb.Point) orb.Point {
	k := t.K
	if k == 0 {
		k = 1
	}
	return orb.Point{(p[0] - t.X) / k, (p[1] - t.Y) / k}
}

// StrokeWidth：屏幕上保持 1 像素线宽所需的描边宽度
func (t Transform) StrokeWidth() float64 {
	if t.K == 0 {
		return 1
	}
	return 1 / t.K
}

// Clamped：K 夹到合法区间，平移不受限
func (t Transform) Clamped() Transform {
	t.K = ClampScale(t.K)
	return t
}

func (t Transform) Vector() []float64 { return []float64{t.X, t.Y, t.K} }

func TransformFromVector(v []float64) Transform {
	if len(v) < 3 {
		return Identity
	}
	return Transform{X: v[0], Y: v[1], K: v[2]}
}

// FitScale：min(8, 0.9 / max(fx, fy)) 并夹到 [1, 8]
func FitScale(fx, fy float64) float64 {
	m := math.Max(fx, fy)
	if m <= 0 || math.IsNaN(m) {
		return MaxScale
	}
	return ClampScale(math.Min(MaxScale, fitRatio/m))
}

// 文档注释：缩放到包围盒
// 约束：等价于 identity.translate(w/2, h/2).scale(k).translate(-cx, -cy)。
func ZoomToBounds(b orb.Bound, vp Viewport) Transform {
	w, h := vp.Width, vp.Height
	if w <= 0 || h <= 0 {
		return Identity
	}
	k := FitScale((b.Max[0]-b.Min[0])/w, (b.Max[1]-b.Min[1])/h)
	cx := (b.Min[0] + b.Max[0]) / 2
	cy := (b.Min[1] + b.Max[1]) / 2
	return Transform{X: w/2 - k*cx, Y: h/2 - k*cy, K: k}
}

// ScaleAt：以屏幕点 p 为不动点缩放 factor 倍（滚轮/捏合）
func (t Transform) ScaleAt(p orb.Point, factor float64) Transform {
	k := ClampScale(t.K * factor)
	local := t.Invert(p)
	return Transform{X: p[0] - local[0]*k, Y: p[1] - local[1]*k, K: k}
}

func (t Transform) Translate(dx, dy float64) Transform {
	t.X += dx
	t.Y += dy
	return t
}
