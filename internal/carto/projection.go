// 包 carto：几何加载、圆锥等角投影、路径生成、边界合成与命中判定
package carto

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// 法国本土质心（经度, 纬度），投影中心
var FranceCenter = orb.Point{2.454071, 46.279229}

const (
	// ScaleFactor：投影比例 = ScaleFactor × 视口宽度
	ScaleFactor = 5.0
	// 标准纬线（双纬线相同，等价于单切纬线）
	standardParallel = 30.0
	epsilon          = 1e-6
)

// Viewport：渲染画布尺寸（像素）
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (v Viewport) Valid() bool { return v.Width > 0 && v.Height > 0 }

// 文档注释：兰伯特圆锥等角投影 + 缩放平移
// 背景：行为与浏览器端 d3.geoConicConformal 一致（parallels 30/30、center、scale、translate），前后端投影结果可互相校验。
// 约束：视口变化时重新构建；缩放通过外层仿射变换实现，不重新投影。
type Projection struct {
	vp     Viewport
	k      float64
	tx, ty float64
	n, f   float64
	cx, cy float64
}

func NewProjection(vp Viewport) *Projection {
	p := &Projection{vp: vp, k: vp.Width * ScaleFactor, tx: vp.Width / 2, ty: vp.Height / 2}
	phi0 := standardParallel * math.Pi / 180
	p.n = math.Sin(phi0)
	p.f = math.Cos(phi0) * math.Pow(tany(phi0), p.n) / p.n
	p.cx, p.cy = p.raw(FranceCenter[0]*math.Pi/180, FranceCenter[1]*math.Pi/180)
	return p
}

func (p *Projection) Viewport() Viewport { return p.vp }

// Scale：投影比例（像素/弧度）
func (p *Projection) Scale() float64 { return p.k }

func tany(y float64) float64 { return math.Tan((math.Pi/2 + y) / 2) }

func (p *Projection) raw(lambda, phi float64) (float64, float64) {
	if p.f > 0 {
		if phi < -math.Pi/2+epsilon {
			phi = -math.Pi/2 + epsilon
		}
	} else if phi > math.Pi/2-epsilon {
		phi = math.Pi/2 - epsilon
	}
	r := p.f / math.Pow(tany(phi), p.n)
	return r * math.Sin(p.n*lambda), p.f - r*math.Cos(p.n*lambda)
}

// Project：经纬度（度）→ 屏幕坐标（像素，y 向下）
func (p *Projection) Project(pt orb.Point) orb.Point {
	lambda := pt[0] * math.Pi / 180
	if math.Abs(lambda) > math.Pi {
		lambda -= math.Round(lambda/(2*math.Pi)) * 2 * math.Pi
	}
	x, y := p.raw(lambda, pt[1]*math.Pi/180)
	return orb.Point{p.tx + p.k*(x-p.cx), p.ty - p.k*(y-p.cy)}
}

// Invert：屏幕坐标 → 经纬度（度）
func (p *Projection) Invert(pt orb.Point) orb.Point {
	x := (pt[0]-p.tx)/p.k + p.cx
	y := -(pt[1]-p.ty)/p.k + p.cy
	fy := p.f - y
	r := sign(p.n) * math.Sqrt(x*x+fy*fy)
	l := math.Atan2(x, math.Abs(fy)) * sign(fy)
	if fy*p.n < 0 {
		l -= math.Pi * sign(x) * sign(fy)
	}
	lambda := l / p.n
	phi := 2*math.Atan(math.Pow(p.f/r, 1/p.n)) - math.Pi/2
	return orb.Point{lambda * 180 / math.Pi, phi * 180 / math.Pi}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Geometry：投影整个几何，返回新对象，不修改输入
func (p *Projection) Geometry(g orb.Geometry) orb.Geometry {
	if g == nil {
		return nil
	}
	return project.Geometry(orb.Clone(g), p.Project)
}
