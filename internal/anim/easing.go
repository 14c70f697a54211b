// 包 anim：声明式动画调度（缓动、插值、按目标属性的最后写入优先）
package anim

import "math"

// Easing：把归一化时间 t∈[0,1] 映射为进度
type Easing func(t float64) float64

func Linear(t float64) float64 { return t }

// CubicInOut：d3 过渡默认缓动
func CubicInOut(t float64) float64 {
	t *= 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}

// CubicOut：GSAP power2.out
func CubicOut(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

// Interpolator：进度 → 属性值
type Interpolator func(t float64) []float64

// Lerp：逐分量线性插值；分量数取两者较短者
func Lerp(from, to []float64) Interpolator {
	n := len(from)
	if len(to) < n {
		n = len(to)
	}
	a := append([]float64(nil), from[:n]...)
	b := append([]float64(nil), to[:n]...)
	return func(t float64) []float64 {
		out := make([]float64, n)
		if t >= 1 {
			copy(out, b)
			return out
		}
		for i := range out {
			out[i] = a[i] + (b[i]-a[i])*t
		}
		return out
	}
}

const (
	zoomRho     = math.Sqrt2
	zoomRho2    = 2.0
	zoomRho4    = 4.0
	zoomEpsilon = 1e-12
)

// 文档注释：平滑缩放插值（van Wijk & Nuij），作用于视图 [ux, uy, w]
// 背景：缩放与平移同时变化时先拉远再推近，视觉上比线性插值平稳；参数与 d3.interpolateZoom 一致（rho = √2）。
func smoothZoom(p0, p1 [3]float64) Interpolator {
	ux0, uy0, w0 := p0[0], p0[1], p0[2]
	ux1, uy1, w1 := p1[0], p1[1], p1[2]
	dx, dy := ux1-ux0, uy1-uy0
	d2 := dx*dx + dy*dy

	if d2 < zoomEpsilon {
		s := math.Log(w1/w0) / zoomRho
		return func(t float64) []float64 {
			return []float64{ux0 + t*dx, uy0 + t*dy, w0 * math.Exp(zoomRho*t*s)}
		}
	}

	d1 := math.Sqrt(d2)
	b0 := (w1*w1 - w0*w0 + zoomRho4*d2) / (2 * w0 * zoomRho2 * d1)
	b1 := (w1*w1 - w0*w0 - zoomRho4*d2) / (2 * w1 * zoomRho2 * d1)
	r0 := math.Log(math.Sqrt(b0*b0+1) - b0)
	r1 := math.Log(math.Sqrt(b1*b1+1) - b1)
	s := (r1 - r0) / zoomRho
	return func(t float64) []float64 {
		st := t * s
		coshr0 := math.Cosh(r0)
		u := w0 / (zoomRho2 * d1) * (coshr0*math.Tanh(zoomRho*st+r0) - math.Sinh(r0))
		return []float64{ux0 + u*dx, uy0 + u*dy, w0 * coshr0 / math.Cosh(zoomRho*st+r0)}
	}
}

// 文档注释：缩放变换插值器工厂（值为 [x, y, k]）
// 约束：以视口中心为参考点，w = max(width, height)；t = 1 时精确返回终值。K 非正的一端退化为线性插值。
func ZoomInterpolator(width, height float64) func(from, to []float64) Interpolator {
	px, py := width/2, height/2
	w := math.Max(width, height)
	return func(from, to []float64) Interpolator {
		if len(from) < 3 || len(to) < 3 || from[2] <= 0 || to[2] <= 0 || w <= 0 {
			return Lerp(from, to)
		}
		end := append([]float64(nil), to[:3]...)
		view := func(v []float64) [3]float64 {
			return [3]float64{(px - v[0]) / v[2], (py - v[1]) / v[2], w / v[2]}
		}
		i := smoothZoom(view(from), view(to))
		return func(t float64) []float64 {
			if t >= 1 {
				return append([]float64(nil), end...)
			}
			l := i(t)
			k := w / l[2]
			return []float64{px - l[0]*k, py - l[1]*k, k}
		}
	}
}
