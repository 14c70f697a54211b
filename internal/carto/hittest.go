package carto

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// 文档注释：指针命中判定（屏幕点 → 行政区）
// 背景：客户端只上报指针坐标时由服务端判定命中；先用包围盒过滤候选，再做点入多边形精确判定（支持洞与多面）。
// 约束：pt 为画布坐标（已含缩放），内部先按 t 反变换回缩放前坐标；后绘制的要素位于上层，逆序判定；未命中返回 nil 表示点击背景。
func (l *Layer) HitTest(pt orb.Point, t Transform) *Region {
	if l == nil {
		return nil
	}
	local := t.Invert(pt)
	for i := len(l.Regions) - 1; i >= 0; i-- {
		r := l.Regions[i]
		if !r.Bounds.Contains(local) {
			continue
		}
		if planar.MultiPolygonContains(r.Screen, local) {
			return r
		}
	}
	return nil
}

func centroidOf(g orb.Geometry) orb.Point {
	if g == nil {
		return orb.Point{}
	}
	c, _ := planar.CentroidArea(g)
	return c
}
