package carto

import (
	"time"

	"github.com/paulmach/orb"

	"popmap/internal/population"
)

// 文档注释：单个行政区在某视口下的渲染数据
// 约束：Code 为归一编码；Screen 为缩放前屏幕坐标系下的几何，用于命中判定。
type Region struct {
	Code     string
	RawCode  string
	Name     string
	Path     string
	Bounds   orb.Bound
	Centroid orb.Point
	Screen   orb.MultiPolygon
}

// 文档注释：某视口下的完整渲染集合（各省面 + 边界叠加层）
// 背景：视口尺寸不变时可被多个会话共享，只读。
type Layer struct {
	Viewport   Viewport
	Projection *Projection
	Regions    []*Region
	Boundary   string
	BuiltAt    time.Time
	byCode     map[string]*Region
}

// BuildLayer：对全部要素投影；boundary 为已合成的经纬度边界线
func BuildLayer(features []Feature, boundary orb.MultiLineString, vp Viewport) *Layer {
	proj := NewProjection(vp)
	l := &Layer{Viewport: vp, Projection: proj, BuiltAt: time.Now(), byCode: make(map[string]*Region, len(features))}
	for _, f := range features {
		if len(f.Geometry) == 0 {
			continue
		}
		screen, _ := proj.Geometry(f.Geometry).(orb.MultiPolygon)
		r := &Region{
			Code:    population.NormalizeCode(f.RawCode),
			RawCode: f.CodeString(),
			Name:    f.Name,
			Path:    PathString(screen),
			Bounds:  screen.Bound(),
			Screen:  screen,
		}
		r.Centroid = centroidOf(screen)
		l.Regions = append(l.Regions, r)
		if population.IsNoMatch(r.Code) {
			continue
		}
		if _, dup := l.byCode[r.Code]; !dup {
			l.byCode[r.Code] = r
		}
	}
	if len(boundary) > 0 {
		l.Boundary = proj.Path(boundary)
	}
	return l
}

// Region：按归一编码查找；未命中返回 nil
func (l *Layer) Region(code string) *Region {
	if l == nil || population.IsNoMatch(code) {
		return nil
	}
	return l.byCode[code]
}
