package carto

import (
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// pathDigits：路径坐标保留的小数位
const pathDigits = 3

// Path：经纬度几何 → SVG 路径描述
func (p *Projection) Path(g orb.Geometry) string { return PathString(p.Geometry(g)) }

// Bounds：经纬度几何投影后的屏幕包围盒
func (p *Projection) Bounds(g orb.Geometry) orb.Bound {
	pg := p.Geometry(g)
	if pg == nil {
		return orb.Bound{}
	}
	return pg.Bound()
}

// Centroid：投影后平面面积加权质心（像素）
func (p *Projection) Centroid(g orb.Geometry) orb.Point {
	return centroidOf(p.Geometry(g))
}

// 文档注释：已投影几何 → SVG 路径（M/L/Z）
// 约束：面的环按 GeoJSON 约定首尾重复，输出时去掉闭合点并以 Z 结束；空几何返回空串。
func PathString(g orb.Geometry) string {
	var b strings.Builder
	writeGeometry(&b, g)
	return b.String()
}

func writeGeometry(b *strings.Builder, g orb.Geometry) {
	switch x := g.(type) {
	case nil:
	case orb.Point:
		writeMove(b, x)
		b.WriteString("Z")
	case orb.MultiPoint:
		for _, pt := range x {
			writeGeometry(b, pt)
		}
	case orb.LineString:
		writeLine(b, x, false)
	case orb.MultiLineString:
		for _, ls := range x {
			writeLine(b, ls, false)
		}
	case orb.Ring:
		writeLine(b, orb.LineString(x), true)
	case orb.Polygon:
		for _, r := range x {
			writeLine(b, orb.LineString(r), true)
		}
	case orb.MultiPolygon:
		for _, poly := range x {
			writeGeometry(b, poly)
		}
	case orb.Collection:
		for _, c := range x {
			writeGeometry(b, c)
		}
	case orb.Bound:
		writeGeometry(b, x.ToPolygon())
	}
}

func writeLine(b *strings.Builder, pts orb.LineString, closed bool) {
	n := len(pts)
	if closed && n > 1 && pts[0].Equal(pts[n-1]) {
		n--
	}
	if n == 0 {
		return
	}
	writeMove(b, pts[0])
	for _, pt := range pts[1:n] {
		b.WriteByte('L')
		writePoint(b, pt)
	}
	if closed {
		b.WriteByte('Z')
	}
}

func writeMove(b *strings.Builder, pt orb.Point) {
	b.WriteByte('M')
	writePoint(b, pt)
}

func writePoint(b *strings.Builder, pt orb.Point) {
	b.WriteString(formatCoord(pt[0]))
	b.WriteByte(',')
	b.WriteString(formatCoord(pt[1]))
}

func formatCoord(v float64) string {
	scale := math.Pow(10, pathDigits)
	r := math.Round(v*scale) / scale
	if r == 0 {
		r = 0 // -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
