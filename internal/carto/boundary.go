package carto

import (
	"strconv"

	"github.com/paulmach/orb"
)

// BoundaryStyle：边界叠加层的绘制属性（实线浅色、不接收指针事件）
var BoundaryStyle = map[string]string{
	"fill":            "none",
	"stroke":          "#ffffffcc",
	"stroke-width":    "1",
	"stroke-linejoin": "round",
	"pointer-events":  "none",
}

type segOwner struct {
	first  int
	shared bool
}

// 文档注释：内部边界合成（共享边检测）
// 背景：相邻两省共用的边只绘制一次，且与各省描边分离，缩放后线宽统一。
// 约束：以环上相邻两点构成的线段为单位，端点排序后序列化为规范键；同一线段出现在两个不同要素中即视为内部边界；海岸线与国界不输出。
// 连续的共享线段按环的方向串成折线，每条线段只输出一次。
func Boundaries(features []Feature) orb.MultiLineString {
	owners := make(map[string]*segOwner)
	for i, f := range features {
		eachSegment(f.Geometry, func(a, b orb.Point) {
			k := segmentKey(a, b)
			o, ok := owners[k]
			if !ok {
				owners[k] = &segOwner{first: i}
				return
			}
			if o.first != i {
				o.shared = true
			}
		})
	}

	emitted := make(map[string]bool)
	var out orb.MultiLineString
	for _, f := range features {
		for _, poly := range f.Geometry {
			for _, ring := range poly {
				out = append(out, ringBorders(ring, owners, emitted)...)
			}
		}
	}
	return out
}

// ringBorders：单个环上的共享折线；首尾相接的两段在环闭合处合并
func ringBorders(ring orb.Ring, owners map[string]*segOwner, emitted map[string]bool) []orb.LineString {
	var lines []orb.LineString
	var cur orb.LineString
	firstStartsAtZero := false
	flush := func() {
		if len(cur) >= 2 {
			lines = append(lines, cur)
		}
		cur = nil
	}
	for i := 0; i+1 < len(ring); i++ {
		a, b := ring[i], ring[i+1]
		if a.Equal(b) {
			continue
		}
		k := segmentKey(a, b)
		o := owners[k]
		if o == nil || !o.shared || emitted[k] {
			flush()
			continue
		}
		emitted[k] = true
		if len(cur) > 0 && cur[len(cur)-1].Equal(a) {
			cur = append(cur, b)
			continue
		}
		flush()
		if i == 0 {
			firstStartsAtZero = true
		}
		cur = orb.LineString{a, b}
	}
	flush()
	if firstStartsAtZero && len(lines) >= 2 {
		last := lines[len(lines)-1]
		first := lines[0]
		if last[len(last)-1].Equal(first[0]) {
			merged := append(append(orb.LineString{}, last...), first[1:]...)
			lines = append([]orb.LineString{merged}, lines[1:len(lines)-1]...)
		}
	}
	return lines
}

func eachSegment(mp orb.MultiPolygon, fn func(a, b orb.Point)) {
	for _, poly := range mp {
		for _, ring := range poly {
			for i := 0; i+1 < len(ring); i++ {
				if ring[i].Equal(ring[i+1]) {
					continue
				}
				fn(ring[i], ring[i+1])
			}
		}
	}
}

// segmentKey：与方向无关的线段键
func segmentKey(a, b orb.Point) string {
	if b[0] < a[0] || (b[0] == a[0] && b[1] < a[1]) {
		a, b = b, a
	}
	buf := make([]byte, 0, 64)
	buf = strconv.AppendFloat(buf, a[0], 'g', -1, 64)
	buf = append(buf, ',')
	buf = strconv.AppendFloat(buf, a[1], 'g', -1, 64)
	buf = append(buf, '|')
	buf = strconv.AppendFloat(buf, b[0], 'g', -1, 64)
	buf = append(buf, ',')
	buf = strconv.AppendFloat(buf, b[1], 'g', -1, 64)
	return string(buf)
}
