package view

import (
	"github.com/paulmach/orb"

	"popmap/internal/carto"
	"popmap/internal/population"
)

// NoDataText：几何要素在统计中找不到对应记录时的提示
const NoDataText = "Aucune donnée de population"

// PanelOffset：提示面板相对锚点的偏移（像素）
var PanelOffset = orb.Point{30, -40}

// Surface：渲染画布在视口中的矩形（getBoundingClientRect 语义）
type Surface struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Scroll：页面滚动偏移
type Scroll struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Line：提示中的一行
type Line struct {
	Label string `json:"label"`
	Value string `json:"value,omitempty"`
}

// 文档注释：悬停提示
// 约束：Departement 为 nil 时 NoData 为 true，Name 取几何属性中的名称；提示只用于展示，不拦截指针事件。
type Tooltip struct {
	Code        string                  `json:"code"`
	Name        string                  `json:"name"`
	Departement *population.Departement `json:"departement"`
	NoData      bool                    `json:"no_data"`
	Anchor      orb.Point               `json:"anchor"`
	Panel       orb.Point               `json:"panel"`
	Lines       []Line                  `json:"lines"`
}

// 文档注释：提示锚点（页面坐标）
// 背景：质心在缩放前的画布坐标系中计算，先施加当前缩放变换，再按画布实际显示尺寸与视口尺寸之比换算，最后加画布位置与滚动偏移。
// 约束：画布尺寸未知（0）时比例按 1。
func Position(r *carto.Region, t carto.Transform, vp carto.Viewport, s Surface, sc Scroll) orb.Point {
	if r == nil {
		return orb.Point{}
	}
	c := t.Apply(r.Centroid)
	rx, ry := 1.0, 1.0
	if vp.Width > 0 && s.Width > 0 {
		rx = s.Width / vp.Width
	}
	if vp.Height > 0 && s.Height > 0 {
		ry = s.Height / vp.Height
	}
	return orb.Point{s.Left + c[0]*rx + sc.X, s.Top + c[1]*ry + sc.Y}
}

// NewTooltip：由命中区域与统计记录构造提示
func NewTooltip(r *carto.Region, dep *population.Departement, anchor orb.Point) *Tooltip {
	if r == nil {
		return nil
	}
	tip := &Tooltip{
		Code:        r.Code,
		Name:        r.Name,
		Departement: dep,
		Anchor:      anchor,
		Panel:       orb.Point{anchor[0] + PanelOffset[0], anchor[1] + PanelOffset[1]},
	}
	if dep == nil {
		tip.NoData = true
		tip.Lines = []Line{{Label: NoDataText}}
		return tip
	}
	if dep.Nom != "" {
		tip.Name = dep.Nom
	}
	tip.Lines = []Line{
		{Label: "Population totale", Value: population.Format(dep.Ensemble.Total)},
		{Label: "Hommes", Value: population.Format(dep.Hommes.Total)},
		{Label: "Femmes", Value: population.Format(dep.Femmes.Total)},
	}
	return tip
}
