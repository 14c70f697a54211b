// 包 charts：图表数据模型（柱状、饼图、人口金字塔），均为记录的纯函数
package charts

import (
	"math"
	"sort"

	"popmap/internal/population"
)

const (
	ColorEnsemble = "#3b82f6"
	ColorHommes   = "#10b981"
	ColorFemmes   = "#f472b6"
)

// Series：一个性别分组的展示属性
type Series struct {
	Key   population.Group `json:"key"`
	Label string           `json:"label"`
	Color string           `json:"color"`
}

var BarSeries = []Series{
	{Key: population.GroupEnsemble, Label: "Ensemble", Color: ColorEnsemble},
	{Key: population.GroupHommes, Label: "Hommes", Color: ColorHommes},
	{Key: population.GroupFemmes, Label: "Femmes", Color: ColorFemmes},
}

// BarGroup：一个年龄段下三组数值；缺失按 0
type BarGroup struct {
	Label    string `json:"label"`
	Ensemble int64  `json:"ensemble"`
	Hommes   int64  `json:"hommes"`
	Femmes   int64  `json:"femmes"`
}

type BarChart struct {
	Series []Series   `json:"series"`
	Groups []BarGroup `json:"groups"`
	Max    int64      `json:"max"`
}

// Bar：按年龄段分组的柱状图；dep 为 nil 时不绘制
func Bar(dep *population.Departement) *BarChart {
	if dep == nil {
		return nil
	}
	c := &BarChart{Series: BarSeries}
	for _, ab := range population.AgeBands {
		g := BarGroup{
			Label:    ab.Label,
			Ensemble: dep.Ensemble.Value(ab.Key),
			Hommes:   dep.Hommes.Value(ab.Key),
			Femmes:   dep.Femmes.Value(ab.Key),
		}
		c.Max = max(c.Max, g.Ensemble, g.Hommes, g.Femmes)
		c.Groups = append(c.Groups, g)
	}
	return c
}

// Slice：饼图扇区，角度为弧度，从 12 点方向顺时针
type Slice struct {
	Label      string  `json:"label"`
	Value      int64   `json:"value"`
	Color      string  `json:"color"`
	StartAngle float64 `json:"start_angle"`
	EndAngle   float64 `json:"end_angle"`
}

// 文档注释：男女总数饼图
// 约束：保持输入顺序（男、女），不按数值排序；两者之和为 0 时所有角度为 0。
func Pie(dep *population.Departement) []Slice {
	if dep == nil {
		return nil
	}
	out := []Slice{
		{Label: "Hommes", Value: dep.Hommes.Value(population.BandTotal), Color: ColorHommes},
		{Label: "Femmes", Value: dep.Femmes.Value(population.BandTotal), Color: ColorFemmes},
	}
	var sum int64
	for _, s := range out {
		sum += s.Value
	}
	k := 0.0
	if sum > 0 {
		k = 2 * math.Pi / float64(sum)
	}
	a := 0.0
	for i := range out {
		out[i].StartAngle = a
		a += float64(out[i].Value) * k
		out[i].EndAngle = a
	}
	return out
}

// PyramidRow：一个年龄段；Hommes 为负值绘制在左侧
type PyramidRow struct {
	Label  string `json:"label"`
	Hommes int64  `json:"hommes"`
	Femmes int64  `json:"femmes"`
}

type PyramidChart struct {
	Rows []PyramidRow `json:"rows"`
	// Max：横轴对称范围 [-Max, Max]
	Max int64 `json:"max"`
}

// Pyramid：人口金字塔，行按男女合计降序（稳定排序，合计相同保持年龄顺序）
func Pyramid(dep *population.Departement) *PyramidChart {
	if dep == nil {
		return nil
	}
	c := &PyramidChart{}
	for _, ab := range population.AgeBands {
		r := PyramidRow{Label: ab.Label, Hommes: -dep.Hommes.Value(ab.Key), Femmes: dep.Femmes.Value(ab.Key)}
		c.Max = max(c.Max, -r.Hommes, r.Femmes)
		c.Rows = append(c.Rows, r)
	}
	sort.SliceStable(c.Rows, func(i, j int) bool {
		return c.Rows[i].Femmes-c.Rows[i].Hommes > c.Rows[j].Femmes-c.Rows[j].Hommes
	})
	return c
}

// Bundle：一次选中对应的全部图表
type Bundle struct {
	Bar     *BarChart     `json:"bar"`
	Pie     []Slice       `json:"pie"`
	Pyramid *PyramidChart `json:"pyramid"`
}

func All(dep *population.Departement) Bundle {
	return Bundle{Bar: Bar(dep), Pie: Pie(dep), Pyramid: Pyramid(dep)}
}
