package population

const (
	FranceID  = "FR"
	FranceNom = "France entière"
)

// 文档注释：全国汇总记录
// 背景：未选中任何省时图表展示全国数据，由各省逐字段求和得到。
// 约束：缺失值按 0 参与求和，输出字段全部非 nil；结果与输入顺序无关；每次调用重新计算，不做缓存。
func Aggregate(deps []Departement) Departement {
	var sums [3][6]int64
	for i := range deps {
		for gi, g := range Groups {
			t := deps[i].Group(g)
			for bi, b := range AllBands {
				sums[gi][bi] += t.Value(b)
			}
		}
	}
	out := Departement{ID: FranceID, Nom: FranceNom}
	for gi, g := range Groups {
		vals := make([]*int64, len(AllBands))
		for bi := range AllBands {
			vals[bi] = Int(sums[gi][bi])
		}
		t := NewTranche(vals...)
		switch g {
		case GroupEnsemble:
			out.Ensemble = t
		case GroupHommes:
			out.Hommes = t
		case GroupFemmes:
			out.Femmes = t
		}
	}
	return out
}

// Displayed：页面层的替换规则，selected 为 nil 时返回全国汇总
func Displayed(selected *Departement, all []Departement) Departement {
	if selected != nil {
		return *selected
	}
	return Aggregate(all)
}
