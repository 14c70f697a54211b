// 包 population：人口统计数据模型、编码归一、索引与全国汇总
package population

import (
	"context"
	"time"
)

// Band：固定年龄段键，与统计源 JSON 字段名一致
type Band string

const (
	Band0_19   Band = "0_19"
	Band20_39  Band = "20_39"
	Band40_59  Band = "40_59"
	Band60_74  Band = "60_74"
	Band75Plus Band = "75_plus"
	BandTotal  Band = "total"
)

// AgeBand：年龄段与展示标签
type AgeBand struct {
	Key   Band
	Label string
}

// AgeBands：按年龄升序的五个分段（不含 total）
var AgeBands = []AgeBand{
	{Key: Band0_19, Label: "0-19"},
	{Key: Band20_39, Label: "20-39"},
	{Key: Band40_59, Label: "40-59"},
	{Key: Band60_74, Label: "60-74"},
	{Key: Band75Plus, Label: "75+"},
}

// AllBands：Tranche 的全部六个字段
var AllBands = []Band{Band0_19, Band20_39, Band40_59, Band60_74, Band75Plus, BandTotal}

// Group：性别分组
type Group string

const (
	GroupEnsemble Group = "ensemble"
	GroupHommes   Group = "hommes"
	GroupFemmes   Group = "femmes"
)

var Groups = []Group{GroupEnsemble, GroupHommes, GroupFemmes}

// 文档注释：按年龄段的人口计数
// 约束：nil 表示源数据缺失，与 0 不同；构造后不再修改，需要改值时构造新的 Tranche。
type Tranche struct {
	A0_19   *int64 `json:"0_19"`
	A20_39  *int64 `json:"20_39"`
	A40_59  *int64 `json:"40_59"`
	A60_74  *int64 `json:"60_74"`
	A75Plus *int64 `json:"75_plus"`
	Total   *int64 `json:"total"`
}

// Departement：一个省级行政区（département）的人口记录
type Departement struct {
	ID       string  `json:"id"`
	Nom      string  `json:"nom"`
	Ensemble Tranche `json:"ensemble"`
	Hommes   Tranche `json:"hommes"`
	Femmes   Tranche `json:"femmes"`
}

// Int：返回指向 v 副本的指针，便于构造 Tranche
func Int(v int64) *int64 { return &v }

// NewTranche：按 AllBands 顺序构造；values 少于六个时剩余字段为缺失
func NewTranche(values ...*int64) Tranche {
	var t Tranche
	for i, b := range AllBands {
		if i >= len(values) {
			break
		}
		t = t.with(b, values[i])
	}
	return t
}

func (t Tranche) with(b Band, v *int64) Tranche {
	var p *int64
	if v != nil {
		p = Int(*v)
	}
	switch b {
	case Band0_19:
		t.A0_19 = p
	case Band20_39:
		t.A20_39 = p
	case Band40_59:
		t.A40_59 = p
	case Band60_74:
		t.A60_74 = p
	case Band75Plus:
		t.A75Plus = p
	case BandTotal:
		t.Total = p
	}
	return t
}

// Get：按年龄段读取；未知键返回 nil
func (t Tranche) Get(b Band) *int64 {
	switch b {
	case Band0_19:
		return t.A0_19
	case Band20_39:
		return t.A20_39
	case Band40_59:
		return t.A40_59
	case Band60_74:
		return t.A60_74
	case Band75Plus:
		return t.A75Plus
	case BandTotal:
		return t.Total
	}
	return nil
}

// Value：缺失视为 0，用于汇总与图表比例
func (t Tranche) Value(b Band) int64 {
	if p := t.Get(b); p != nil {
		return *p
	}
	return 0
}

// Group：按分组读取 Tranche；未知分组返回零值
func (d *Departement) Group(g Group) Tranche {
	switch g {
	case GroupEnsemble:
		return d.Ensemble
	case GroupHommes:
		return d.Hommes
	case GroupFemmes:
		return d.Femmes
	}
	return Tranche{}
}

// Consistent：ensemble.total 是否等于 hommes.total + femmes.total
// 约束：仅为数据质量检查，任一字段缺失时返回 true（无法判定）；代码中不强制该不变量。
func (d *Departement) Consistent() bool {
	e, h, f := d.Ensemble.Total, d.Hommes.Total, d.Femmes.Total
	if e == nil || h == nil || f == nil {
		return true
	}
	return *e == *h+*f
}

// Source：统计数据来源（CSV 文件、PostgreSQL 或远端统计接口）
type Source interface {
	Departements(ctx context.Context) ([]Departement, error)
}

// Dataset：一次拉取得到的只读快照；会话期间列表身份保持不变
type Dataset struct {
	Departements []Departement
	Index        *Index
	Source       string
	LoadedAt     time.Time
}

// NewDataset：以 deps 构建索引；deps 之后不得再修改
func NewDataset(deps []Departement, source string) *Dataset {
	return &Dataset{Departements: deps, Index: NewIndex(deps), Source: source, LoadedAt: time.Now()}
}

// Load：从来源拉取并构建快照
func Load(ctx context.Context, src Source, name string) (*Dataset, error) {
	deps, err := src.Departements(ctx)
	if err != nil {
		return nil, err
	}
	return NewDataset(deps, name), nil
}
