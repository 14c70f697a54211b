package population

// 文档注释：统计索引（归一编码 → 记录）
// 背景：悬停与点击需要按几何编码查统计记录；规模约百条，哈希表即可。
// 约束：值指向构建时传入的切片元素，保持引用一致；编码重复时保留第一条；查不到返回 nil。
type Index struct {
	byCode map[string]*Departement
}

func NewIndex(deps []Departement) *Index {
	idx := &Index{byCode: make(map[string]*Departement, len(deps))}
	for i := range deps {
		code := NormalizeCode(deps[i].ID)
		if IsNoMatch(code) {
			continue
		}
		if _, dup := idx.byCode[code]; dup {
			continue
		}
		idx.byCode[code] = &deps[i]
	}
	return idx
}

// Lookup：code 可为字符串或数字；nil 索引与未命中均返回 nil
func (x *Index) Lookup(code any) *Departement {
	if x == nil {
		return nil
	}
	c := NormalizeCode(code)
	if IsNoMatch(c) {
		return nil
	}
	return x.byCode[c]
}

func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.byCode)
}
