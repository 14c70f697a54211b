package view

import "sort"

// Delta：两次渲染集合之间的差异，各列表按键排序
type Delta[T any] struct {
	Insert []T
	Update []T
	Remove []string
}

func (d Delta[T]) Empty() bool { return len(d.Insert) == 0 && len(d.Update) == 0 && len(d.Remove) == 0 }

// 文档注释：按稳定键协调（enter/update/exit）
// 约束：键为归一编码或年龄段标签，从不按数组位置；equal 为 nil 时已存在的键一律视为未变。
func Reconcile[T any](prev, next map[string]T, equal func(a, b T) bool) Delta[T] {
	var d Delta[T]
	for _, k := range sortedKeys(next) {
		old, ok := prev[k]
		switch {
		case !ok:
			d.Insert = append(d.Insert, next[k])
		case equal != nil && !equal(old, next[k]):
			d.Update = append(d.Update, next[k])
		}
	}
	for _, k := range sortedKeys(prev) {
		if _, ok := next[k]; !ok {
			d.Remove = append(d.Remove, k)
		}
	}
	return d
}

func sortedKeys[T any](m map[string]T) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}
