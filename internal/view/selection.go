// 包 view：选中状态、交互缩放控制、悬停提示与增量协调
package view

import (
	"sort"
	"sync"

	"popmap/internal/population"
)

// Origin：选中变更的发起方
type Origin string

const (
	OriginMap    Origin = "map"
	OriginSearch Origin = "search"
	OriginReset  Origin = "reset"
)

// Change：一次选中变更；nil 表示全国
type Change struct {
	Prev   *population.Departement
	Next   *population.Departement
	Origin Origin
}

// 文档注释：共享选中单元
// 背景：地图、搜索框与图表共用同一个选中值；由会话创建并以引用传给各方，不使用全局单例。
// 约束：以指针身份比较，重复设置同一指针为空操作且不通知；回调在锁外按订阅顺序同步执行。
type Selection struct {
	mu   sync.Mutex
	cur  *population.Departement
	subs map[int]func(Change)
	seq  int
}

func NewSelection() *Selection { return &Selection{subs: make(map[int]func(Change))} }

func (s *Selection) Get() *population.Departement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Set：返回是否发生变化
func (s *Selection) Set(dep *population.Departement, origin Origin) bool {
	s.mu.Lock()
	if s.cur == dep {
		s.mu.Unlock()
		return false
	}
	ch := Change{Prev: s.cur, Next: dep, Origin: origin}
	s.cur = dep
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ch)
	}
	return true
}

// Subscribe：登记回调，返回取消函数（可重复调用）
func (s *Selection) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := s.seq
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
