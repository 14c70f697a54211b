package population

import "sync/atomic"

// 文档注释：数据快照持有器
// 背景：定期重载时以原子替换切换快照，读路径不加锁；已建立的会话继续持有旧快照，列表身份在会话内不变。
// 约束：Set(nil) 会使后续 Current 返回 nil，调用方按“加载中”处理。
type Holder struct{ v atomic.Pointer[Dataset] }

func (h *Holder) Current() *Dataset { return h.v.Load() }

func (h *Holder) Set(d *Dataset) { h.v.Store(d) }
