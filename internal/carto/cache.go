package carto

import (
    "container/list"
    "strconv"
    "sync"
    "time"
)

// 文档注释：渲染层 LRU 缓存（视口尺寸为键）
// 背景：同尺寸视口的投影结果完全相同，多个会话复用同一 Layer，避免重复投影约百个多面。
// 约束：容量与 TTL 由调用方给定；过期项在读取时淘汰。
type LayerCache struct {
    mu   sync.Mutex
    cap  int
    ttl  time.Duration
    lst  *list.List
    dict map[string]*list.Element
}

type layerEntry struct { k string; v *Layer; exp time.Time }

func NewLayerCache(capacity int, ttl time.Duration) *LayerCache {
    if capacity <= 0 { capacity = 16 }
    return &LayerCache{cap: capacity, ttl: ttl, lst: list.New(), dict: make(map[string]*list.Element)}
}

func viewportKey(vp Viewport) string {
    return strconv.FormatFloat(vp.Width, 'f', -1, 64) + "x" + strconv.FormatFloat(vp.Height, 'f', -1, 64)
}

func (c *LayerCache) Get(vp Viewport) (*Layer, bool) {
    k := viewportKey(vp)
    c.mu.Lock(); defer c.mu.Unlock()
    if e, ok := c.dict[k]; ok {
        it := e.Value.(layerEntry)
        if c.ttl <= 0 || time.Now().Before(it.exp) {
            c.lst.MoveToFront(e)
            return it.v, true
        }
        c.lst.Remove(e)
        delete(c.dict, k)
    }
    return nil, false
}

func (c *LayerCache) Set(vp Viewport, l *Layer) {
    k := viewportKey(vp)
    c.mu.Lock(); defer c.mu.Unlock()
    exp := time.Now().Add(c.ttl)
    if e, ok := c.dict[k]; ok {
        e.Value = layerEntry{k: k, v: l, exp: exp}
        c.lst.MoveToFront(e)
        return
    }
    c.dict[k] = c.lst.PushFront(layerEntry{k: k, v: l, exp: exp})
    for c.lst.Len() > c.cap {
        back := c.lst.Back()
        if back == nil { break }
        delete(c.dict, back.Value.(layerEntry).k)
        c.lst.Remove(back)
    }
}

func (c *LayerCache) Len() int {
    c.mu.Lock(); defer c.mu.Unlock()
    return c.lst.Len()
}
