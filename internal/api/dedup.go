package api

import (
	"context"
	"hash/fnv"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// 文档注释：访问计数去重（Redis 位图布隆过滤器）
// 背景：页面刷新与多标签会重复请求同一接口；同一访问者在一个时间窗内对同一路径只计一次查询。
// 约束：位图按时间窗分键，TTL 为两个窗口；rc 为 nil 或 Redis 出错时视为首次，计数宁多勿漏。
type dedup struct {
	rc     *redis.Client
	bits   uint32
	hashes int
	window time.Duration
}

func newDedup(rc *redis.Client) dedup {
	return dedup{rc: rc, bits: 1 << 20, hashes: 4, window: 10 * time.Minute}
}

// positions：FNV64a 加索引前缀生成 hashes 个位置
func (d dedup) positions(member string) []int64 {
	pos := make([]int64, d.hashes)
	for i := range pos {
		h := fnv.New64a()
		h.Write([]byte{byte(i)})
		h.Write([]byte(member))
		pos[i] = int64(h.Sum64() % uint64(d.bits))
	}
	return pos
}

func (d dedup) key(now time.Time) string {
	return "pop:bf:" + strconv.FormatInt(now.Unix()/int64(d.window/time.Second), 10)
}

// firstSeen：返回 true 表示本窗口内首次见到 member（并已写入位图）
func (d dedup) firstSeen(ctx context.Context, member string, now time.Time) bool {
	if d.rc == nil {
		return true
	}
	key := d.key(now)
	pos := d.positions(member)
	pipe := d.rc.Pipeline()
	cmds := make([]*redis.IntCmd, len(pos))
	for i, p := range pos {
		cmds[i] = pipe.GetBit(ctx, key, p)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return true
	}
	seen := true
	for _, c := range cmds {
		if c.Val() == 0 {
			seen = false
			break
		}
	}
	if seen {
		return false
	}
	pipe = d.rc.Pipeline()
	for _, p := range pos {
		pipe.SetBit(ctx, key, p, 1)
	}
	pipe.Expire(ctx, key, 2*d.window)
	_, _ = pipe.Exec(ctx)
	return true
}

// 文档注释：获取访问者 IP（用于去重与限流）
// 背景：多层代理环境下优先常见反向代理头，最后回退远端地址。
// 约束：头部存在伪造风险，结果只用于计数去重，不用于鉴权。
func visitorIP(r *http.Request) string {
	h := r.Header
	if x := h.Get("x-forwarded-for"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	for _, k := range []string{"cf-connecting-ip", "x-real-ip", "x-client-ip"} {
		if x := h.Get(k); x != "" {
			return x
		}
	}
	if x := h.Get("forwarded"); x != "" {
		if i := strings.Index(strings.ToLower(x), "for="); i >= 0 {
			y := x[i+4:]
			if p := strings.IndexAny(y, ";,"); p >= 0 {
				y = y[:p]
			}
			return strings.Trim(y, "\" ")
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
