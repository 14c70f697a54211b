package middleware

import (
	"net/http"
	"sync"
	"time"

	"popmap/internal/logger"
	"popmap/internal/utils"
)

// 文档注释：令牌桶限流中间件（每秒）
// 背景：地图页面加载时会并发请求统计与几何；在流量峰值时对入口限速，避免统计源与数据库被过载。
// 约束：简化实现，不做队列排队，仅丢弃并返回 429；已建立的 websocket 会话不受影响，只限制升级请求本身。
type TokenBucket struct {
	capacity int
	tokens   int
	lastSec  int64
	now      func() time.Time
	mu       sync.Mutex
}

func NewTokenBucket(qps int) *TokenBucket {
	return &TokenBucket{capacity: qps, tokens: qps, lastSec: time.Now().Unix(), now: time.Now}
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	nowSec := tb.now().Unix()
	if tb.lastSec != nowSec {
		tb.lastSec = nowSec
		tb.tokens = tb.capacity
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Limit：以给定令牌桶包装 next
func Limit(tb *TokenBucket, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !tb.Allow() {
			logger.L().Debug("rate_limited", "path", r.URL.Path)
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Wrap：RATE_LIMIT_ENABLED=true 时按 RATE_LIMIT_QPS（默认 200）限流，否则原样返回
func Wrap(next http.Handler) http.Handler {
	if !utils.EnvBool("RATE_LIMIT_ENABLED", false) {
		return next
	}
	qps := utils.EnvInt("RATE_LIMIT_QPS", 200)
	if qps <= 0 {
		qps = 200
	}
	logger.L().Info("rate_limit_enabled", "qps", qps)
	return Limit(NewTokenBucket(qps), next)
}
