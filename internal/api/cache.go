package api

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"popmap/internal/logger"
	"popmap/internal/metrics"
)

// 文档注释：Redis JSON 缓存
// 背景：统计快照按天更新，序列化结果可整体缓存；命中时直接返回字节，不再编码。
// 约束：rc 为 nil 或 Redis 出错时按未命中处理并直接构建，写回失败只记日志。
func cachedJSON(ctx context.Context, rc *redis.Client, key string, build func() (any, error)) ([]byte, error) {
	if rc != nil {
		b, err := rc.Get(ctx, key).Bytes()
		if err == nil && len(b) > 0 {
			metrics.RedisHitsTotal.Inc()
			return b, nil
		}
		metrics.RedisMissesTotal.Inc()
	}
	v, err := build()
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		if err := rc.Set(ctx, key, b, cacheTTL).Err(); err != nil {
			logger.L().Debug("redis_set_error", "key", key, "err", err)
		}
	}
	return b, nil
}
