package utils

import (
	"github.com/redis/go-redis/v9"

	"popmap/internal/logger"
)

// OpenRedisFromEnv：从环境变量打开 Redis 客户端
// 约束：REDIS_ENABLED=false 时返回 nil，调用方按无缓存处理；REDIS_DB 解析失败回退到 0
func OpenRedisFromEnv() *redis.Client {
	if !EnvBool("REDIS_ENABLED", true) {
		return nil
	}
	addr := EnvString("REDIS_HOST", "127.0.0.1") + ":" + EnvString("REDIS_PORT", "6379")
	db := EnvInt("REDIS_DB", 0)
	if db < 0 {
		db = 0
	}
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: EnvString("REDIS_PASS", ""), DB: db})
}
