// 包 utils：环境变量读取、数据库/Redis 连接与自签名证书工具
package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvString：未设置或为空时返回默认值
func EnvString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// EnvInt：解析失败时返回默认值
func EnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// EnvSeconds：以秒为单位的时长；解析失败时返回默认值，0 表示关闭
func EnvSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

// EnvBool：仅 "true"/"1" 为真；未设置时返回默认值
func EnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v == "true" || v == "1"
}
