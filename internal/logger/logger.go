// 包 logger：进程级日志器，级别与格式由 LOG_LEVEL / LOG_FORMAT 控制
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

// ParseLevel：debug/warn/error，其余按 info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Setup：按环境变量初始化，输出到标准错误
func Setup() *slog.Logger {
	return SetupWith(os.Stderr, ParseLevel(os.Getenv("LOG_LEVEL")), os.Getenv("LOG_FORMAT"))
}

// SetupWith：指定输出、级别与格式（json/text），测试中用于捕获日志
func SetupWith(w io.Writer, lvl slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	l := slog.New(h).With("app", "popmap")
	current.Store(l)
	return l
}

// L：获取进程日志器；未初始化时按环境变量初始化
func L() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	return Setup()
}

// Component：带模块名的子日志器
func Component(name string) *slog.Logger { return L().With("component", name) }
