package logger

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
)

// Init 初始化全局日志（level: debug/info/warn/error，format: console/json）
func Init(level, format string) error {
	return InitWithWriter(level, format, os.Stderr)
}

// InitWithWriter 初始化日志并指定输出目标
func InitWithWriter(level, format string, w io.Writer) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = w
	if format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	mu.Lock()
	log = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	mu.Unlock()

	LogInfo("📝 日志初始化完成, level=%s format=%s", lvl, format)
	return nil
}

// Logger 返回底层 zerolog 实例，用于需要结构化字段的地方
func Logger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := log
	return &l
}

// Close 刷新日志（zerolog 无缓冲，保留用于与 defer 配对）
func Close() {}

// LogDebug 调试日志
func LogDebug(format string, args ...any) {
	l := Logger()
	l.Debug().Msgf(format, args...)
}

// LogInfo 信息日志
func LogInfo(format string, args ...any) {
	l := Logger()
	l.Info().Msgf(format, args...)
}

// LogWarn 警告日志
func LogWarn(format string, args ...any) {
	l := Logger()
	l.Warn().Msgf(format, args...)
}

// LogError 错误日志
func LogError(format string, args ...any) {
	l := Logger()
	l.Error().Msgf(format, args...)
}

// LogPanic 记录 panic 及堆栈
func LogPanic(r any) {
	l := Logger()
	l.Error().Str("stack", string(debug.Stack())).Msgf("💥 panic: %v", r)
}
