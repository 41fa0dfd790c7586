package logger

import (
	"io"
	"log"
	"log/slog"
	"strings"
	"time"

	gormlogger "gorm.io/gorm/logger"
)

// New 创建应用日志；format 为 json 时输出 JSON，其余输出文本
func New(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// ParseLevel 解析日志级别，无法识别时按 warn 处理
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// NewGormLogger 按应用日志级别创建 gorm SQL 日志
// debug 打印全部 SQL；info/warn 只打印慢查询和错误；error 只打印错误
func NewGormLogger(level string, w io.Writer) gormlogger.Interface {
	var lvl gormlogger.LogLevel
	switch ParseLevel(level) {
	case slog.LevelDebug:
		lvl = gormlogger.Info
	case slog.LevelError:
		lvl = gormlogger.Error
	default:
		lvl = gormlogger.Warn
	}
	return gormlogger.New(log.New(w, "\r\n", log.LstdFlags), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  lvl,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
