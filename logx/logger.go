package logx

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Logger 对外暴露给业务 / 组件使用的接口
type Logger interface {
	Debug(ctx context.Context, tag string, msg any, kv ...any)
	Info(ctx context.Context, tag string, msg any, kv ...any)
	Warn(ctx context.Context, tag string, msg any, kv ...any)
	Error(ctx context.Context, tag string, msg any, kv ...any)
}

type loggerImpl struct {
	slog *slog.Logger
	h    *handler
}

func (l *loggerImpl) Debug(ctx context.Context, tag string, msg any, kv ...any) {
	l.log(ctx, slog.LevelDebug, tag, msg, kv...)
}

func (l *loggerImpl) Info(ctx context.Context, tag string, msg any, kv ...any) {
	l.log(ctx, slog.LevelInfo, tag, msg, kv...)
}

func (l *loggerImpl) Warn(ctx context.Context, tag string, msg any, kv ...any) {
	l.log(ctx, slog.LevelWarn, tag, msg, kv...)
}

func (l *loggerImpl) Error(ctx context.Context, tag string, msg any, kv ...any) {
	l.log(ctx, slog.LevelError, tag, msg, kv...)
}

// Close 写完队列中的日志并关闭输出文件
func (l *loggerImpl) Close() error {
	if l == nil || l.h == nil {
		return nil
	}
	return l.h.close()
}

func (l *loggerImpl) log(ctx context.Context, level slog.Level, tag string, msg any, kv ...any) {
	if l == nil || l.slog == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.slog.Enabled(ctx, level) {
		return
	}

	attrs := encodeLog(ctx, tag, msg, kv...)
	rec := slog.NewRecord(time.Now(), level, "", 0)
	rec.AddAttrs(attrs...)

	_ = l.slog.Handler().Handle(ctx, rec)
}

// -------------------- 全局默认 logger --------------------

var defaultLogger atomic.Pointer[loggerImpl]

// Init 根据 Config 初始化全局 logger（建议在 main 里调用一次）
func Init(cfg Config) error {
	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	if prev := defaultLogger.Swap(l); prev != nil {
		_ = prev.Close()
	}
	return nil
}

// Shutdown 关闭全局 logger，进程退出前调用
func Shutdown() error {
	if l := defaultLogger.Swap(nil); l != nil {
		return l.Close()
	}
	return nil
}

// New 创建一个独立的 Logger 实例，返回值实现 io.Closer
func New(cfg Config) (Logger, error) {
	l, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func newLogger(cfg Config) (*loggerImpl, error) {
	h, err := newHandler(cfg)
	if err != nil {
		return nil, err
	}
	return &loggerImpl{slog: slog.New(h), h: h}, nil
}

// L 返回全局 logger，未 Init 时为 nil
func L() Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	return nil
}

// 方便业务直接调用的快捷函数

func Debug(ctx context.Context, tag string, msg any, kv ...any) {
	if l := L(); l != nil {
		l.Debug(ctx, tag, msg, kv...)
	}
}

func Info(ctx context.Context, tag string, msg any, kv ...any) {
	if l := L(); l != nil {
		l.Info(ctx, tag, msg, kv...)
	}
}

// Warn / Error 在未 Init 时不丢弃，改写到 slog.Default()（默认 stderr）
func Warn(ctx context.Context, tag string, msg any, kv ...any) {
	if l := L(); l != nil {
		l.Warn(ctx, tag, msg, kv...)
		return
	}
	logDefault(ctx, slog.LevelWarn, tag, msg, kv...)
}

func Error(ctx context.Context, tag string, msg any, kv ...any) {
	if l := L(); l != nil {
		l.Error(ctx, tag, msg, kv...)
		return
	}
	logDefault(ctx, slog.LevelError, tag, msg, kv...)
}

func logDefault(ctx context.Context, level slog.Level, tag string, msg any, kv ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	slog.Default().LogAttrs(ctx, level, tag, encodeLog(ctx, tag, msg, kv...)...)
}
