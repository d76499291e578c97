package logx

import (
	"io"
	"log/slog"
)

type Config struct {
	AppName string     // 应用名，用于文件名
	Level   slog.Level // 最小日志级别

	LogDir string    // 日志目录，非空时写 {LogDir}/{AppName}.log
	Writer io.Writer // LogDir 为空时写这里，都为空写 stderr

	ConsoleEnabled bool // 写文件的同时输出到控制台
	ConsoleColored bool // 控制台是否彩色输出

	// 异步队列大小（<=0 使用默认 10000）
	QueueSize int
}

// ParseLevel debug / info / warn / error，其他值返回 info
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
