package logx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type handler struct {
	cfg Config

	mu      sync.RWMutex
	out     io.Writer
	file    *os.File
	closed  bool
	entries chan slog.Record
	done    chan struct{}
}

func newHandler(cfg Config) (*handler, error) {
	if cfg.AppName == "" {
		cfg.AppName = "app"
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10000
	}

	h := &handler{
		cfg:     cfg,
		entries: make(chan slog.Record, cfg.QueueSize),
		done:    make(chan struct{}),
	}

	switch {
	case cfg.LogDir != "":
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, err
		}
		name := filepath.Join(cfg.LogDir, cfg.AppName+".log")
		f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		h.file = f
		h.out = f
	case cfg.Writer != nil:
		h.out = cfg.Writer
	default:
		h.out = os.Stderr
	}

	go h.writeLoop()
	return h, nil
}

// Enabled 满足 slog.Handler 接口
func (h *handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.Level
}

// Handle 只负责把 Record 推入异步队列，队列满则丢（不阻塞业务）
func (h *handler) Handle(_ context.Context, r slog.Record) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil
	}
	select {
	case h.entries <- r.Clone():
	default:
		log.Println("log queue full, drop log")
	}
	return nil
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// 所有 Attr 都由上层 encodeLog 提供
	return h
}

func (h *handler) WithGroup(name string) slog.Handler {
	_ = name
	return h
}

// close 停止接收，写完队列里剩余的记录后返回
func (h *handler) close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		<-h.done
		return nil
	}
	h.closed = true
	close(h.entries)
	h.mu.Unlock()

	<-h.done
	if h.file != nil {
		return h.file.Close()
	}
	return nil
}

// 异步写 loop
func (h *handler) writeLoop() {
	defer close(h.done)
	for rec := range h.entries {
		if err := h.writeRecord(rec); err != nil {
			log.Println("write log failed:", err)
		}
	}
}

// writeRecord 把 Record 编码成 JSON 一行
func (h *handler) writeRecord(r slog.Record) error {
	data := make(map[string]any, 16)
	data["ts"] = r.Time.Format(time.RFC3339Nano)
	data["level"] = r.Level.String()
	data["app"] = h.cfg.AppName

	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})

	lineBytes, err := json.Marshal(data)
	if err != nil {
		return err
	}
	line := string(lineBytes) + "\n"

	if _, err := io.WriteString(h.out, line); err != nil {
		return err
	}

	if h.cfg.ConsoleEnabled && h.file != nil {
		if h.cfg.ConsoleColored {
			fmt.Print(colorLine(r, line))
		} else {
			fmt.Print(line)
		}
	}
	return nil
}

// colorLine 根据 level 加前缀颜色
func colorLine(r slog.Record, line string) string {
	switch r.Level {
	case slog.LevelDebug:
		return "\033[36m[DEBUG]\033[0m " + line
	case slog.LevelInfo:
		return "\033[32m[INFO ]\033[0m " + line
	case slog.LevelWarn:
		return "\033[33m[WARN ]\033[0m " + line
	case slog.LevelError:
		return "\033[31m[ERROR]\033[0m " + line
	default:
		return "[" + r.Level.String() + "] " + line
	}
}
