package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/imattdu/xray/cctx"
	"github.com/imattdu/xray/errorx"
)

func decodeLines(t *testing.T, raw string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLoggerWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(Config{AppName: "test", Level: slog.LevelInfo, Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	ctx := cctx.With(context.Background(), TraceID, "1-5759e988-bd862e3fe1be46a994272793")
	l.Debug(ctx, TagSegmentSend, "dropped by level")
	l.Info(ctx, TagSegmentSend, "sent", Size, 120)
	l.Warn(ctx, TagAddrFallback, errorx.NewBiz(errorx.ErrAddressFormat,
		errorx.WithService(errorx.ServiceDaemon),
		errorx.WithField(Address, "nope"),
	))
	l.Error(ctx, TagSegmentDrop, errors.New("boom"))
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	lines := decodeLines(t, buf.String())
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %s", len(lines), buf.String())
	}

	info := lines[0]
	if info["tag"] != TagSegmentSend || info["msg"] != "sent" || info["size"] != float64(120) {
		t.Errorf("unexpected info line %v", info)
	}
	if info[TraceID] != "1-5759e988-bd862e3fe1be46a994272793" {
		t.Errorf("ctx field missing: %v", info)
	}
	if info["app"] != "test" || info["level"] != "INFO" {
		t.Errorf("unexpected app/level: %v", info)
	}
	if !strings.HasSuffix(info["file"].(string), "handler_test.go") {
		t.Errorf("caller should be the test file, got %v", info["file"])
	}

	warn := lines[1]
	if warn["code"] != float64(errorx.ErrAddressFormat.Code) || warn["service"] != "xray-daemon" || warn[Address] != "nope" {
		t.Errorf("errorx fields missing: %v", warn)
	}

	if lines[2]["error"] != "boom" || lines[2]["level"] != "ERROR" {
		t.Errorf("unexpected error line %v", lines[2])
	}
}

func TestLoggerFileOutput(t *testing.T) {
	dir := t.TempDir()
	l, err := newLogger(Config{AppName: "xray", LogDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	l.Info(context.Background(), TagUndef, "hello")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "xray.log"))
	if err != nil {
		t.Fatal(err)
	}
	lines := decodeLines(t, string(raw))
	if len(lines) != 1 || lines[0]["msg"] != "hello" {
		t.Fatalf("unexpected file content %s", raw)
	}
}

func TestHandleAfterClose(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(Config{Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	_ = l.Close()
	// 关闭后不能 panic
	l.Info(context.Background(), TagUndef, "late")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing written, got %s", buf.String())
	}
}

func TestGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	Info(context.Background(), TagUndef, "global")
	if err := Shutdown(); err != nil {
		t.Fatal(err)
	}
	if L() != nil {
		t.Fatal("expected no global logger after Shutdown")
	}
	// 未初始化时快捷函数是 no-op
	Warn(context.Background(), TagUndef, "ignored")

	lines := decodeLines(t, buf.String())
	if len(lines) != 1 || lines[0]["msg"] != "global" {
		t.Fatalf("unexpected output %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	testCases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, expected := range testCases {
		if got := ParseLevel(in); got != expected {
			t.Errorf("%q: expected %v, got %v", in, expected, got)
		}
	}
}

func TestPackageWarnWithoutInit(t *testing.T) {
	if err := Shutdown(); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	ctx := context.Background()
	Info(ctx, TagSegmentSend, "dropped until Init")
	Warn(ctx, TagAddrFallback, errors.New("bad address"), Address, "nope")
	Error(ctx, TagSegmentDrop, "socket closed")

	lines := decodeLines(t, buf.String())
	if len(lines) != 2 {
		t.Fatalf("expected warn and error lines, got %q", buf.String())
	}
	warn := lines[0]
	if warn["level"] != "WARN" || warn["tag"] != TagAddrFallback || warn[Address] != "nope" || warn["error"] != "bad address" {
		t.Errorf("unexpected warn line %v", warn)
	}
	if lines[1]["level"] != "ERROR" || lines[1]["tag"] != TagSegmentDrop {
		t.Errorf("unexpected error line %v", lines[1])
	}
}
