package tracex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/imattdu/xray/cctx"
	"github.com/imattdu/xray/epoch"
	"github.com/imattdu/xray/logx"
	"github.com/imattdu/xray/xray"
)

// captureHook 收集结束的 span
type captureHook struct {
	mu    sync.Mutex
	spans []*Span
}

func (c *captureHook) hook(_ context.Context, s *Span) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spans = append(c.spans, s)
}

func (c *captureHook) ended() []*Span {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Span(nil), c.spans...)
}

func installHook(t *testing.T) *captureHook {
	t.Helper()
	c := &captureHook{}
	SetGlobalSpanHook(c.hook)
	t.Cleanup(func() { SetGlobalSpanHook(nil) })
	return c
}

func TestStartEndRootSpan(t *testing.T) {
	hook := installHook(t)
	restore := SetClock(epoch.Fixed(time.Unix(1700000000, 0)))
	defer restore()

	ctx, span := StartSpan(context.Background(), "checkout")
	if SpanFromContext(ctx) != span {
		t.Fatal("span not stored in ctx")
	}
	if TraceIDFromContext(ctx) != span.TraceID().String() || SpanNameFromContext(ctx) != "checkout" {
		t.Fatal("ctx helpers disagree with span")
	}
	if v, _ := cctx.GetAs[string](ctx, logx.SegmentID); v != span.ID().String() {
		t.Fatalf("segment_id log field missing, got %q", v)
	}

	EndSpan(ctx, nil)
	EndSpan(ctx, errors.New("second end is ignored"))

	got := hook.ended()
	if len(got) != 1 || got[0] != span {
		t.Fatalf("expected one hook call, got %d", len(got))
	}
	span.Segment(func(seg *xray.Segment) {
		if seg.ParentID != nil || seg.Type != "" {
			t.Errorf("root span must be a plain segment: %+v", seg)
		}
		if seg.Fault || seg.Cause != nil {
			t.Errorf("second EndSpan must not add an error")
		}
		if seg.StartTime.Float64() != 1700000000 || seg.EndTime.Float64() != 1700000000 {
			t.Errorf("unexpected times %v %v", seg.StartTime, seg.EndTime)
		}
	})
}

func TestChildSpan(t *testing.T) {
	hook := installHook(t)

	ctx, root := StartSpan(context.Background(), "root")
	childCtx, child := StartSpan(ctx, "db")

	if child.TraceID() != root.TraceID() {
		t.Fatal("child must share the trace")
	}
	EndSpan(childCtx, errors.New("timeout"))
	EndSpan(ctx, nil)

	got := hook.ended()
	if len(got) != 2 || got[0] != child || got[1] != root {
		t.Fatalf("unexpected hook order %v", got)
	}
	child.Segment(func(seg *xray.Segment) {
		if seg.Type != xray.TypeSubsegment || seg.ParentID == nil || *seg.ParentID != root.ID() {
			t.Errorf("unexpected child segment %+v", seg)
		}
		if !seg.Fault || seg.Cause.Exceptions[0].Message != "timeout" {
			t.Errorf("error not recorded: %+v", seg.Cause)
		}
	})
}

func TestUnsampledSpanSkipsHook(t *testing.T) {
	hook := installHook(t)
	SetGlobalSampler(RateSampler(0))
	defer SetGlobalSampler(nil)

	ctx, root := StartSpan(context.Background(), "root")
	childCtx, child := StartSpan(ctx, "child")
	if root.Sampled() || child.Sampled() {
		t.Fatal("sampling decision must propagate to children")
	}
	EndSpan(childCtx, nil)
	EndSpan(ctx, nil)
	if n := len(hook.ended()); n != 0 {
		t.Fatalf("expected no hook calls, got %d", n)
	}
	if root.Duration() < 0 {
		t.Fatal("unsampled span must still be closed")
	}
}

func TestEndSpanWithoutSpan(t *testing.T) {
	hook := installHook(t)
	EndSpan(context.Background(), nil)
	EndSpanExplicit(context.Background(), nil, nil)
	if len(hook.ended()) != 0 {
		t.Fatal("nothing to end")
	}
}

func TestSendHookDeliversSegment(t *testing.T) {
	srv, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	client, err := xray.Dial(srv.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	SetGlobalSpanHook(SendHook(client))
	defer SetGlobalSpanHook(nil)

	ctx, span := StartSpan(context.Background(), "send-hook")
	EndSpan(ctx, nil)

	buf := make([]byte, xray.MaxPacketSize)
	_ = srv.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := srv.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("no datagram: %v", err)
	}
	want, _ := xray.Packet(span.seg)
	if string(buf[:n]) != string(want) {
		t.Fatalf("expected %s, got %s", want, buf[:n])
	}
}

func TestSendHookClosedClientIsNonFatal(t *testing.T) {
	client, err := xray.Dial("127.0.0.1:2000")
	if err != nil {
		t.Fatal(err)
	}
	_ = client.Close()

	SetGlobalSpanHook(SendHook(client))
	defer SetGlobalSpanHook(nil)

	ctx, _ := StartSpan(context.Background(), "dropped")
	EndSpan(ctx, nil)
}

func TestSendHookLogsOutcome(t *testing.T) {
	var buf bytes.Buffer
	if err := logx.Init(logx.Config{AppName: "tracex", Level: slog.LevelDebug, Writer: &buf}); err != nil {
		t.Fatal(err)
	}

	srv, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()
	client, err := xray.Dial(srv.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}

	SetGlobalSpanHook(SendHook(client))
	defer SetGlobalSpanHook(nil)

	ctx, span := StartSpan(context.Background(), "sent")
	EndSpan(ctx, nil)
	_ = client.Close()
	ctx, _ = StartSpan(context.Background(), "dropped")
	EndSpan(ctx, nil)

	if err := logx.Shutdown(); err != nil {
		t.Fatal(err)
	}

	var lines []map[string]any
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		m := map[string]any{}
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Fatalf("invalid log line %q: %v", raw, err)
		}
		lines = append(lines, m)
	}
	if len(lines) != 2 {
		t.Fatalf("expected send and drop lines, got %q", buf.String())
	}
	sent, dropped := lines[0], lines[1]
	if sent["tag"] != logx.TagSegmentSend || sent[logx.Sampled] != true || sent[logx.Name] != "sent" ||
		sent[logx.TraceID] != span.TraceID().String() {
		t.Errorf("unexpected send line %v", sent)
	}
	if dropped["tag"] != logx.TagSegmentDrop || dropped["level"] != "WARN" || dropped[logx.Name] != "dropped" {
		t.Errorf("unexpected drop line %v", dropped)
	}
}
