package tracex

import (
	"context"
	"net/http"
	"strings"

	"github.com/imattdu/xray/errorx"
	"github.com/imattdu/xray/xray"
)

// HeaderTraceID 形如 Root=1-5759e988-bd862e3fe1be46a994272793;Parent=53995c3f42cd8ad8;Sampled=1
const HeaderTraceID = "X-Amzn-Trace-Id"

// Decision 上游的采样决定
type Decision int

const (
	DecisionUnknown Decision = iota
	DecisionSampled
	DecisionNotSampled
	DecisionRequested // Sampled=?，由下游决定
)

// TraceHeader 是 X-Amzn-Trace-Id 的解析结果
type TraceHeader struct {
	TraceID  xray.TraceID
	ParentID *xray.SegmentID
	Sampled  Decision
}

func (h TraceHeader) String() string {
	var b strings.Builder
	b.WriteString("Root=")
	b.WriteString(h.TraceID.String())
	if h.ParentID != nil {
		b.WriteString(";Parent=")
		b.WriteString(h.ParentID.String())
	}
	switch h.Sampled {
	case DecisionSampled:
		b.WriteString(";Sampled=1")
	case DecisionNotSampled:
		b.WriteString(";Sampled=0")
	case DecisionRequested:
		b.WriteString(";Sampled=?")
	}
	return b.String()
}

// ParseHeader 解析 X-Amzn-Trace-Id。Root 必须存在，未知的 key（Self、Lineage 等）忽略。
func ParseHeader(s string) (TraceHeader, error) {
	var (
		h       TraceHeader
		hasRoot bool
	)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return TraceHeader{}, headerErr(s, nil)
		}
		switch strings.TrimSpace(key) {
		case "Root":
			tid, err := xray.ParseTraceID(strings.TrimSpace(val))
			if err != nil {
				return TraceHeader{}, headerErr(s, err)
			}
			h.TraceID = tid
			hasRoot = true
		case "Parent":
			pid, err := xray.ParseSegmentID(strings.TrimSpace(val))
			if err != nil {
				return TraceHeader{}, headerErr(s, err)
			}
			h.ParentID = &pid
		case "Sampled":
			switch strings.TrimSpace(val) {
			case "1":
				h.Sampled = DecisionSampled
			case "0":
				h.Sampled = DecisionNotSampled
			case "?":
				h.Sampled = DecisionRequested
			default:
				return TraceHeader{}, headerErr(s, nil)
			}
		}
	}
	if !hasRoot {
		return TraceHeader{}, headerErr(s, nil)
	}
	return h, nil
}

func headerErr(s string, cause error) error {
	return errorx.NewBiz(errorx.ErrInvalidFormat,
		errorx.WithService(errorx.ServiceTrace),
		errorx.WithMessage("invalid trace header"),
		errorx.WithCause(cause),
		errorx.WithField("header", s),
	)
}

// -------------------- HTTP 头注入 / 提取 --------------------

// InjectToHeader 把当前 span 的 trace 信息注入 HTTP 头，当前 span 作为下游的 Parent
func InjectToHeader(ctx context.Context, h http.Header) {
	if h == nil {
		return
	}
	span := SpanFromContext(ctx)
	if span == nil {
		return
	}
	h.Set(HeaderTraceID, headerFor(span).String())
}

func headerFor(span *Span) TraceHeader {
	id := span.ID()
	th := TraceHeader{TraceID: span.TraceID(), ParentID: &id, Sampled: DecisionNotSampled}
	if span.sampled {
		th.Sampled = DecisionSampled
	}
	return th
}

// ExtractRemoteSpan 从 HTTP 头解析上游 trace 信息（server 端使用），
// 返回新的本地 ctx、本地 root span 以及上游 header（没有或非法时为 nil）：
//
//	remote = 上游传来的 trace header
//	local  = 沿用 remote 的 TraceID、以 remote.Parent 为 parent_id 的新 segment；
//	         没有 remote 时生成新 trace
//
// 采样沿用上游的 Sampled=0/1，否则交给全局 Sampler。
func ExtractRemoteSpan(ctx context.Context, h http.Header, name string) (context.Context, *Span, *TraceHeader) {
	if ctx == nil {
		ctx = context.Background()
	}

	var remote *TraceHeader
	if h != nil {
		if raw := h.Get(HeaderTraceID); raw != "" {
			if th, err := ParseHeader(raw); err == nil {
				remote = &th
			}
		}
	}

	if remote == nil {
		tid := xray.NewTraceID()
		span := &Span{
			seg:     xray.NewSegment(name, tid, nil, now()),
			sampled: globalSampler().Sample(tid),
		}
		return WithSpan(ctx, span), span, nil
	}

	span := &Span{seg: xray.NewSegment(name, remote.TraceID, remote.ParentID, now())}
	switch remote.Sampled {
	case DecisionSampled:
		span.sampled = true
	case DecisionNotSampled:
		span.sampled = false
	default:
		span.sampled = globalSampler().Sample(remote.TraceID)
	}
	return WithSpan(ctx, span), span, remote
}

// ResponseHeader 回写给调用方的 header 值：Root + 本次采样结果
func ResponseHeader(span *Span) string {
	th := headerFor(span)
	th.ParentID = nil
	return th.String()
}
