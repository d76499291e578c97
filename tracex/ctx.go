package tracex

import (
	"context"

	"github.com/imattdu/xray/cctx"
	"github.com/imattdu/xray/logx"
)

type spanKeyType struct{}

var spanKey spanKeyType

// SpanFromContext 取当前 ctx 中的 span
func SpanFromContext(ctx context.Context) *Span {
	if ctx == nil {
		return nil
	}
	span, _ := ctx.Value(spanKey).(*Span)
	return span
}

// TraceIDFromContext 直接取 TraceID 文本（没有则返回空串）
func TraceIDFromContext(ctx context.Context) string {
	if s := SpanFromContext(ctx); s != nil {
		return s.TraceID().String()
	}
	return ""
}

// SpanNameFromContext 取 Span 名称
func SpanNameFromContext(ctx context.Context) string {
	if s := SpanFromContext(ctx); s != nil {
		return s.Name()
	}
	return ""
}

// WithSpan 把 span 写入 ctx，同时把 trace_id / segment_id 写进日志字段
func WithSpan(ctx context.Context, s *Span) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, spanKey, s)
	return cctx.WithMany(ctx, map[string]any{
		logx.TraceID:   s.TraceID().String(),
		logx.SegmentID: s.ID().String(),
	})
}
