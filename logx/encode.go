package logx

import (
	"context"
	"log/slog"

	"github.com/imattdu/xray/cctx"
	"github.com/imattdu/xray/errorx"
)

// encodeLog 把 ctx / tag / msg / kv 整合成一组 slog.Attr
func encodeLog(ctx context.Context, tag string, msg any, kv ...any) []slog.Attr {
	attrs := make([]slog.Attr, 0, 16)

	if tag != "" {
		attrs = append(attrs, slog.String("tag", tag))
	}

	c := getCaller()
	attrs = append(attrs,
		slog.String("file", c.file),
		slog.Int("line", c.line),
		slog.String("func", c.funcName),
	)

	// errorx 集成（如果 msg 是 *errorx.Error 或 error）
	switch v := msg.(type) {
	case *errorx.Error:
		attrs = append(attrs,
			slog.Int("code", v.Code.Code),
			slog.String("code_msg", v.Code.Message),
			slog.String("err_type", v.Type.Message),
			slog.String("service", v.Service.Message),
			slog.String("error", v.Error()),
		)
		for k, vv := range v.Fields {
			attrs = append(attrs, slog.Any(k, vv))
		}
		if v.Message != "" {
			attrs = append(attrs, slog.String(Msg, v.Message))
		}
	case error:
		attrs = append(attrs, slog.String("error", v.Error()))
	default:
		attrs = append(attrs, slog.Any(Msg, v))
	}

	// cctx 中的请求级字段（trace_id / segment_id 等）
	for k, v := range cctx.All(ctx) {
		attrs = append(attrs, slog.Any(k, v))
	}

	// 额外 kv（必须是偶数个）
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, slog.Any(k, kv[i+1]))
	}

	return attrs
}
