package tracex

import (
	"context"
	"sync/atomic"

	"github.com/imattdu/xray/epoch"
	"github.com/imattdu/xray/logx"
	"github.com/imattdu/xray/xray"
)

type SpanHook func(ctx context.Context, span *Span)

var (
	spanHook atomic.Pointer[SpanHook]
	clock    atomic.Pointer[epoch.Clock]
)

func init() {
	c := epoch.Real()
	clock.Store(&c)
}

// SetGlobalSpanHook 设置全局 span 上报回调，一般是 SendHook(client)；传 nil 关闭上报
func SetGlobalSpanHook(h SpanHook) {
	if h == nil {
		spanHook.Store(nil)
		return
	}
	spanHook.Store(&h)
}

// SetClock 替换读取 start/end 时间的时钟，返回恢复函数
func SetClock(c epoch.Clock) (restore func()) {
	prev := clock.Swap(&c)
	return func() { clock.Store(prev) }
}

func now() epoch.Seconds {
	return epoch.NowFrom(*clock.Load())
}

// SendHook 把结束的 span 通过 client 发给 daemon。发送失败只打日志，不影响业务。
func SendHook(c *xray.Client) SpanHook {
	return func(ctx context.Context, span *Span) {
		if err := span.Send(c); err != nil {
			logx.Warn(ctx, logx.TagSegmentDrop, err,
				logx.Name, span.Name(),
				logx.Sampled, span.Sampled(),
			)
			return
		}
		logx.Debug(ctx, logx.TagSegmentSend, "segment sent",
			logx.Name, span.Name(),
			logx.Sampled, span.Sampled(),
		)
	}
}

// -------------------- Span 生命周期 --------------------

// StartSpan 在当前 ctx 上创建一个新的 span：
//   - 如果 ctx 中已有 span，则沿用 TraceID 和采样结果，当前 span 作为 parent（subsegment）
//   - 否则生成新的 TraceID，当前 span 为 root segment，采样由全局 Sampler 决定
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	var span *Span
	if parent := SpanFromContext(ctx); parent != nil {
		parent.mu.Lock()
		seg := parent.seg.Child(name, now())
		parent.mu.Unlock()
		span = &Span{seg: seg, sampled: parent.sampled}
	} else {
		tid := xray.NewTraceID()
		span = &Span{
			seg:     xray.NewSegment(name, tid, nil, now()),
			sampled: globalSampler().Sample(tid),
		}
	}

	return WithSpan(ctx, span), span
}

// EndSpan 结束当前 ctx 对应的 span，并触发全局 Hook（如果有）
func EndSpan(ctx context.Context, err error) {
	endSpan(ctx, SpanFromContext(ctx), err, false)
}

// EndSpanExplicit 结束指定 span，用于手里保存 *Span 的场景
func EndSpanExplicit(ctx context.Context, span *Span, err error) {
	endSpan(ctx, span, err, false)
}

// endSpan 只有第一次结束会触发 hook；remote 表示 err 来自下游
func endSpan(ctx context.Context, span *Span, err error, remote bool) {
	if span == nil {
		return
	}
	span.mu.Lock()
	if span.seg.Ended() {
		span.mu.Unlock()
		return
	}
	span.seg.End(now())
	span.seg.AddException(err, remote)
	span.mu.Unlock()

	if !span.sampled {
		return
	}
	if h := spanHook.Load(); h != nil {
		(*h)(ctx, span)
	}
}
