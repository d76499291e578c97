package tracex

import (
	"sync"
	"time"

	"github.com/imattdu/xray/xray"
)

// Span 包一层 xray.Segment，加锁后可在多个 goroutine 里打注解。
// root span 上报为 segment，子 span 上报为独立的 subsegment。
type Span struct {
	mu      sync.Mutex
	seg     *xray.Segment
	sampled bool
}

func (s *Span) TraceID() xray.TraceID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seg.TraceID
}

func (s *Span) ID() xray.SegmentID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seg.ID
}

func (s *Span) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seg.Name
}

// Sampled 未采样的 span 结束时不会触发 hook
func (s *Span) Sampled() bool {
	return s.sampled
}

// Duration 返回 span 耗时，未结束返回 0
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seg.EndTime == nil {
		return 0
	}
	return s.seg.EndTime.Sub(s.seg.StartTime)
}

func (s *Span) SetAnnotation(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seg.SetAnnotation(key, value)
}

func (s *Span) SetMetadata(namespace, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seg.SetMetadata(namespace, key, value)
}

// SetHTTPRequest 记录入站或出站请求
func (s *Span) SetHTTPRequest(req xray.HTTPRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seg.HTTP == nil {
		s.seg.HTTP = &xray.HTTP{}
	}
	s.seg.HTTP.Request = &req
}

// SetHTTPResponse 记录响应并按状态码设置 error / throttle / fault；contentLength < 0 表示未知
func (s *Span) SetHTTPResponse(status int, contentLength int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seg.HTTP == nil {
		s.seg.HTTP = &xray.HTTP{}
	}
	resp := &xray.HTTPResponse{Status: status}
	if contentLength > 0 {
		resp.ContentLength = contentLength
	}
	s.seg.HTTP.Response = resp
	s.seg.ApplyStatus(status)
}

// Segment 对底层 segment 做读写，期间持有锁
func (s *Span) Segment(fn func(seg *xray.Segment)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.seg)
}

// Send 在锁内序列化并发出
func (s *Span) Send(c *xray.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.Send(s.seg)
}
