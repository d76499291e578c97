package xray

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/imattdu/xray/epoch"
	"github.com/imattdu/xray/errorx"
)

// MaxNameLength daemon 接受的 segment 名称最大长度，超出部分截断
const MaxNameLength = 200

// Segment 是 daemon 的 segment 文档。子 segment 单独上报时 Type 为 "subsegment" 且带 ParentID。
// 不是并发安全的，并发写由调用方加锁。
type Segment struct {
	Name       string         `json:"name"`
	ID         SegmentID      `json:"id"`
	TraceID    TraceID        `json:"trace_id"`
	StartTime  epoch.Seconds  `json:"start_time"`
	EndTime    *epoch.Seconds `json:"end_time,omitempty"`
	InProgress bool           `json:"in_progress,omitempty"`
	ParentID   *SegmentID     `json:"parent_id,omitempty"`
	Type       string         `json:"type,omitempty"`
	Namespace  string         `json:"namespace,omitempty"`
	Origin     string         `json:"origin,omitempty"`
	User       string         `json:"user,omitempty"`

	Error    bool   `json:"error,omitempty"`
	Throttle bool   `json:"throttle,omitempty"`
	Fault    bool   `json:"fault,omitempty"`
	Cause    *Cause `json:"cause,omitempty"`

	HTTP    *HTTP    `json:"http,omitempty"`
	Service *Service `json:"service,omitempty"`

	Annotations map[string]any            `json:"annotations,omitempty"`
	Metadata    map[string]map[string]any `json:"metadata,omitempty"`
	Subsegments []*Segment                `json:"subsegments,omitempty"`
}

const (
	TypeSubsegment   = "subsegment"
	NamespaceRemote  = "remote"
	NamespaceAWS     = "aws"
	defaultNamespace = "default"
)

type HTTP struct {
	Request  *HTTPRequest  `json:"request,omitempty"`
	Response *HTTPResponse `json:"response,omitempty"`
}

type HTTPRequest struct {
	Method        string `json:"method,omitempty"`
	URL           string `json:"url,omitempty"`
	UserAgent     string `json:"user_agent,omitempty"`
	ClientIP      string `json:"client_ip,omitempty"`
	XForwardedFor bool   `json:"x_forwarded_for,omitempty"`
	Traced        bool   `json:"traced,omitempty"`
}

type HTTPResponse struct {
	Status        int   `json:"status,omitempty"`
	ContentLength int64 `json:"content_length,omitempty"`
}

type Service struct {
	Version string `json:"version,omitempty"`
}

type Cause struct {
	WorkingDirectory string      `json:"working_directory,omitempty"`
	Exceptions       []Exception `json:"exceptions,omitempty"`
}

type Exception struct {
	ID      SegmentID `json:"id"`
	Message string    `json:"message,omitempty"`
	Type    string    `json:"type,omitempty"`
	Remote  bool      `json:"remote,omitempty"`
}

// NewSegment 开始一个 segment；parentID 非 nil 表示上游服务传来的父 id
func NewSegment(name string, traceID TraceID, parentID *SegmentID, start epoch.Seconds) *Segment {
	s := &Segment{
		Name:       truncateName(name),
		ID:         NewSegmentID(),
		TraceID:    traceID,
		StartTime:  start,
		InProgress: true,
	}
	if parentID != nil {
		pid := *parentID
		s.ParentID = &pid
	}
	return s
}

// Child 以 s 为父开始一个可独立上报的 subsegment
func (s *Segment) Child(name string, start epoch.Seconds) *Segment {
	c := NewSegment(name, s.TraceID, &s.ID, start)
	c.Type = TypeSubsegment
	return c
}

// End 记录结束时间，重复调用以第一次为准
func (s *Segment) End(at epoch.Seconds) {
	if s.EndTime != nil {
		return
	}
	s.EndTime = &at
	s.InProgress = false
}

func (s *Segment) Ended() bool {
	return s.EndTime != nil
}

// SetAnnotation 注解可被 daemon 索引：key 只允许字母数字下划线，value 只能是字符串、数字、布尔
func (s *Segment) SetAnnotation(key string, value any) error {
	if !validAnnotationKey(key) {
		return errorx.NewBiz(errorx.ErrInvalidFormat,
			errorx.WithService(errorx.ServiceTrace),
			errorx.WithMessagef("invalid annotation key %q", key),
		)
	}
	switch value.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
	default:
		return errorx.NewBiz(errorx.ErrInvalidFormat,
			errorx.WithService(errorx.ServiceTrace),
			errorx.WithMessagef("annotation %q has unsupported type %T", key, value),
		)
	}
	if s.Annotations == nil {
		s.Annotations = make(map[string]any)
	}
	s.Annotations[key] = value
	return nil
}

// SetMetadata 元数据不索引，任意可 JSON 编码的值；namespace 为空时用 "default"
func (s *Segment) SetMetadata(namespace, key string, value any) {
	if namespace == "" {
		namespace = defaultNamespace
	}
	if s.Metadata == nil {
		s.Metadata = make(map[string]map[string]any)
	}
	ns := s.Metadata[namespace]
	if ns == nil {
		ns = make(map[string]any)
		s.Metadata[namespace] = ns
	}
	ns[key] = value
}

// AddException 标记 fault 并把 err 记进 cause
func (s *Segment) AddException(err error, remote bool) {
	if err == nil {
		return
	}
	s.Fault = true
	if s.Cause == nil {
		s.Cause = &Cause{}
	}
	s.Cause.Exceptions = append(s.Cause.Exceptions, Exception{
		ID:      NewSegmentID(),
		Message: err.Error(),
		Type:    exceptionType(err),
		Remote:  remote,
	})
}

// ApplyStatus 按 HTTP 状态码设置 error / throttle / fault 标志
func (s *Segment) ApplyStatus(status int) {
	switch {
	case status == 429:
		s.Error = true
		s.Throttle = true
	case status >= 500:
		s.Fault = true
	case status >= 400:
		s.Error = true
	}
}

func exceptionType(err error) string {
	if e, ok := errorx.From(err); ok {
		return fmt.Sprintf("errorx.%d", e.Code.Code)
	}
	inner := err
	for {
		next := errors.Unwrap(inner)
		if next == nil {
			break
		}
		inner = next
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", inner), "*")
}

func truncateName(name string) string {
	if utf8.RuneCountInString(name) <= MaxNameLength {
		return name
	}
	runes := []rune(name)
	return string(runes[:MaxNameLength])
}

func validAnnotationKey(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
