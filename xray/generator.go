package xray

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"sync/atomic"

	"github.com/imattdu/xray/epoch"
	"github.com/imattdu/xray/errorx"
)

// Generator 生成 trace id / segment id。随机源和时钟都可注入，测试里换成确定值；
// Rand 为 nil 用 crypto/rand，Clock 为 nil 用系统时钟。
type Generator struct {
	Rand  io.Reader
	Clock epoch.Clock
}

// NewGenerator 用 crypto/rand 和系统时钟
func NewGenerator() *Generator {
	return &Generator{Rand: rand.Reader, Clock: epoch.Real()}
}

var defaultGenerator atomic.Pointer[Generator]

func init() {
	defaultGenerator.Store(NewGenerator())
}

// DefaultGenerator 进程级默认 Generator
func DefaultGenerator() *Generator {
	return defaultGenerator.Load()
}

// SetDefaultGenerator 替换默认 Generator，返回恢复函数；nil 表示恢复成 NewGenerator()
func SetDefaultGenerator(g *Generator) (restore func()) {
	if g == nil {
		g = NewGenerator()
	}
	prev := defaultGenerator.Swap(g)
	return func() { defaultGenerator.Store(prev) }
}

// SegmentID 读 8 个新随机字节
func (g *Generator) SegmentID() (SegmentID, error) {
	var id SegmentID
	if err := g.fill(id[:]); err != nil {
		return SegmentID{}, err
	}
	return id, nil
}

// TraceID version=1，epoch=当前 Unix 秒（大端 4 字节），unique=12 个新随机字节
func (g *Generator) TraceID() (TraceID, error) {
	var id TraceID
	id.version = traceIDVersion
	binary.BigEndian.PutUint32(id.epoch[:], uint32(g.clock().Now().Unix()))
	if err := g.fill(id.unique[:]); err != nil {
		return TraceID{}, err
	}
	return id, nil
}

func (g *Generator) fill(b []byte) error {
	if _, err := io.ReadFull(g.rand(), b); err != nil {
		return errorx.NewSys(errorx.ErrIO,
			errorx.WithService(errorx.ServiceCodec),
			errorx.WithMessage("read random source failed"),
			errorx.WithCause(err),
		)
	}
	return nil
}

func (g *Generator) rand() io.Reader {
	if g.Rand == nil {
		return rand.Reader
	}
	return g.Rand
}

func (g *Generator) clock() epoch.Clock {
	if g.Clock == nil {
		return epoch.Real()
	}
	return g.Clock
}

// NewSegmentID 用默认 Generator 生成。默认随机源是 crypto/rand，读失败视为不可恢复。
func NewSegmentID() SegmentID {
	id, err := DefaultGenerator().SegmentID()
	if err != nil {
		panic(err)
	}
	return id
}

// NewTraceID 用默认 Generator 生成，失败同 NewSegmentID
func NewTraceID() TraceID {
	id, err := DefaultGenerator().TraceID()
	if err != nil {
		panic(err)
	}
	return id
}
