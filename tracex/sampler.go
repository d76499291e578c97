package tracex

import (
	"math"
	"sync/atomic"

	"github.com/spaolacci/murmur3"

	"github.com/imattdu/xray/xray"
)

// Sampler 决定一条新 trace 是否上报
type Sampler interface {
	Sample(id xray.TraceID) bool
}

// RateSampler 对 trace id 的随机部分做 murmur3，同一个 trace 在任何进程里结论一致。
// 0 全部丢弃，>=1 全部保留。
type RateSampler float64

func (r RateSampler) Sample(id xray.TraceID) bool {
	switch {
	case r <= 0:
		return false
	case r >= 1:
		return true
	}
	return float64(hashUnique(id)) < float64(r)*(math.MaxUint32+1)
}

// hashUnique 对 trace id 的 12 字节随机部分做 murmur3。
// murmur3 按 4 字节块读取时指针会落到切片末尾之后，切片需留出余量，否则 -race 下 checkptr 报错。
func hashUnique(id xray.TraceID) uint32 {
	var buf [16]byte
	unique := id.Unique()
	n := copy(buf[:], unique[:])
	return murmur3.Sum32(buf[:n])
}

// AlwaysSample 默认采样器
func AlwaysSample() Sampler { return RateSampler(1) }

type samplerBox struct{ s Sampler }

var sampler atomic.Pointer[samplerBox]

func init() {
	sampler.Store(&samplerBox{s: AlwaysSample()})
}

// SetGlobalSampler 替换 root span 使用的采样器，nil 恢复为全部采样
func SetGlobalSampler(s Sampler) {
	if s == nil {
		s = AlwaysSample()
	}
	sampler.Store(&samplerBox{s: s})
}

func globalSampler() Sampler {
	return sampler.Load().s
}
