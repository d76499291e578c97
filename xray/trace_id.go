package xray

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/imattdu/xray/hexbytes"
)

const traceIDVersion = '1'

// TraceID 由版本号、创建秒数、随机部分组成：1-5759e988-bd862e3fe1be46a994272793。
// 创建秒数让 daemon 侧可以按时间粗粒度分桶，随机部分保证唯一。
type TraceID struct {
	version byte
	epoch   [4]byte
	unique  [12]byte
}

// String 零值返回空串
func (id TraceID) String() string {
	if id.version == 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(35)
	b.WriteByte(id.version)
	b.WriteByte('-')
	b.WriteString(hexbytes.Encode(id.epoch[:]))
	b.WriteByte('-')
	b.WriteString(hexbytes.Encode(id.unique[:]))
	return b.String()
}

func (id TraceID) IsZero() bool {
	return id == TraceID{}
}

func (id TraceID) Version() string {
	return string(id.version)
}

// Epoch 创建时刻的 Unix 秒
func (id TraceID) Epoch() uint32 {
	return binary.BigEndian.Uint32(id.epoch[:])
}

func (id TraceID) Time() time.Time {
	return time.Unix(int64(id.Epoch()), 0)
}

// Unique 返回随机部分的拷贝
func (id TraceID) Unique() [12]byte {
	return id.unique
}

// ParseTraceID 解析 version-epoch-unique。字段数、长度、hex、版本任一不符都返回 ErrInvalidFormat。
func ParseTraceID(s string) (TraceID, error) {
	fields := strings.Split(s, "-")
	if len(fields) != 3 {
		return TraceID{}, invalidFormat("trace id", s, nil)
	}
	if len(fields[0]) != 1 || fields[0][0] != traceIDVersion {
		return TraceID{}, invalidFormat("trace id version", s, nil)
	}

	var id TraceID
	id.version = traceIDVersion
	if len(fields[1]) != 2*len(id.epoch) {
		return TraceID{}, invalidFormat("trace id epoch", s, nil)
	}
	if err := hexbytes.DecodeInto(id.epoch[:], fields[1]); err != nil {
		return TraceID{}, invalidFormat("trace id epoch", s, err)
	}
	if len(fields[2]) != 2*len(id.unique) {
		return TraceID{}, invalidFormat("trace id unique", s, nil)
	}
	if err := hexbytes.DecodeInto(id.unique[:], fields[2]); err != nil {
		return TraceID{}, invalidFormat("trace id unique", s, err)
	}
	return id, nil
}

func (id TraceID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *TraceID) UnmarshalText(text []byte) error {
	parsed, err := ParseTraceID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
