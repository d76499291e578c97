package xray

import (
	"bytes"

	"github.com/imattdu/xray/errorx"
	"github.com/imattdu/xray/hexbytes"
)

// SegmentID 8 字节随机 id，文本形式为 16 个小写 hex 字符
type SegmentID [8]byte

func (id SegmentID) String() string {
	return hexbytes.Encode(id[:])
}

func (id SegmentID) IsZero() bool {
	return id == SegmentID{}
}

// Compare 按原始字节比较
func (id SegmentID) Compare(o SegmentID) int {
	return bytes.Compare(id[:], o[:])
}

// ParseSegmentID 要求恰好 16 个 hex 字符，大写也接受
func ParseSegmentID(s string) (SegmentID, error) {
	var id SegmentID
	if len(s) != 2*len(id) {
		return SegmentID{}, invalidFormat("segment id", s, nil)
	}
	if err := hexbytes.DecodeInto(id[:], s); err != nil {
		return SegmentID{}, invalidFormat("segment id", s, err)
	}
	return id, nil
}

func (id SegmentID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *SegmentID) UnmarshalText(text []byte) error {
	parsed, err := ParseSegmentID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func invalidFormat(what, input string, cause error) error {
	opts := []errorx.Option{
		errorx.WithService(errorx.ServiceCodec),
		errorx.WithMessage("invalid " + what),
		errorx.WithField("input", input),
	}
	if cause != nil {
		opts = append(opts, errorx.WithCause(cause))
	}
	return errorx.NewBiz(errorx.ErrInvalidFormat, opts...)
}
