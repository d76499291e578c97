// Package hexbytes converts fixed-length id buffers to lowercase hex text and back.
package hexbytes

import (
	"encoding/hex"

	"github.com/imattdu/xray/errorx"
)

// Encode 返回 2*len(b) 个小写 hex 字符
func Encode(b []byte) string {
	return hex.EncodeToString(b)
}

// Decode 解析 hex 文本，大小写都接受；奇数长度或非 hex 字符返回 errorx.ErrDecode
func Decode(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, decodeErr(s, hex.ErrLength)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, decodeErr(s, err)
	}
	return b, nil
}

// DecodeInto 把 s 解码进定长 dst，要求 len(s) == 2*len(dst)
func DecodeInto(dst []byte, s string) error {
	if len(s) != 2*len(dst) {
		return errorx.NewBiz(errorx.ErrDecode,
			errorx.WithService(errorx.ServiceCodec),
			errorx.WithMessagef("expected %d hex chars, got %d", 2*len(dst), len(s)),
			errorx.WithField("input", s),
		)
	}
	if _, err := hex.Decode(dst, []byte(s)); err != nil {
		return decodeErr(s, err)
	}
	return nil
}

func decodeErr(s string, cause error) error {
	return errorx.NewBiz(errorx.ErrDecode,
		errorx.WithService(errorx.ServiceCodec),
		errorx.WithCause(cause),
		errorx.WithField("input", s),
	)
}
