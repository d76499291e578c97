// Package epoch represents timestamps the way the X-Ray daemon expects them:
// seconds since the Unix epoch as a JSON number with a fractional part.
package epoch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Seconds 是 Unix 秒（带小数）。序列化成 JSON number，不会 clamp 负数或 0。
type Seconds float64

// Now 读一次系统时钟
func Now() Seconds {
	return NowFrom(Real())
}

// NowFrom 读一次给定时钟
func NowFrom(c Clock) Seconds {
	return FromTime(c.Now())
}

// FromSeconds 包装一个显式值
func FromSeconds(s float64) Seconds {
	return Seconds(s)
}

// FromTime 转换 time.Time，保留到 float64 能表示的精度（当前时代约亚微秒）
func FromTime(t time.Time) Seconds {
	return Seconds(float64(t.Unix()) + float64(t.Nanosecond())/1e9)
}

func (s Seconds) Float64() float64 {
	return float64(s)
}

// Time 转回 time.Time，精度到微秒
func (s Seconds) Time() time.Time {
	sec, frac := math.Modf(float64(s))
	us := math.Round(frac * 1e6)
	return time.Unix(int64(sec), int64(us)*int64(time.Microsecond))
}

// Sub 返回 s - o
func (s Seconds) Sub(o Seconds) time.Duration {
	return time.Duration((float64(s) - float64(o)) * float64(time.Second))
}

func (s Seconds) String() string {
	return strconv.FormatFloat(float64(s), 'f', -1, 64)
}

// MarshalJSON 输出能精确还原 float64 的最短十进制数
func (s Seconds) MarshalJSON() ([]byte, error) {
	f := float64(s)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("epoch: unsupported value %v", f)
	}
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
}

// UnmarshalJSON 接受任意 JSON number，字符串等其他类型报错
func (s *Seconds) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == '"' {
		return fmt.Errorf("epoch: expected JSON number, got %s", data)
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("epoch: %w", err)
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("epoch: %w", err)
	}
	*s = Seconds(f)
	return nil
}
