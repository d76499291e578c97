package epoch

import "time"

// Clock 抽象时间读取，生产用 Real()，测试用 Fixed() 得到确定的时间戳
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Real 返回系统墙上时钟
func Real() Clock { return realClock{} }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// Fixed 返回永远停在 t 的时钟
func Fixed(t time.Time) Clock { return fixedClock{t: t} }
