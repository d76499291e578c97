//go:build unix

package xray

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// socketControl 在 bind 之前设置 O_NONBLOCK 和可选的 SO_SNDBUF
func socketControl(cfg Config) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		var err error
		ctrlErr := c.Control(func(fd uintptr) {
			if err = unix.SetNonblock(int(fd), true); err != nil {
				return
			}
			if cfg.SendBufferBytes > 0 {
				err = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, cfg.SendBufferBytes)
			}
		})
		if ctrlErr != nil {
			return ctrlErr
		}
		return err
	}
}

// write 直接对 fd 做一次 write。回调永远返回 true，EAGAIN 原样返回而不是挂到 poller 上等待。
func (c *Client) write(pkt []byte) (int, error) {
	var (
		n    int
		wErr error
	)
	err := c.raw.Write(func(fd uintptr) bool {
		n, wErr = unix.Write(int(fd), pkt)
		return true
	})
	if err != nil {
		return 0, err
	}
	return n, wErr
}
