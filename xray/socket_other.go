//go:build !unix

package xray

import "syscall"

func socketControl(Config) func(network, address string, c syscall.RawConn) error {
	return nil
}

// write 非 unix 平台没有可移植的非阻塞 fd 写，走 conn.Write；发送缓冲区满时会等 poller，
// 只有 unix 构建保证 Send 不阻塞。
func (c *Client) write(pkt []byte) (int, error) {
	return c.conn.Write(pkt)
}
