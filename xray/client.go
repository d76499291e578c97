package xray

import (
	"context"
	"encoding/json"
	"net"
	"net/netip"
	"syscall"

	"github.com/imattdu/xray/errorx"
	"github.com/imattdu/xray/logx"
)

const (
	// DefaultAddress daemon 默认监听地址，DialLenient 解析失败时回退到这里
	DefaultAddress = "127.0.0.1:2000"

	// MaxPacketSize IPv4 下单个 UDP 包的最大 payload。常见 segment + 帧头远小于它；
	// 超出时由内核拒绝并以 ErrIO 返回，这一层不做分片或截断。
	MaxPacketSize = 65507
)

// Config 是 Client 的初始化配置
type Config struct {
	// 为 nil 时使用 logx 全局 logger
	Logger logx.Logger

	// SO_SNDBUF，<=0 使用系统默认
	SendBufferBytes int
}

// Option 修改 Client 的 Config
type Option func(*Config)

// WithLogger 指定 warn 日志（如地址回退）的输出
func WithLogger(l logx.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithSendBuffer 设置 socket 的 SO_SNDBUF 字节数
func WithSendBuffer(n int) Option {
	return func(c *Config) { c.SendBufferBytes = n }
}

// Client 持有一个已 connect 的非阻塞 UDP socket，只发不收。
// 并发安全：每次 Send 自己拼完整个包，再做一次 datagram 写。
type Client struct {
	conn     *net.UDPConn
	raw      syscall.RawConn
	fallback bool
}

// New 绑定通配地址上的临时端口、设置非阻塞并 connect 到 addr
func New(addr *net.UDPAddr, opts ...Option) (*Client, error) {
	cfg := newConfig(opts)
	if addr == nil || addr.IP == nil || addr.Port <= 0 || addr.Port > 65535 {
		return nil, errorx.NewBiz(errorx.ErrAddressFormat,
			errorx.WithService(errorx.ServiceDaemon),
			errorx.WithField("address", addr.String()),
		)
	}
	return dial(addr, cfg)
}

// Dial 严格模式：address 必须是 ip:port 字面量（不做 DNS 解析），否则返回 ErrAddressFormat
func Dial(address string, opts ...Option) (*Client, error) {
	cfg := newConfig(opts)
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	return dial(addr, cfg)
}

// DialLenient 宽松模式：address 解析失败时打 warn 日志并回退到 DefaultAddress。
// 回退发生与否可通过 Client.Fallback 观察。socket 层面的失败仍然返回错误。
func DialLenient(address string, opts ...Option) (*Client, error) {
	cfg := newConfig(opts)
	addr, err := ParseAddress(address)
	fallback := false
	if err != nil {
		warn(cfg.Logger, logx.TagAddrFallback, err,
			logx.Address, address,
			logx.Fallback, DefaultAddress,
		)
		addr = net.UDPAddrFromAddrPort(netip.MustParseAddrPort(DefaultAddress))
		fallback = true
	}

	c, err := dial(addr, cfg)
	if err != nil {
		return nil, err
	}
	c.fallback = fallback
	return c, nil
}

// ParseAddress 解析 ip:port 字面量
func ParseAddress(address string) (*net.UDPAddr, error) {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return nil, errorx.NewBiz(errorx.ErrAddressFormat,
			errorx.WithService(errorx.ServiceDaemon),
			errorx.WithCause(err),
			errorx.WithField("address", address),
		)
	}
	if ap.Port() == 0 {
		return nil, errorx.NewBiz(errorx.ErrAddressFormat,
			errorx.WithService(errorx.ServiceDaemon),
			errorx.WithMessage("daemon port must not be 0"),
			errorx.WithField("address", address),
		)
	}
	return net.UDPAddrFromAddrPort(ap), nil
}

func dial(addr *net.UDPAddr, cfg Config) (*Client, error) {
	d := net.Dialer{
		LocalAddr: &net.UDPAddr{},
		Control:   socketControl(cfg),
	}
	conn, err := d.DialContext(context.Background(), "udp", addr.String())
	if err != nil {
		return nil, ioErr(err, "connect daemon socket failed", addr.String())
	}
	udp := conn.(*net.UDPConn)
	raw, err := udp.SyscallConn()
	if err != nil {
		_ = udp.Close()
		return nil, ioErr(err, "access raw socket failed", addr.String())
	}
	return &Client{conn: udp, raw: raw}, nil
}

// Packet 帧头 + JSON(v)，每次调用新分配
func Packet(v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, errorx.NewBiz(errorx.ErrSerialization,
			errorx.WithService(errorx.ServiceDaemon),
			errorx.WithCause(err),
		)
	}
	pkt := make([]byte, 0, len(headerBytes)+len(body))
	pkt = append(pkt, headerBytes...)
	return append(pkt, body...), nil
}

// Send 序列化 v 并以一个 datagram 发出。成功只表示已交给内核，不代表 daemon 收到。
// 不重试；发送缓冲区满、目的不可达、socket 已关闭都返回 ErrIO。
func (c *Client) Send(v any) error {
	pkt, err := Packet(v)
	if err != nil {
		return err
	}
	n, err := c.write(pkt)
	if err != nil {
		return ioErr(err, "send segment failed", c.conn.RemoteAddr().String(), logx.Size, len(pkt))
	}
	if n != len(pkt) {
		return errorx.NewSys(errorx.ErrIO,
			errorx.WithService(errorx.ServiceDaemon),
			errorx.WithMessagef("short datagram write %d/%d", n, len(pkt)),
		)
	}
	return nil
}

// Fallback 为 true 表示 DialLenient 回退到了 DefaultAddress
func (c *Client) Fallback() bool {
	return c.fallback
}

// RemoteAddr daemon 地址
func (c *Client) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// LocalAddr 本地绑定的通配地址和临时端口
func (c *Client) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Close 释放 socket，之后的 Send 返回 ErrIO
func (c *Client) Close() error {
	if err := c.conn.Close(); err != nil {
		return ioErr(err, "close daemon socket failed", c.conn.RemoteAddr().String())
	}
	return nil
}

// -------------------- 小工具 --------------------

func newConfig(opts []Option) Config {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func ioErr(err error, msg, address string, kv ...any) error {
	opts := []errorx.Option{
		errorx.WithService(errorx.ServiceDaemon),
		errorx.WithMessage(msg),
		errorx.WithCause(err),
		errorx.WithField(logx.Address, address),
	}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			opts = append(opts, errorx.WithField(k, kv[i+1]))
		}
	}
	return errorx.NewSys(errorx.ErrIO, opts...)
}

// warn 没有注入 logger 时走 logx 包级函数，logx 未初始化时落到 slog.Default()
func warn(l logx.Logger, tag string, msg any, kv ...any) {
	ctx := context.Background()
	if l != nil {
		l.Warn(ctx, tag, msg, kv...)
		return
	}
	logx.Warn(ctx, tag, msg, kv...)
}
