// Package config 读取 TOML 配置文件，再用 AWS_XRAY_* 环境变量覆盖。
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/imattdu/xray/errorx"
	"github.com/imattdu/xray/logx"
	"github.com/imattdu/xray/tracex"
	"github.com/imattdu/xray/xray"
)

const (
	EnvDaemonAddress = "AWS_XRAY_DAEMON_ADDRESS"
	EnvTracingName   = "AWS_XRAY_TRACING_NAME"
)

type Config struct {
	DaemonAddress   string
	Lenient         bool
	SendBufferBytes int

	ServiceName    string
	ServiceVersion string
	SamplingRate   float64

	Log LogConfig
}

type LogConfig struct {
	AppName string
	Level   string
	LogDir  string
	Console bool
}

// Default 不读文件时的配置
func Default() Config {
	return Config{
		DaemonAddress: xray.DefaultAddress,
		Lenient:       true,
		ServiceName:   "app",
		SamplingRate:  1,
		Log: LogConfig{
			AppName: "xray",
			Level:   "info",
		},
	}
}

// Load 以 Default 为底读取 path（为空则跳过文件），最后应用环境变量
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, errorx.NewBiz(errorx.ErrInvalidFormat,
				errorx.WithMessage("load config failed"),
				errorx.WithCause(err),
				errorx.WithField("path", path),
			)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvDaemonAddress); ok && v != "" {
		c.DaemonAddress = v
	}
	if v, ok := os.LookupEnv(EnvTracingName); ok && v != "" {
		c.ServiceName = v
	}
}

// LogConfig 转成 logx.Config
func (c Config) LogConfig() logx.Config {
	return logx.Config{
		AppName:        c.Log.AppName,
		Level:          logx.ParseLevel(c.Log.Level),
		LogDir:         c.Log.LogDir,
		ConsoleEnabled: c.Log.Console,
	}
}

// Sampler 按 SamplingRate 生成采样器
func (c Config) Sampler() tracex.Sampler {
	return tracex.RateSampler(c.SamplingRate)
}

// NewClient 按 Lenient 选择 Dial / DialLenient。logger 为 nil 时用 logx 全局 logger。
func NewClient(c Config, logger logx.Logger) (*xray.Client, error) {
	opts := []xray.Option{xray.WithSendBuffer(c.SendBufferBytes)}
	if logger != nil {
		opts = append(opts, xray.WithLogger(logger))
	}
	if c.Lenient {
		return xray.DialLenient(c.DaemonAddress, opts...)
	}
	return xray.Dial(c.DaemonAddress, opts...)
}
