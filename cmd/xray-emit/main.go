// xray-emit 向 X-Ray daemon 发送测试 segment，用来检查 daemon 地址和网络是否可用。
//
//	xray-emit --address 127.0.0.1:2000 --name orders --count 3 --children 2
//
// 每个 segment 的 trace id 和 segment id 打印到 stdout。
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/imattdu/xray/config"
	"github.com/imattdu/xray/epoch"
	"github.com/imattdu/xray/logx"
	"github.com/imattdu/xray/xray"
)

type options struct {
	configPath string
	address    string
	name       string
	lenient    bool
	count      int
	children   int
	inProgress bool
	interval   time.Duration
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var opts options

	flagSet := pflag.NewFlagSet("xray-emit", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "TOML config file")
	flagSet.StringVarP(&opts.address, "address", "a", "", "daemon address ip:port (overrides config and "+config.EnvDaemonAddress+")")
	flagSet.StringVarP(&opts.name, "name", "n", "", "segment name (overrides config and "+config.EnvTracingName+")")
	flagSet.BoolVar(&opts.lenient, "lenient", false, "fall back to "+xray.DefaultAddress+" when the address is invalid")
	flagSet.IntVar(&opts.count, "count", 1, "number of segments to send")
	flagSet.IntVar(&opts.children, "children", 0, "subsegments sent per segment")
	flagSet.BoolVar(&opts.inProgress, "in-progress", false, "also send an in-progress document before each finished segment")
	flagSet.DurationVar(&opts.interval, "interval", 0, "pause between segments")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if flagSet.Changed("address") {
		cfg.DaemonAddress = opts.address
	}
	if flagSet.Changed("name") {
		cfg.ServiceName = opts.name
	}
	if flagSet.Changed("lenient") {
		cfg.Lenient = opts.lenient
	}

	if err := logx.Init(cfg.LogConfig()); err != nil {
		return err
	}
	defer logx.Shutdown()

	client, err := config.NewClient(cfg, nil)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := context.Background()
	logx.Info(ctx, logx.TagSegmentSend, "emitting segments",
		logx.Address, client.RemoteAddr().String(),
		logx.Fallback, client.Fallback(),
	)

	for i := 0; i < opts.count; i++ {
		if i > 0 && opts.interval > 0 {
			time.Sleep(opts.interval)
		}
		seg, err := emit(client, cfg, opts, i)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", seg.TraceID, seg.ID)
	}
	return nil
}

// emit 发送一个 segment 以及它的 subsegment
func emit(client *xray.Client, cfg config.Config, opts options, seq int) (*xray.Segment, error) {
	seg := xray.NewSegment(cfg.ServiceName, xray.NewTraceID(), nil, epoch.Now())
	if cfg.ServiceVersion != "" {
		seg.Service = &xray.Service{Version: cfg.ServiceVersion}
	}
	if err := seg.SetAnnotation("seq", seq); err != nil {
		return nil, err
	}
	seg.SetMetadata("xray-emit", "children", opts.children)

	if opts.inProgress {
		if err := client.Send(seg); err != nil {
			return nil, err
		}
	}

	for j := 0; j < opts.children; j++ {
		child := seg.Child(fmt.Sprintf("%s-child-%d", cfg.ServiceName, j), epoch.Now())
		child.End(epoch.Now())
		if err := client.Send(child); err != nil {
			return nil, err
		}
	}

	seg.End(epoch.Now())
	if err := client.Send(seg); err != nil {
		return nil, err
	}
	return seg, nil
}
