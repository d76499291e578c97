// xray-demo 是一个接了 TraceMiddleware 的 gin 服务：每个请求一个 segment，
// 出站 HTTP 调用记为 remote subsegment，结束后经 UDP 发给 X-Ray daemon。
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/imattdu/xray/config"
	"github.com/imattdu/xray/logx"
	"github.com/imattdu/xray/middleware"
	"github.com/imattdu/xray/tracex"
	"github.com/imattdu/xray/xray"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		configPath string
		listen     string
		downstream string
	)
	flagSet := pflag.NewFlagSet("xray-demo", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "TOML config file")
	flagSet.StringVar(&listen, "listen", ":8080", "HTTP listen address")
	flagSet.StringVar(&downstream, "downstream", "", "URL called by /orders/:id (skipped when empty)")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logx.Init(cfg.LogConfig()); err != nil {
		return err
	}
	defer logx.Shutdown()
	if err := middleware.InitAccessLogger(logx.L()); err != nil {
		return err
	}

	client, err := config.NewClient(cfg, nil)
	if err != nil {
		return err
	}
	defer client.Close()

	tracex.SetGlobalSampler(cfg.Sampler())
	tracex.SetGlobalSpanHook(tracex.SendHook(client))
	defer tracex.SetGlobalSpanHook(nil)

	srv := &http.Server{
		Addr:    listen,
		Handler: newRouter(cfg, downstream),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logx.Info(ctx, logx.TagUndef, "xray-demo listening",
			logx.Address, listen,
			"daemon", client.RemoteAddr().String(),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(cfg config.Config, downstream string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(),
		middleware.TraceMiddleware(cfg.ServiceName),
		serviceVersion(cfg.ServiceVersion),
		middleware.AccessMiddleware(),
	)

	httpClient := &http.Client{
		Transport: tracex.NewTransport(http.DefaultTransport),
		Timeout:   3 * time.Second,
	}

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	r.GET("/orders/:id", func(c *gin.Context) {
		ctx := c.Request.Context()
		if span := tracex.SpanFromContext(ctx); span != nil {
			_ = span.SetAnnotation("order_id", c.Param("id"))
		}

		body, err := loadOrder(ctx, httpClient, downstream, c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":       c.Param("id"),
			"trace_id": tracex.TraceIDFromContext(ctx),
			"upstream": body,
		})
	})

	r.GET("/slow", func(c *gin.Context) {
		ctx, _ := tracex.StartSpan(c.Request.Context(), "sleep")
		time.Sleep(50 * time.Millisecond)
		tracex.EndSpan(ctx, nil)
		c.Status(http.StatusNoContent)
	})

	return r
}

// serviceVersion 把版本号写进请求 segment 的 service 字段
func serviceVersion(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if version != "" {
			if span := tracex.SpanFromContext(c.Request.Context()); span != nil {
				span.Segment(func(seg *xray.Segment) {
					seg.Service = &xray.Service{Version: version}
				})
			}
		}
		c.Next()
	}
}

func loadOrder(ctx context.Context, client *http.Client, downstream, id string) (string, error) {
	if downstream == "" {
		return "", nil
	}
	ctx, span := tracex.StartSpan(ctx, "load_order")
	var err error
	defer func() { tracex.EndSpanExplicit(ctx, span, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downstream+"?id="+id, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		err = fmt.Errorf("downstream status %d", resp.StatusCode)
		return "", err
	}
	return string(data), nil
}
