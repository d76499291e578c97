package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imattdu/xray/logx"
)

var accessLogger logx.Logger

// InitAccessLogger logger 为 nil 时写 logs/access.log
func InitAccessLogger(logger logx.Logger) error {
	if logger != nil {
		accessLogger = logger
		return nil
	}

	l, err := logx.New(logx.Config{
		AppName: "access",
		Level:   slog.LevelInfo,
		LogDir:  "logs",
	})
	if err != nil {
		return err
	}
	accessLogger = l
	return nil
}

// AccessMiddleware 访问日志。放在 TraceMiddleware 之后，日志里自动带 trace_id / segment_id。
func AccessMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		l := accessLogger
		if l == nil {
			l = logx.L()
		}
		if l == nil {
			c.Next()
			return
		}

		req := c.Request
		ctx := req.Context()
		fields := []any{
			logx.Remote, c.ClientIP(),
			logx.Method, req.Method,
			logx.Path, req.URL.Path,
			logx.Query, req.URL.RawQuery,
		}
		l.Info(ctx, logx.TagRequestIn, "request in", fields...)

		start := time.Now()
		c.Next()

		fields = append(fields,
			logx.Status, c.Writer.Status(),
			logx.Size, c.Writer.Size(),
			logx.Cost, time.Since(start).Milliseconds(),
		)
		if last := c.Errors.Last(); last != nil {
			fields = append(fields, logx.Err, last.Error())
			l.Warn(ctx, logx.TagRequestOut, "request out", fields...)
			return
		}
		l.Info(ctx, logx.TagRequestOut, "request out", fields...)
	}
}
