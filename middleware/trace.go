package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/imattdu/xray/tracex"
	"github.com/imattdu/xray/xray"
)

// TraceMiddleware 每个请求一个 segment：沿用 X-Amzn-Trace-Id 中的 trace，
// 记录 http.request / http.response，请求结束后交给全局 span hook 上报。
// name 为空时用请求的 Host。
func TraceMiddleware(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := c.Request
		segName := name
		if segName == "" {
			segName = req.Host
		}

		ctx, span, _ := tracex.ExtractRemoteSpan(req.Context(), req.Header, segName)
		span.SetHTTPRequest(xray.HTTPRequest{
			Method:        req.Method,
			URL:           requestURL(c),
			UserAgent:     req.UserAgent(),
			ClientIP:      c.ClientIP(),
			XForwardedFor: req.Header.Get("X-Forwarded-For") != "",
		})
		c.Header(tracex.HeaderTraceID, tracex.ResponseHeader(span))
		c.Request = req.WithContext(ctx)

		c.Next()

		span.SetHTTPResponse(c.Writer.Status(), int64(c.Writer.Size()))
		var err error
		if last := c.Errors.Last(); last != nil {
			err = last.Err
		}
		tracex.EndSpanExplicit(ctx, span, err)
	}
}

func requestURL(c *gin.Context) string {
	req := c.Request
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	if proto := req.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + req.Host + req.URL.RequestURI()
}
