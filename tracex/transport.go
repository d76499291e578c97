package tracex

import (
	"net/http"

	"github.com/imattdu/xray/xray"
)

// Transport 把出站 HTTP 调用记录成 namespace=remote 的 subsegment，并注入 trace header。
// 请求 ctx 里没有 span 时直接透传。
type Transport struct {
	Base http.RoundTripper
}

func NewTransport(base http.RoundTripper) *Transport {
	return &Transport{Base: base}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if SpanFromContext(req.Context()) == nil {
		return t.base().RoundTrip(req)
	}

	ctx, span := StartSpan(req.Context(), req.URL.Host)
	span.Segment(func(seg *xray.Segment) {
		seg.Namespace = xray.NamespaceRemote
	})
	span.SetHTTPRequest(xray.HTTPRequest{
		Method: req.Method,
		URL:    req.URL.String(),
		Traced: true,
	})

	out := req.Clone(ctx)
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	InjectToHeader(ctx, out.Header)

	resp, err := t.base().RoundTrip(out)
	if err == nil && resp != nil {
		span.SetHTTPResponse(resp.StatusCode, resp.ContentLength)
	}
	endSpan(ctx, span, err, true)
	return resp, err
}
