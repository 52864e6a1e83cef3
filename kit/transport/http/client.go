package http

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/percussion/tenantd/kit/tracing"
)

// NewURL joins addr and the path elements, escaping each element.
func NewURL(addr string, elem ...string) (*url.URL, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}
	parts := make([]string, 0, len(elem)+1)
	parts = append(parts, "/"+u.Path)
	for _, e := range elem {
		parts = append(parts, url.PathEscape(e))
	}
	u.RawPath = path.Join(parts...)
	u.Path, err = url.PathUnescape(u.RawPath)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// NewClient returns an http.Client that pools connections and injects a span.
func NewClient(scheme string, insecure bool, timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if scheme == "https" && insecure {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &SpanTransport{
			base: tr,
		},
	}
}

// SpanTransport injects the http.RoundTripper.RoundTrip() request
// with a span.
type SpanTransport struct {
	base http.RoundTripper
}

// NewSpanTransport wraps base. A nil base uses http.DefaultTransport.
func NewSpanTransport(base http.RoundTripper) *SpanTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &SpanTransport{base: base}
}

// RoundTrip implements the http.RoundTripper, intercepting the base
// round trippers call and injecting a span.
func (s *SpanTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	span, _ := tracing.StartSpanFromContextWithOperationName(r.Context(), r.Method+" "+r.URL.Path)
	defer span.Finish()
	tracing.InjectToHTTPRequest(span, r)
	return s.base.RoundTrip(r)
}
