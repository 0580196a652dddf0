package transcriber

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"

	"golang.org/x/net/http2"

	"dictate/log"
)

// maxResponse bounds the transcript body read from the server.
const maxResponse = 1 << 20

// TracedClient is an HTTP/2 capable client that records per-request
// network timing.
type TracedClient struct {
	client *http.Client
}

func NewTracedClient(timeout time.Duration) *TracedClient {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if err := http2.ConfigureTransport(tr); err != nil {
		log.Warnf("http2 unavailable, using http/1.1: %v", err)
	}
	return &TracedClient{client: &http.Client{Transport: tr, Timeout: timeout}}
}

type TracedResponse struct {
	Body       []byte
	StatusCode int
	Header     http.Header
	Metrics    *NetworkMetrics
}

// timeline turns httptrace callbacks into NetworkMetrics for one request.
type timeline struct {
	m NetworkMetrics

	getConn, dns, connect, handshake time.Time
	gotConn, headers, request, first time.Time
}

func (t *timeline) hooks() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GetConn: func(string) { t.getConn = time.Now() },
		GotConn: func(info httptrace.GotConnInfo) {
			t.gotConn = time.Now()
			t.m.ConnWait = t.gotConn.Sub(t.getConn)
			t.m.ConnReused = info.Reused
		},
		DNSStart:          func(httptrace.DNSStartInfo) { t.dns = time.Now() },
		DNSDone:           func(httptrace.DNSDoneInfo) { t.m.DNS = time.Since(t.dns) },
		ConnectStart:      func(string, string) { t.connect = time.Now() },
		ConnectDone:       func(string, string, error) { t.m.TCP = time.Since(t.connect) },
		TLSHandshakeStart: func() { t.handshake = time.Now() },
		TLSHandshakeDone: func(cs tls.ConnectionState, _ error) {
			t.m.TLS = time.Since(t.handshake)
			t.m.TLSProtocol = cs.NegotiatedProtocol
		},
		WroteHeaders: func() {
			t.headers = time.Now()
			t.m.ReqHeaders = t.headers.Sub(t.gotConn)
		},
		WroteRequest: func(httptrace.WroteRequestInfo) {
			t.request = time.Now()
			t.m.ReqBody = t.request.Sub(t.headers)
		},
		GotFirstResponseByte: func() {
			t.first = time.Now()
			t.m.TTFB = t.first.Sub(t.request)
		},
	}
}

// Do sends req and reads the whole body.
func (c *TracedClient) Do(req *http.Request) (*TracedResponse, error) {
	tl := &timeline{}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), tl.hooks()))
	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return nil, err
	}
	tl.m.Download = time.Since(tl.first)
	tl.m.Total = time.Since(start)

	return &TracedResponse{
		Body:       body,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Metrics:    &tl.m,
	}, nil
}

// Warm opens a connection to url so the upload after recording can reuse
// it, and returns the TLS handshake time.
func (c *TracedClient) Warm(ctx context.Context, url string) time.Duration {
	tl := &timeline{}
	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, tl.hooks()), http.MethodHead, url, nil)
	if err != nil {
		return 0
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return tl.m.TLS
}
