// Package transcriber converts finished recordings to text, either with a
// local recognizer executable or a hosted HTTP endpoint.
package transcriber

import (
	"context"
	"net/http"
	"time"
)

type Kind int

const (
	KindLocal Kind = iota
	KindCloud
)

func (k Kind) String() string {
	if k == KindCloud {
		return "cloud"
	}
	return "local"
}

type Request struct {
	Samples    []float32
	SampleRate int
	Language   string
}

func (r Request) AudioLength() time.Duration {
	if r.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(r.Samples)) * time.Second / time.Duration(r.SampleRate)
}

type Result struct {
	Text       string
	Duration   time.Duration
	EncodeTime time.Duration
	UploadSize int
	Metrics    *NetworkMetrics
}

// Backend is implemented by Local and Cloud only. Transcribe blocks for the
// length of the recognition and must not be called from a key or audio
// callback.
type Backend interface {
	Kind() Kind
	Transcribe(ctx context.Context, req Request) (Result, error)
	sealed()
}

// Warmer is implemented by backends that benefit from opening a connection
// while the user is still speaking.
type Warmer interface {
	Warm()
}

type NetworkMetrics struct {
	DNS         time.Duration
	ConnWait    time.Duration
	TCP         time.Duration
	TLS         time.Duration
	ReqHeaders  time.Duration
	ReqBody     time.Duration
	TTFB        time.Duration
	Download    time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}
