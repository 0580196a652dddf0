package transcriber

import (
	"context"
	"sync"
	"time"
)

// Fake returns a fixed text or error. Set Block to hold Transcribe until
// the channel is closed.
type Fake struct {
	Text  string
	Err   error
	Block chan struct{}

	kind Kind

	mu       sync.Mutex
	requests []Request
}

func NewFake(text string, err error) *Fake {
	return &Fake{Text: text, Err: err}
}

// NewFakeKind reports kind from Kind.
func NewFakeKind(kind Kind, text string, err error) *Fake {
	return &Fake{Text: text, Err: err, kind: kind}
}

func (f *Fake) Kind() Kind { return f.kind }
func (f *Fake) sealed()    {}

func (f *Fake) Transcribe(ctx context.Context, req Request) (Result, error) {
	if len(req.Samples) == 0 {
		return Result{}, nil
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.Block != nil {
		select {
		case <-f.Block:
		case <-ctx.Done():
			return Result{}, &Error{Kind: Timeout, Err: ctx.Err()}
		}
	}
	if f.Err != nil {
		return Result{}, f.Err
	}
	return Result{Text: f.Text, Duration: time.Millisecond}, nil
}

// Calls counts Transcribe calls that reached the recognizer.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *Fake) LastRequest() (Request, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return Request{}, false
	}
	return f.requests[len(f.requests)-1], true
}
