package inject

import "sync"

// Recorder is an in-memory injector for tests.
type Recorder struct {
	mu       sync.Mutex
	texts    []string
	enters   int
	Err      error
	EnterErr error
}

func (r *Recorder) Inject(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return r.Err
}

func (r *Recorder) InjectEnter() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enters++
	return r.EnterErr
}

func (r *Recorder) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

func (r *Recorder) Enters() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enters
}
