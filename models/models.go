// Package models manages the whisper.cpp model files used by the local
// recognizer: which are installed, where they live, and fetching new ones.
package models

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TempSuffix marks a download in progress. A file with this suffix is never
// reported as installed.
const TempSuffix = ".downloading"

const (
	DefaultChunkSize = 256 * 1024
	connectTimeout   = 30 * time.Second
)

var (
	ErrUnknownModel       = errors.New("unknown model")
	ErrDownloadInProgress = errors.New("already downloading")
)

type Model struct {
	Name        string
	FileName    string
	SizeBytes   int64
	URL         string
	Description string
}

// SizeMB is the catalog size rounded for display.
func (m Model) SizeMB() int64 { return m.SizeBytes / (1000 * 1000) }

const hfBase = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// Catalog lists the installable models, smallest first. Fallback picks the
// first installed entry in this order.
var Catalog = []Model{
	{Name: "tiny", FileName: "ggml-tiny.bin", SizeBytes: 75_000_000, URL: hfBase + "ggml-tiny.bin", Description: "Fastest, lower accuracy"},
	{Name: "base", FileName: "ggml-base.bin", SizeBytes: 142_000_000, URL: hfBase + "ggml-base.bin", Description: "Balanced speed & accuracy"},
	{Name: "small", FileName: "ggml-small.bin", SizeBytes: 466_000_000, URL: hfBase + "ggml-small.bin", Description: "Slowest, highest accuracy"},
}

// ProgressFunc is called after each chunk. total is 0 when the server did
// not announce a length.
type ProgressFunc func(name string, downloaded, total int64)

// DoneFunc is called exactly once per accepted download.
type DoneFunc func(name string, ok bool, message string)

type Options struct {
	// Dir is the writable model directory.
	Dir string
	// BundledDir holds models shipped with the application. It is only read.
	BundledDir string
	Catalog    []Model
	Client     *http.Client
	ChunkSize  int
}

type Store struct {
	dir       string
	bundled   string
	catalog   []Model
	client    *http.Client
	chunkSize int

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
	wg       sync.WaitGroup
}

func NewStore(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, errors.New("models: directory not set")
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create models directory: %w", err)
	}
	if opts.Catalog == nil {
		opts.Catalog = Catalog
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
			TLSHandshakeTimeout:   connectTimeout,
			ResponseHeaderTimeout: connectTimeout,
		}}
	}
	return &Store{
		dir:       opts.Dir,
		bundled:   opts.BundledDir,
		catalog:   opts.Catalog,
		client:    opts.Client,
		chunkSize: opts.ChunkSize,
		inflight:  map[string]context.CancelFunc{},
	}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) Catalog() []Model {
	return append([]Model(nil), s.catalog...)
}

func (s *Store) Lookup(name string) (Model, bool) {
	for _, m := range s.catalog {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

// complete reports whether path holds a finished model file: a non-empty
// regular file.
func complete(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular() && fi.Size() > 0
}

func (s *Store) persistentPath(m Model) string {
	return filepath.Join(s.dir, m.FileName)
}

func (s *Store) bundledPath(m Model) string {
	if s.bundled == "" {
		return ""
	}
	return filepath.Join(s.bundled, m.FileName)
}

// IsInstalled checks the writable directory, then the bundled one. The
// filesystem is the only source of truth.
func (s *Store) IsInstalled(name string) bool {
	m, ok := s.Lookup(name)
	if !ok {
		return false
	}
	if complete(s.persistentPath(m)) {
		return true
	}
	if p := s.bundledPath(m); p != "" && complete(p) {
		return true
	}
	return false
}

// Installed returns installed model names in catalog order.
func (s *Store) Installed() []string {
	var names []string
	for _, m := range s.catalog {
		if s.IsInstalled(m.Name) {
			names = append(names, m.Name)
		}
	}
	return names
}

// Path resolves where name is installed, preferring the writable directory.
func (s *Store) Path(name string) (string, error) {
	m, ok := s.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	if p := s.persistentPath(m); complete(p) {
		return p, nil
	}
	if p := s.bundledPath(m); p != "" && complete(p) {
		return p, nil
	}
	return "", fmt.Errorf("model %q is not installed", name)
}

// Delete removes the model from the writable directory. Bundled copies are
// left alone. Deleting an absent model succeeds.
func (s *Store) Delete(name string) error {
	m, ok := s.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	if err := os.Remove(s.persistentPath(m)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete model %s: %w", name, err)
	}
	return nil
}

func (s *Store) Downloading(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[name]
	return ok
}

// Cancel aborts an in-flight download. It reports whether one was running.
func (s *Store) Cancel(name string) bool {
	s.mu.Lock()
	cancel, ok := s.inflight[name]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Wait blocks until every accepted download has called its DoneFunc.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Close cancels all downloads and waits for them to clean up.
func (s *Store) Close() {
	s.mu.Lock()
	for _, cancel := range s.inflight {
		cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}
