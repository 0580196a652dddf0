package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"dictate/log"
)

type FailureKind int

const (
	NetworkFailure FailureKind = iota
	DiskFailure
)

type DownloadError struct {
	Kind FailureKind
	Err  error
}

func (e *DownloadError) Error() string {
	if e.Kind == DiskFailure {
		return "disk: " + e.Err.Error()
	}
	return "network: " + e.Err.Error()
}

func (e *DownloadError) Unwrap() error { return e.Err }

func netErr(err error) error  { return &DownloadError{Kind: NetworkFailure, Err: err} }
func diskErr(err error) error { return &DownloadError{Kind: DiskFailure, Err: err} }

// Download fetches name in the background. It returns an error without
// calling onDone when the model is unknown or already being fetched.
// Either callback may be nil.
func (s *Store) Download(name string, onProgress ProgressFunc, onDone DoneFunc) error {
	m, ok := s.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}

	s.mu.Lock()
	if _, busy := s.inflight[name]; busy {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", name, ErrDownloadInProgress)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.inflight[name] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		start := time.Now()
		n, err := s.fetch(ctx, m, onProgress)
		cancel()

		s.mu.Lock()
		delete(s.inflight, name)
		s.mu.Unlock()

		log.DownloadEvent(name, n, time.Since(start), err)
		if onDone == nil {
			return
		}
		if err != nil {
			onDone(name, false, err.Error())
			return
		}
		onDone(name, true, "")
	}()
	return nil
}

// fetch streams m into <dest>.downloading and renames it into place. The
// temp file is removed on every failure.
func (s *Store) fetch(ctx context.Context, m Model, onProgress ProgressFunc) (written int64, err error) {
	dest := s.persistentPath(m)
	tmp := dest + TempSuffix

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.URL, nil)
	if err != nil {
		return 0, netErr(err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, netErr(cancelled(ctx, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, netErr(fmt.Errorf("download %s: %s", m.FileName, resp.Status))
	}

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return 0, diskErr(err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	buf := make([]byte, s.chunkSize)
	for {
		n, rerr := fill(resp.Body, buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return written, diskErr(werr)
			}
			written += int64(n)
			if onProgress != nil {
				onProgress(m.Name, written, total)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return written, netErr(cancelled(ctx, rerr))
		}
	}
	if total > 0 && written != total {
		return written, netErr(fmt.Errorf("short read: %d of %d bytes", written, total))
	}
	if err := ctx.Err(); err != nil {
		return written, netErr(errors.New("cancelled"))
	}

	if err = f.Sync(); err != nil {
		return written, diskErr(err)
	}
	if err = f.Close(); err != nil {
		return written, diskErr(err)
	}
	if rerr := os.Remove(dest); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
		return written, diskErr(rerr)
	}
	if rerr := os.Rename(tmp, dest); rerr != nil {
		return written, diskErr(rerr)
	}
	return written, nil
}

// fill reads until buf is full or the body fails. Unlike io.ReadFull it
// keeps the body's own error, so a truncated body is never mistaken for a
// clean io.EOF.
func fill(r io.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func cancelled(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errors.New("cancelled")
	}
	return err
}
