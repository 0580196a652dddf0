package transcriber

import (
	"errors"
	"fmt"
)

// Configuration errors returned by the constructors.
var (
	ErrNoCredential = errors.New("API key required for cloud transcription")
	ErrNoRecognizer = errors.New("recognizer executable not found")
	ErrNoModelFile  = errors.New("model file not found")
)

type ErrorKind int

const (
	Timeout ErrorKind = iota
	ProcessFailure
	NetworkFailure
	BadResponse
)

func (k ErrorKind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case ProcessFailure:
		return "process failure"
	case NetworkFailure:
		return "network failure"
	case BadResponse:
		return "bad response"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a failed transcription. None of its kinds are fatal.
type Error struct {
	Kind ErrorKind
	Err  error
	// Detail holds recognizer stderr or the response body, truncated.
	Detail string
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the kind of a transcription error.
func KindOf(err error) (ErrorKind, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return 0, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
