package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"dictate/encoder"
	"dictate/log"
)

const DefaultLocalTimeout = 60 * time.Second

type LocalConfig struct {
	// Command is the recognizer command line, e.g. "whisper-cli" or
	// "/opt/whisper/main -t 4".
	Command   string
	ModelPath string
	Timeout   time.Duration
	TempDir   string
}

// Local runs a whisper.cpp style executable on a temporary WAV file.
type Local struct {
	argv    []string
	model   string
	timeout time.Duration
	tempDir string
}

func NewLocal(cfg LocalConfig) (*Local, error) {
	parser := shellwords.NewParser()
	argv, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse recognizer command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: command is empty", ErrNoRecognizer)
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRecognizer, err)
	}
	argv[0] = path

	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoModelFile, cfg.ModelPath)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultLocalTimeout
	}
	return &Local{argv: argv, model: cfg.ModelPath, timeout: timeout, tempDir: cfg.TempDir}, nil
}

func (l *Local) Kind() Kind { return KindLocal }
func (l *Local) sealed()    {}

func (l *Local) Transcribe(ctx context.Context, req Request) (Result, error) {
	if len(req.Samples) == 0 {
		return Result{}, nil
	}
	start := time.Now()

	f, err := os.CreateTemp(l.tempDir, "dictate-*.wav")
	if err != nil {
		return Result{}, &Error{Kind: ProcessFailure, Err: fmt.Errorf("temp file: %w", err)}
	}
	wavPath := f.Name()
	defer os.Remove(wavPath)

	encStart := time.Now()
	err = encoder.WriteWAV(f, req.Samples, req.SampleRate)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Result{}, &Error{Kind: ProcessFailure, Err: err}
	}
	encodeTime := time.Since(encStart)

	lang := req.Language
	if lang == "" {
		lang = "auto"
	}
	args := append([]string{}, l.argv[1:]...)
	args = append(args, "-m", l.model, "-f", wavPath, "-l", lang, "--no-timestamps")

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, l.argv[0], args...)
	cmd.WaitDelay = 2 * time.Second
	hideWindow(cmd)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Errorf("recognizer timed out after %s", l.timeout)
			return Result{}, &Error{Kind: Timeout, Err: fmt.Errorf("recognizer exceeded %s", l.timeout)}
		}
		detail := truncate(strings.TrimSpace(stderr.String()), 512)
		log.Errorf("recognizer failed: %v: %s", err, detail)
		return Result{}, &Error{Kind: ProcessFailure, Err: err, Detail: detail}
	}

	return Result{
		Text:       cleanTranscript(stdout.String()),
		Duration:   time.Since(start),
		EncodeTime: encodeTime,
	}, nil
}

// cleanTranscript joins output lines and drops whole-line markers such as
// "[BLANK_AUDIO]".
func cleanTranscript(out string) string {
	var parts []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if (strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]")) ||
			(strings.HasPrefix(line, "(") && strings.HasSuffix(line, ")")) {
			continue
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, " ")
}
