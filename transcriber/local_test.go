//go:build !windows

package transcriber

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeRecognizer writes an executable shell script that logs its arguments
// to args.txt next to it and then runs body.
func fakeRecognizer(t *testing.T, body string) (cmd, dir string) {
	t.Helper()
	dir = t.TempDir()
	script := filepath.Join(dir, "recognizer")
	content := "#!/bin/sh\necho \"$@\" > " + filepath.Join(dir, "args.txt") + "\n" + body + "\n"
	if err := os.WriteFile(script, []byte(content), 0755); err != nil {
		t.Fatal(err)
	}
	return script, dir
}

func fakeModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ggml-tiny.bin")
	if err := os.WriteFile(path, []byte("model"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func speech() Request {
	samples := make([]float32, 16000)
	for i := range samples {
		samples[i] = 0.1
	}
	return Request{Samples: samples, SampleRate: 16000, Language: "de"}
}

func wavLeftovers(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "dictate-*.wav"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

func TestLocalSuccess(t *testing.T) {
	cmd, dir := fakeRecognizer(t, "echo '  hello world  '")
	tmp := t.TempDir()
	model := fakeModel(t)
	l, err := NewLocal(LocalConfig{Command: cmd, ModelPath: model, TempDir: tmp})
	if err != nil {
		t.Fatal(err)
	}

	res, err := l.Transcribe(context.Background(), speech())
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "hello world" {
		t.Errorf("text = %q, want %q", res.Text, "hello world")
	}

	args, err := os.ReadFile(filepath.Join(dir, "args.txt"))
	if err != nil {
		t.Fatal(err)
	}
	got := strings.Fields(string(args))
	if len(got) != 7 || got[0] != "-m" || got[1] != model || got[2] != "-f" ||
		got[4] != "-l" || got[5] != "de" || got[6] != "--no-timestamps" {
		t.Errorf("args = %v", got)
	}
	if left := wavLeftovers(t, tmp); len(left) != 0 {
		t.Errorf("temp wav not removed: %v", left)
	}
}

func TestLocalCommandArgsPreserved(t *testing.T) {
	cmd, dir := fakeRecognizer(t, "echo ok")
	l, err := NewLocal(LocalConfig{Command: "'" + cmd + "' -t 4", ModelPath: fakeModel(t), TempDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Transcribe(context.Background(), speech()); err != nil {
		t.Fatal(err)
	}
	args, _ := os.ReadFile(filepath.Join(dir, "args.txt"))
	if !strings.HasPrefix(string(args), "-t 4 -m ") {
		t.Errorf("args = %q, want leading -t 4", args)
	}
}

func TestLocalNonZeroExit(t *testing.T) {
	cmd, _ := fakeRecognizer(t, "echo 'model load failed' >&2\nexit 3")
	tmp := t.TempDir()
	l, err := NewLocal(LocalConfig{Command: cmd, ModelPath: fakeModel(t), TempDir: tmp})
	if err != nil {
		t.Fatal(err)
	}

	res, err := l.Transcribe(context.Background(), speech())
	if res.Text != "" {
		t.Errorf("text = %q, want empty", res.Text)
	}
	if kind, ok := KindOf(err); !ok || kind != ProcessFailure {
		t.Fatalf("err = %v, want ProcessFailure", err)
	}
	if !strings.Contains(err.Error(), "model load failed") {
		t.Errorf("stderr missing from error: %v", err)
	}
	if left := wavLeftovers(t, tmp); len(left) != 0 {
		t.Errorf("temp wav not removed: %v", left)
	}
}

func TestLocalTimeoutKillsProcess(t *testing.T) {
	cmd, _ := fakeRecognizer(t, "exec sleep 10")
	tmp := t.TempDir()
	l, err := NewLocal(LocalConfig{Command: cmd, ModelPath: fakeModel(t), TempDir: tmp, Timeout: 200 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	_, err = l.Transcribe(context.Background(), speech())
	if kind, ok := KindOf(err); !ok || kind != Timeout {
		t.Fatalf("err = %v, want Timeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Transcribe took %s after timeout", elapsed)
	}
	if left := wavLeftovers(t, tmp); len(left) != 0 {
		t.Errorf("temp wav not removed: %v", left)
	}
}

func TestLocalEmptySamplesSkipsProcess(t *testing.T) {
	cmd, dir := fakeRecognizer(t, "echo should-not-run")
	l, err := NewLocal(LocalConfig{Command: cmd, ModelPath: fakeModel(t), TempDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	res, err := l.Transcribe(context.Background(), Request{SampleRate: 16000})
	if err != nil || res.Text != "" {
		t.Fatalf("Transcribe(empty) = %q, %v", res.Text, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "args.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Error("recognizer was invoked for empty input")
	}
}

func TestLocalDropsMarkers(t *testing.T) {
	cmd, _ := fakeRecognizer(t, "echo '[BLANK_AUDIO]'")
	l, err := NewLocal(LocalConfig{Command: cmd, ModelPath: fakeModel(t), TempDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	res, err := l.Transcribe(context.Background(), speech())
	if err != nil || res.Text != "" {
		t.Fatalf("Transcribe = %q, %v; want empty", res.Text, err)
	}
}

func TestNewLocalErrors(t *testing.T) {
	if _, err := NewLocal(LocalConfig{Command: "", ModelPath: fakeModel(t)}); !errors.Is(err, ErrNoRecognizer) {
		t.Errorf("empty command: err = %v", err)
	}
	if _, err := NewLocal(LocalConfig{Command: "definitely-not-a-real-recognizer", ModelPath: fakeModel(t)}); !errors.Is(err, ErrNoRecognizer) {
		t.Errorf("missing binary: err = %v", err)
	}
	cmd, _ := fakeRecognizer(t, "true")
	if _, err := NewLocal(LocalConfig{Command: cmd, ModelPath: filepath.Join(t.TempDir(), "absent.bin")}); !errors.Is(err, ErrNoModelFile) {
		t.Errorf("missing model: err = %v", err)
	}
	if _, err := NewLocal(LocalConfig{Command: "'unterminated", ModelPath: fakeModel(t)}); err == nil {
		t.Error("expected parse error")
	}
}

func TestCleanTranscript(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  hello\n world \n", "hello world"},
		{"[BLANK_AUDIO]\n", ""},
		{"(music)\nreal words\n", "real words"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cleanTranscript(tt.in); got != tt.want {
			t.Errorf("cleanTranscript(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
