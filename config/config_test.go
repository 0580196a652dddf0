package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DICTATE_HOTKEY", "DICTATE_RECORDING_MODE", "DICTATE_BACKEND",
		"DICTATE_LOCAL_MODEL", "DICTATE_LANGUAGE", "DICTATE_API_URL", "DICTATE_WHISPER_COMMAND",
		"DICTATE_MODELS_DIR", "DICTATE_NOTIFICATIONS", "OPENAI_API_KEY"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if s.Hotkey != "right ctrl" || s.RecordingMode != "hold" || s.LocalModel != "small" || s.Language != "de" {
		t.Errorf("unexpected defaults: %+v", s)
	}
	if s.Backend() != BackendLocal {
		t.Errorf("backend = %v, want local", s.Backend())
	}
	if !s.ShowNotifications {
		t.Error("notifications should default on")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "hotkey: f9\nrecording_mode: toggle\ntranscription_backend: api\nlanguage: en\nunknown_key: 1\n")
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Hotkey != "f9" || s.RecordingMode != "toggle" || s.Language != "en" {
		t.Errorf("file values not applied: %+v", s)
	}
	if s.Backend() != BackendCloud {
		t.Errorf("backend = %v, want api", s.Backend())
	}
	if s.LocalModel != "small" {
		t.Errorf("local_model = %q, want default small", s.LocalModel)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DICTATE_HOTKEY", "f8")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	s, err := Load(writeConfig(t, "hotkey: f9\n"))
	if err != nil {
		t.Fatal(err)
	}
	if s.Hotkey != "f8" {
		t.Errorf("hotkey = %q, want f8", s.Hotkey)
	}
	if s.OpenAIAPIKey != "sk-env" {
		t.Errorf("api key = %q, want sk-env", s.OpenAIAPIKey)
	}
}

func TestFileAPIKeyWinsOverEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	s, err := Load(writeConfig(t, "openai_api_key: sk-file\n"))
	if err != nil {
		t.Fatal(err)
	}
	if s.OpenAIAPIKey != "sk-file" {
		t.Errorf("api key = %q, want sk-file", s.OpenAIAPIKey)
	}
}

func TestValidateRejects(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		body string
	}{
		{"mode", "recording_mode: sometimes\n"},
		{"backend", "transcription_backend: carrier-pigeon\n"},
		{"format", "upload_format: mp3\n"},
		{"inject", "inject_mode: telepathy\n"},
		{"hotkey", "hotkey: \"\"\n"},
		{"yaml", "hotkey: [unterminated\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSetLocalModelPersistsWithoutEnvValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	path := writeConfig(t, "language: en\n")

	st, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.SetLocalModel("tiny"); err != nil {
		t.Fatal(err)
	}
	if got := st.Current().LocalModel; got != "tiny" {
		t.Errorf("current local_model = %q, want tiny", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "local_model: tiny") {
		t.Errorf("file missing local_model, got:\n%s", data)
	}
	if strings.Contains(string(data), "sk-env") {
		t.Error("environment key leaked into config file")
	}

	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.LocalModel != "tiny" || s.Language != "en" {
		t.Errorf("reloaded settings wrong: %+v", s)
	}
}

func TestReloadKeepsPreviousOnError(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "hotkey: f9\n")
	st, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("recording_mode: never\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if st.Current().Hotkey != "f9" {
		t.Errorf("previous settings lost: %+v", st.Current())
	}
}

func TestWatchReportsEdits(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "hotkey: f9\n")
	st, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan Settings, 4)
	done := make(chan error, 1)
	go func() { done <- st.Watch(ctx, func(s Settings) { changed <- s }) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("hotkey: f10\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case s := <-changed:
		if s.Hotkey != "f10" {
			t.Errorf("hotkey = %q, want f10", s.Hotkey)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch: %v", err)
	}
}
