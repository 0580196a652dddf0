// Package config loads the dictation settings file and watches it for edits.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type Backend int

const (
	BackendLocal Backend = iota
	BackendCloud
)

func (b Backend) String() string {
	if b == BackendCloud {
		return "api"
	}
	return "local"
}

func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "local":
		return BackendLocal, nil
	case "api", "cloud":
		return BackendCloud, nil
	}
	return BackendLocal, fmt.Errorf("unknown transcription backend %q", s)
}

// Settings is an immutable snapshot of the configuration file plus
// environment overrides.
type Settings struct {
	Hotkey               string `yaml:"hotkey"`
	RecordingMode        string `yaml:"recording_mode"`
	TranscriptionBackend string `yaml:"transcription_backend"`
	LocalModel           string `yaml:"local_model"`
	Language             string `yaml:"language"`
	OpenAIAPIKey         string `yaml:"openai_api_key"`
	APIURL               string `yaml:"api_url"`
	APIModel             string `yaml:"api_model"`
	UploadFormat         string `yaml:"upload_format"`
	WhisperCommand       string `yaml:"whisper_command"`
	ModelsDir            string `yaml:"models_dir"`
	BundledModelsDir     string `yaml:"bundled_models_dir"`
	InjectMode           string `yaml:"inject_mode"`
	PressEnter           bool   `yaml:"press_enter"`
	ShowNotifications    bool   `yaml:"show_notifications"`
	AutoStart            bool   `yaml:"auto_start"`
	OverlayPosition      string `yaml:"overlay_position"`
}

func (s Settings) Backend() Backend {
	b, _ := ParseBackend(s.TranscriptionBackend)
	return b
}

func Default() Settings {
	s := Settings{
		Hotkey:               "right ctrl",
		RecordingMode:        "hold",
		TranscriptionBackend: "local",
		LocalModel:           "small",
		Language:             "de",
		APIURL:               "https://api.openai.com/v1/audio/transcriptions",
		APIModel:             "whisper-1",
		UploadFormat:         "wav",
		WhisperCommand:       "whisper-cli",
		InjectMode:           "auto",
		ShowNotifications:    true,
		OverlayPosition:      "top center",
	}
	if dir, err := os.UserConfigDir(); err == nil {
		s.ModelsDir = filepath.Join(dir, "dictate", "models")
	}
	if exe, err := os.Executable(); err == nil {
		s.BundledModelsDir = filepath.Join(filepath.Dir(exe), "models")
	}
	return s
}

// DefaultPath returns $DICTATE_CONFIG or <UserConfigDir>/dictate/config.yaml.
func DefaultPath() (string, error) {
	if p := os.Getenv("DICTATE_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "dictate", "config.yaml"), nil
}

// readFile returns defaults overlaid with the file contents. A missing file
// is not an error.
func readFile(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse config file: %w", err)
	}
	return s, nil
}

// Load reads path, applies environment overrides and validates the result.
func Load(path string) (Settings, error) {
	s, err := readFile(path)
	if err != nil {
		return s, err
	}
	applyEnvOverrides(&s)
	if err := validate(s); err != nil {
		return s, err
	}
	return s, nil
}

func applyEnvOverrides(s *Settings) {
	overrideString(&s.Hotkey, "DICTATE_HOTKEY")
	overrideString(&s.RecordingMode, "DICTATE_RECORDING_MODE")
	overrideString(&s.TranscriptionBackend, "DICTATE_BACKEND")
	overrideString(&s.LocalModel, "DICTATE_LOCAL_MODEL")
	overrideString(&s.Language, "DICTATE_LANGUAGE")
	overrideString(&s.APIURL, "DICTATE_API_URL")
	overrideString(&s.WhisperCommand, "DICTATE_WHISPER_COMMAND")
	overrideString(&s.ModelsDir, "DICTATE_MODELS_DIR")
	overrideBool(&s.ShowNotifications, "DICTATE_NOTIFICATIONS")
	if s.OpenAIAPIKey == "" {
		overrideString(&s.OpenAIAPIKey, "OPENAI_API_KEY")
	}
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func validate(s Settings) error {
	switch strings.ToLower(s.RecordingMode) {
	case "hold", "toggle":
	default:
		return fmt.Errorf("recording_mode must be hold or toggle, got %q", s.RecordingMode)
	}
	if _, err := ParseBackend(s.TranscriptionBackend); err != nil {
		return err
	}
	switch s.UploadFormat {
	case "wav", "flac":
	default:
		return fmt.Errorf("upload_format must be wav or flac, got %q", s.UploadFormat)
	}
	switch s.InjectMode {
	case "auto", "type", "paste":
	default:
		return fmt.Errorf("inject_mode must be auto, type or paste, got %q", s.InjectMode)
	}
	if strings.TrimSpace(s.Hotkey) == "" {
		return errors.New("hotkey must not be empty")
	}
	return nil
}

// Store holds the current settings. The only value written back to disk is
// the local model, when the pipeline falls back to an installed one.
type Store struct {
	path string

	mu   sync.RWMutex
	cur  Settings
	file Settings

	writeMu sync.Mutex
}

func Open(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	st := &Store{path: path}
	if _, err := st.Reload(); err != nil {
		return nil, err
	}
	return st, nil
}

func (st *Store) Path() string { return st.path }

func (st *Store) Current() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.cur
}

// Reload rereads the file. On error the previous settings stay in effect.
func (st *Store) Reload() (Settings, error) {
	file, err := readFile(st.path)
	if err != nil {
		return st.Current(), err
	}
	cur := file
	applyEnvOverrides(&cur)
	if err := validate(cur); err != nil {
		return st.Current(), err
	}
	st.mu.Lock()
	st.cur = cur
	st.file = file
	st.mu.Unlock()
	return cur, nil
}

// SetLocalModel persists name as the preferred local model.
func (st *Store) SetLocalModel(name string) error {
	st.mu.Lock()
	st.cur.LocalModel = name
	st.file.LocalModel = name
	file := st.file
	st.mu.Unlock()

	st.writeMu.Lock()
	defer st.writeMu.Unlock()
	return writeFile(st.path, file)
}

func writeFile(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
