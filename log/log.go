package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog        zerolog.Logger
	diagFile       *os.File
	transcribeFile *os.File
	logMu          sync.Mutex
	logReady       bool
	pid            int
	dir            string
)

// Metrics describes one finished transcription for the diagnostics log.
type Metrics struct {
	Session      string
	Backend      string
	AudioLengthS float64
	UploadKB     float64
	EncodeTimeMs float64
	DNSTimeMs    float64
	TLSTimeMs    float64
	TTFBMs       float64
	TotalTimeMs  float64
	ConnReused   bool
	TLSProtocol  string
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absPath(flagPath)
	}

	// Priority 2: DICTATE_LOG_PATH environment variable
	if envPath := os.Getenv("DICTATE_LOG_PATH"); envPath != "" {
		return absPath(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

// Init opens the diagnostics and transcript logs in the configured directory.
// Until it succeeds every helper in this package is a no-op.
func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	diagFile, err = os.OpenFile(filepath.Join(dir, "diagnostics_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	transcribeFile, err = os.OpenFile(filepath.Join(dir, "transcribe_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		diagFile = nil
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if transcribeFile != nil {
		transcribeFile.Close()
		transcribeFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func StateChange(session, from, to string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", session).
		Str("from", from).
		Str("to", to).
		Msg("state")
}

func TranscriptionMetrics(m Metrics) {
	if !logReady {
		return
	}

	ev := diagLog.Info().
		Str("session", m.Session).
		Str("backend", m.Backend).
		Float64("audio_s", m.AudioLengthS).
		Float64("encode_ms", m.EncodeTimeMs).
		Float64("total_ms", m.TotalTimeMs)
	if m.UploadKB > 0 {
		conn := "new"
		if m.ConnReused {
			conn = "reused"
		}
		ev = ev.Float64("upload_kb", m.UploadKB).
			Float64("dns_ms", m.DNSTimeMs).
			Float64("tls_ms", m.TLSTimeMs).
			Float64("ttfb_ms", m.TTFBMs).
			Str("conn", conn)
		if m.TLSProtocol != "" {
			ev = ev.Str("tls_proto", m.TLSProtocol)
		}
	}
	ev.Msg("transcription")
}

func TranscriptionText(text string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	line := fmt.Sprintf("%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, text)
	transcribeFile.WriteString(line)
}

func DownloadEvent(name string, bytes int64, dur time.Duration, err error) {
	if !logReady {
		return
	}
	ev := diagLog.Info()
	if err != nil {
		ev = diagLog.Error().Err(err)
	}
	ev.Str("model", name).
		Int64("bytes", bytes).
		Float64("elapsed_s", dur.Seconds()).
		Msg("model_download")
}

func SessionStart(backend, mode, hotkey string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("backend", backend).
		Str("mode", mode).
		Str("hotkey", hotkey).
		Msg("session_start")
}

func SessionEnd(count int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("count", count).
		Msg("session_end")
}
