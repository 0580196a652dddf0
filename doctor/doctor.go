// Package doctor runs an interactive self check of the dictation chain.
package doctor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"dictate/audio"
	"dictate/config"
	"dictate/encoder"
	"dictate/hotkey"
	"dictate/inject"
	"dictate/models"
	"dictate/pipeline"
	"dictate/transcriber"
)

const steps = 4

// Run executes the checks in order and returns an exit code (0=all pass,
// 1=any fail). Later checks are skipped once one fails.
func Run(s config.Settings, store *models.Store) int {
	saveTerminal()
	exitOnInterrupt()

	fmt.Println("dictate doctor - interactive system diagnostics")
	fmt.Println("===============================================")

	backend, ok := checkBackend(os.Stdout, s, store, pipeline.DefaultBackends)
	ok = ok && checkHotkey(s)
	ok = ok && checkMicAndTranscription(backend, s)
	ok = ok && checkInjection(s)

	fmt.Println()
	if ok {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func header(w io.Writer, n int, title string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "[%d/%d] %s\n", n, steps, title)
}

// checkBackend builds the configured transcription backend without the
// fallback the pipeline applies, so a misconfigured model is reported.
func checkBackend(w io.Writer, s config.Settings, store *models.Store, backends pipeline.BackendFactory) (transcriber.Backend, bool) {
	header(w, 1, "Transcription backend")

	if s.Backend() == config.BackendCloud {
		b, err := backends.Cloud(s)
		if err != nil {
			fmt.Fprintf(w, "  FAIL: %v\n", err)
			fmt.Fprintln(w, "  Set openai_api_key in the config file or OPENAI_API_KEY in the environment.")
			return nil, false
		}
		fmt.Fprintf(w, "  PASS: cloud backend %s (%s)\n", s.APIURL, s.APIModel)
		return b, true
	}

	installed := store.Installed()
	if len(installed) == 0 {
		fmt.Fprintln(w, "  FAIL: no local model installed")
		fmt.Fprintln(w, "  Fix with: dictate models download tiny")
		return nil, false
	}
	fmt.Fprintf(w, "  installed models: %s\n", strings.Join(installed, ", "))

	path, err := store.Path(s.LocalModel)
	if err != nil {
		fmt.Fprintf(w, "  FAIL: configured model %q: %v\n", s.LocalModel, err)
		return nil, false
	}
	b, err := backends.Local(path, s)
	if err != nil {
		fmt.Fprintf(w, "  FAIL: %v\n", err)
		return nil, false
	}
	fmt.Fprintf(w, "  PASS: %s with %s\n", s.WhisperCommand, path)
	return b, true
}

// reportSuppression says whether the hotkey also reaches the focused
// application.
func reportSuppression(w io.Writer, suppressed bool) {
	if suppressed {
		fmt.Fprintln(w, "  bound key is consumed, other applications do not see it")
		return
	}
	fmt.Fprintln(w, "  NOTE: input devices are read without grabbing, so the bound key also")
	fmt.Fprintln(w, "  reaches the focused application. Pick a key that types nothing (e.g. f13, right ctrl).")
}

func checkHotkey(s config.Settings) bool {
	header(os.Stdout, 2, "Hotkey detection")

	msg, err := hotkey.Diagnose()
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  %s\n", msg)
	reportSuppression(os.Stdout, hotkey.Suppressed)

	pressed := make(chan struct{}, 1)
	released := make(chan struct{}, 1)
	m := hotkey.NewMachine(hotkey.Open,
		func() bool {
			select {
			case pressed <- struct{}{}:
			default:
			}
			return true
		},
		func() {
			select {
			case released <- struct{}{}:
			default:
			}
		})
	if err := m.Rebind(hotkey.Binding{Key: s.Hotkey, Mode: hotkey.Hold}); err != nil {
		fmt.Printf("  FAIL: could not register hotkey: %v\n", err)
		return false
	}
	defer m.Close()

	fmt.Printf("Press and release %s...\n", s.Hotkey)
	select {
	case <-pressed:
		fmt.Println("  PASS: hotkey detected")
		// wait for the release so it does not leak into the next step
		select {
		case <-released:
		case <-time.After(5 * time.Second):
		}
		// key listeners may leave the terminal in raw mode
		resetTerminal()
		return true
	case <-time.After(10 * time.Second):
		fmt.Println("  FAIL: timeout waiting for hotkey")
		return false
	}
}

func checkMicAndTranscription(backend transcriber.Backend, s config.Settings) bool {
	header(os.Stdout, 3, "Microphone and transcription")

	reader := bufio.NewReader(os.Stdin)

	actx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer actx.Close()

	device, err := audio.SelectDevice(actx)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}

	buf := audio.NewBuffer(actx, audio.CaptureConfig{SampleRate: encoder.SampleRate, Channels: encoder.Channels})
	buf.SetDevice(device)

	fmt.Println()
	fmt.Print("Press Enter and speak for 3 seconds...")
	reader.ReadString('\n')

	if err := buf.Start(); err != nil {
		fmt.Printf("  FAIL: recording error: %v\n", err)
		return false
	}
	fmt.Print("  Recording")
	for i := 0; i < 6; i++ {
		time.Sleep(500 * time.Millisecond)
		fmt.Print(".")
	}
	samples := buf.Stop()
	fmt.Println(" done")

	if len(samples) == 0 {
		fmt.Println("  FAIL: no audio captured")
		return false
	}
	fmt.Printf("  Recorded %.1fs, transcribing...\n", float64(len(samples))/float64(buf.SampleRate()))

	res, err := backend.Transcribe(context.Background(), transcriber.Request{
		Samples:    samples,
		SampleRate: buf.SampleRate(),
		Language:   s.Language,
	})
	if err != nil {
		fmt.Printf("  FAIL: transcription error: %v\n", err)
		return false
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		text = "(no speech detected)"
	}
	fmt.Printf("\n  Transcribed in %s: %s\n\n", res.Duration.Round(time.Millisecond), text)

	if !confirm("Is this correct?") {
		fmt.Println("  FAIL: transcription not confirmed")
		return false
	}
	fmt.Println("  PASS: transcription verified by user")
	return true
}

func checkInjection(s config.Settings) bool {
	header(os.Stdout, 4, "Text injection")

	if err := inject.Verify(); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		fmt.Println("  Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
		return false
	}

	mode, err := inject.ParseMode(s.InjectMode)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	inj := inject.NewSystem(mode)

	fmt.Println("Focus on a text editor window...")
	for i := 5; i > 0; i-- {
		fmt.Printf("  %d...\n", i)
		time.Sleep(1 * time.Second)
	}

	const testStr = "dictate doctor test"
	if err := inj.Inject(testStr); err != nil {
		fmt.Printf("  FAIL: inject failed: %v\n", err)
		return false
	}

	resetTerminal()
	if !confirm(fmt.Sprintf("Did the text %q appear?", testStr)) {
		fmt.Println("  FAIL: injection not confirmed")
		return false
	}
	fmt.Println("  PASS: injection verified by user")
	return true
}

// confirm uses a fresh reader so earlier buffered input is not taken as the
// answer.
func confirm(question string) bool {
	r := bufio.NewReader(os.Stdin)
	fmt.Printf("%s [y/n]: ", question)
	answer, _ := r.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}
