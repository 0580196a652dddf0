package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dictate/audio"
	"dictate/beep"
	"dictate/config"
	"dictate/hotkey"
	"dictate/models"
	"dictate/pipeline"
)

// stdoutInjector prints transcripts instead of typing them.
type stdoutInjector struct{}

func (stdoutInjector) Inject(text string) error {
	fmt.Println(strings.TrimSpace(text))
	return nil
}

func (stdoutInjector) InjectEnter() error {
	fmt.Println("<enter>")
	return nil
}

type stderrNotifier struct{}

func (stderrNotifier) Notify(title, message string) {
	fmt.Fprintf(os.Stderr, "[notify] %s: %s\n", title, message)
}

// runTestMode replays wavPath as the microphone and reads a script from
// stdin: KEYDOWN, KEYUP, WAIT, WAIT_AUDIO_DONE, SLEEP <ms>, QUIT.
func runTestMode(wavPath string, cfg *config.Store, store *models.Store) int {
	beep.Disable()

	fakeCtx, err := audio.NewFakeContextFromWAV(wavPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		return 1
	}
	kb := hotkey.NewFakeKeyboard()

	// cycles receives one value per recording that reached Done or went
	// back to Idle.
	cycles := make(chan pipeline.State, 16)
	var prev pipeline.State
	orch := pipeline.New(pipeline.Config{
		Settings: cfg,
		Recorder: audio.NewBuffer(fakeCtx, captureConfig),
		Injector: stdoutInjector{},
		Models:   store,
		Notifier: stderrNotifier{},
		Hotkeys:  kb.Open,
	})
	orch.Subscribe(pipeline.ObserverFunc(func(s pipeline.State) {
		ended := s == pipeline.Done || (s == pipeline.Idle && prev != pipeline.Idle)
		prev = s
		if ended {
			select {
			case cycles <- s:
			default:
			}
		}
	}))
	defer orch.Close()

	if err := orch.ReloadAfterSettings(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	b, _ := orch.Binding()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch cmd {
		case "":
		case "KEYDOWN":
			kb.Press(b.Key)
		case "KEYUP":
			kb.Release(b.Key)
		case "WAIT":
			<-cycles
		case "WAIT_AUDIO_DONE":
			if c := fakeCtx.Last(); c != nil {
				<-c.AudioDone()
			}
		case "QUIT":
			return 0
		default:
			if ms, ok := strings.CutPrefix(cmd, "SLEEP "); ok {
				if n, err := strconv.Atoi(ms); err == nil {
					time.Sleep(time.Duration(n) * time.Millisecond)
				}
				continue
			}
			fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		}
	}
	return 0
}
