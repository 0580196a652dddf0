package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"dictate/audio"
	"dictate/beep"
	"dictate/config"
	"dictate/doctor"
	"dictate/encoder"
	"dictate/hotkey"
	"dictate/inject"
	"dictate/log"
	"dictate/login"
	"dictate/models"
	"dictate/notify"
	"dictate/pipeline"
	"dictate/shutdown"
)

var version = "dev"

// overlay is the on-screen indicator. It is only set in -gui mode.
type overlay interface {
	pipeline.Observer
	SetPosition(pos string)
	Quit()
}

var (
	guiMode     bool
	guiOverlay  overlay
	guiAudioCtx audio.Context
)

var (
	quitOnce sync.Once
	quitCh   = make(chan struct{})
	runDone  = make(chan struct{})
)

// requestQuit asks run to shut down. Safe to call more than once.
func requestQuit() {
	quitOnce.Do(func() { close(quitCh) })
}

var captureConfig = audio.CaptureConfig{
	SampleRate: encoder.SampleRate,
	Channels:   encoder.Channels,
}

// initCrashLog sends fatal runtime errors to crash_log.txt in the log
// directory. run calls it again once -logpath is known.
func initCrashLog() {
	if log.Dir() == "" {
		d, err := log.ResolveDir("")
		if err != nil {
			return
		}
		log.SetDir(d)
	}
	if err := log.EnsureDir(); err != nil {
		return
	}
	f, err := os.OpenFile(filepath.Join(log.Dir(), "crash_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(f, debug.CrashOptions{})
}

func newModelStore(s config.Settings) (*models.Store, error) {
	return models.NewStore(models.Options{Dir: s.ModelsDir, BundledDir: s.BundledModelsDir})
}

func run() {
	defer close(runDone)

	if len(os.Args) > 1 && os.Args[1] == "models" {
		os.Exit(runModels(os.Args[2:]))
	}

	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven)")
	tuiFlag := flag.Bool("tui", false, "Run with terminal UI")
	flag.Bool("gui", false, "Show the on-screen overlay and tray icon (needs a gui build)")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("dictate %s\n", version)
		os.Exit(0)
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	if logPath != log.Dir() {
		log.SetDir(logPath)
		initCrashLog()
	}
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	cfgPath, err := config.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Open(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", cfgPath, err)
		os.Exit(1)
	}
	settings := cfg.Current()

	store, err := newModelStore(settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *doctorFlag {
		os.Exit(doctor.Run(settings, store))
	}

	if *testFlag {
		args := flag.Args()
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: dictate -test <wav-file>")
			os.Exit(1)
		}
		code := runTestMode(args[0], cfg, store)
		store.Close()
		log.Close()
		os.Exit(code)
	}

	injectMode, err := inject.ParseMode(settings.InjectMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	audioCtx := guiAudioCtx
	if audioCtx == nil {
		audioCtx, err = audio.NewContext()
		if err != nil {
			log.Errorf("audio context init error: %v", err)
			fmt.Fprintf(os.Stderr, "Error initializing audio context: %v\n", err)
			os.Exit(1)
		}
	}
	defer audioCtx.Close()

	rec := audio.NewBuffer(audioCtx, captureConfig)
	device, err := pickDevice(audioCtx, *deviceFlag, *setupFlag)
	if err != nil {
		log.Warnf("device selection failed: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: %v, falling back to the default device\n", err)
	}
	rec.SetDevice(device)

	notifier := notify.NewDesktop(settings.ShowNotifications)
	injector := inject.NewSystem(injectMode)

	var status *statusView
	var out pipeline.Injector = injector
	if *tuiFlag {
		status = newStatusView(deviceName(device))
		out = &echoInjector{Injector: injector, onText: status.Transcript}
	}

	orch := pipeline.New(pipeline.Config{
		Settings: cfg,
		Recorder: rec,
		Injector: out,
		Models:   store,
		Notifier: notifier,
		Hotkeys:  hotkey.Open,
	})
	orch.Subscribe(beep.NewChime())
	if status != nil {
		orch.Subscribe(status)
	} else if !guiMode {
		orch.Subscribe(consoleStatus{})
	}
	if guiOverlay != nil {
		guiOverlay.SetPosition(settings.OverlayPosition)
		orch.Subscribe(guiOverlay)
	}

	applyAutoStart(settings.AutoStart)
	if err := orch.ReloadAfterSettings(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if status != nil {
		status.Settings(settings, orch)
	} else if b, ok := orch.Binding(); ok {
		fmt.Printf("dictate %s ready: %s to record\n", version, b)
	}

	ctx, cancel := shutdown.Context(context.Background())
	defer cancel()
	go func() {
		select {
		case <-quitCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	go func() {
		err := cfg.Watch(ctx, func(s config.Settings) {
			log.Info("settings_reloaded")
			notifier.SetEnabled(s.ShowNotifications)
			if m, err := inject.ParseMode(s.InjectMode); err == nil {
				injector.SetMode(m)
			}
			if guiOverlay != nil {
				guiOverlay.SetPosition(s.OverlayPosition)
			}
			applyAutoStart(s.AutoStart)
			if err := orch.ReloadAfterSettings(); err != nil {
				notifier.Notify("Settings", err.Error())
			}
			if status != nil {
				status.Settings(s, orch)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warnf("config watch: %v", err)
		}
	}()

	if status != nil {
		go func() {
			if err := status.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
			}
			requestQuit()
		}()
	}

	<-ctx.Done()
	log.Info("shutting down")

	orch.Close()
	if status != nil {
		status.Quit()
	}
	if guiOverlay != nil {
		guiOverlay.Quit()
	}
}

func applyAutoStart(enabled bool) {
	if err := login.Apply(enabled); err != nil && !errors.Is(err, login.ErrUnsupported) {
		log.Warnf("auto start: %v", err)
	}
}

// pickDevice resolves -device or -setup. nil means the system default.
func pickDevice(ctx audio.Context, name string, setup bool) (*audio.DeviceInfo, error) {
	switch {
	case name != "":
		return audio.FindDevice(ctx, name)
	case setup:
		return audio.SelectDevice(ctx)
	}
	return nil, nil
}

func deviceName(d *audio.DeviceInfo) string {
	if d == nil {
		return "system default"
	}
	if audio.IsBluetooth(d.Name) {
		return d.Name + " (BT!)"
	}
	return d.Name
}

// echoInjector reports every delivered transcript to onText.
type echoInjector struct {
	pipeline.Injector
	onText func(string)
}

func (e *echoInjector) Inject(text string) error {
	e.onText(text)
	return e.Injector.Inject(text)
}

// consoleStatus prints state changes when no TUI or overlay is shown.
type consoleStatus struct{}

func (consoleStatus) StateChanged(s pipeline.State) {
	switch s {
	case pipeline.Recording:
		fmt.Println("● recording")
	case pipeline.Processing:
		fmt.Println("… transcribing")
	case pipeline.Done:
		fmt.Println("✓ done")
	}
}
