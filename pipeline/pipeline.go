// Package pipeline ties the hotkey, the capture buffer, the transcription
// backend and the text injector into one recording cycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"dictate/config"
	"dictate/hotkey"
	"dictate/log"
	"dictate/models"
	"dictate/transcriber"
)

var (
	// ErrBusy rejects a new recording while the previous one is still
	// being transcribed.
	ErrBusy   = errors.New("previous recording is still processing")
	ErrClosed = errors.New("pipeline closed")
)

type Settings interface {
	Current() config.Settings
	SetLocalModel(name string) error
}

type Recorder interface {
	Start() error
	Stop() []float32
	SampleRate() int
}

type Injector interface {
	Inject(text string) error
	InjectEnter() error
}

type Notifier interface {
	Notify(title, message string)
}

type ModelStore interface {
	IsInstalled(name string) bool
	Installed() []string
	Path(name string) (string, error)
	Download(name string, onProgress models.ProgressFunc, onDone models.DoneFunc) error
	Delete(name string) error
}

type Config struct {
	Settings Settings
	Recorder Recorder
	Injector Injector
	Models   ModelStore
	Notifier Notifier
	Hotkeys  hotkey.Opener
	Backends BackendFactory
}

type job struct {
	session    string
	backend    transcriber.Backend
	req        transcriber.Request
	pressEnter bool
}

type Orchestrator struct {
	settings Settings
	rec      Recorder
	inj      Injector
	models   ModelStore
	notifier Notifier
	backends BackendFactory
	keys     *hotkey.Machine

	mu        sync.Mutex
	state     State
	observers Observers
	backend   transcriber.Backend
	model     string
	buildGen  uint64
	session   string
	count     int
	closed    bool
	jobs      chan job
	wg        sync.WaitGroup
}

// New wires the collaborators. Nothing is bound until ReloadAfterSettings.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		settings: cfg.Settings,
		rec:      cfg.Recorder,
		inj:      cfg.Injector,
		models:   cfg.Models,
		notifier: cfg.Notifier,
		backends: cfg.Backends,
		jobs:     make(chan job, 1),
	}
	if o.backends == nil {
		o.backends = DefaultBackends
	}
	if o.notifier == nil {
		o.notifier = nopNotifier{}
	}
	o.keys = hotkey.NewMachine(cfg.Hotkeys, o.hotkeyStart, o.hotkeyStop)

	o.wg.Add(1)
	go o.worker()
	return o
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string) {}

// Subscribe adds an observer. Observers added later miss earlier states.
func (o *Orchestrator) Subscribe(obs Observer) {
	o.mu.Lock()
	o.observers = append(o.observers, obs)
	o.mu.Unlock()
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// ActiveModel is the local model the current backend was built with, or ""
// for the cloud backend or no backend.
func (o *Orchestrator) ActiveModel() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.model
}

func (o *Orchestrator) Backend() transcriber.Backend {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.backend
}

func (o *Orchestrator) Binding() (hotkey.Binding, bool) {
	return o.keys.Binding()
}

// Transcriptions counts cycles that ended in Done.
func (o *Orchestrator) Transcriptions() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.count
}

// setState must be called with mu held.
func (o *Orchestrator) setState(s State) {
	from := o.state
	o.state = s
	log.StateChange(o.session, from.String(), s.String())
	o.observers.StateChanged(s)
}

// ReloadAfterSettings rebuilds the backend and rebinds the hotkey from the
// current settings. A recording in flight keeps the backend it captured.
func (o *Orchestrator) ReloadAfterSettings() error {
	s := o.settings.Current()
	mode, err := hotkey.ParseMode(s.RecordingMode)
	if err != nil {
		return err
	}
	o.rebuildBackend()
	// Rebind may fire hotkeyStop, which takes mu.
	if err := o.keys.Rebind(hotkey.Binding{Key: s.Hotkey, Mode: mode}); err != nil {
		log.Errorf("hotkey: %v", err)
		return err
	}
	log.SessionStart(o.backendLabel(), mode.String(), s.Hotkey)
	return nil
}

// rebuildBackend builds without holding any lock: the checks stat files
// and look up the recognizer. Of overlapping rebuilds the last one started
// wins.
func (o *Orchestrator) rebuildBackend() {
	o.mu.Lock()
	o.buildGen++
	gen := o.buildGen
	o.mu.Unlock()

	s := o.settings.Current()
	b, model := o.buildBackend(s)

	o.mu.Lock()
	current := gen == o.buildGen
	if current {
		o.backend = b
		o.model = model
	}
	o.mu.Unlock()

	if current && model != "" && model != s.LocalModel {
		o.persistFallback(s.LocalModel, model)
	}
}

func (o *Orchestrator) backendLabel() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.backend == nil:
		return "none"
	case o.model != "":
		return o.backend.Kind().String() + ":" + o.model
	}
	return o.backend.Kind().String()
}

// hotkeyStart reports whether a recording is now running, so a refused
// press leaves the hotkey idle.
func (o *Orchestrator) hotkeyStart() bool {
	err := o.StartRecording()
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrBusy):
		log.Warn(err.Error())
	default:
		log.Errorf("start recording: %v", err)
		o.notifier.Notify("Recording Failed", err.Error())
	}
	return false
}

func (o *Orchestrator) hotkeyStop() {
	o.StopRecording()
}

// StartRecording arms the capture buffer. It is a no-op while recording and
// fails with ErrBusy while the previous cycle is processing.
func (o *Orchestrator) StartRecording() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	switch o.state {
	case Recording:
		return nil
	case Processing:
		return ErrBusy
	}
	if err := o.rec.Start(); err != nil {
		return err
	}
	o.session = uuid.NewString()
	o.setState(Recording)
	if w, ok := o.backend.(transcriber.Warmer); ok {
		go w.Warm()
	}
	return nil
}

// StopRecording ends the capture and queues the transcription. An empty
// capture goes straight back to Idle.
func (o *Orchestrator) StopRecording() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != Recording {
		return
	}
	samples := o.rec.Stop()
	if len(samples) == 0 {
		log.Warn("no audio captured")
		o.setState(Idle)
		return
	}
	if o.closed {
		o.setState(Idle)
		return
	}
	s := o.settings.Current()
	j := job{
		session: o.session,
		backend: o.backend,
		req: transcriber.Request{
			Samples:    samples,
			SampleRate: o.rec.SampleRate(),
			Language:   s.Language,
		},
		pressEnter: s.PressEnter,
	}
	o.setState(Processing)
	// Only one job exists per Processing period and the worker has already
	// taken the previous one, so this never blocks.
	o.jobs <- j
}

func (o *Orchestrator) worker() {
	defer o.wg.Done()
	for j := range o.jobs {
		o.finish(j.session, o.run(j))
	}
}

func (o *Orchestrator) finish(session string, s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session != session || o.state != Processing {
		return
	}
	if s == Done {
		o.count++
	}
	o.setState(s)
}

// run transcribes one recording and injects the text. It returns the state
// the cycle ends in.
func (o *Orchestrator) run(j job) (end State) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("transcription panic: %v", r)
			end = Idle
		}
	}()

	if j.backend == nil {
		log.Warn("no transcription backend, recording discarded")
		return Idle
	}

	res, err := j.backend.Transcribe(context.Background(), j.req)
	if err != nil {
		log.Errorf("transcription failed: %v", err)
		o.notifier.Notify("Transcription Failed", failureMessage(err))
		return Idle
	}
	o.logMetrics(j, res)

	text := strings.TrimSpace(res.Text)
	if text == "" {
		log.Info("empty transcript")
		return Idle
	}
	log.TranscriptionText(text)

	if err := o.inj.Inject(text); err != nil {
		log.Errorf("inject: %v", err)
	} else if j.pressEnter {
		if err := o.inj.InjectEnter(); err != nil {
			log.Errorf("inject enter: %v", err)
		}
	}
	return Done
}

func failureMessage(err error) string {
	kind, ok := transcriber.KindOf(err)
	if !ok {
		return err.Error()
	}
	switch kind {
	case transcriber.Timeout:
		return "The recognizer timed out"
	case transcriber.NetworkFailure:
		return "Could not reach the transcription service"
	}
	return err.Error()
}

func (o *Orchestrator) logMetrics(j job, res transcriber.Result) {
	m := log.Metrics{
		Session:      j.session,
		Backend:      j.backend.Kind().String(),
		AudioLengthS: j.req.AudioLength().Seconds(),
		UploadKB:     float64(res.UploadSize) / 1024,
		EncodeTimeMs: ms(res.EncodeTime),
		TotalTimeMs:  ms(res.Duration),
	}
	if n := res.Metrics; n != nil {
		m.DNSTimeMs = ms(n.DNS)
		m.TLSTimeMs = ms(n.TLS)
		m.TTFBMs = ms(n.TTFB)
		m.ConnReused = n.ConnReused
		m.TLSProtocol = n.TLSProtocol
	}
	log.TranscriptionMetrics(m)
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// InstalledModels lists installed model names in catalog order.
func (o *Orchestrator) InstalledModels() []string {
	return o.models.Installed()
}

// Download starts fetching a model. A successful install rebuilds the
// backend before onDone runs, so a pipeline without a model becomes usable.
func (o *Orchestrator) Download(name string, onProgress models.ProgressFunc, onDone models.DoneFunc) error {
	return o.models.Download(name, onProgress, func(name string, ok bool, msg string) {
		if ok {
			o.rebuildBackend()
		} else {
			log.Errorf("download %s: %s", name, msg)
		}
		if onDone != nil {
			onDone(name, ok, msg)
		}
	})
}

// DeleteModel removes an installed model. Deleting the active model
// rebuilds the backend, which falls back to another installed model.
func (o *Orchestrator) DeleteModel(name string) error {
	if err := o.models.Delete(name); err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	if o.ActiveModel() == name {
		o.rebuildBackend()
	}
	return nil
}

// Close removes the hotkey, ends any capture and waits for the transcription
// in flight to finish.
func (o *Orchestrator) Close() {
	o.keys.Close()
	o.StopRecording()

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.jobs)
	o.mu.Unlock()

	o.wg.Wait()
	log.SessionEnd(o.Transcriptions())
}
