// Package notify shows desktop notifications.
package notify

import (
	"sync"

	"github.com/gen2brain/beeep"

	"dictate/log"
)

const AppName = "Dictate"

func init() {
	beeep.AppName = AppName
}

// Desktop sends notifications through the OS notification center. A
// disabled Desktop drops everything.
type Desktop struct {
	mu      sync.Mutex
	enabled bool
	send    func(title, message string) error
}

func NewDesktop(enabled bool) *Desktop {
	return &Desktop{
		enabled: enabled,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

func (d *Desktop) SetEnabled(on bool) {
	d.mu.Lock()
	d.enabled = on
	d.mu.Unlock()
}

// Notify is fire-and-forget. Delivery failures are only logged.
func (d *Desktop) Notify(title, message string) {
	d.mu.Lock()
	on := d.enabled
	d.mu.Unlock()
	if !on {
		return
	}
	if err := d.send(title, message); err != nil {
		log.Warnf("notification %q: %v", title, err)
	}
}

type Note struct {
	Title   string
	Message string
}

// Recorder collects notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	notes []Note
}

func (r *Recorder) Notify(title, message string) {
	r.mu.Lock()
	r.notes = append(r.notes, Note{title, message})
	r.mu.Unlock()
}

func (r *Recorder) Notes() []Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Note(nil), r.notes...)
}
