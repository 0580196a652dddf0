package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"dictate/log"
)

const debounce = 250 * time.Millisecond

// Watch reloads the file whenever it changes on disk and calls onChange
// with the new settings. Invalid edits are logged and skipped. Watch blocks
// until ctx is done.
func (st *Store) Watch(ctx context.Context, onChange func(Settings)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer w.Close()

	// Editors replace files by rename, so watch the directory.
	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	name := filepath.Base(st.path)
	var timer *time.Timer
	fire := func() {
		s, err := st.Reload()
		if err != nil {
			log.Warnf("config reload: %v", err)
			return
		}
		onChange(s)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, fire)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warnf("config watcher: %v", err)
		}
	}
}
