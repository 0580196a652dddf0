//go:build gui

package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"dictate/audio"
	"dictate/gui"
)

// initGUI owns the main thread for fyne and runs the engine in a goroutine.
func initGUI() {
	guiMode = true

	// Core Audio wants the context created on the main thread, before fyne
	// takes it over.
	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	guiAudioCtx = ctx

	runtime.LockOSThread()

	app := gui.NewApp(func() {
		run()
	})
	guiOverlay = app
	if err := gui.Run(app); err != nil {
		ctx.Close()
		panic(err)
	}

	// Quit from the tray: let run close the pipeline before exiting.
	requestQuit()
	select {
	case <-runDone:
	case <-time.After(5 * time.Second):
	}
}
