//go:build !linux

package main

import (
	"os"
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	// Crash logging goes first, before any cgo code runs
	initCrashLog()

	// -gui must be seen before flag.Parse: fyne needs the main thread
	for _, arg := range os.Args[1:] {
		if arg == "-gui" {
			initGUI()
			return
		}
	}
	mainthread.Init(run)
}
