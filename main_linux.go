//go:build linux

package main

import "os"

func main() {
	// Crash logging goes first, before any cgo code runs
	initCrashLog()

	for _, arg := range os.Args[1:] {
		if arg == "-gui" {
			initGUI()
			return
		}
	}
	run()
}
