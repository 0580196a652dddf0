//go:build !gui

package main

import (
	"fmt"
	"os"
)

func initGUI() {
	fmt.Fprintln(os.Stderr, "dictate: built without GUI support (rebuild with -tags gui)")
	os.Exit(1)
}
