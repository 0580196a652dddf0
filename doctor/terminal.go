package doctor

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/term"

	"dictate/shutdown"
)

// saved is the terminal state from before the first check. The device
// picker puts stdin in raw mode and an interrupted step may leave it there.
var saved *term.State

func saveTerminal() {
	if st, err := term.GetState(int(os.Stdin.Fd())); err == nil {
		saved = st
	}
}

func resetTerminal() {
	if saved != nil {
		term.Restore(int(os.Stdin.Fd()), saved)
	}
}

// exitOnInterrupt restores the terminal and exits 1 on the first signal.
func exitOnInterrupt() {
	ctx, stop := shutdown.Context(context.Background())
	go func() {
		<-ctx.Done()
		stop()
		resetTerminal()
		fmt.Println("\nInterrupted")
		os.Exit(1)
	}()
}
