//go:build !windows

package transcriber

import "os/exec"

func hideWindow(*exec.Cmd) {}
