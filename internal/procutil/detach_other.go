//go:build !unix && !windows

package procutil

import "os/exec"

// Detach is a no-op on platforms without process groups.
func Detach(_ *exec.Cmd) {}
