//go:build !windows

package procutil

import "os/exec"

// HideWindow does nothing outside Windows; there is no console to hide.
func HideWindow(*exec.Cmd) {}
