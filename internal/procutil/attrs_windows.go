//go:build windows

package procutil

import (
	"os/exec"
	"syscall"
)

// attrs returns cmd's SysProcAttr, allocating it on first use so callers can
// combine HideWindow and Detach.
func attrs(cmd *exec.Cmd) *syscall.SysProcAttr {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	return cmd.SysProcAttr
}

// HideWindow keeps the console of a helper process such as the outer
// cmd.exe from flashing up.
func HideWindow(cmd *exec.Cmd) {
	if cmd != nil {
		attrs(cmd).HideWindow = true
	}
}

// Detach starts cmd in a new process group so console control events sent to
// the launcher do not reach it.
func Detach(cmd *exec.Cmd) {
	if cmd != nil {
		attrs(cmd).CreationFlags |= syscall.CREATE_NEW_PROCESS_GROUP
	}
}
