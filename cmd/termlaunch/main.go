// Command termlaunch opens terminals from the command line with the same
// command choices as the desktop window, or forwards a launch to the running
// window over IPC.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
)

// version is set by the build system.
var version = "dev"

func main() {
	setConsoleUTF8()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	var status exitStatus
	switch {
	case err == nil:
	case errors.As(err, &status):
		stop()
		os.Exit(int(status))
	default:
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		stop()
		os.Exit(1)
	}
}

// exitStatus ends the process with a code after the command already reported
// the failure itself.
type exitStatus int

func (s exitStatus) Error() string {
	return fmt.Sprintf("exit status %d", int(s))
}
