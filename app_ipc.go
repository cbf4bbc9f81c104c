package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"termlaunch/internal/history"
	"termlaunch/internal/ipc"
	"termlaunch/internal/launch"
)

const ipcLaunchTimeout = 20 * time.Second

var newIPCServerFn = ipc.NewServer

// Execute implements ipc.CommandExecutor for requests from a second app
// instance or the CLI.
func (a *App) Execute(req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandActivateWindow:
		a.bringWindowToFront()
		return ipc.Response{}
	case ipc.CommandLaunch:
		if a.shuttingDown.Load() {
			return ipc.ErrorResponse("termlaunch is shutting down")
		}
		ctx, cancel := context.WithTimeout(a.callContext(), ipcLaunchTimeout)
		defer cancel()
		out := a.runLaunch(ctx, req.Terminal, req.Selection, req.Env, history.SourceIPC)
		return outcomeResponse(out)
	default:
		slog.Warn("[ipc] unknown command", "command", req.Command)
		return ipc.ErrorResponse(fmt.Sprintf("unknown command: %q", req.Command))
	}
}

func outcomeResponse(out launch.Outcome) ipc.Response {
	resp := ipc.Response{Outcome: &out}
	switch out.Status {
	case launch.StatusLaunched:
		resp.Stdout = fmt.Sprintf("launched %s (%s)\n", out.Terminal, out.Choice)
	case launch.StatusSuperseded:
		resp.ExitCode = 1
		resp.Stderr = "superseded by a newer launch request\n"
	default:
		resp.ExitCode = 1
		resp.Stderr = out.Error + "\n"
	}
	return resp
}
