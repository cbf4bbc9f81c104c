// Package launch runs one launcher action end to end: it assembles the
// command, checks that the terminal is installed, issues the launch call and
// reports the resulting error text to a display.
package launch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"termlaunch/internal/command"
)

// Status values recorded on an Outcome.
const (
	StatusLaunched     = "launched"
	StatusNotInstalled = "not_installed"
	StatusFailed       = "failed"
	StatusSuperseded   = "superseded"
)

// LaunchRequest is the payload of one launch call.
type LaunchRequest struct {
	Terminal string            `json:"terminal"`
	Command  string            `json:"command,omitempty"`
	EnvVars  map[string]string `json:"envVars,omitempty"`
}

// Bridge is the launch capability the requester calls into.
type Bridge interface {
	Launch(ctx context.Context, req LaunchRequest) error
	IsInstalled(ctx context.Context, terminal string) (bool, error)
}

// Display receives the user-facing error text. An empty string clears it.
type Display interface {
	SetError(text string)
}

// Outcome describes how one request resolved.
type Outcome struct {
	ID       string `json:"id"`
	Terminal string `json:"terminal"`
	Choice   string `json:"choice"`
	Command  string `json:"command"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// Options tunes a Requester.
type Options struct {
	// Platform is the GOOS-style host name used by the printenv choice.
	Platform string
	// SkipInstalledCheck disables the pre-flight installed query.
	SkipInstalledCheck bool
	// Kubeconfig is exported as KUBECONFIG for kubectl commands.
	Kubeconfig string
}

// Requester serializes writes to the display so that only the newest request
// is reflected there. Requests themselves may overlap.
type Requester struct {
	bridge  Bridge
	display Display
	opts    atomic.Pointer[Options]

	generation atomic.Uint64
	displayMu  sync.Mutex
}

// NewRequester creates a Requester. bridge and display must be non-nil.
func NewRequester(bridge Bridge, display Display, opts Options) *Requester {
	r := &Requester{
		bridge:  bridge,
		display: display,
	}
	r.SetOptions(opts)
	return r
}

// SetOptions replaces the options used by requests started afterwards.
func (r *Requester) SetOptions(opts Options) {
	r.opts.Store(&opts)
}

// Options returns the current options.
func (r *Requester) Options() Options {
	return *r.opts.Load()
}

// NotInstalledMessage is the guided text shown when the pre-flight check fails.
func NotInstalledMessage(terminal string) string {
	return fmt.Sprintf("The terminal %s is not installed on your system.", terminal)
}

// Request runs one launcher action. It never returns an error: failures are
// reported on the display and in the returned Outcome.
func (r *Requester) Request(ctx context.Context, terminal string, sel command.Selection, env map[string]string) Outcome {
	opts := r.Options()
	gen := r.generation.Add(1)
	r.setDisplay(gen, "")

	choice, cmd := command.Assemble(sel, opts.Platform)
	out := Outcome{
		ID:       uuid.NewString(),
		Terminal: terminal,
		Choice:   choice.Name(),
		Command:  cmd,
	}

	if err := ValidateEnv(env); err != nil {
		slog.Info("[launch] rejected request environment", "terminal", terminal, "error", err)
		return r.finish(gen, out, StatusFailed, err.Error())
	}
	env = withKubeconfig(choice, env, opts.Kubeconfig)

	if !opts.SkipInstalledCheck {
		installed, err := r.bridge.IsInstalled(ctx, terminal)
		if err != nil {
			slog.Warn("[launch] installed check failed", "terminal", terminal, "error", err)
			return r.finish(gen, out, StatusFailed, err.Error())
		}
		if !installed {
			slog.Info("[launch] terminal is not installed", "terminal", terminal)
			return r.finish(gen, out, StatusNotInstalled, NotInstalledMessage(terminal))
		}
	}

	req := LaunchRequest{Terminal: terminal, Command: cmd}
	if len(env) > 0 {
		req.EnvVars = env
	}
	if err := r.bridge.Launch(ctx, req); err != nil {
		slog.Warn("[launch] launch failed", "terminal", terminal, "choice", out.Choice, "error", err)
		return r.finish(gen, out, StatusFailed, err.Error())
	}
	slog.Debug("[DEBUG-LAUNCH] launched", "id", out.ID, "terminal", terminal, "choice", out.Choice)
	return r.finish(gen, out, StatusLaunched, "")
}

// finish writes text to the display when gen is still the newest request.
// Stale requests keep their error text on the Outcome but are marked superseded.
func (r *Requester) finish(gen uint64, out Outcome, status, text string) Outcome {
	out.Error = text
	if r.setDisplay(gen, text) {
		out.Status = status
	} else {
		out.Status = StatusSuperseded
	}
	return out
}

func (r *Requester) setDisplay(gen uint64, text string) bool {
	r.displayMu.Lock()
	defer r.displayMu.Unlock()
	if r.generation.Load() != gen {
		return false
	}
	r.display.SetError(text)
	return true
}
