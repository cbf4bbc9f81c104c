package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"termlaunch/internal/command"
	"termlaunch/internal/history"
	"termlaunch/internal/launch"
)

const historyWriteTimeout = 5 * time.Second

// launchSettings feeds the configured working directory and environment
// to the launch bridge.
func (a *App) launchSettings() launch.Settings {
	cfg := a.getConfigSnapshot()
	return launch.Settings{WorkingDir: cfg.WorkingDir, Env: cfg.Env}
}

// Launch opens req.Terminal and runs req.Command in it.
func (a *App) Launch(req launch.LaunchRequest) error {
	return a.bridge.Launch(a.callContext(), req)
}

// IsInstalled reports whether terminal is installed on this machine.
func (a *App) IsInstalled(terminalName string) (bool, error) {
	return a.bridge.IsInstalled(a.callContext(), terminalName)
}

// LaunchTerminal opens name with the default shell.
func (a *App) LaunchTerminal(name string) error {
	return a.Launch(launch.LaunchRequest{Terminal: name})
}

// RequestLaunch runs the full launch flow for a UI selection: assemble the
// command, check the terminal, launch, and show the resulting error text.
// An empty terminal uses the configured default.
func (a *App) RequestLaunch(terminalName string, sel command.Selection, envVars map[string]string) launch.Outcome {
	return a.runLaunch(a.callContext(), terminalName, sel, envVars, history.SourceUI)
}

// GetErrorText returns the text currently shown on the error display.
func (a *App) GetErrorText() string {
	a.errorMu.RLock()
	defer a.errorMu.RUnlock()
	return a.errorText
}

// SetError implements launch.Display.
func (a *App) SetError(text string) {
	a.errorMu.Lock()
	a.errorText = text
	a.errorMu.Unlock()
	a.emitRuntimeEvent(eventLaunchError, map[string]string{"text": text})
}

func (a *App) runLaunch(ctx context.Context, terminalName string, sel command.Selection, envVars map[string]string, source string) launch.Outcome {
	terminalName = strings.TrimSpace(terminalName)
	if terminalName == "" {
		terminalName = a.getConfigSnapshot().DefaultTerminal
	}
	out := a.requester.Request(ctx, terminalName, sel, envVars)
	slog.Info("[launch] request resolved",
		"id", out.ID,
		"terminal", out.Terminal,
		"choice", out.Choice,
		"status", out.Status,
		"source", source,
	)
	a.recordHistory(out, source)
	a.emitRuntimeEvent(eventLaunchCompleted, out)
	return out
}

func (a *App) recordHistory(out launch.Outcome, source string) {
	store, err := a.requireHistory()
	if err != nil {
		slog.Debug("[DEBUG-HISTORY] launch not recorded", "id", out.ID, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()
	if err := store.Record(ctx, history.FromOutcome(out, source, time.Now())); err != nil {
		slog.Warn("[WARN-HISTORY] failed to record launch", "id", out.ID, "error", err)
		return
	}
	if _, err := store.Prune(ctx, a.getConfigSnapshot().HistoryLimit); err != nil {
		slog.Warn("[WARN-HISTORY] failed to prune launch history", "error", err)
	}
}
