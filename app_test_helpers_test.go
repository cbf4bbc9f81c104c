package main

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"termlaunch/internal/terminal"
)

// NOTE: These helpers swap package-level function variables. Tests in this
// package must not use t.Parallel().

type recordedEvent struct {
	name    string
	payload any
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
	logs   logRecorder
}

// logRecorder stands in for the Wails runtime logger, which needs a
// context carrying the Wails logger.
type logRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (l *logRecorder) add(level, message string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+": "+formatRuntimeLogMessage(message, args...))
}

func (l *logRecorder) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.lines)
}

func (l *logRecorder) Warningf(_ context.Context, message string, args ...any) {
	l.add("WARN", message, args...)
}

func (l *logRecorder) Infof(_ context.Context, message string, args ...any) {
	l.add("INFO", message, args...)
}

func (l *logRecorder) Errorf(_ context.Context, message string, args ...any) {
	l.add("ERROR", message, args...)
}

func (r *eventRecorder) add(name string, data []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var payload any
	if len(data) > 0 {
		payload = data[0]
	}
	r.events = append(r.events, recordedEvent{name: name, payload: payload})
}

func (r *eventRecorder) named(name string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, e := range r.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

func stubRuntime(t *testing.T, platform string) *eventRecorder {
	t.Helper()
	origEmit := runtimeEventsEmitFn
	origEnv := runtimeEnvironmentFn
	origLogger := runtimeLogger
	t.Cleanup(func() {
		runtimeEventsEmitFn = origEmit
		runtimeEnvironmentFn = origEnv
		runtimeLogger = origLogger
	})

	rec := &eventRecorder{}
	runtimeEventsEmitFn = func(_ context.Context, name string, data ...any) {
		rec.add(name, data)
	}
	runtimeEnvironmentFn = func(context.Context) runtime.EnvironmentInfo {
		return runtime.EnvironmentInfo{Platform: platform}
	}
	runtimeLogger = &rec.logs
	return rec
}

type openCall struct {
	terminal   terminal.Terminal
	command    string
	env        map[string]string
	workingDir string
}

type terminalStub struct {
	mu         sync.Mutex
	installed  bool
	installErr error
	openErr    error
	checks     []terminal.Terminal
	opens      []openCall
}

// stubTerminal routes app's launch bridge to stub.
func stubTerminal(t *testing.T, app *App, stub *terminalStub) *terminalStub {
	t.Helper()
	app.bridge.Terminals = stub
	return stub
}

func (s *terminalStub) Open(_ context.Context, term terminal.Terminal, workingDir, command string, env map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens = append(s.opens, openCall{terminal: term, command: command, env: env, workingDir: workingDir})
	return s.openErr
}

func (s *terminalStub) IsInstalled(_ context.Context, term terminal.Terminal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = append(s.checks, term)
	return s.installed, s.installErr
}

// newTestApp returns an App whose runtime context is set, so events are
// emitted and the platform comes from the stubbed runtime environment.
func newTestApp(t *testing.T, platform string) (*App, *eventRecorder) {
	t.Helper()
	rec := stubRuntime(t, platform)
	app := NewApp()
	app.setRuntimeContext(context.Background())
	app.setConfigSnapshot(app.getConfigSnapshot())
	return app, rec
}
