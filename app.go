package main

import (
	"context"
	"sync"
	"sync/atomic"

	"termlaunch/internal/applog"
	"termlaunch/internal/config"
	"termlaunch/internal/history"
	"termlaunch/internal/ipc"
	"termlaunch/internal/kube"
	"termlaunch/internal/launch"
	"termlaunch/internal/terminal"
)

// App is the Wails-bound application service.
type App struct {
	// Runtime context lifecycle.
	ctx   context.Context
	ctxMu sync.RWMutex

	// Configuration state and startup warnings.
	// Lock ordering (outer -> inner): cfgSaveMu -> cfgMu.
	cfgMu              sync.RWMutex
	cfgSaveMu          sync.Mutex
	configEventVersion atomic.Uint64
	cfg                config.Config
	configPath         string
	startupWarnMu      sync.Mutex
	configLoadWarnings []string

	// Launch state. errorText is what the window shows under the launch button.
	requester *launch.Requester
	bridge    *launch.LocalBridge
	errorMu   sync.RWMutex
	errorText string

	// Optional services. nil when they failed to start; see app_guards.go.
	history   *history.Store
	kubeMu    sync.Mutex
	kube      *kube.Client
	kubePath  string
	ipcServer *ipc.Server
	journal   *applog.Journal

	shuttingDown atomic.Bool
	bgCancel     context.CancelFunc
	bgWG         sync.WaitGroup
}

// NewApp creates the app service.
func NewApp() *App {
	a := &App{cfg: config.DefaultConfig()}
	a.journal = applog.NewJournal(0, func() {
		a.emitRuntimeEvent(eventLogUpdated, nil)
	})
	a.bridge = &launch.LocalBridge{Settings: a.launchSettings}
	a.requester = launch.NewRequester(a.bridge, a, a.requesterOptions(a.cfg))
	return a
}

// TerminalInfo describes one terminal for the picker.
type TerminalInfo struct {
	ID        string `json:"id"`
	Supported bool   `json:"supported"`
	Default   bool   `json:"default"`
}

// ListTerminals returns every known terminal, flagging the ones this OS can open.
func (a *App) ListTerminals() []TerminalInfo {
	defaultTerminal := a.getConfigSnapshot().DefaultTerminal
	supported := map[terminal.Terminal]bool{}
	for _, t := range terminal.Supported() {
		supported[t] = true
	}
	all := terminal.All()
	out := make([]TerminalInfo, 0, len(all))
	for _, t := range all {
		out = append(out, TerminalInfo{
			ID:        t.String(),
			Supported: supported[t],
			Default:   t.String() == defaultTerminal,
		})
	}
	return out
}
