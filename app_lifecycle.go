package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"termlaunch/internal/applog"
	"termlaunch/internal/config"
	"termlaunch/internal/configwatch"
	"termlaunch/internal/history"
	"termlaunch/internal/terminal"
	"termlaunch/internal/workerutil"
)

var (
	defaultConfigPathFn = config.DefaultPath
	ensureConfigFileFn  = config.EnsureFile
	openHistoryFn       = history.Open
	cleanupScriptsFn    = terminal.CleanupScripts
)

const (
	shutdownWaitTimeout   = 10 * time.Second
	scriptCleanupInterval = time.Hour
)

func (a *App) startup(ctx context.Context) {
	a.setRuntimeContext(ctx)

	a.configPath = defaultConfigPathFn()
	for _, message := range config.ConsumeDefaultPathWarnings() {
		a.addPendingConfigLoadWarning(message)
	}
	cfg, err := ensureConfigFileFn(a.configPath)
	if err != nil {
		// Config failures are non-fatal: run with defaults and tell the user.
		cfg = config.DefaultConfig()
		a.addPendingConfigLoadWarning(
			"Failed to load config file at startup. Running with defaults. Error: " + err.Error(),
		)
		runtimeLogger.Warningf(ctx, "failed to load config from %s: %v", a.configPath, err)
	}
	a.setConfigSnapshot(cfg)

	configDir := filepath.Dir(a.configPath)
	if logPath, err := a.journal.OpenFile(filepath.Join(configDir, applog.DirName), time.Now()); err != nil {
		runtimeLogger.Warningf(ctx, "app log file unavailable: %v", err)
	} else {
		slog.Debug("[DEBUG-LOG] mirroring app log", "path", logPath)
	}

	store, err := openHistoryFn(ctx, history.DefaultPath(a.configPath))
	if err != nil {
		runtimeLogger.Warningf(ctx, "launch history unavailable: %v", err)
		a.addPendingConfigLoadWarning("Launch history is unavailable. Error: " + err.Error())
	} else {
		a.history = store
		runtimeLogger.Infof(ctx, "launch history: %s", store.Path())
	}

	server := newIPCServerFn("", a)
	if err := server.Start(); err != nil {
		runtimeLogger.Errorf(ctx, "ipc server failed: %v", err)
	} else {
		a.ipcServer = server
		runtimeLogger.Infof(ctx, "ipc server listening: %s", server.Endpoint())
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	a.bgCancel = cancel
	a.startConfigWatcher(bgCtx)
	workerutil.Run(bgCtx, "script-cleanup", &a.bgWG, a.runScriptCleanup, a.workerOptions())

	a.flushPendingConfigLoadWarnings()
}

func (a *App) shutdown(_ context.Context) {
	a.shuttingDown.Store(true)
	logCtx := a.runtimeContext()

	if a.bgCancel != nil {
		a.bgCancel()
		a.bgCancel = nil
	}
	if !waitWithTimeout(a.bgWG.Wait, shutdownWaitTimeout) {
		runtimeLogger.Warningf(logCtx, "timed out waiting for background workers during shutdown")
	}
	if a.ipcServer != nil {
		if err := a.ipcServer.Stop(); err != nil {
			runtimeLogger.Warningf(logCtx, "ipc server stop failed: %v", err)
		}
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			runtimeLogger.Warningf(logCtx, "history close failed: %v", err)
		}
	}
	if err := a.journal.Close(); err != nil {
		slog.Debug("[DEBUG-LOG] app log close failed", "error", err)
	}
}

func (a *App) startConfigWatcher(ctx context.Context) {
	watcher, err := configwatch.New(a.configPath, configwatch.DefaultDebounce, a.applyReloadedConfig)
	if err != nil {
		slog.Warn("[WARN-CONFIG] config watcher disabled", "error", err)
		return
	}
	workerutil.Run(ctx, "config-watcher", &a.bgWG, watcher.Run, a.workerOptions())
}

// runScriptCleanup removes stale launch scripts now and then once per interval.
func (a *App) runScriptCleanup(ctx context.Context) error {
	ticker := time.NewTicker(scriptCleanupInterval)
	defer ticker.Stop()
	for {
		removed, err := cleanupScriptsFn(os.TempDir(), terminal.ScriptMaxAge, time.Now())
		if err != nil {
			slog.Warn("[WARN-TERMINAL] launch script cleanup incomplete", "removed", removed, "error", err)
		} else if removed > 0 {
			slog.Debug("[DEBUG-TERMINAL] removed stale launch scripts", "count", removed)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (a *App) workerOptions() workerutil.RecoveryOptions {
	return workerutil.RecoveryOptions{
		OnFailure: func(worker string, attempt int, err error) {
			a.emitRuntimeEvent(eventWorkerFailed, map[string]any{
				"worker":  worker,
				"attempt": attempt,
				"error":   err.Error(),
				"fatal":   false,
			})
		},
		OnFatal: func(worker string, maxRetries int) {
			a.emitRuntimeEvent(eventWorkerFailed, map[string]any{
				"worker":  worker,
				"attempt": maxRetries,
				"fatal":   true,
			})
		},
		IsShutdown: a.shuttingDown.Load,
	}
}

// waitWithTimeout reports whether waitFn returned within timeout. The waiting
// goroutine may outlive timeout; it is only used on shutdown paths.
func waitWithTimeout(waitFn func(), timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		waitFn()
		close(done)
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
