package main

import (
	"runtime"

	"termlaunch/internal/config"
	"termlaunch/internal/launch"
)

// getConfigSnapshot returns a deep-copied config protected by cfgMu.
func (a *App) getConfigSnapshot() config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return config.Clone(a.cfg)
}

// setConfigSnapshot stores a deep copy of cfg and refreshes the requester
// options derived from it.
func (a *App) setConfigSnapshot(cfg config.Config) {
	a.cfgMu.Lock()
	a.cfg = config.Clone(cfg)
	a.cfgMu.Unlock()
	if a.requester != nil {
		a.requester.SetOptions(a.requesterOptions(cfg))
	}
}

func (a *App) requesterOptions(cfg config.Config) launch.Options {
	return launch.Options{
		Platform:           a.platform(),
		SkipInstalledCheck: !cfg.PrecheckInstalled,
		Kubeconfig:         cfg.Kubeconfig,
	}
}

// platform reports the host OS as the web view runtime sees it, falling back
// to GOOS before startup.
func (a *App) platform() string {
	ctx := a.runtimeContext()
	if ctx == nil {
		return runtime.GOOS
	}
	if env := runtimeEnvironmentFn(ctx); env.Platform != "" {
		return env.Platform
	}
	return runtime.GOOS
}
