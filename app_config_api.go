package main

import (
	"log/slog"
	"strings"
	"time"

	"termlaunch/internal/config"
)

type configUpdatedEvent struct {
	Config             config.Config `json:"config"`
	Version            uint64        `json:"version"`
	UpdatedAtUnixMilli int64         `json:"updated_at_unix_milli"`
}

// GetConfig returns the loaded config.
func (a *App) GetConfig() config.Config {
	return a.getConfigSnapshot()
}

// GetConfigAndFlushWarnings returns the loaded config and emits any pending
// startup warnings.
func (a *App) GetConfigAndFlushWarnings() config.Config {
	a.flushPendingConfigLoadWarnings()
	return a.getConfigSnapshot()
}

// SaveConfig validates and persists cfg, then updates the in-memory config.
// The config:updated event carries the normalized config.
func (a *App) SaveConfig(cfg config.Config) error {
	event, err := a.saveConfigWithLock(cfg)
	if err != nil {
		return err
	}
	a.emitRuntimeEvent(eventConfigUpdated, event)
	return nil
}

func (a *App) saveConfigWithLock(cfg config.Config) (configUpdatedEvent, error) {
	a.cfgSaveMu.Lock()
	defer a.cfgSaveMu.Unlock()

	normalized, err := config.Save(a.configPath, cfg)
	if err != nil {
		return configUpdatedEvent{}, err
	}
	a.setConfigSnapshot(normalized)
	return a.nextConfigEvent(normalized), nil
}

// applyReloadedConfig handles a config change made outside the app.
func (a *App) applyReloadedConfig(cfg config.Config, err error) {
	if err != nil {
		slog.Warn("[WARN-CONFIG] reload failed, keeping current config", "path", a.configPath, "error", err)
		a.emitRuntimeEvent(eventConfigLoadFailed, map[string]string{
			"message": "Failed to reload config file. Keeping the previous settings. Error: " + err.Error(),
		})
		return
	}
	a.cfgSaveMu.Lock()
	a.setConfigSnapshot(cfg)
	event := a.nextConfigEvent(cfg)
	a.cfgSaveMu.Unlock()

	slog.Info("[config] reloaded from disk", "path", a.configPath, "version", event.Version)
	a.emitRuntimeEvent(eventConfigUpdated, event)
}

func (a *App) nextConfigEvent(cfg config.Config) configUpdatedEvent {
	return configUpdatedEvent{
		Config:             config.Clone(cfg),
		Version:            a.configEventVersion.Add(1),
		UpdatedAtUnixMilli: time.Now().UnixMilli(),
	}
}

func (a *App) addPendingConfigLoadWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	a.startupWarnMu.Lock()
	a.configLoadWarnings = append(a.configLoadWarnings, trimmed)
	a.startupWarnMu.Unlock()
}

func (a *App) consumePendingConfigLoadWarning() string {
	a.startupWarnMu.Lock()
	defer a.startupWarnMu.Unlock()
	if len(a.configLoadWarnings) == 0 {
		return ""
	}
	message := strings.Join(a.configLoadWarnings, "\n")
	a.configLoadWarnings = nil
	return message
}

func (a *App) flushPendingConfigLoadWarnings() {
	ctx := a.runtimeContext()
	if ctx == nil {
		return
	}
	if warning := a.consumePendingConfigLoadWarning(); warning != "" {
		a.emitRuntimeEventWithContext(ctx, eventConfigLoadFailed, map[string]string{
			"message": warning,
		})
	}
}
