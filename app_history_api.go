package main

import (
	"termlaunch/internal/applog"
	"termlaunch/internal/history"
)

// GetLaunchHistory returns up to limit recorded launches, newest first.
// limit <= 0 uses the configured history limit.
func (a *App) GetLaunchHistory(limit int) ([]history.Entry, error) {
	store, err := a.requireHistory()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = a.getConfigSnapshot().HistoryLimit
	}
	return store.Recent(a.callContext(), limit)
}

// GetAppLog returns the captured warnings and errors of this run, oldest first.
func (a *App) GetAppLog() []applog.Entry {
	return a.journal.Entries()
}

// GetAppLogFilePath returns the JSONL log path, or "" when file logging is off.
func (a *App) GetAppLogFilePath() string {
	return a.journal.Path()
}
