package main

import (
	"embed"
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"termlaunch/internal/applog"
	"termlaunch/internal/ipc"
	"termlaunch/internal/singleinstance"
)

//go:embed all:frontend/dist
var assets embed.FS

// DebugEnvVar enables debug-level logging when set to a non-empty value.
const DebugEnvVar = "TERMLAUNCH_DEBUG"

func main() {
	// Checked before any Wails initialization so a second launch only
	// raises the existing window.
	lock, err := singleinstance.TryLock(singleinstance.DefaultName())
	if errors.Is(err, singleinstance.ErrAlreadyRunning) {
		slog.Info("[DEBUG-SINGLE] another instance is already running, signaling activation")
		if _, sendErr := ipc.Send("", ipc.Request{Command: ipc.CommandActivateWindow}); sendErr != nil {
			slog.Warn("[DEBUG-SINGLE] failed to signal existing instance", "error", sendErr)
		}
		return
	}
	if err != nil {
		slog.Warn("[DEBUG-SINGLE] lock failed, proceeding without single-instance guard", "error", err)
	}
	if lock != nil {
		defer func() {
			if releaseErr := lock.Release(); releaseErr != nil {
				slog.Warn("[DEBUG-SINGLE] lock release failed", "error", releaseErr)
			}
		}()
	}

	app := NewApp()
	installLogger(app.journal)

	err = wails.Run(&options.App{
		Title:     "termlaunch",
		Width:     560,
		Height:    640,
		MinWidth:  420,
		MinHeight: 480,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 10, G: 16, B: 22, A: 1},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind: []any{
			app,
		},
	})
	if err != nil {
		slog.Error("[DEBUG-SINGLE] wails run failed", "error", err)
	}
}

// installLogger routes slog through a TeeHandler that copies warnings and
// errors into journal.
func installLogger(journal *applog.Journal) {
	level := slog.LevelInfo
	if strings.TrimSpace(os.Getenv(DebugEnvVar)) != "" {
		level = slog.LevelDebug
	}
	base := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(applog.NewTeeHandler(base, slog.LevelWarn, journal.Record)))
}
