package main

import (
	"fmt"
	"io"

	"termlaunch/internal/launch"
)

var hostTerminals launch.Terminals = launch.HostTerminals{}

// bridge opens terminals in this process using the loaded config.
func (c *cli) bridge() *launch.LocalBridge {
	return &launch.LocalBridge{
		Settings: func() launch.Settings {
			return launch.Settings{WorkingDir: c.cfg.WorkingDir, Env: c.cfg.Env}
		},
		Terminals: hostTerminals,
	}
}

// writerDisplay prints non-empty error text.
type writerDisplay struct {
	w io.Writer
}

func (d writerDisplay) SetError(text string) {
	if text == "" {
		return
	}
	fmt.Fprintln(d.w, errorStyle.Render(text))
}
