package terminal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

const (
	warpConfigName = "termlaunch.yaml"
	warpLaunchURI  = "warp://launch/" + warpConfigName
)

type warpLaunchConfig struct {
	Name              string       `yaml:"name"`
	ActiveWindowIndex int          `yaml:"active_window_index"`
	Windows           []warpWindow `yaml:"windows"`
}

type warpWindow struct {
	ActiveTabIndex int       `yaml:"active_tab_index"`
	Tabs           []warpTab `yaml:"tabs"`
}

type warpTab struct {
	Layout warpLayout `yaml:"layout"`
}

type warpLayout struct {
	Cwd       string        `yaml:"cwd"`
	IsFocused bool          `yaml:"is_focused"`
	Commands  []warpCommand `yaml:"commands"`
}

type warpCommand struct {
	Exec string `yaml:"exec"`
}

// warpLaunchConfigDir returns ${XDG_DATA_HOME:-$HOME/.local/share}/warp-terminal/launch_configurations.
func warpLaunchConfigDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home := os.Getenv("HOME")
		if home == "" {
			return "", errors.New("XDG_DATA_HOME or HOME are not set")
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "warp-terminal", "launch_configurations"), nil
}

// writeWarpLaunchConfig writes a one-tab launch configuration that runs
// script in cwd and returns the file path.
func writeWarpLaunchConfig(cwd, script string) (string, error) {
	dir, err := warpLaunchConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create warp launch config dir: %w", err)
	}

	cfg := warpLaunchConfig{
		Name: "termlaunch",
		Windows: []warpWindow{{
			Tabs: []warpTab{{
				Layout: warpLayout{
					Cwd:       cwd,
					IsFocused: true,
					Commands:  []warpCommand{{Exec: script}},
				},
			}},
		}},
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal warp launch config: %w", err)
	}
	path := filepath.Join(dir, warpConfigName)
	if err := os.WriteFile(path, append([]byte("---\n"), data...), 0o644); err != nil {
		return "", fmt.Errorf("write warp launch config: %w", err)
	}
	return path, nil
}
