package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths contains the standard paths for session bridge data.
type Paths struct {
	Data   string // ~/.local/share/sessionbridge
	Config string // ~/.config/sessionbridge
	Cache  string // ~/.cache/sessionbridge
	State  string // ~/.local/state/sessionbridge
}

// GetPaths returns the standard paths for session bridge data.
func GetPaths() *Paths {
	return &Paths{
		Data:   filepath.Join(getEnvOrDefault("XDG_DATA_HOME", defaultDataHome()), "sessionbridge"),
		Config: filepath.Join(getEnvOrDefault("XDG_CONFIG_HOME", defaultConfigHome()), "sessionbridge"),
		Cache:  filepath.Join(getEnvOrDefault("XDG_CACHE_HOME", defaultCacheHome()), "sessionbridge"),
		State:  filepath.Join(getEnvOrDefault("XDG_STATE_HOME", defaultStateHome()), "sessionbridge"),
	}
}

// EnsurePaths creates all required directories.
func (p *Paths) EnsurePaths() error {
	for _, dir := range []string{p.Data, p.Config, p.Cache, p.State} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func defaultDataHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share")
}

func defaultConfigHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".config")
}

func defaultCacheHome() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "cache")
	}
	return filepath.Join(os.Getenv("HOME"), ".cache")
}

func defaultStateHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "state")
}

// GlobalConfigPath returns the path to the default TOML config file.
func GlobalConfigPath() string {
	return filepath.Join(GetPaths().Config, "sessionbridge.toml")
}

// SnapshotPath returns the well-known local temp path for the
// session-state snapshot written by the Reload Coordinator.
func SnapshotPath() string {
	dir := os.TempDir()
	if dir == "" {
		dir = "/tmp"
	}
	return filepath.Join(dir, "sessionbridge-state.json")
}
