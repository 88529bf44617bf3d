package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths contains the standard directories for tutorchat data.
type Paths struct {
	Data   string // ~/.local/share/tutorchat
	Config string // ~/.config/tutorchat
	State  string // ~/.local/state/tutorchat
}

// GetPaths returns the standard paths, honoring TUTORCHAT_DATA_DIR and the
// XDG base directory variables.
func GetPaths() *Paths {
	data := os.Getenv("TUTORCHAT_DATA_DIR")
	if data == "" {
		data = filepath.Join(getEnvOrDefault("XDG_DATA_HOME", defaultDataHome()), "tutorchat")
	}

	return &Paths{
		Data:   data,
		Config: filepath.Join(getEnvOrDefault("XDG_CONFIG_HOME", defaultConfigHome()), "tutorchat"),
		State:  filepath.Join(getEnvOrDefault("XDG_STATE_HOME", defaultStateHome()), "tutorchat"),
	}
}

// EnsurePaths creates all required directories.
func (p *Paths) EnsurePaths() error {
	for _, dir := range []string{p.Data, p.Config, p.State} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// HistoryPath returns the path to the input history file.
func (p *Paths) HistoryPath() string {
	return filepath.Join(p.Data, "history.txt")
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

func defaultStateHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("LOCALAPPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "state")
}
