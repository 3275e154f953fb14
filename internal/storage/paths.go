package storage

import (
	"os"
	"path/filepath"
)

// PathManager handles path resolution for FolioTalk's local state
type PathManager struct {
	baseDir string
}

// NewPathManager creates a new path manager with platform-aware defaults
func NewPathManager() *PathManager {
	return &PathManager{baseDir: defaultBaseDir()}
}

// NewPathManagerAt creates a path manager rooted at an explicit directory.
// Used by tests and by the --config-dir flag.
func NewPathManagerAt(dir string) *PathManager {
	return &PathManager{baseDir: dir}
}

func defaultBaseDir() string {
	// Try XDG_CONFIG_HOME first
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "foliotalk")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home dir is not available
		homeDir = "."
	}
	return filepath.Join(homeDir, ".config", "foliotalk")
}

// Dir returns the FolioTalk configuration directory, creating it if needed
func (pm *PathManager) Dir() (string, error) {
	if err := os.MkdirAll(pm.baseDir, 0755); err != nil {
		return "", err
	}
	return pm.baseDir, nil
}

// TokensPath returns the path of the persisted bearer token pair
func (pm *PathManager) TokensPath() (string, error) {
	dir, err := pm.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tokens.json"), nil
}

// BookmarksPath returns the path of the persisted bookmark sets
func (pm *PathManager) BookmarksPath() (string, error) {
	dir, err := pm.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "bookmarks.json"), nil
}

// ConfigPath returns the path of the main configuration file
func (pm *PathManager) ConfigPath() (string, error) {
	dir, err := pm.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LogPath returns the path of the client log file
func (pm *PathManager) LogPath() (string, error) {
	dir, err := pm.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "foliotalk.log"), nil
}
