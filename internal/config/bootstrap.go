package config

import (
	_ "embed"
	"errors"
	"os"
	"path/filepath"
)

//go:embed default.yml
var defaultYAML []byte

// Default returns the built-in configuration file.
func Default() []byte {
	return append([]byte(nil), defaultYAML...)
}

// EnsureUserConfig writes the default config to <dataDir>/config.yml if no
// file exists there yet, and returns its path.
func EnsureUserConfig(dataDir string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	_, err := os.Stat(userPath)
	if err == nil {
		return userPath, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(userPath, defaultYAML, 0o644); err != nil {
		return "", err
	}
	return userPath, nil
}
