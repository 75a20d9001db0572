package config

import (
	"os"
	"path/filepath"
	"strings"
)

const envConfigDir = "THEMESYNC_CONFIG_DIR"

// Dir is where themesync keeps its own state (run history). It is unrelated
// to the document being updated.
func Dir() string {
	if dir := strings.TrimSpace(os.Getenv(envConfigDir)); dir != "" {
		return dir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "themesync")
	}
	return filepath.Join(".", ".themesync")
}

func HistoryPath() string {
	return filepath.Join(Dir(), "history.json")
}
