// Package config provides configuration management for the loadfile client.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// ConfigDir is the standard configuration directory name
const ConfigDir = "loadfile"

// getConfigDir returns the platform-appropriate config directory.
// - Windows: %APPDATA%\LoadFile
// - Unix: ~/.config/loadfile (XDG standard)
func getConfigDir() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "LoadFile")
		}
		if userProfile := os.Getenv("USERPROFILE"); userProfile != "" {
			return filepath.Join(userProfile, "AppData", "Roaming", "LoadFile")
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", ConfigDir)
	}
	return ""
}

// GetDefaultConfigPath returns the default config file path.
// config.ini is preferred when it exists, config.csv otherwise.
func GetDefaultConfigPath() string {
	configDir := getConfigDir()
	if configDir == "" {
		return "config.csv"
	}
	iniPath := filepath.Join(configDir, "config.ini")
	if _, err := os.Stat(iniPath); err == nil {
		return iniPath
	}
	return filepath.Join(configDir, "config.csv")
}

// GetDefaultStatePath returns where the console host keeps node state
func GetDefaultStatePath() string {
	configDir := getConfigDir()
	if configDir == "" {
		return "node_state.csv"
	}
	return filepath.Join(configDir, "node_state.csv")
}

// LogDirectory returns the log directory.
//
// Locations:
//   - Windows: %LOCALAPPDATA%\LoadFile\logs
//   - Unix: ~/.config/loadfile/logs
func LogDirectory() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "loadfile-logs")
			}
			localAppData = filepath.Join(homeDir, "AppData", "Local")
		}
		return filepath.Join(localAppData, "LoadFile", "logs")
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "loadfile-logs")
		}
		return filepath.Join(homeDir, ".config", ConfigDir, "logs")
	}
	return filepath.Join(configDir, ConfigDir, "logs")
}
