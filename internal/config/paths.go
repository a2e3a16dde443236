package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DataDir resolves the data directory. MODELGATE_DATA_DIR wins when set;
// otherwise %APPDATA%\modelgate on Windows and ~/.modelgate elsewhere.
func DataDir() string {
	if dir := os.Getenv("MODELGATE_DATA_DIR"); dir != "" {
		return dir
	}

	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "modelgate")
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".modelgate"
	}
	return filepath.Join(home, ".modelgate")
}

// DBPath returns the SQLite database file path inside the data directory.
func DBPath() string {
	return filepath.Join(DataDir(), "modelgate.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0700)
}
