package account

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.xmark, or $XMARK_HOME when set.
func BaseDir() string {
	if dir := os.Getenv("XMARK_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".xmark")
}

// Dir returns the account-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "accounts", name)
}

// SocketPath returns the daemon's Unix socket path for an account.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "xmarkd.sock")
}

// LockPath returns the lock file path for an account.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "LOCK")
}

// ConfigPath returns the per-account settings file.
func ConfigPath(name string) string {
	return filepath.Join(Dir(name), "account.toml")
}

// AuditDBPath returns the SQLite file recording sync outcomes and pushes.
func AuditDBPath(name string) string {
	return filepath.Join(Dir(name), "xmark.db")
}

// LogDir returns the log directory for an account.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the daemon log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "xmarkd.log")
}

// GlobalConfigPath returns the global config file path.
func GlobalConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the account directory tree with owner-only permissions.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
