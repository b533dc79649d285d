package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/matheus3301/xmark/internal/bookmark"
	"github.com/matheus3301/xmark/internal/jid"
)

// DefaultRequestTimeout bounds each bookmark query.
const DefaultRequestTimeout = 5 * time.Second

// Config represents the global ~/.xmark/config.toml.
type Config struct {
	DefaultAccount string `toml:"default_account"`
}

// Account is the per-account ~/.xmark/accounts/<name>/account.toml.
type Account struct {
	JID              string `toml:"jid"`
	Password         string `toml:"password,omitempty"`
	Resource         string `toml:"resource,omitempty"`
	Host             string `toml:"host,omitempty"`
	MUCNick          string `toml:"muc_nick,omitempty"`
	BookmarkStorage  string `toml:"bookmark_storage,omitempty"`
	RequestTimeoutMS int    `toml:"request_timeout_ms,omitempty"`
	NoTLS            bool   `toml:"no_tls,omitempty"`
	StartTLS         bool   `toml:"starttls,omitempty"`
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	return write(path, cfg)
}

// LoadAccount reads and validates an account file. XMARK_PASSWORD, when set,
// overrides the password stored in the file.
func LoadAccount(path string) (*Account, error) {
	var acct Account
	if _, err := toml.DecodeFile(path, &acct); err != nil {
		return nil, err
	}
	if pw := os.Getenv("XMARK_PASSWORD"); pw != "" {
		acct.Password = pw
	}
	if err := acct.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &acct, nil
}

// SaveAccount writes an account file with owner-only permissions.
func SaveAccount(path string, acct *Account) error {
	return write(path, acct)
}

// Validate checks the fields the daemon cannot work without.
func (a *Account) Validate() error {
	if a.JID == "" {
		return fmt.Errorf("jid is required")
	}
	if _, err := bookmark.ParseBackend(a.BookmarkStorage); err != nil {
		return err
	}
	if a.RequestTimeoutMS < 0 {
		return fmt.Errorf("request_timeout_ms must not be negative")
	}
	return nil
}

// Preferences returns the reloadable subset of the account. The room
// nickname falls back to the local part of the account address.
func (a *Account) Preferences() Preferences {
	backend, _ := bookmark.ParseBackend(a.BookmarkStorage)
	timeout := DefaultRequestTimeout
	if a.RequestTimeoutMS > 0 {
		timeout = time.Duration(a.RequestTimeoutMS) * time.Millisecond
	}
	nick := a.MUCNick
	if nick == "" {
		if addr, err := jid.Parse(a.JID); err == nil {
			nick = addr.Local
		}
	}
	return Preferences{
		MUCNick:        nick,
		DefaultBackend: backend,
		RequestTimeout: timeout,
	}
}

// Preferences are the account settings that take effect without reconnecting.
type Preferences struct {
	MUCNick        string
	DefaultBackend bookmark.Backend
	RequestTimeout time.Duration
}

func write(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(v)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
