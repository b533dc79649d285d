package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 500 * time.Millisecond

// Live holds the current preferences of an account and reloads them when
// the account file changes.
type Live struct {
	mu     sync.RWMutex
	prefs  Preferences
	path   string
	logger *zap.Logger
}

// NewLive starts from prefs, loaded from the account file at path.
func NewLive(path string, prefs Preferences, logger *zap.Logger) *Live {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Live{prefs: prefs, path: path, logger: logger}
}

// Get returns the current preferences.
func (l *Live) Get() Preferences {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.prefs
}

// Reload re-reads the account file. On error the old preferences stay.
func (l *Live) Reload() error {
	acct, err := LoadAccount(l.path)
	if err != nil {
		return err
	}
	prefs := acct.Preferences()
	l.mu.Lock()
	l.prefs = prefs
	l.mu.Unlock()
	l.logger.Info("account preferences reloaded",
		zap.String("muc_nick", prefs.MUCNick),
		zap.Stringer("bookmark_storage", prefs.DefaultBackend),
		zap.Duration("request_timeout", prefs.RequestTimeout))
	return nil
}

// Watch reloads on writes to the account file until ctx is done. The
// directory is watched rather than the file so editors that replace the file
// on save are still seen.
func (l *Live) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(l.path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(l.path), err)
	}

	go func() {
		defer func() { _ = w.Close() }()
		name := filepath.Base(l.path)
		var debounce *time.Timer
		for {
			select {
			case evt, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(evt.Name) != name || !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, func() {
					if err := l.Reload(); err != nil {
						l.logger.Error("account reload failed, keeping previous preferences", zap.Error(err))
					}
				})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn("account watcher error", zap.Error(err))
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return
			}
		}
	}()
	return nil
}
