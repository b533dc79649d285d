package model

import (
	"context"
	"sync"

	"github.com/matheus3301/xmark/internal/api"
)

// Daemon is the part of the daemon API the view model reads.
type Daemon interface {
	List(ctx context.Context) ([]api.Bookmark, error)
	Status(ctx context.Context) (api.Status, error)
}

// ViewModel caches daemon state and signals UI refreshes.
type ViewModel struct {
	mu sync.RWMutex

	daemon    Daemon
	bookmarks []api.Bookmark
	status    api.Status

	refreshCh chan struct{}
}

// NewViewModel creates a view model reading from d.
func NewViewModel(d Daemon) *ViewModel {
	return &ViewModel{
		daemon:    d,
		refreshCh: make(chan struct{}, 1),
	}
}

// RefreshCh returns the channel that signals UI refresh.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// LoadBookmarks fetches the bookmark list.
func (vm *ViewModel) LoadBookmarks(ctx context.Context) error {
	list, err := vm.daemon.List(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.bookmarks = list
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// LoadStatus fetches session status and sync counters.
func (vm *ViewModel) LoadStatus(ctx context.Context) error {
	st, err := vm.daemon.Status(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.status = st
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// Bookmarks returns a snapshot of the bookmark list.
func (vm *ViewModel) Bookmarks() []api.Bookmark {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	out := make([]api.Bookmark, len(vm.bookmarks))
	copy(out, vm.bookmarks)
	return out
}

// Bookmark returns the cached bookmark for room.
func (vm *ViewModel) Bookmark(room string) (api.Bookmark, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for _, b := range vm.bookmarks {
		if b.Room == room {
			return b, true
		}
	}
	return api.Bookmark{}, false
}

// Status returns a snapshot of the session status.
func (vm *ViewModel) Status() api.Status {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}
