package bookmark

import (
	"fmt"

	"github.com/matheus3301/xmark/internal/jid"
	"go.uber.org/zap/zapcore"
)

// Backend identifies the server-side storage that owns a bookmark.
type Backend int

const (
	// LegacyStorage is the jabber:iq:private document store.
	LegacyStorage Backend = iota
	// Pubsub is the storage:bookmarks pubsub node.
	Pubsub
)

func (b Backend) String() string {
	switch b {
	case LegacyStorage:
		return "private"
	case Pubsub:
		return "pubsub"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// ParseBackend accepts the names produced by Backend.String.
func ParseBackend(s string) (Backend, error) {
	switch s {
	case "private", "":
		return LegacyStorage, nil
	case "pubsub":
		return Pubsub, nil
	default:
		return LegacyStorage, fmt.Errorf("unknown bookmark storage %q (want private or pubsub)", s)
	}
}

// Record is a bookmarked multi-user chat room. Empty Nick and Password mean unset.
type Record struct {
	Room     jid.JID
	Nick     string
	Password string
	Autojoin bool
	Backend  Backend
}

// Key is the store key: the bare room address.
func (r Record) Key() string {
	return r.Room.Bare()
}

// MarshalLogObject writes r without its password.
func (r Record) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("room", r.Key())
	if r.Nick != "" {
		enc.AddString("nick", r.Nick)
	}
	enc.AddBool("has_password", r.Password != "")
	enc.AddBool("autojoin", r.Autojoin)
	enc.AddString("backend", r.Backend.String())
	return nil
}

// Update carries optional field changes; nil leaves the field untouched.
type Update struct {
	Nick     *string
	Password *string
	Autojoin *bool
}

// IsEmpty reports whether u changes nothing.
func (u Update) IsEmpty() bool {
	return u.Nick == nil && u.Password == nil && u.Autojoin == nil
}

// ParseAutojoin maps the command-layer values "on" and "off".
func ParseAutojoin(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("autojoin must be \"on\" or \"off\", got %q", s)
	}
}
