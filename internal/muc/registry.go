package muc

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/xmark/internal/jid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// DefaultJoinTimeout bounds how long a room stays "joining" without the
// server confirming our own presence.
const DefaultJoinTimeout = 60 * time.Second

// Joiner sends the presence that enters a room.
type Joiner interface {
	JoinRoom(ctx context.Context, room jid.JID, nick, password string) error
}

type room struct {
	nick           string
	rosterComplete bool
}

// Registry tracks rooms we are in or joining.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*room
	joining *cache.Cache
	joiner  Joiner
	logger  *zap.Logger
}

// NewRegistry creates a registry that sends joins through j.
func NewRegistry(j Joiner, joinTimeout time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if joinTimeout <= 0 {
		joinTimeout = DefaultJoinTimeout
	}
	return &Registry{
		rooms:   make(map[string]*room),
		joining: cache.New(joinTimeout, 2*joinTimeout),
		joiner:  j,
		logger:  logger,
	}
}

// IsActive reports whether the room is joined or a join is in flight.
func (r *Registry) IsActive(room jid.JID) bool {
	key := room.Bare()
	r.mu.RLock()
	_, ok := r.rooms[key]
	r.mu.RUnlock()
	if ok {
		return true
	}
	_, joining := r.joining.Get(key)
	return joining
}

// IsRosterComplete reports whether the full occupant list has arrived.
func (r *Registry) IsRosterComplete(room jid.JID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[room.Bare()]
	return ok && rm.rosterComplete
}

// Join sends the join presence and marks the room as joining.
func (r *Registry) Join(ctx context.Context, room jid.JID, nick, password string) error {
	key := room.Bare()
	if err := r.joiner.JoinRoom(ctx, room, nick, password); err != nil {
		return fmt.Errorf("join %s: %w", key, err)
	}
	r.joining.SetDefault(key, nick)
	r.logger.Info("joining room", zap.String("room", key), zap.String("nick", nick))
	return nil
}

// HandlePresence updates room state from a presence sent by a room occupant.
// Our own presence arrives after every other occupant's, so it marks the
// roster complete; our own unavailable presence means we left.
func (r *Registry) HandlePresence(from, presenceType string) {
	addr, err := jid.Parse(from)
	if err != nil || addr.Resource == "" {
		return
	}
	key := addr.Bare()
	v, joining := r.joining.Get(key)

	r.mu.Lock()
	defer r.mu.Unlock()
	rm, joined := r.rooms[key]

	nick := ""
	switch {
	case joined:
		nick = rm.nick
	case joining:
		nick, _ = v.(string)
	default:
		return
	}
	if addr.Resource != nick {
		return
	}

	if presenceType == "unavailable" {
		delete(r.rooms, key)
		r.joining.Delete(key)
		r.logger.Info("left room", zap.String("room", key))
		return
	}
	if !joined {
		r.rooms[key] = &room{nick: nick, rosterComplete: true}
		r.joining.Delete(key)
		r.logger.Info("room roster complete", zap.String("room", key))
	}
}

// Rooms returns the bare addresses of joined rooms, sorted.
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.rooms))
	for k := range r.rooms {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Reset forgets every room; used when the connection drops.
func (r *Registry) Reset() {
	r.mu.Lock()
	clear(r.rooms)
	r.mu.Unlock()
	r.joining.Flush()
}
