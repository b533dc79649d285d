package bus

import "time"

// Event kinds published by the daemon. Subscribers filter on the part
// before the dot.
const (
	KindStatusChanged = "session.status_changed"

	KindSyncStarted  = "bookmark.sync_started"
	KindSyncResolved = "bookmark.sync_resolved"
	KindSyncTimeout  = "bookmark.sync_timeout"
	KindPhaseChanged = "bookmark.phase_changed"
	KindChanged      = "bookmark.changed"
	KindPushFailed   = "bookmark.push_failed"

	KindFocusRoom = "ui.focus_room"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
