package api

import (
	"github.com/matheus3301/xmark/internal/bus"
	"github.com/matheus3301/xmark/internal/jid"
)

// FocusRelay forwards focus requests to UI clients as ui.focus_room events.
type FocusRelay struct {
	bus *bus.Bus
}

// NewFocusRelay creates a relay publishing on b.
func NewFocusRelay(b *bus.Bus) *FocusRelay {
	return &FocusRelay{bus: b}
}

// FocusOrShowRoom asks connected UIs to show room, switching to it if
// switchTo is set.
func (f *FocusRelay) FocusOrShowRoom(room jid.JID, switchTo bool) {
	f.bus.Emit(bus.KindFocusRoom, map[string]any{"room": room.Bare(), "switch_to": switchTo})
}
