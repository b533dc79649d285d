package model

import (
	"fmt"
	"strings"
)

// Window is one of the terminal windows. The set of kinds is closed; code
// that renders or routes windows switches on the concrete type.
type Window interface {
	window()
}

// Console is the first window. It always exists and shows the bookmark list
// and command output.
type Console struct{}

// Chat is a one-to-one conversation.
type Chat struct {
	Contact string
}

// Room is a multi-user chat room.
type Room struct {
	Room     string
	Nick     string
	Autojoin bool
	// Unread is set when the room was opened in the background.
	Unread bool
}

// RoomConfig is the configuration form of a room.
type RoomConfig struct {
	Room string
}

// Private is a private conversation with an occupant of a room.
type Private struct {
	Room string
	Nick string
}

// XMLConsole shows raw traffic.
type XMLConsole struct{}

func (Console) window()    {}
func (Chat) window()       {}
func (*Room) window()      {}
func (RoomConfig) window() {}
func (Private) window()    {}
func (XMLConsole) window() {}

// Title is the label shown for w in the window bar.
func Title(w Window) string {
	switch w := w.(type) {
	case Console:
		return "console"
	case Chat:
		return w.Contact
	case *Room:
		if w.Unread {
			return w.Room + "*"
		}
		return w.Room
	case RoomConfig:
		return w.Room + " config"
	case Private:
		return w.Room + "/" + w.Nick
	case XMLConsole:
		return "xml"
	}
	return "?"
}

// PageName is the unique page identifier of w.
func PageName(w Window) string {
	switch w := w.(type) {
	case Console:
		return "console"
	case Chat:
		return "chat:" + w.Contact
	case *Room:
		return "room:" + w.Room
	case RoomConfig:
		return "roomconfig:" + w.Room
	case Private:
		return "private:" + w.Room + "/" + w.Nick
	case XMLConsole:
		return "xmlconsole"
	}
	return ""
}

// KeyScope is the key binding scope of w.
func KeyScope(w Window) string {
	switch w.(type) {
	case Console:
		return "console"
	case *Room:
		return "room"
	}
	return "window"
}

// Windows is the ordered list of open windows with one of them current.
// Index 0 is always the console. It is not safe for concurrent use; the
// application only touches it from the draw goroutine.
type Windows struct {
	list    []Window
	current int
}

// NewWindows returns a set holding only the console.
func NewWindows() *Windows {
	return &Windows{list: []Window{Console{}}}
}

// Current returns the focused window.
func (ws *Windows) Current() Window {
	return ws.list[ws.current]
}

// All returns the open windows in order.
func (ws *Windows) All() []Window {
	out := make([]Window, len(ws.list))
	copy(out, ws.list)
	return out
}

// Room returns the open window for room.
func (ws *Windows) Room(room string) (*Room, bool) {
	for _, w := range ws.list {
		if r, ok := w.(*Room); ok && strings.EqualFold(r.Room, room) {
			return r, true
		}
	}
	return nil, false
}

// FocusRoom opens a window for room if none exists. With switchTo the
// window becomes current; otherwise it is marked unread unless it already
// is the current window. It reports whether a window was created.
func (ws *Windows) FocusRoom(room string, switchTo bool) (*Room, bool) {
	r, found := ws.Room(room)
	if !found {
		r = &Room{Room: room}
		ws.list = append(ws.list, r)
	}
	if switchTo {
		ws.current = ws.index(r)
		r.Unread = false
	} else if ws.Current() != Window(r) {
		r.Unread = true
	}
	return r, !found
}

// Open appends w, or focuses the existing window with the same page name.
func (ws *Windows) Open(w Window) {
	name := PageName(w)
	for i, existing := range ws.list {
		if PageName(existing) == name {
			ws.current = i
			return
		}
	}
	ws.list = append(ws.list, w)
	ws.current = len(ws.list) - 1
}

// Select focuses window n, counting from 1 for the console.
func (ws *Windows) Select(n int) error {
	if n < 1 || n > len(ws.list) {
		return fmt.Errorf("no window %d", n)
	}
	ws.current = n - 1
	if r, ok := ws.list[ws.current].(*Room); ok {
		r.Unread = false
	}
	return nil
}

// Next focuses the window after the current one, wrapping to the console.
func (ws *Windows) Next() {
	_ = ws.Select((ws.current+1)%len(ws.list) + 1)
}

// Close closes the current window and focuses the one before it. The
// console cannot be closed.
func (ws *Windows) Close() (Window, bool) {
	if ws.current == 0 {
		return nil, false
	}
	w := ws.list[ws.current]
	ws.list = append(ws.list[:ws.current], ws.list[ws.current+1:]...)
	ws.current--
	return w, true
}

func (ws *Windows) index(w Window) int {
	for i, existing := range ws.list {
		if existing == w {
			return i
		}
	}
	return 0
}
