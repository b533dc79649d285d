package views

import (
	"fmt"
	"strings"

	"github.com/matheus3301/xmark/internal/api"
	"github.com/matheus3301/xmark/internal/tui/model"
	"github.com/rivo/tview"
)

// WindowView shows a non-console window.
type WindowView struct {
	*tview.TextView
	window model.Window
}

// NewWindowView creates the view of w.
func NewWindowView(w model.Window) *WindowView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true).SetTitle(fmt.Sprintf(" %s ", tview.Escape(model.Title(w))))

	return &WindowView{TextView: tv, window: w}
}

// Update renders the window. bm is the bookmark of the room, if any, and
// joined reports whether the daemon has the room active.
func (wv *WindowView) Update(bm *api.Bookmark, joined bool) {
	wv.Clear()
	_, _ = fmt.Fprint(wv, Describe(wv.window, bm, joined))
}

// Describe renders the body of w.
func Describe(w model.Window, bm *api.Bookmark, joined bool) string {
	var b strings.Builder
	switch w := w.(type) {
	case *model.Room:
		fmt.Fprintf(&b, "[::b]%s[-:-:-]\n\n", tview.Escape(w.Room))
		if joined {
			b.WriteString("status:   [green]joined[-]\n")
		} else {
			b.WriteString("status:   [yellow]not joined[-]\n")
		}
		if bm == nil {
			b.WriteString("bookmark: none\n")
			break
		}
		fmt.Fprintf(&b, "nick:     %s\n", tview.Escape(bm.Nick))
		fmt.Fprintf(&b, "autojoin: %t\n", bm.Autojoin)
		fmt.Fprintf(&b, "storage:  %s\n", bm.Backend)
		if bm.HasPassword {
			b.WriteString("password: set\n")
		}
	case model.Chat:
		fmt.Fprintf(&b, "Chat with %s\n", tview.Escape(w.Contact))
	case model.Private:
		fmt.Fprintf(&b, "Private chat with %s in %s\n", tview.Escape(w.Nick), tview.Escape(w.Room))
	case model.RoomConfig:
		fmt.Fprintf(&b, "Configuration of %s\n", tview.Escape(w.Room))
	case model.XMLConsole:
		b.WriteString("XML console\n")
	case model.Console:
	}
	return b.String()
}
