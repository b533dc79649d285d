package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/xmark/internal/api"
	"github.com/rivo/tview"
)

// StatusBar displays the account, session state and sync phase.
type StatusBar struct {
	*tview.TextView
	account string
	status  api.Status
	hints   []string
}

// NewStatusBar creates a new status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv}
}

// SetAccount updates the account name display.
func (sb *StatusBar) SetAccount(name string) {
	sb.account = name
	sb.render()
}

// SetStatus updates the session display.
func (sb *StatusBar) SetStatus(st api.Status) {
	sb.status = st
	sb.render()
}

// SetHints updates the key hints of the current window.
func (sb *StatusBar) SetHints(hints []string) {
	sb.hints = hints
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()
	_, _ = fmt.Fprint(sb, statusLine(sb.account, sb.status, sb.hints, time.Now()))
}

func statusLine(account string, st api.Status, hints []string, now time.Time) string {
	state := st.Status
	if state == "" {
		state = "unknown"
	}
	phase := ""
	if st.Phase != "" && st.Phase != "idle" {
		phase = fmt.Sprintf(" [green]%s[-]", st.Phase)
	}
	line := fmt.Sprintf(" [::b]%s[-:-:-] | %s%s | %d bookmarks | %s",
		account, state, phase, st.Bookmarks, now.Format("15:04"))
	if len(hints) > 0 {
		line += " | [::d]" + strings.Join(hints, " ") + "[-:-:-]"
	}
	return line
}
