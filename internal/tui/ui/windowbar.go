package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// WindowTab is one entry of the window bar.
type WindowTab struct {
	Title   string
	Current bool
	Unread  bool
}

// WindowBar lists the open windows, numbered from 1.
type WindowBar struct {
	*tview.TextView
	theme *Theme
}

// NewWindowBar creates an empty window bar.
func NewWindowBar(theme *Theme) *WindowBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &WindowBar{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders tabs.
func (wb *WindowBar) Update(tabs []WindowTab) {
	wb.Clear()
	_, _ = fmt.Fprint(wb, RenderTabs(wb.theme, tabs))
}

// RenderTabs formats tabs with tview color tags.
func RenderTabs(theme *Theme, tabs []WindowTab) string {
	parts := make([]string, 0, len(tabs))
	for i, tab := range tabs {
		label := fmt.Sprintf("%d:%s", i+1, tview.Escape(tab.Title))
		switch {
		case tab.Current:
			parts = append(parts, fmt.Sprintf("[%s:%s:b] %s [-:-:-]",
				ColorName(theme.ActiveWindowFg), ColorName(theme.ActiveWindowBg), label))
		case tab.Unread:
			parts = append(parts, fmt.Sprintf("[%s:%s:b] %s [-:-:-]",
				ColorName(theme.UnreadWindowFg), ColorName(theme.InactiveWindowBg), label))
		default:
			parts = append(parts, fmt.Sprintf("[%s:%s:] %s [-:-:-]",
				ColorName(theme.InactiveWindowFg), ColorName(theme.InactiveWindowBg), label))
		}
	}
	return strings.Join(parts, " ")
}
