package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor          tcell.Color
	FgColor          tcell.Color
	BorderColor      tcell.Color
	TitleColor       tcell.Color
	TableHeaderFg    tcell.Color
	TableCursorFg    tcell.Color
	TableCursorBg    tcell.Color
	AutojoinColor    tcell.Color
	ActiveWindowFg   tcell.Color
	ActiveWindowBg   tcell.Color
	InactiveWindowFg tcell.Color
	InactiveWindowBg tcell.Color
	UnreadWindowFg   tcell.Color
	FlashInfoColor   tcell.Color
	FlashWarnColor   tcell.Color
	FlashErrColor    tcell.Color
}

// DefaultTheme returns the dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:          tcell.ColorBlack,
		FgColor:          tcell.ColorCadetBlue,
		BorderColor:      tcell.ColorDodgerBlue,
		TitleColor:       tcell.ColorFuchsia,
		TableHeaderFg:    tcell.ColorWhite,
		TableCursorFg:    tcell.ColorBlack,
		TableCursorBg:    tcell.ColorAqua,
		AutojoinColor:    tcell.ColorGreen,
		ActiveWindowFg:   tcell.ColorBlack,
		ActiveWindowBg:   tcell.ColorOrange,
		InactiveWindowFg: tcell.ColorBlack,
		InactiveWindowBg: tcell.ColorAqua,
		UnreadWindowFg:   tcell.ColorRed,
		FlashInfoColor:   tcell.ColorNavajoWhite,
		FlashWarnColor:   tcell.ColorOrange,
		FlashErrColor:    tcell.ColorOrangeRed,
	}
}

// ColorName returns a tview-compatible color tag for c.
func ColorName(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}
