package views

import (
	"github.com/matheus3301/xmark/internal/api"
	"github.com/matheus3301/xmark/internal/tui/ui"
	"github.com/rivo/tview"
)

// BookmarkTable lists the bookmarks of the console window.
type BookmarkTable struct {
	*tview.Table
	theme     *ui.Theme
	bookmarks []api.Bookmark
}

// NewBookmarkTable creates an empty table.
func NewBookmarkTable(theme *ui.Theme) *BookmarkTable {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true).SetTitle(" Bookmarks ")
	table.SetBorderColor(theme.BorderColor)
	table.SetTitleColor(theme.TitleColor)

	return &BookmarkTable{Table: table, theme: theme}
}

// Update refreshes the table, keeping the selected room when it still exists.
func (bt *BookmarkTable) Update(bookmarks []api.Bookmark) {
	selected := bt.SelectedRoom()
	bt.bookmarks = bookmarks
	bt.Clear()

	for col, title := range []string{" Room", " Nick", " Autojoin", " Backend"} {
		bt.SetCell(0, col, tview.NewTableCell(title).
			SetSelectable(false).
			SetTextColor(bt.theme.TableHeaderFg))
	}

	row := 1
	for i, b := range bookmarks {
		room := b.Room
		if b.HasPassword {
			room += " (private)"
		}
		autojoin := tview.NewTableCell(" no")
		if b.Autojoin {
			autojoin = tview.NewTableCell(" yes").SetTextColor(bt.theme.AutojoinColor)
		}
		bt.SetCell(i+1, 0, tview.NewTableCell(" "+room).SetExpansion(2))
		bt.SetCell(i+1, 1, tview.NewTableCell(" "+b.Nick).SetExpansion(1))
		bt.SetCell(i+1, 2, autojoin)
		bt.SetCell(i+1, 3, tview.NewTableCell(" "+b.Backend))
		if b.Room == selected {
			row = i + 1
		}
	}
	if len(bookmarks) > 0 {
		bt.Select(row, 0)
	}
}

// SelectedRoom returns the room of the selected row.
func (bt *BookmarkTable) SelectedRoom() string {
	row, _ := bt.GetSelection()
	idx := row - 1
	if idx >= 0 && idx < len(bt.bookmarks) {
		return bt.bookmarks[idx].Room
	}
	return ""
}
