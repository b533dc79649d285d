package ui

import "github.com/rivo/tview"

// Pages holds one page per open window and shows the current one.
type Pages struct {
	*tview.Pages
	current string
	onShow  func(name string)
}

// NewPages creates an empty page set.
func NewPages() *Pages {
	return &Pages{
		Pages: tview.NewPages(),
	}
}

// SetOnShow sets a callback fired after a page becomes visible.
func (p *Pages) SetOnShow(fn func(name string)) {
	p.onShow = fn
}

// Ensure adds the page built by build unless name already exists.
func (p *Pages) Ensure(name string, build func() tview.Primitive) {
	if p.HasPage(name) {
		return
	}
	p.AddPage(name, build(), true, false)
}

// Show hides the current page and shows name.
func (p *Pages) Show(name string) {
	if p.current == name {
		return
	}
	if p.current != "" {
		p.HidePage(p.current)
	}
	p.current = name
	p.ShowPage(name)
	p.SendToFront(name)
	if p.onShow != nil {
		p.onShow(name)
	}
}

// Drop removes a page that is no longer needed.
func (p *Pages) Drop(name string) {
	if p.current == name {
		p.current = ""
	}
	p.RemovePage(name)
}

// Current returns the visible page.
func (p *Pages) Current() string {
	return p.current
}
