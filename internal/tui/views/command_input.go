package views

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// CommandInput is the input line shared by every window.
type CommandInput struct {
	*tview.InputField
	onSubmit   func(line string)
	onComplete func(line string)
	onEdit     func()
}

// NewCommandInput creates a new input line.
func NewCommandInput() *CommandInput {
	input := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)

	c := &CommandInput{InputField: input}

	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && c.onSubmit != nil {
			text := c.GetText()
			if text != "" {
				c.SetText("")
				c.onSubmit(text)
			}
		}
	})
	input.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyTab {
			if c.onComplete != nil {
				c.onComplete(c.GetText())
			}
			return nil
		}
		if c.onEdit != nil {
			c.onEdit()
		}
		return ev
	})

	return c
}

// SetOnSubmit sets the callback for a submitted line.
func (c *CommandInput) SetOnSubmit(fn func(line string)) {
	c.onSubmit = fn
}

// SetOnComplete sets the callback for Tab.
func (c *CommandInput) SetOnComplete(fn func(line string)) {
	c.onComplete = fn
}

// SetOnEdit sets the callback for any other key, which ends a completion
// cycle.
func (c *CommandInput) SetOnEdit(fn func()) {
	c.onEdit = fn
}
