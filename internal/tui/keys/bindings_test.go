package keys

import (
	"slices"
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestScopedBindingWinsOverGlobal(t *testing.T) {
	r := NewRegistry()
	var got string
	r.AddGlobal("close", &Action{Key: tcell.KeyRune, Rune: 'c', Handler: func() { got = "global" }})
	r.AddScoped("room", "config", &Action{Key: tcell.KeyRune, Rune: 'c', Handler: func() { got = "room" }})

	ev := tcell.NewEventKey(tcell.KeyRune, 'c', tcell.ModNone)
	if !r.HandleEvent("room", ev) || got != "room" {
		t.Errorf("room scope ran %q", got)
	}
	if !r.HandleEvent("console", ev) || got != "global" {
		t.Errorf("console scope ran %q", got)
	}
	if r.HandleEvent("console", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)) {
		t.Error("unbound key should not be handled")
	}
}

func TestModifiersMustMatch(t *testing.T) {
	r := NewRegistry()
	ran := false
	r.AddGlobal("next", &Action{Key: tcell.KeyRight, Modifiers: tcell.ModAlt, Handler: func() { ran = true }})

	if r.HandleEvent("console", tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone)) || ran {
		t.Fatal("plain arrow should not match")
	}
	if !r.HandleEvent("console", tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModAlt)) || !ran {
		t.Error("alt+arrow should match")
	}
}

func TestHintsOrder(t *testing.T) {
	r := NewRegistry()
	r.AddGlobal("quit", &Action{Description: "q:quit", Visible: true})
	r.AddGlobal("help", &Action{Description: "?:help", Visible: true})
	r.AddGlobal("hidden", &Action{Description: "h", Visible: false})
	r.AddScoped("console", "join", &Action{Description: "enter:join", Visible: true})

	want := []string{"enter:join", "?:help", "q:quit"}
	if got := r.Hints("console"); !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := r.Hints("room"); !slices.Equal(got, want[1:]) {
		t.Errorf("got %v, want %v", got, want[1:])
	}
}
