package keys

import (
	"sort"

	"github.com/gdamore/tcell/v2"
)

// Action represents a keybinding action.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Modifiers   tcell.ModMask
	Description string
	Handler     func()
	Visible     bool
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if ev.Modifiers()&a.Modifiers != a.Modifiers {
		return false
	}
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Registry holds keybindings organized by scope. A scope is the key scope
// of a window kind.
type Registry struct {
	Global map[string]*Action
	Scopes map[string]map[string]*Action
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{
		Global: make(map[string]*Action),
		Scopes: make(map[string]map[string]*Action),
	}
}

// AddGlobal registers a binding active in every window.
func (r *Registry) AddGlobal(name string, action *Action) {
	r.Global[name] = action
}

// AddScoped registers a binding active only in windows of scope.
func (r *Registry) AddScoped(scope, name string, action *Action) {
	if r.Scopes[scope] == nil {
		r.Scopes[scope] = make(map[string]*Action)
	}
	r.Scopes[scope][name] = action
}

// Hints returns visible binding descriptions for scope, scoped bindings
// first, each group sorted by name.
func (r *Registry) Hints(scope string) []string {
	hints := visible(r.Scopes[scope])
	return append(hints, visible(r.Global)...)
}

// HandleEvent dispatches a key event to the matching action of scope,
// falling back to global bindings. Returns true if a handler ran.
func (r *Registry) HandleEvent(scope string, ev *tcell.EventKey) bool {
	if a := match(r.Scopes[scope], ev); a != nil {
		a.Handler()
		return true
	}
	if a := match(r.Global, ev); a != nil {
		a.Handler()
		return true
	}
	return false
}

func visible(actions map[string]*Action) []string {
	var hints []string
	for _, name := range sortedNames(actions) {
		if a := actions[name]; a.Visible {
			hints = append(hints, a.Description)
		}
	}
	return hints
}

func match(actions map[string]*Action, ev *tcell.EventKey) *Action {
	for _, name := range sortedNames(actions) {
		if a := actions[name]; a.Matches(ev) {
			return a
		}
	}
	return nil
}

func sortedNames(actions map[string]*Action) []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
