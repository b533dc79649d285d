package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/matheus3301/xmark/internal/api"
	"github.com/matheus3301/xmark/internal/tui/model"
)

type fakeDaemon struct {
	bookmarks []api.Bookmark
	completes []string
	resets    int
	syncs     uint64
	sendErr   error
}

func (f *fakeDaemon) List(context.Context) ([]api.Bookmark, error) { return f.bookmarks, nil }

func (f *fakeDaemon) Add(_ context.Context, req api.AddRequest) (bool, error) {
	for _, b := range f.bookmarks {
		if b.Room == req.Room {
			return false, nil
		}
	}
	f.bookmarks = append(f.bookmarks, api.Bookmark{Room: req.Room, Nick: req.Nick, Autojoin: req.Autojoin})
	return true, f.sendErr
}

func (f *fakeDaemon) Update(_ context.Context, req api.UpdateRequest) (bool, error) {
	for i, b := range f.bookmarks {
		if b.Room == req.Room {
			if req.Nick != nil {
				f.bookmarks[i].Nick = *req.Nick
			}
			return true, f.sendErr
		}
	}
	return false, nil
}

func (f *fakeDaemon) Remove(_ context.Context, room string) (bool, error) {
	for i, b := range f.bookmarks {
		if b.Room == room {
			f.bookmarks = append(f.bookmarks[:i], f.bookmarks[i+1:]...)
			return true, f.sendErr
		}
	}
	return false, nil
}

func (f *fakeDaemon) Join(_ context.Context, room string) (bool, error) {
	for _, b := range f.bookmarks {
		if b.Room == room {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDaemon) Complete(_ context.Context, text string) (string, bool, error) {
	var matches []string
	for _, b := range f.bookmarks {
		if strings.HasPrefix(b.Room, text) {
			matches = append(matches, b.Room)
		}
	}
	if len(matches) == 0 {
		return "", false, nil
	}
	m := matches[len(f.completes)%len(matches)]
	f.completes = append(f.completes, m)
	return m, true, nil
}

func (f *fakeDaemon) ResetCompletion(context.Context) error {
	f.resets++
	f.completes = nil
	return nil
}

func (f *fakeDaemon) Sync(context.Context) (uint64, error) {
	f.syncs++
	return f.syncs, nil
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
		ok   bool
	}{
		{"/bookmark add a@b", Command{Name: "bookmark", Args: "add a@b"}, true},
		{"  /WIN 2 ", Command{Name: "win", Args: "2"}, true},
		{"/close", Command{Name: "close"}, true},
		{"hello", Command{}, false},
		{"/", Command{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseCommand(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseCommand(%q) = %+v, %v; want %+v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestConsoleBookmarkCommands(t *testing.T) {
	d := &fakeDaemon{}
	c := NewConsole(d, model.NewWindows())
	ctx := context.Background()

	steps := []struct {
		line string
		ok   bool
		text string
	}{
		{"/bookmark", true, "No bookmarks"},
		{"/bookmark add dev@conf nick ana autojoin on", true, "Bookmark added for dev@conf."},
		{"/bookmark add dev@conf", false, "Bookmark already exists, use /bookmark update to edit."},
		{"/bookmark update dev@conf nick bea", true, "Bookmark updated."},
		{"/bookmark update nope@conf nick bea", false, "No bookmark exists for nope@conf."},
		{"/bookmark join dev@conf", true, "Joining dev@conf."},
		{"/bookmark remove dev@conf", true, "Bookmark removed for dev@conf."},
		{"/bookmark remove dev@conf", false, "No bookmark exists for dev@conf."},
	}
	for _, s := range steps {
		r := c.Submit(ctx, s.line)
		if r.Err != nil || r.OK != s.ok || r.Text != s.text {
			t.Errorf("%s: got %+v, want ok=%v text=%q", s.line, r, s.ok, s.text)
		}
	}

	if r := c.Submit(ctx, "/bookmark update dev@conf"); r.OK || !strings.Contains(r.Text, "usage") {
		t.Errorf("update without options: %+v", r)
	}
}

func TestConsoleSendFailureKeepsResult(t *testing.T) {
	boom := errors.New("not connected")
	d := &fakeDaemon{sendErr: boom}
	c := NewConsole(d, model.NewWindows())

	r := c.Submit(context.Background(), "/bookmark add dev@conf")
	if !r.OK || !errors.Is(r.Err, boom) || r.Text != "Bookmark added for dev@conf." {
		t.Errorf("got %+v", r)
	}
}

func TestConsoleWindowCommands(t *testing.T) {
	ws := model.NewWindows()
	c := NewConsole(&fakeDaemon{}, ws)
	ctx := context.Background()

	if r := c.Submit(ctx, "/roomconfig"); r.OK {
		t.Error("/roomconfig outside a room should fail")
	}
	if r := c.Submit(ctx, "/close"); r.OK {
		t.Error("closing the console should fail")
	}

	ws.FocusRoom("dev@conf", true)
	if r := c.Submit(ctx, "/roomconfig"); !r.OK {
		t.Fatalf("/roomconfig: %+v", r)
	}
	if _, ok := ws.Current().(model.RoomConfig); !ok {
		t.Errorf("current %T, want RoomConfig", ws.Current())
	}

	c.Submit(ctx, "/msg dev@conf/ana")
	if p, ok := ws.Current().(model.Private); !ok || p.Nick != "ana" {
		t.Errorf("current %#v, want Private", ws.Current())
	}
	c.Submit(ctx, "/msg bob@example.org")
	if ch, ok := ws.Current().(model.Chat); !ok || ch.Contact != "bob@example.org" {
		t.Errorf("current %#v, want Chat", ws.Current())
	}
	c.Submit(ctx, "/xmlconsole")
	if _, ok := ws.Current().(model.XMLConsole); !ok {
		t.Errorf("current %T, want XMLConsole", ws.Current())
	}

	if r := c.Submit(ctx, "/win 1"); !r.OK {
		t.Fatalf("/win 1: %+v", r)
	}
	if _, ok := ws.Current().(model.Console); !ok {
		t.Errorf("current %T, want Console", ws.Current())
	}
	if r := c.Submit(ctx, "/win x"); r.OK {
		t.Error("/win x should fail")
	}
	if r := c.Submit(ctx, "/quit"); !r.Quit {
		t.Error("/quit should quit")
	}
	if r := c.Submit(ctx, "/nope"); r.OK || r.Text != "Unknown command: /nope" {
		t.Errorf("got %+v", r)
	}
	if r := c.Submit(ctx, "/help"); !strings.Contains(r.Text, "/bookmark join <room>") || !strings.Contains(r.Text, "/xmlconsole") {
		t.Errorf("help text %q", r.Text)
	}
}

func TestConsoleSyncAndCompletion(t *testing.T) {
	d := &fakeDaemon{bookmarks: []api.Bookmark{{Room: "dev@conf"}, {Room: "design@conf"}}}
	c := NewConsole(d, model.NewWindows())
	ctx := context.Background()

	if r := c.Submit(ctx, "/sync"); !r.OK || r.Text != "Bookmark sync 1 started." {
		t.Errorf("sync: %+v", r)
	}

	first, ok, err := c.Complete(ctx, "/bookmark join de")
	if err != nil || !ok || first != "/bookmark join dev@conf" {
		t.Fatalf("first completion %q %v %v", first, ok, err)
	}
	second, _, _ := c.Complete(ctx, "/bookmark join de")
	if second != "/bookmark join design@conf" {
		t.Errorf("second completion %q", second)
	}
	if err := c.EndCompletion(ctx); err != nil || d.resets != 1 {
		t.Errorf("reset: %v, %d", err, d.resets)
	}
	again, _, _ := c.Complete(ctx, "/bookmark join de")
	if again != first {
		t.Errorf("after reset got %q, want %q", again, first)
	}
}

func TestConsoleFocusRoom(t *testing.T) {
	ws := model.NewWindows()
	c := NewConsole(&fakeDaemon{}, ws)

	r, created, err := c.FocusRoom(map[string]any{"room": "dev@conf", "switch_to": false})
	if err != nil || !created || !r.Unread {
		t.Fatalf("got %+v %v %v", r, created, err)
	}
	if _, ok := ws.Current().(model.Console); !ok {
		t.Error("background focus should keep the console current")
	}

	_, created, _ = c.FocusRoom(map[string]any{"room": "dev@conf", "switch_to": true})
	if created || ws.Current() != model.Window(r) {
		t.Error("explicit focus should switch to the existing window")
	}

	if _, _, err := c.FocusRoom(map[string]any{}); err == nil {
		t.Error("missing room should fail")
	}

	c.Annotate([]api.Bookmark{{Room: "dev@conf", Nick: "ana", Autojoin: true}})
	if r.Nick != "ana" || !r.Autojoin {
		t.Errorf("annotate: %+v", r)
	}
}
