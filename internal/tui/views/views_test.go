package views

import (
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/xmark/internal/api"
	"github.com/matheus3301/xmark/internal/tui/model"
	"github.com/matheus3301/xmark/internal/tui/ui"
)

func TestStatusLine(t *testing.T) {
	now := time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)

	line := statusLine("main", api.Status{Status: "online", Phase: "querying_both", Bookmarks: 3}, []string{"q:quit"}, now)
	for _, want := range []string{"main", "online", "querying_both", "3 bookmarks", "09:30", "q:quit"} {
		if !strings.Contains(line, want) {
			t.Errorf("missing %q in %q", want, line)
		}
	}

	idle := statusLine("main", api.Status{Status: "online", Phase: "idle"}, nil, now)
	if strings.Contains(idle, "idle") {
		t.Errorf("idle phase should be hidden: %q", idle)
	}
	if !strings.Contains(statusLine("main", api.Status{}, nil, now), "unknown") {
		t.Error("empty status should render as unknown")
	}
}

func TestDescribeRoom(t *testing.T) {
	room := &model.Room{Room: "dev@conf.example.org"}
	bm := &api.Bookmark{Room: room.Room, Nick: "ana", Autojoin: true, Backend: "pubsub", HasPassword: true}

	out := Describe(room, bm, true)
	for _, want := range []string{"dev@conf.example.org", "joined", "ana", "autojoin: true", "pubsub", "password: set"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}

	out = Describe(room, nil, false)
	if !strings.Contains(out, "not joined") || !strings.Contains(out, "bookmark: none") {
		t.Errorf("unexpected body %q", out)
	}
}

func TestDescribeOtherWindows(t *testing.T) {
	tests := []struct {
		w    model.Window
		want string
	}{
		{model.Chat{Contact: "bob@example.org"}, "Chat with bob@example.org"},
		{model.Private{Room: "dev@conf", Nick: "ana"}, "Private chat with ana in dev@conf"},
		{model.RoomConfig{Room: "dev@conf"}, "Configuration of dev@conf"},
		{model.XMLConsole{}, "XML console"},
	}
	for _, tt := range tests {
		if got := Describe(tt.w, nil, false); !strings.Contains(got, tt.want) {
			t.Errorf("Describe(%T) = %q, want %q", tt.w, got, tt.want)
		}
	}
}

func TestBookmarkTableKeepsSelection(t *testing.T) {
	bt := NewBookmarkTable(ui.DefaultTheme())
	bt.Update([]api.Bookmark{{Room: "a@conf"}, {Room: "b@conf"}})
	bt.Select(2, 0)
	if got := bt.SelectedRoom(); got != "b@conf" {
		t.Fatalf("selected %q, want b@conf", got)
	}

	bt.Update([]api.Bookmark{{Room: "c@conf"}, {Room: "a@conf"}, {Room: "b@conf"}})
	if got := bt.SelectedRoom(); got != "b@conf" {
		t.Errorf("selection moved to %q", got)
	}

	bt.Update(nil)
	if got := bt.SelectedRoom(); got != "" {
		t.Errorf("empty table selected %q", got)
	}
}
