package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/matheus3301/xmark/internal/api"
	"github.com/matheus3301/xmark/internal/command"
	"github.com/matheus3301/xmark/internal/tui/model"
)

// Command represents a parsed slash command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a line starting with '/'. It reports false for plain
// text.
func ParseCommand(input string) (Command, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") || len(input) == 1 {
		return Command{}, false
	}
	parts := strings.SplitN(input[1:], " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd, true
}

// Daemon is the daemon API the console uses.
type Daemon interface {
	command.Bookmarks
	command.Completer
	ResetCompletion(ctx context.Context) error
	Sync(ctx context.Context) (uint64, error)
}

// Reply is what a submitted line produced.
type Reply struct {
	OK   bool
	Text string
	Err  error
	Quit bool
}

const localUsage = `/msg <jid>        open a chat window
/roomconfig       open the configuration of the current room
/xmlconsole       open the XML console
/win <n>          switch to window n
/close            close the current window
/sync             reload bookmarks from the server
/quit             exit`

var helpText = command.Usage + "\n" + localUsage

// Console runs input lines against the daemon and the window list.
type Console struct {
	daemon  Daemon
	windows *model.Windows
}

// NewConsole creates a console.
func NewConsole(d Daemon, windows *model.Windows) *Console {
	return &Console{daemon: d, windows: windows}
}

// Submit runs one input line.
func (c *Console) Submit(ctx context.Context, line string) Reply {
	cmd, ok := ParseCommand(line)
	if !ok {
		return Reply{Text: "Unknown input, commands start with /. Try /help."}
	}

	switch cmd.Name {
	case "bookmark":
		parsed, err := command.Parse(line)
		if err != nil {
			return Reply{Text: err.Error()}
		}
		res, err := command.Run(ctx, c.daemon, parsed)
		return Reply{OK: res.OK, Text: res.Message, Err: err}

	case "help":
		return Reply{OK: true, Text: helpText}

	case "msg":
		if cmd.Args == "" {
			return Reply{Text: "Usage: /msg <jid>"}
		}
		if room, nick, ok := strings.Cut(cmd.Args, "/"); ok {
			if _, open := c.windows.Room(room); open {
				c.windows.Open(model.Private{Room: room, Nick: nick})
				return Reply{OK: true}
			}
		}
		c.windows.Open(model.Chat{Contact: cmd.Args})
		return Reply{OK: true}

	case "roomconfig":
		room, ok := c.windows.Current().(*model.Room)
		if !ok {
			return Reply{Text: "Command /roomconfig only usable in chat rooms."}
		}
		c.windows.Open(model.RoomConfig{Room: room.Room})
		return Reply{OK: true}

	case "xmlconsole":
		c.windows.Open(model.XMLConsole{})
		return Reply{OK: true}

	case "win":
		n, err := strconv.Atoi(cmd.Args)
		if err != nil {
			return Reply{Text: "Usage: /win <n>"}
		}
		if err := c.windows.Select(n); err != nil {
			return Reply{Text: err.Error()}
		}
		return Reply{OK: true}

	case "close":
		if _, ok := c.windows.Close(); !ok {
			return Reply{Text: "Cannot close the console window."}
		}
		return Reply{OK: true}

	case "sync":
		cycle, err := c.daemon.Sync(ctx)
		if err != nil {
			return Reply{Err: err}
		}
		return Reply{OK: true, Text: fmt.Sprintf("Bookmark sync %d started.", cycle)}

	case "quit":
		return Reply{OK: true, Quit: true}
	}
	return Reply{Text: fmt.Sprintf("Unknown command: /%s", cmd.Name)}
}

// Complete returns the line with its last word completed, cycling through
// matching rooms on repeated calls.
func (c *Console) Complete(ctx context.Context, line string) (string, bool, error) {
	return command.CompleteLine(ctx, c.daemon, line)
}

// EndCompletion ends the current completion cycle.
func (c *Console) EndCompletion(ctx context.Context) error {
	return c.daemon.ResetCompletion(ctx)
}

// FocusRoom handles a focus request from the daemon. It reports whether a
// new window was opened.
func (c *Console) FocusRoom(payload map[string]any) (*model.Room, bool, error) {
	room, _ := payload["room"].(string)
	if room == "" {
		return nil, false, errors.New("focus request without room")
	}
	switchTo, _ := payload["switch_to"].(bool)
	r, created := c.windows.FocusRoom(room, switchTo)
	return r, created, nil
}

// Annotate copies bookmark details into open room windows.
func (c *Console) Annotate(bookmarks []api.Bookmark) {
	for _, b := range bookmarks {
		if r, ok := c.windows.Room(b.Room); ok {
			r.Nick = b.Nick
			r.Autojoin = b.Autojoin
		}
	}
}
