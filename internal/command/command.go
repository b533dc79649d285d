// Package command parses and runs the /bookmark command shared by xmarkctl
// and the TUI.
package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matheus3301/xmark/internal/bookmark"
)

// Prefix starts a bookmark command typed in the TUI.
const Prefix = "/bookmark"

// ErrUsage is wrapped by every parse error.
var ErrUsage = errors.New("usage")

// Usage lists the accepted forms.
const Usage = `/bookmark list
/bookmark add <room> [nick <nick>] [password <password>] [autojoin on|off]
/bookmark update <room> [nick <nick>] [password <password>] [autojoin on|off]
/bookmark remove <room>
/bookmark join <room>`

// Op is a bookmark subcommand.
type Op string

const (
	OpList   Op = "list"
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
	OpJoin   Op = "join"
)

// Command is a parsed bookmark command. Nil option fields were not given.
type Command struct {
	Op       Op
	Room     string
	Nick     *string
	Password *string
	Autojoin *bool
}

// Parse parses a full command line such as "/bookmark add room@conf.example".
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != Prefix {
		return Command{}, fmt.Errorf("%w: command must start with %s", ErrUsage, Prefix)
	}
	return ParseArgs(fields[1:])
}

// ParseArgs parses the words after /bookmark. No words means list.
func ParseArgs(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{Op: OpList}, nil
	}
	cmd := Command{Op: Op(args[0])}
	rest := args[1:]

	switch cmd.Op {
	case OpList:
		if len(rest) != 0 {
			return Command{}, fmt.Errorf("%w: list takes no arguments", ErrUsage)
		}
		return cmd, nil
	case OpRemove, OpJoin:
		if len(rest) != 1 {
			return Command{}, fmt.Errorf("%w: %s takes exactly one room", ErrUsage, cmd.Op)
		}
		cmd.Room = rest[0]
		return cmd, nil
	case OpAdd, OpUpdate:
		if len(rest) == 0 {
			return Command{}, fmt.Errorf("%w: %s needs a room", ErrUsage, cmd.Op)
		}
		cmd.Room = rest[0]
		if err := parseOptions(&cmd, rest[1:]); err != nil {
			return Command{}, err
		}
		if cmd.Op == OpUpdate && cmd.Nick == nil && cmd.Password == nil && cmd.Autojoin == nil {
			return Command{}, fmt.Errorf("%w: update needs at least one of nick, password, autojoin", ErrUsage)
		}
		return cmd, nil
	default:
		return Command{}, fmt.Errorf("%w: unknown subcommand %q", ErrUsage, args[0])
	}
}

func parseOptions(cmd *Command, opts []string) error {
	if len(opts)%2 != 0 {
		return fmt.Errorf("%w: option %q has no value", ErrUsage, opts[len(opts)-1])
	}
	for i := 0; i < len(opts); i += 2 {
		key, value := opts[i], opts[i+1]
		switch key {
		case "nick":
			cmd.Nick = &value
		case "password":
			cmd.Password = &value
		case "autojoin":
			on, err := bookmark.ParseAutojoin(value)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUsage, err)
			}
			cmd.Autojoin = &on
		default:
			return fmt.Errorf("%w: unknown option %q", ErrUsage, key)
		}
	}
	return nil
}
