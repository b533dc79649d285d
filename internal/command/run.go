package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/matheus3301/xmark/internal/api"
)

// Bookmarks is the daemon API used to run commands.
type Bookmarks interface {
	List(ctx context.Context) ([]api.Bookmark, error)
	Add(ctx context.Context, req api.AddRequest) (bool, error)
	Update(ctx context.Context, req api.UpdateRequest) (bool, error)
	Remove(ctx context.Context, room string) (bool, error)
	Join(ctx context.Context, room string) (bool, error)
}

// Result is what a command produced. List is set only for list.
type Result struct {
	OK      bool
	Message string
	List    []api.Bookmark
}

// Run executes cmd against b. A push failure after a local change comes back
// as a Result with OK set together with the error.
func Run(ctx context.Context, b Bookmarks, cmd Command) (Result, error) {
	switch cmd.Op {
	case OpList:
		list, err := b.List(ctx)
		if err != nil {
			return Result{}, err
		}
		if len(list) == 0 {
			return Result{OK: true, Message: "No bookmarks"}, nil
		}
		return Result{OK: true, Message: FormatList(list), List: list}, nil

	case OpAdd:
		req := api.AddRequest{Room: cmd.Room}
		if cmd.Nick != nil {
			req.Nick = *cmd.Nick
		}
		if cmd.Password != nil {
			req.Password = *cmd.Password
		}
		if cmd.Autojoin != nil {
			req.Autojoin = *cmd.Autojoin
		}
		ok, err := b.Add(ctx, req)
		return result(ok, err,
			fmt.Sprintf("Bookmark added for %s.", cmd.Room),
			"Bookmark already exists, use /bookmark update to edit.")

	case OpUpdate:
		ok, err := b.Update(ctx, api.UpdateRequest{
			Room:     cmd.Room,
			Nick:     cmd.Nick,
			Password: cmd.Password,
			Autojoin: cmd.Autojoin,
		})
		return result(ok, err, "Bookmark updated.", fmt.Sprintf("No bookmark exists for %s.", cmd.Room))

	case OpRemove:
		ok, err := b.Remove(ctx, cmd.Room)
		return result(ok, err,
			fmt.Sprintf("Bookmark removed for %s.", cmd.Room),
			fmt.Sprintf("No bookmark exists for %s.", cmd.Room))

	case OpJoin:
		ok, err := b.Join(ctx, cmd.Room)
		return result(ok, err,
			fmt.Sprintf("Joining %s.", cmd.Room),
			fmt.Sprintf("No bookmark exists for %s.", cmd.Room))
	}
	return Result{}, fmt.Errorf("%w: unknown subcommand %q", ErrUsage, cmd.Op)
}

func result(ok bool, err error, done, notDone string) (Result, error) {
	msg := notDone
	if ok {
		msg = done
	}
	if err != nil && !ok {
		return Result{}, err
	}
	return Result{OK: ok, Message: msg}, err
}

// FormatList renders bookmarks one per line in the TUI console style.
func FormatList(list []api.Bookmark) string {
	var b strings.Builder
	b.WriteString("Bookmarks:")
	for _, bm := range list {
		b.WriteString("\n  ")
		b.WriteString(bm.Room)
		if bm.Nick != "" {
			b.WriteString("/" + bm.Nick)
		}
		if bm.Autojoin {
			b.WriteString(" (autojoin)")
		}
		if bm.HasPassword {
			b.WriteString(" (private)")
		}
		if bm.Backend != "" {
			b.WriteString(" [" + bm.Backend + "]")
		}
	}
	return b.String()
}
