package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/matheus3301/xmark/internal/account"
	"github.com/matheus3301/xmark/internal/api"
	"github.com/matheus3301/xmark/internal/command"
)

func main() {
	accountFlag := flag.String("account", "", "account name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	accountName := account.Resolve(*accountFlag)
	if err := account.ValidateName(accountName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	socketPath := account.SocketPath(accountName)
	c, err := api.Dial(socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for account %q: %v\n", accountName, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	if args[0] == "events" {
		cmdEvents(c, args[1:], *jsonFlag)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch args[0] {
	case "list", "add", "update", "remove", "join":
		cmdBookmark(ctx, c, args, *jsonFlag)
	case "complete":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: xmarkctl complete <prefix>")
			os.Exit(1)
		}
		cmdComplete(ctx, c, args[1], *jsonFlag)
	case "sync":
		cmdSync(ctx, c, *jsonFlag)
	case "status":
		cmdStatus(ctx, c, *jsonFlag)
	case "history":
		limit := 20
		if len(args) >= 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				fmt.Fprintln(os.Stderr, "usage: xmarkctl history [limit]")
				os.Exit(1)
			}
			limit = n
		}
		cmdHistory(ctx, c, limit, *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: xmarkctl [--account <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  list                                      List bookmarks")
	fmt.Fprintln(os.Stderr, "  add <room> [nick <n>] [password <p>] [autojoin on|off]")
	fmt.Fprintln(os.Stderr, "                                            Add a bookmark")
	fmt.Fprintln(os.Stderr, "  update <room> [nick <n>] [password <p>] [autojoin on|off]")
	fmt.Fprintln(os.Stderr, "                                            Change a bookmark")
	fmt.Fprintln(os.Stderr, "  remove <room>                             Remove a bookmark")
	fmt.Fprintln(os.Stderr, "  join <room>                               Join a bookmarked room")
	fmt.Fprintln(os.Stderr, "  complete <prefix>                         Next bookmarked room for prefix")
	fmt.Fprintln(os.Stderr, "  sync                                      Reload bookmarks from the server")
	fmt.Fprintln(os.Stderr, "  status                                    Show session and sync status")
	fmt.Fprintln(os.Stderr, "  history [limit]                           Show recent sync outcomes and pushes")
	fmt.Fprintln(os.Stderr, "  events [namespace...]                     Stream daemon events")
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func cmdBookmark(ctx context.Context, c *api.Client, args []string, jsonOut bool) {
	cmd, err := command.ParseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n\n%s\n", err, command.Usage)
		os.Exit(1)
	}
	res, err := command.Run(ctx, c, cmd)
	if jsonOut {
		out := map[string]any{"ok": res.OK, "message": res.Message}
		if cmd.Op == command.OpList {
			list := res.List
			if list == nil {
				list = []api.Bookmark{}
			}
			out = map[string]any{"bookmarks": list}
		}
		if err != nil {
			out["error"] = err.Error()
		}
		outputJSON(out)
	} else if res.Message != "" {
		fmt.Println(res.Message)
	}
	if err != nil {
		// The local change stands even when the server did not get it.
		if res.OK {
			fmt.Fprintf(os.Stderr, "warning: server not updated: %v\n", err)
			os.Exit(2)
		}
		fail(err)
	}
	if !res.OK {
		os.Exit(1)
	}
}

func cmdComplete(ctx context.Context, c *api.Client, prefix string, jsonOut bool) {
	room, found, err := c.Complete(ctx, prefix)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(map[string]any{"room": room, "found": found})
		return
	}
	if !found {
		os.Exit(1)
	}
	fmt.Println(room)
}

func cmdSync(ctx context.Context, c *api.Client, jsonOut bool) {
	cycle, err := c.Sync(ctx)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(map[string]any{"cycle": cycle})
		return
	}
	fmt.Printf("Sync cycle %d started.\n", cycle)
}

func cmdStatus(ctx context.Context, c *api.Client, jsonOut bool) {
	st, err := c.Status(ctx)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(st)
		return
	}
	fmt.Printf("Account:   %s\n", st.Account)
	fmt.Printf("Status:    %s\n", st.Status)
	fmt.Printf("Phase:     %s (cycle %d, %d pending)\n", st.Phase, st.Cycle, st.Pending)
	fmt.Printf("Bookmarks: %d\n", st.Bookmarks)
	fmt.Printf("Rooms:     %s\n", strings.Join(st.Rooms, ", "))
	fmt.Printf("Uptime:    %s\n", (time.Duration(st.UptimeMS) * time.Millisecond).Round(time.Second))
}

func cmdHistory(ctx context.Context, c *api.Client, limit int, jsonOut bool) {
	syncs, pushes, err := c.History(ctx, limit)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		if syncs == nil {
			syncs = []api.HistoryEntry{}
		}
		if pushes == nil {
			pushes = []api.HistoryEntry{}
		}
		outputJSON(map[string]any{"syncs": syncs, "pushes": pushes})
		return
	}
	fmt.Println("Sync outcomes:")
	if len(syncs) == 0 {
		fmt.Println("  none")
	}
	for _, s := range syncs {
		fmt.Printf("  %s %-8s %-10s %3d records  %s\n",
			time.UnixMilli(s.OccurredAt).Format(time.DateTime), s.Backend, s.Outcome, s.Records, s.Detail)
	}
	fmt.Println("Pushes:")
	if len(pushes) == 0 {
		fmt.Println("  none")
	}
	for _, p := range pushes {
		result := "ok"
		if p.Detail != "" {
			result = "failed: " + p.Detail
		}
		fmt.Printf("  %s %-8s %3d records  %s\n",
			time.UnixMilli(p.OccurredAt).Format(time.DateTime), p.Backend, p.Records, result)
	}
}

func cmdEvents(c *api.Client, namespaces []string, jsonOut bool) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stream, err := c.WatchEvents(ctx, namespaces...)
	if err != nil {
		fail(err)
	}
	for {
		evt, err := stream.Recv()
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return
		}
		if err != nil {
			fail(err)
		}
		if jsonOut {
			outputJSON(map[string]any{
				"kind":      evt.Kind,
				"timestamp": evt.Timestamp.UnixMilli(),
				"payload":   evt.Payload,
			})
			continue
		}
		fmt.Printf("%s %-24s %v\n", evt.Timestamp.Format("15:04:05.000"), evt.Kind, evt.Payload)
	}
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
