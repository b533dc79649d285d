package command

import (
	"context"
	"slices"
	"strings"
)

// Completer returns the next bookmarked room for a prefix.
type Completer interface {
	Complete(ctx context.Context, text string) (string, bool, error)
}

var subcommands = []string{string(OpAdd), string(OpJoin), string(OpList), string(OpRemove), string(OpUpdate)}

// CompleteLine completes the last word of a partially typed command line:
// the subcommand after "/bookmark ", or a bookmarked room after update,
// remove and join. It reports false when there is nothing to complete.
func CompleteLine(ctx context.Context, c Completer, line string) (string, bool, error) {
	if !strings.HasPrefix(line, Prefix+" ") {
		return "", false, nil
	}
	fields := strings.Fields(line[len(Prefix):])
	trailingSpace := strings.HasSuffix(line, " ")

	switch {
	case len(fields) == 0 || len(fields) == 1 && !trailingSpace:
		word := ""
		if len(fields) == 1 {
			word = fields[0]
		}
		for _, sub := range subcommands {
			if strings.HasPrefix(sub, word) && sub != word {
				return Prefix + " " + sub, true, nil
			}
		}
		return "", false, nil

	case len(fields) == 2 && !trailingSpace && slices.Contains([]string{"update", "remove", "join"}, fields[0]):
		room, ok, err := c.Complete(ctx, fields[1])
		if err != nil || !ok {
			return "", false, err
		}
		return Prefix + " " + fields[0] + " " + room, true, nil
	}
	return "", false, nil
}
