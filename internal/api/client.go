package api

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the bookmark service of a running daemon.
type Client struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// Dial connects to the daemon listening on socketPath.
func Dial(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient("unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Close releases the connection if Dial opened it.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) call(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// mutation returns the ok flag of a mutation. A send failure still reports
// the ok flag the daemon attached to the error.
func (c *Client) mutation(ctx context.Context, method string, fields map[string]any) (bool, error) {
	out, err := c.call(ctx, method, fields)
	if err == nil {
		return boolean(out, "ok"), nil
	}
	st, _ := grpcstatus.FromError(err)
	if st.Code() == codes.Internal {
		for _, d := range st.Details() {
			if s, ok := d.(*structpb.Struct); ok {
				return boolean(s, "ok"), err
			}
		}
	}
	return false, err
}

// List returns every bookmark in insertion order.
func (c *Client) List(ctx context.Context) ([]Bookmark, error) {
	out, err := c.call(ctx, "List", nil)
	if err != nil {
		return nil, err
	}
	values := out.GetFields()["bookmarks"].GetListValue().GetValues()
	list := make([]Bookmark, 0, len(values))
	for _, v := range values {
		list = append(list, bookmarkFromValue(v))
	}
	return list, nil
}

// AddRequest creates a bookmark. Empty Nick and Password are omitted.
type AddRequest struct {
	Room     string
	Nick     string
	Password string
	Autojoin bool
}

// Add reports false if the room is already bookmarked.
func (c *Client) Add(ctx context.Context, req AddRequest) (bool, error) {
	fields := map[string]any{"room": req.Room, "autojoin": req.Autojoin}
	if req.Nick != "" {
		fields["nick"] = req.Nick
	}
	if req.Password != "" {
		fields["password"] = req.Password
	}
	return c.mutation(ctx, "Add", fields)
}

// UpdateRequest changes the non-nil fields of a bookmark.
type UpdateRequest struct {
	Room     string
	Nick     *string
	Password *string
	Autojoin *bool
}

// Update reports false if the room is not bookmarked.
func (c *Client) Update(ctx context.Context, req UpdateRequest) (bool, error) {
	fields := map[string]any{"room": req.Room}
	if req.Nick != nil {
		fields["nick"] = *req.Nick
	}
	if req.Password != nil {
		fields["password"] = *req.Password
	}
	if req.Autojoin != nil {
		fields["autojoin"] = *req.Autojoin
	}
	return c.mutation(ctx, "Update", fields)
}

// Remove reports false if the room is not bookmarked.
func (c *Client) Remove(ctx context.Context, room string) (bool, error) {
	return c.mutation(ctx, "Remove", map[string]any{"room": room})
}

// Join reports false if the room is not bookmarked.
func (c *Client) Join(ctx context.Context, room string) (bool, error) {
	return c.mutation(ctx, "Join", map[string]any{"room": room})
}

// Complete returns the next bookmarked room starting with text.
func (c *Client) Complete(ctx context.Context, text string) (string, bool, error) {
	out, err := c.call(ctx, "Complete", map[string]any{"text": text})
	if err != nil {
		return "", false, err
	}
	return str(out, "room"), boolean(out, "found"), nil
}

// ResetCompletion restarts completion cycling.
func (c *Client) ResetCompletion(ctx context.Context) error {
	_, err := c.call(ctx, "ResetCompletion", nil)
	return err
}

// Sync starts a new sync cycle and returns its number.
func (c *Client) Sync(ctx context.Context) (uint64, error) {
	out, err := c.call(ctx, "Sync", nil)
	if err != nil {
		return 0, err
	}
	return uint64(number(out, "cycle")), nil
}

// Status is the daemon's view of the session.
type Status struct {
	Account   string   `json:"account"`
	Status    string   `json:"status"`
	Phase     string   `json:"phase"`
	Cycle     uint64   `json:"cycle"`
	Pending   int      `json:"pending"`
	Bookmarks int      `json:"bookmarks"`
	Rooms     []string `json:"rooms"`
	UptimeMS  int64    `json:"uptime_ms"`
}

// Status returns the session state and counters.
func (c *Client) Status(ctx context.Context) (Status, error) {
	out, err := c.call(ctx, "Status", nil)
	if err != nil {
		return Status{}, err
	}
	st := Status{
		Account:   str(out, "account"),
		Status:    str(out, "status"),
		Phase:     str(out, "phase"),
		Cycle:     uint64(number(out, "cycle")),
		Pending:   int(number(out, "pending")),
		Bookmarks: int(number(out, "bookmarks")),
		UptimeMS:  int64(number(out, "uptime_ms")),
	}
	for _, v := range out.GetFields()["rooms"].GetListValue().GetValues() {
		st.Rooms = append(st.Rooms, v.GetStringValue())
	}
	return st, nil
}

// HistoryEntry is one audit log row; Outcome is empty for pushes.
type HistoryEntry struct {
	Backend    string `json:"backend"`
	RequestID  string `json:"request_id"`
	Outcome    string `json:"outcome,omitempty"`
	Records    int    `json:"records"`
	Detail     string `json:"detail,omitempty"`
	OccurredAt int64  `json:"occurred_at"`
}

// History returns the newest sync outcomes and pushes.
func (c *Client) History(ctx context.Context, limit int) (syncs, pushes []HistoryEntry, err error) {
	out, err := c.call(ctx, "History", map[string]any{"limit": limit})
	if err != nil {
		return nil, nil, err
	}
	for _, v := range out.GetFields()["syncs"].GetListValue().GetValues() {
		s := v.GetStructValue()
		syncs = append(syncs, HistoryEntry{
			Backend:    str(s, "backend"),
			RequestID:  str(s, "request_id"),
			Outcome:    str(s, "outcome"),
			Records:    int(number(s, "records")),
			Detail:     str(s, "detail"),
			OccurredAt: int64(number(s, "occurred_at")),
		})
	}
	for _, v := range out.GetFields()["pushes"].GetListValue().GetValues() {
		s := v.GetStructValue()
		pushes = append(pushes, HistoryEntry{
			Backend:    str(s, "backend"),
			RequestID:  str(s, "request_id"),
			Records:    int(number(s, "records")),
			Detail:     str(s, "error"),
			OccurredAt: int64(number(s, "occurred_at")),
		})
	}
	return syncs, pushes, nil
}

// EventStream receives daemon events.
type EventStream struct {
	stream grpc.ClientStream
}

// Recv blocks for the next event. It returns io.EOF when the daemon ends
// the stream.
func (s *EventStream) Recv() (Event, error) {
	msg := new(structpb.Struct)
	if err := s.stream.RecvMsg(msg); err != nil {
		if errors.Is(err, io.EOF) {
			return Event{}, io.EOF
		}
		return Event{}, err
	}
	return eventFromStruct(msg), nil
}

// WatchEvents streams events whose kind starts with one of namespaces, or
// the default set when none are given. Cancel ctx to stop.
func (c *Client) WatchEvents(ctx context.Context, namespaces ...string) (*EventStream, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], fullMethod("WatchEvents"))
	if err != nil {
		return nil, err
	}
	ns := make([]any, 0, len(namespaces))
	for _, n := range namespaces {
		ns = append(ns, n)
	}
	in, err := structpb.NewStruct(map[string]any{"namespaces": ns})
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &EventStream{stream: stream}, nil
}
