package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/xmark/internal/bookmark"
	"github.com/matheus3301/xmark/internal/bus"
	"github.com/matheus3301/xmark/internal/jid"
	"github.com/matheus3301/xmark/internal/status"
	"github.com/matheus3301/xmark/internal/store"
	intsync "github.com/matheus3301/xmark/internal/sync"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Controller is the bookmark controller as used by the service.
type Controller interface {
	StartSync(ctx context.Context) error
	Add(ctx context.Context, r bookmark.Record) (bool, error)
	Update(ctx context.Context, room string, u bookmark.Update) (bool, error)
	Remove(ctx context.Context, room string) (bool, error)
	Join(ctx context.Context, room string) (bool, error)
	List(ctx context.Context) ([]bookmark.Record, error)
	CompletePrefix(ctx context.Context, text string) (string, bool, error)
	ResetCompletion(ctx context.Context) error
	State(ctx context.Context) (intsync.State, error)
}

// History reads the audit log.
type History interface {
	RecentSyncOutcomes(limit int) ([]store.SyncOutcome, error)
	RecentPushes(limit int) ([]store.Push, error)
}

// RoomLister reports joined rooms.
type RoomLister interface {
	Rooms() []string
}

// DefaultWatchNamespaces are streamed when WatchEvents names none.
var DefaultWatchNamespaces = []string{"bookmark.", "ui.", "session."}

// BookmarkService implements BookmarkServer.
type BookmarkService struct {
	account   string
	startedAt time.Time
	ctrl      Controller
	machine   *status.Machine
	history   History
	rooms     RoomLister
	bus       *bus.Bus
	logger    *zap.Logger
}

// NewBookmarkService creates the service. history and rooms may be nil.
func NewBookmarkService(account string, ctrl Controller, machine *status.Machine, history History, rooms RoomLister, b *bus.Bus, logger *zap.Logger) *BookmarkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookmarkService{
		account:   account,
		startedAt: time.Now(),
		ctrl:      ctrl,
		machine:   machine,
		history:   history,
		rooms:     rooms,
		bus:       b,
		logger:    logger,
	}
}

// List returns {"bookmarks": [{room, nick, has_password, autojoin, backend}]}.
func (s *BookmarkService) List(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	records, err := s.ctrl.List(ctx)
	if err != nil {
		return nil, controllerError(err)
	}
	items := make([]any, 0, len(records))
	for _, r := range records {
		items = append(items, bookmarkFields(r))
	}
	return reply(map[string]any{"bookmarks": items})
}

// Add takes {room, nick?, password?, autojoin} and returns {ok}.
func (s *BookmarkService) Add(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	room, err := parseRoom(str(in, "room"))
	if err != nil {
		return nil, err
	}
	ok, err := s.ctrl.Add(ctx, bookmark.Record{
		Room:     room,
		Nick:     str(in, "nick"),
		Password: str(in, "password"),
		Autojoin: boolean(in, "autojoin"),
	})
	return mutationReply(ok, err)
}

// Update takes {room, nick?, password?, autojoin?}; absent fields are left
// unchanged. It returns {ok}.
func (s *BookmarkService) Update(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	room, err := parseRoom(str(in, "room"))
	if err != nil {
		return nil, err
	}
	ok, err := s.ctrl.Update(ctx, room.Bare(), bookmark.Update{
		Nick:     optString(in, "nick"),
		Password: optString(in, "password"),
		Autojoin: optBool(in, "autojoin"),
	})
	return mutationReply(ok, err)
}

// Remove takes {room} and returns {ok}.
func (s *BookmarkService) Remove(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	room, err := parseRoom(str(in, "room"))
	if err != nil {
		return nil, err
	}
	ok, err := s.ctrl.Remove(ctx, room.Bare())
	return mutationReply(ok, err)
}

// Join takes {room} and returns {ok}; ok is false for unknown rooms.
func (s *BookmarkService) Join(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	room, err := parseRoom(str(in, "room"))
	if err != nil {
		return nil, err
	}
	ok, err := s.ctrl.Join(ctx, room.Bare())
	return mutationReply(ok, err)
}

// Complete takes {text} and returns {room, found}.
func (s *BookmarkService) Complete(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	room, found, err := s.ctrl.CompletePrefix(ctx, str(in, "text"))
	if err != nil {
		return nil, controllerError(err)
	}
	return reply(map[string]any{"room": room, "found": found})
}

func (s *BookmarkService) ResetCompletion(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ctrl.ResetCompletion(ctx); err != nil {
		return nil, controllerError(err)
	}
	return reply(nil)
}

// Sync starts a new sync cycle. It needs an online session.
func (s *BookmarkService) Sync(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if current := s.machine.Current(); current != status.Online {
		return nil, grpcstatus.Errorf(codes.FailedPrecondition, "session is %s", current)
	}
	if err := s.ctrl.StartSync(ctx); err != nil {
		return nil, controllerError(err)
	}
	state, err := s.ctrl.State(ctx)
	if err != nil {
		return nil, controllerError(err)
	}
	return reply(map[string]any{"cycle": state.Cycle})
}

// Status returns the session state and bookmark counters.
func (s *BookmarkService) Status(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	state, err := s.ctrl.State(ctx)
	if err != nil {
		return nil, controllerError(err)
	}
	var rooms []any
	if s.rooms != nil {
		for _, r := range s.rooms.Rooms() {
			rooms = append(rooms, r)
		}
	}
	return reply(map[string]any{
		"account":   s.account,
		"status":    string(s.machine.Current()),
		"phase":     state.Phase.String(),
		"cycle":     state.Cycle,
		"pending":   state.Pending,
		"bookmarks": state.Bookmarks,
		"rooms":     rooms,
		"uptime_ms": time.Since(s.startedAt).Milliseconds(),
	})
}

// History takes {limit?} and returns the newest {syncs, pushes}.
func (s *BookmarkService) History(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.history == nil {
		return nil, grpcstatus.Errorf(codes.Unavailable, "audit store not configured")
	}
	limit := int(number(in, "limit"))
	outcomes, err := s.history.RecentSyncOutcomes(limit)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "read sync outcomes: %v", err)
	}
	pushes, err := s.history.RecentPushes(limit)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "read pushes: %v", err)
	}
	syncs := make([]any, 0, len(outcomes))
	for _, o := range outcomes {
		syncs = append(syncs, syncOutcomeFields(o))
	}
	sent := make([]any, 0, len(pushes))
	for _, p := range pushes {
		sent = append(sent, pushFields(p))
	}
	return reply(map[string]any{"syncs": syncs, "pushes": sent})
}

// WatchEvents takes {namespaces?: [string]} and streams matching bus events
// until the client goes away.
func (s *BookmarkService) WatchEvents(in *structpb.Struct, stream grpc.ServerStream) error {
	namespaces := DefaultWatchNamespaces
	if list := in.GetFields()["namespaces"].GetListValue(); len(list.GetValues()) > 0 {
		namespaces = nil
		for _, v := range list.GetValues() {
			namespaces = append(namespaces, v.GetStringValue())
		}
	}

	ch, unsub := s.bus.Subscribe(64, namespaces...)
	defer unsub()

	ctx := stream.Context()
	for {
		select {
		case evt := <-ch:
			msg, err := structpb.NewStruct(eventFields(evt))
			if err != nil {
				s.logger.Warn("dropping event", zap.String("kind", evt.Kind), zap.Error(err))
				continue
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func parseRoom(s string) (jid.JID, error) {
	room, err := jid.Parse(s)
	if err != nil {
		return jid.JID{}, grpcstatus.Errorf(codes.InvalidArgument, "room: %v", err)
	}
	if room.Local == "" {
		return jid.JID{}, grpcstatus.Errorf(codes.InvalidArgument, "room %q has no local part", s)
	}
	return room.WithResource(""), nil
}

func reply(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "encode reply: %v", err)
	}
	return out, nil
}

// mutationReply reports {ok}. When the change was applied locally but could
// not be sent, the error is Internal and carries the {ok} reply as a detail.
func mutationReply(ok bool, err error) (*structpb.Struct, error) {
	out, rerr := reply(map[string]any{"ok": ok})
	if rerr != nil || err == nil {
		return out, rerr
	}
	if errors.Is(err, intsync.ErrStopped) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, controllerError(err)
	}
	st, derr := grpcstatus.New(codes.Internal, err.Error()).WithDetails(out)
	if derr != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "%v", err)
	}
	return nil, st.Err()
}

func controllerError(err error) error {
	switch {
	case errors.Is(err, intsync.ErrStopped):
		return grpcstatus.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return grpcstatus.FromContextError(err).Err()
	default:
		return grpcstatus.Error(codes.Internal, fmt.Sprintf("bookmark controller: %v", err))
	}
}
