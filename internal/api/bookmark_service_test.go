package api

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/xmark/internal/bus"
	"github.com/matheus3301/xmark/internal/config"
	"github.com/matheus3301/xmark/internal/correlate"
	"github.com/matheus3301/xmark/internal/jid"
	"github.com/matheus3301/xmark/internal/status"
	"github.com/matheus3301/xmark/internal/store"
	intsync "github.com/matheus3301/xmark/internal/sync"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

type wire struct {
	mu   sync.Mutex
	sent int
	err  error
}

func (w *wire) Send(context.Context, []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.sent++
	return nil
}

type rooms struct {
	mu     sync.Mutex
	active map[string]bool
}

func (r *rooms) IsActive(room jid.JID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active[room.Bare()]
}

func (r *rooms) IsRosterComplete(room jid.JID) bool { return r.IsActive(room) }

func (r *rooms) Join(_ context.Context, room jid.JID, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[room.Bare()] = true
	return nil
}

func (r *rooms) Rooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for k := range r.active {
		out = append(out, k)
	}
	return out
}

type staticPrefs struct{}

func (staticPrefs) Get() config.Preferences {
	return config.Preferences{MUCNick: "me", RequestTimeout: time.Second}
}

type fixture struct {
	client  *Client
	wire    *wire
	rooms   *rooms
	machine *status.Machine
	bus     *bus.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	// Short path: Unix socket paths are limited to ~104 bytes on macOS.
	dir, err := os.MkdirTemp("/tmp", "xmark-api-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	db, err := store.Open(filepath.Join(dir, "xmark.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{wire: &wire{}, rooms: &rooms{active: map[string]bool{}}, bus: bus.New()}
	f.machine = status.NewMachine(f.bus)
	engine := correlate.NewEngine(f.wire, zap.NewNop())
	ctrl := intsync.New(intsync.Deps{
		Requests:   engine,
		Membership: f.rooms,
		UI:         NewFocusRelay(f.bus),
		Prefs:      staticPrefs{},
		Audit:      db,
		Bus:        f.bus,
	}, zap.NewNop())
	ctrl.Start(context.Background())
	t.Cleanup(func() {
		ctrl.Stop()
		engine.Close()
	})

	srv := grpc.NewServer()
	RegisterBookmarkServer(srv, NewBookmarkService("test", ctrl, f.machine, db, f.rooms, f.bus, zap.NewNop()))
	socketPath := filepath.Join(dir, "d.sock")
	lis, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	f.client, err = Dial(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = f.client.Close() })
	return f
}

func TestAddListUpdateRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.client.Add(ctx, AddRequest{Room: "room@conf.example", Autojoin: true})
	if err != nil || !ok {
		t.Fatalf("Add = %v, %v", ok, err)
	}
	if ok, _ := f.client.Add(ctx, AddRequest{Room: "room@conf.example"}); ok {
		t.Error("duplicate Add should report false")
	}

	list, err := f.client.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := Bookmark{Room: "room@conf.example", Autojoin: true, Backend: "private"}
	if len(list) != 1 || list[0] != want {
		t.Fatalf("List = %+v, want [%+v]", list, want)
	}

	nick := "alice"
	if ok, err := f.client.Update(ctx, UpdateRequest{Room: "room@conf.example", Nick: &nick}); err != nil || !ok {
		t.Fatalf("Update = %v, %v", ok, err)
	}
	list, _ = f.client.List(ctx)
	if list[0].Nick != "alice" || !list[0].Autojoin || list[0].HasPassword {
		t.Errorf("after update = %+v", list[0])
	}

	if ok, err := f.client.Remove(ctx, "nope@conf.example"); err != nil || ok {
		t.Errorf("Remove(missing) = %v, %v", ok, err)
	}
	if ok, err := f.client.Remove(ctx, "room@conf.example"); err != nil || !ok {
		t.Errorf("Remove = %v, %v", ok, err)
	}
	if list, _ := f.client.List(ctx); len(list) != 0 {
		t.Errorf("List after remove = %+v", list)
	}

	_, pushes, err := f.client.History(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pushes) != 3 {
		t.Errorf("recorded %d pushes, want 3", len(pushes))
	}
}

func TestInvalidRoom(t *testing.T) {
	f := newFixture(t)
	for _, room := range []string{"", "conf.example", "@conf.example"} {
		_, err := f.client.Add(context.Background(), AddRequest{Room: room})
		if grpcstatus.Code(err) != codes.InvalidArgument {
			t.Errorf("Add(%q) code = %v, want InvalidArgument", room, grpcstatus.Code(err))
		}
	}
}

func TestSendFailureReportsOK(t *testing.T) {
	f := newFixture(t)
	f.wire.mu.Lock()
	f.wire.err = errors.New("broken pipe")
	f.wire.mu.Unlock()

	ok, err := f.client.Add(context.Background(), AddRequest{Room: "room@conf.example"})
	if grpcstatus.Code(err) != codes.Internal {
		t.Fatalf("code = %v, want Internal", grpcstatus.Code(err))
	}
	if !ok {
		t.Error("ok should be true: the bookmark was added locally")
	}
	if list, _ := f.client.List(context.Background()); len(list) != 1 {
		t.Errorf("List = %+v", list)
	}
}

func TestJoinAndFocusEvent(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if ok, err := f.client.Join(ctx, "room@conf.example"); err != nil || ok {
		t.Fatalf("Join(unknown) = %v, %v", ok, err)
	}
	if _, err := f.client.Add(ctx, AddRequest{Room: "room@conf.example"}); err != nil {
		t.Fatal(err)
	}

	events, err := f.client.WatchEvents(ctx, "ui.")
	if err != nil {
		t.Fatal(err)
	}
	// First join enters the room; the second finds it active and focuses it.
	if ok, err := f.client.Join(ctx, "room@conf.example"); err != nil || !ok {
		t.Fatalf("Join = %v, %v", ok, err)
	}

	// The subscription is registered asynchronously; join until an event lands.
	got := make(chan Event, 1)
	go func() {
		evt, err := events.Recv()
		if err == nil {
			got <- evt
		}
	}()
	for {
		if _, err := f.client.Join(ctx, "room@conf.example"); err != nil {
			t.Fatal(err)
		}
		select {
		case evt := <-got:
			if evt.Kind != bus.KindFocusRoom || evt.Payload["room"] != "room@conf.example" || evt.Payload["switch_to"] != true {
				t.Errorf("event = %+v", evt)
			}
			return
		case <-time.After(20 * time.Millisecond):
		case <-ctx.Done():
			t.Fatal("no focus event")
		}
	}
}

func TestStatusAndSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.client.Sync(ctx); grpcstatus.Code(err) != codes.FailedPrecondition {
		t.Errorf("Sync while booting: code = %v, want FailedPrecondition", grpcstatus.Code(err))
	}

	for _, s := range []status.State{status.Connecting, status.Online} {
		if err := f.machine.Transition(s); err != nil {
			t.Fatal(err)
		}
	}
	cycle, err := f.client.Sync(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cycle != 1 {
		t.Errorf("cycle = %d, want 1", cycle)
	}

	st, err := f.client.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Account != "test" || st.Status != "ONLINE" || st.Phase != intsync.QueryingBoth.String() || st.Pending != 2 {
		t.Errorf("status = %+v", st)
	}
}

func TestCompleteAndReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, room := range []string{"dev@conf.example", "design@conf.example"} {
		if _, err := f.client.Add(ctx, AddRequest{Room: room}); err != nil {
			t.Fatal(err)
		}
	}

	first, found, err := f.client.Complete(ctx, "de")
	if err != nil || !found || first != "design@conf.example" {
		t.Fatalf("Complete = %q, %v, %v", first, found, err)
	}
	second, _, _ := f.client.Complete(ctx, "de")
	if second != "dev@conf.example" {
		t.Errorf("second completion = %q", second)
	}
	if err := f.client.ResetCompletion(ctx); err != nil {
		t.Fatal(err)
	}
	if again, _, _ := f.client.Complete(ctx, "de"); again != first {
		t.Errorf("after reset = %q, want %q", again, first)
	}
	if _, found, _ := f.client.Complete(ctx, "zz"); found {
		t.Error("unexpected completion for zz")
	}
}

func TestStoppedControllerIsUnavailable(t *testing.T) {
	svc := NewBookmarkService("test", intsync.New(intsync.Deps{}, nil), status.NewMachine(nil), nil, nil, bus.New(), nil)
	_, err := svc.List(context.Background(), nil)
	if grpcstatus.Code(err) != codes.Unavailable {
		t.Errorf("code = %v, want Unavailable", grpcstatus.Code(err))
	}
	if _, err := svc.History(context.Background(), nil); grpcstatus.Code(err) != codes.Unavailable {
		t.Errorf("History without audit store: code = %v", grpcstatus.Code(err))
	}
}

