package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/xmark/internal/api"
	"github.com/matheus3301/xmark/internal/bus"
	"github.com/matheus3301/xmark/internal/status"
	intsync "github.com/matheus3301/xmark/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func TestModuleGraphIsComplete(t *testing.T) {
	err := fx.ValidateApp(Module(Params{AccountName: "test"}), fx.NopLogger)
	if err != nil {
		t.Fatalf("fx graph invalid: %v", err)
	}
}

// TestServerServesStatus starts the real server on a socket and queries the
// daemon status while the session is still booting.
func TestServerServesStatus(t *testing.T) {
	// Use a short path to avoid macOS 104-char Unix socket limit.
	tmpDir, err := os.MkdirTemp("/tmp", "xmark-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	socketPath := filepath.Join(tmpDir, "d.sock")

	b := bus.New()
	machine := status.NewMachine(b)
	ctrl := intsync.New(intsync.Deps{}, zap.NewNop())
	ctrl.Start(context.Background())
	defer ctrl.Stop()

	svc := api.NewBookmarkService("test", ctrl, machine, nil, nil, b, zap.NewNop())
	srv, err := NewServer(Params{AccountName: "test", SocketPath: socketPath}, zap.NewNop(), svc)
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.Start() }()

	info, err := os.Stat(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("socket mode = %o, want 600", perm)
	}

	client, err := api.Dial(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status error = %v", err)
	}
	if st.Account != "test" || st.Status != string(status.Booting) || st.Phase != "idle" {
		t.Errorf("status = %+v", st)
	}
	list, err := client.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("expected no bookmarks, got %d", len(list))
	}

	srv.Stop(ctx)
	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Error("socket file should be removed on stop")
	}
}

func TestNewServerReplacesStaleSocket(t *testing.T) {
	tmpDir, err := os.MkdirTemp("/tmp", "xmark-stale-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	socketPath := filepath.Join(tmpDir, "d.sock")
	if err := os.WriteFile(socketPath, nil, 0600); err != nil {
		t.Fatal(err)
	}

	svc := api.NewBookmarkService("test", intsync.New(intsync.Deps{}, nil), status.NewMachine(nil), nil, nil, bus.New(), nil)
	srv, err := NewServer(Params{SocketPath: socketPath}, zap.NewNop(), svc)
	if err != nil {
		t.Fatalf("NewServer over stale socket: %v", err)
	}
	srv.Stop(context.Background())
}
