package correlate

import (
	"context"
	"encoding/xml"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/xmark/internal/stanza"
	"go.uber.org/zap"
)

type fakeSender struct {
	mu   sync.Mutex
	sent [][]byte
	err  error
}

func (f *fakeSender) Send(_ context.Context, raw []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, raw)
	return nil
}

func (f *fakeSender) lastID(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("nothing sent")
	}
	var iq struct {
		ID string `xml:"id,attr"`
	}
	if err := xml.Unmarshal(f.sent[len(f.sent)-1], &iq); err != nil {
		t.Fatal(err)
	}
	return iq.ID
}

func query(timeout time.Duration) Request {
	return Request{
		Prefix:  "bookmark_private_storage_req",
		Type:    stanza.TypeGet,
		Payload: stanza.LegacyQuery(),
		Timeout: timeout,
	}
}

func waitResult(t *testing.T, p *Pending) Result {
	t.Helper()
	select {
	case r := <-p.Done():
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for result")
		return Result{}
	}
}

func TestRequestResolvedByResponse(t *testing.T) {
	s := &fakeSender{}
	e := NewEngine(s, zap.NewNop())

	p, err := e.Request(context.Background(), query(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if got := s.lastID(t); got != p.ID() {
		t.Fatalf("sent id %q, pending id %q", got, p.ID())
	}
	if e.Outstanding() != 1 {
		t.Errorf("Outstanding() = %d, want 1", e.Outstanding())
	}

	if !e.Deliver(stanza.Response{ID: p.ID(), Type: stanza.TypeResult, Payload: []byte("<x/>")}) {
		t.Fatal("Deliver() = false")
	}
	r := waitResult(t, p)
	if r.Outcome != Resolved || string(r.Response.Payload) != "<x/>" {
		t.Errorf("result = %+v", r)
	}
	if e.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d after resolve", e.Outstanding())
	}

	select {
	case extra := <-p.Done():
		t.Errorf("second result delivered: %+v", extra)
	case <-time.After(1200 * time.Millisecond):
	}
}

func TestRequestTimesOut(t *testing.T) {
	e := NewEngine(&fakeSender{}, zap.NewNop())

	p, err := e.Request(context.Background(), query(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	r := waitResult(t, p)
	if r.Outcome != TimedOut {
		t.Errorf("outcome = %v, want timed_out", r.Outcome)
	}
	if e.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d after timeout", e.Outstanding())
	}
	if e.Deliver(stanza.Response{ID: p.ID(), Type: stanza.TypeResult}) {
		t.Error("late response was matched")
	}
}

func TestRequestSendFailureLeavesNoEntry(t *testing.T) {
	boom := errors.New("broken pipe")
	e := NewEngine(&fakeSender{err: boom}, zap.NewNop())

	_, err := e.Request(context.Background(), query(time.Second))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapping %v", err, boom)
	}
	if e.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d after failed send", e.Outstanding())
	}
}

func TestRequestRejectsZeroTimeout(t *testing.T) {
	e := NewEngine(&fakeSender{}, nil)
	if _, err := e.Request(context.Background(), query(0)); err == nil {
		t.Error("expected error for zero timeout")
	}
}

func TestDeliverUnknownID(t *testing.T) {
	e := NewEngine(&fakeSender{}, nil)
	if e.Deliver(stanza.Response{ID: "nobody"}) {
		t.Error("Deliver() for unknown id = true")
	}
}

func TestCancelAll(t *testing.T) {
	e := NewEngine(&fakeSender{}, zap.NewNop())
	p1, _ := e.Request(context.Background(), query(time.Second))
	p2, _ := e.Request(context.Background(), query(time.Second))

	if n := e.CancelAll(); n != 2 {
		t.Errorf("CancelAll() = %d, want 2", n)
	}
	for _, p := range []*Pending{p1, p2} {
		if r := waitResult(t, p); r.Outcome != Cancelled {
			t.Errorf("%s outcome = %v, want cancelled", p.ID(), r.Outcome)
		}
	}
	if e.Deliver(stanza.Response{ID: p1.ID()}) {
		t.Error("response after cancel was matched")
	}
}

func TestCloseRejectsNewRequests(t *testing.T) {
	e := NewEngine(&fakeSender{}, nil)
	e.Close()
	if _, err := e.Request(context.Background(), query(time.Second)); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestPushIsNotTracked(t *testing.T) {
	s := &fakeSender{}
	e := NewEngine(s, nil)
	id, err := e.Push(context.Background(), Request{Prefix: "bookmark_private_storage_update", Type: stanza.TypeSet, Payload: stanza.LegacyQuery()})
	if err != nil {
		t.Fatal(err)
	}
	if s.lastID(t) != id {
		t.Errorf("sent id != returned id %q", id)
	}
	if e.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d after push", e.Outstanding())
	}
}

// TestExactlyOneOutcome races responses against deadlines and checks that
// every request ends exactly once.
func TestExactlyOneOutcome(t *testing.T) {
	e := NewEngine(&fakeSender{}, zap.NewNop())
	const n = 200

	pendings := make([]*Pending, n)
	for i := range pendings {
		p, err := e.Request(context.Background(), query(time.Millisecond))
		if err != nil {
			t.Fatal(err)
		}
		pendings[i] = p
	}

	var wg sync.WaitGroup
	for _, p := range pendings {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			e.Deliver(stanza.Response{ID: id, Type: stanza.TypeResult})
		}(p.ID())
	}
	wg.Wait()

	for _, p := range pendings {
		waitResult(t, p)
		select {
		case extra := <-p.Done():
			t.Fatalf("%s resolved twice, second = %v", p.ID(), extra.Outcome)
		default:
		}
	}
	if e.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d, want 0", e.Outstanding())
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID("p")
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
