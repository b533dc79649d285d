package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(10, "bookmark.")
	defer unsub()

	b.Emit(KindChanged, "room@conf")

	select {
	case evt := <-ch:
		if evt.Kind != KindChanged {
			t.Errorf("got kind %q, want %s", evt.Kind, KindChanged)
		}
		if evt.Timestamp.IsZero() {
			t.Error("timestamp not set")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(10, "ui.")
	defer unsub()

	b.Emit(KindStatusChanged, nil)
	b.Emit(KindFocusRoom, nil)

	select {
	case evt := <-ch:
		if evt.Kind != KindFocusRoom {
			t.Errorf("got kind %q, want %s", evt.Kind, KindFocusRoom)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMultipleNamespaces(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(10, "ui.", "session.")
	defer unsub()

	b.Emit(KindStatusChanged, nil)
	b.Emit(KindSyncStarted, nil)
	b.Emit(KindFocusRoom, nil)

	got := []string{(<-ch).Kind, (<-ch).Kind}
	if got[0] != KindStatusChanged || got[1] != KindFocusRoom {
		t.Errorf("got %v", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(10, "bookmark.")
	unsub()
	unsub()

	b.Emit(KindChanged, nil)

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1, "bookmark.")
	defer unsub()

	b.Emit(KindSyncStarted, nil)
	b.Emit(KindSyncResolved, nil)

	evt := <-ch
	if evt.Kind != KindSyncStarted {
		t.Errorf("got %q, want %s", evt.Kind, KindSyncStarted)
	}
}
