package api

import (
	"time"

	"github.com/matheus3301/xmark/internal/bookmark"
	"github.com/matheus3301/xmark/internal/bus"
	"github.com/matheus3301/xmark/internal/status"
	"github.com/matheus3301/xmark/internal/store"
	"google.golang.org/protobuf/types/known/structpb"
)

// Bookmark is a bookmark as seen by clients. The password never leaves the
// daemon.
type Bookmark struct {
	Room        string `json:"room"`
	Nick        string `json:"nick,omitempty"`
	HasPassword bool   `json:"has_password"`
	Autojoin    bool   `json:"autojoin"`
	Backend     string `json:"backend"`
}

func bookmarkFields(r bookmark.Record) map[string]any {
	return map[string]any{
		"room":         r.Key(),
		"nick":         r.Nick,
		"has_password": r.Password != "",
		"autojoin":     r.Autojoin,
		"backend":      r.Backend.String(),
	}
}

func bookmarkFromValue(v *structpb.Value) Bookmark {
	s := v.GetStructValue()
	return Bookmark{
		Room:        str(s, "room"),
		Nick:        str(s, "nick"),
		HasPassword: boolean(s, "has_password"),
		Autojoin:    boolean(s, "autojoin"),
		Backend:     str(s, "backend"),
	}
}

func syncOutcomeFields(o store.SyncOutcome) map[string]any {
	return map[string]any{
		"backend":     o.Backend,
		"request_id":  o.RequestID,
		"outcome":     o.Outcome,
		"records":     o.Records,
		"detail":      o.Detail,
		"occurred_at": o.OccurredAt,
	}
}

func pushFields(p store.Push) map[string]any {
	return map[string]any{
		"backend":     p.Backend,
		"request_id":  p.RequestID,
		"records":     p.Records,
		"error":       p.Error,
		"occurred_at": p.OccurredAt,
	}
}

// eventFields flattens a bus event for the wire. Payloads other than maps
// and status changes are dropped.
func eventFields(evt bus.Event) map[string]any {
	out := map[string]any{
		"kind":  evt.Kind,
		"ts_ms": evt.Timestamp.UnixMilli(),
	}
	switch p := evt.Payload.(type) {
	case map[string]any:
		out["payload"] = p
	case status.StatusChange:
		out["payload"] = map[string]any{"from": string(p.From), "to": string(p.To)}
	}
	return out
}

// Event is a daemon event received by WatchEvents.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   map[string]any
}

func eventFromStruct(s *structpb.Struct) Event {
	evt := Event{
		Kind:      str(s, "kind"),
		Timestamp: time.UnixMilli(int64(number(s, "ts_ms"))),
	}
	if p := s.GetFields()["payload"].GetStructValue(); p != nil {
		evt.Payload = p.AsMap()
	}
	return evt
}

func str(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func boolean(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

func number(s *structpb.Struct, key string) float64 {
	return s.GetFields()[key].GetNumberValue()
}

// optString returns nil when key is absent, so absent means "leave unchanged".
func optString(s *structpb.Struct, key string) *string {
	v, ok := s.GetFields()[key]
	if !ok {
		return nil
	}
	out := v.GetStringValue()
	return &out
}

func optBool(s *structpb.Struct, key string) *bool {
	v, ok := s.GetFields()[key]
	if !ok {
		return nil
	}
	out := v.GetBoolValue()
	return &out
}
