package xmpp

import (
	"context"

	"github.com/matheus3301/xmark/internal/stanza"
	"github.com/matheus3301/xmark/internal/status"
	"go.uber.org/zap"
)

// Responses resolves pending requests.
type Responses interface {
	Deliver(resp stanza.Response) bool
}

// Rooms tracks room membership from presence.
type Rooms interface {
	HandlePresence(from, presenceType string)
	Reset()
}

// Syncer starts and abandons bookmark syncs.
type Syncer interface {
	StartSync(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// EventHandler routes inbound stanzas and connection changes. IQ results go
// to the correlation engine, presences to room tracking, and connection
// changes drive the state machine and the bookmark sync.
type EventHandler struct {
	responses Responses
	rooms     Rooms
	sync      Syncer
	machine   *status.Machine
	logger    *zap.Logger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(responses Responses, rooms Rooms, syncer Syncer, machine *status.Machine, logger *zap.Logger) *EventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHandler{
		responses: responses,
		rooms:     rooms,
		sync:      syncer,
		machine:   machine,
		logger:    logger,
	}
}

// HandleIQ passes a result or error IQ to whoever is waiting on its id.
func (h *EventHandler) HandleIQ(resp stanza.Response) {
	h.responses.Deliver(resp)
}

// HandlePresence updates room membership.
func (h *EventHandler) HandlePresence(from, presenceType string) {
	h.rooms.HandlePresence(from, presenceType)
}

// Connected marks the session online and starts a bookmark sync.
func (h *EventHandler) Connected(ctx context.Context) {
	h.logger.Info("XMPP connected")
	if err := h.machine.Transition(status.Online); err != nil {
		h.logger.Warn("unexpected state on connect", zap.Error(err))
	}
	if err := h.sync.StartSync(ctx); err != nil {
		h.logger.Error("failed to start bookmark sync", zap.Error(err))
	}
}

// Disconnected drops room state and bookmarks. If reconnecting is true the
// session moves to Reconnecting, otherwise Offline.
func (h *EventHandler) Disconnected(ctx context.Context, reconnecting bool) {
	h.logger.Warn("XMPP disconnected", zap.Bool("reconnecting", reconnecting))
	h.rooms.Reset()
	if err := h.sync.Disconnect(ctx); err != nil {
		h.logger.Debug("bookmark controller already stopped", zap.Error(err))
	}
	next := status.Offline
	if reconnecting {
		next = status.Reconnecting
	}
	if err := h.machine.Transition(next); err != nil {
		h.logger.Warn("unexpected state on disconnect", zap.Error(err))
	}
}
