package xmpp

import (
	"context"
	"time"

	"github.com/matheus3301/xmark/internal/status"
	"go.uber.org/zap"
)

// Retry delays between connection attempts.
const (
	minRetryDelay = 2 * time.Second
	maxRetryDelay = 2 * time.Minute
)

// Conn is the connection used by a Session.
type Conn interface {
	Connect(ctx context.Context) error
	Run(ctx context.Context, h Handler) error
	Disconnect()
}

// Session keeps the connection up until its context ends, reconnecting with
// a doubling delay after failures.
type Session struct {
	conn    Conn
	events  *EventHandler
	machine *status.Machine
	logger  *zap.Logger

	minDelay, maxDelay time.Duration
}

// NewSession creates a session over conn.
func NewSession(conn Conn, events *EventHandler, machine *status.Machine, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		conn:     conn,
		events:   events,
		machine:  machine,
		logger:   logger,
		minDelay: minRetryDelay,
		maxDelay: maxRetryDelay,
	}
}

// Run connects, serves, and reconnects until ctx is done.
func (s *Session) Run(ctx context.Context) {
	delay := s.minDelay
	for {
		if err := s.machine.Transition(status.Connecting); err != nil {
			s.logger.Warn("unexpected state before connect", zap.Error(err))
		}
		if err := s.conn.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				s.offline()
				return
			}
			s.logger.Error("connect failed", zap.Error(err), zap.Duration("retry_in", delay))
			_ = s.machine.Transition(status.Reconnecting)
		} else {
			delay = s.minDelay
			s.events.Connected(ctx)
			err := s.conn.Run(ctx, s.events)
			s.conn.Disconnect()
			// ctx may already be done; the bookmarks still have to be dropped.
			s.events.Disconnected(context.WithoutCancel(ctx), ctx.Err() == nil)
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("connection lost", zap.Error(err), zap.Duration("retry_in", delay))
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			s.offline()
			return
		}
		delay = min(delay*2, s.maxDelay)
	}
}

func (s *Session) offline() {
	if s.machine.Current() != status.Offline {
		_ = s.machine.Transition(status.Offline)
	}
}
