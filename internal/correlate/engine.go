// Package correlate pairs outgoing IQ requests with their responses.
//
// Each tracked request yields a Pending handle whose Done channel delivers
// exactly one Result: the response, a timeout, or a cancellation on
// disconnect. Whichever happens first removes the table entry; anything that
// arrives later finds no entry and is dropped.
package correlate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/xmark/internal/stanza"
	"go.uber.org/zap"
)

// ErrClosed is returned by Request after Close.
var ErrClosed = errors.New("correlation engine closed")

// Sender transmits a serialized stanza.
type Sender interface {
	Send(ctx context.Context, raw []byte) error
}

// Outcome says how a pending request ended.
type Outcome int

const (
	Resolved Outcome = iota
	TimedOut
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case TimedOut:
		return "timed_out"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is delivered once on Pending.Done.
type Result struct {
	ID       string
	Outcome  Outcome
	Response stanza.Response
}

// Pending is the handle for one tracked request.
type Pending struct {
	id   string
	done chan Result
}

// ID returns the request id carried by the outgoing IQ.
func (p *Pending) ID() string { return p.id }

// Done delivers the single Result for this request.
func (p *Pending) Done() <-chan Result { return p.done }

// Request describes an outgoing IQ.
type Request struct {
	Prefix  string
	Type    string
	To      string
	Payload []byte
	Timeout time.Duration
}

type entry struct {
	pending *Pending
	timer   *time.Timer
}

// Engine owns the table of outstanding requests.
type Engine struct {
	mu      sync.Mutex
	pending map[string]*entry
	closed  bool
	sender  Sender
	newID   func(prefix string) string
	logger  *zap.Logger
}

// NewEngine creates an engine sending through s.
func NewEngine(s Sender, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		pending: make(map[string]*entry),
		sender:  s,
		newID:   NewID,
		logger:  logger,
	}
}

// NewID returns a process-unique id starting with prefix.
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// Request registers a pending entry with a deadline, then transmits the IQ.
// The entry exists before the send so a fast response cannot be missed. If
// the send fails the entry is removed and no Result is ever delivered.
func (e *Engine) Request(ctx context.Context, req Request) (*Pending, error) {
	if req.Timeout <= 0 {
		return nil, fmt.Errorf("request %s: timeout must be positive", req.Prefix)
	}
	id := e.newID(req.Prefix)
	raw, err := stanza.EncodeIQ(stanza.IQ{ID: id, Type: req.Type, To: req.To, Payload: req.Payload})
	if err != nil {
		return nil, err
	}

	p := &Pending{id: id, done: make(chan Result, 1)}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	e.pending[id] = &entry{
		pending: p,
		timer:   time.AfterFunc(req.Timeout, func() { e.expire(id) }),
	}
	e.mu.Unlock()

	if err := e.sender.Send(ctx, raw); err != nil {
		e.take(id)
		return nil, fmt.Errorf("send %s: %w", id, err)
	}
	e.logger.Debug("request sent", zap.String("id", id), zap.Duration("timeout", req.Timeout))
	return p, nil
}

// Push transmits an IQ without tracking a response and returns its id.
func (e *Engine) Push(ctx context.Context, req Request) (string, error) {
	id := e.newID(req.Prefix)
	raw, err := stanza.EncodeIQ(stanza.IQ{ID: id, Type: req.Type, To: req.To, Payload: req.Payload})
	if err != nil {
		return "", err
	}
	if err := e.sender.Send(ctx, raw); err != nil {
		return id, fmt.Errorf("send %s: %w", id, err)
	}
	return id, nil
}

// Deliver resolves the pending request matching resp.ID. It returns false
// when nothing is waiting for that id, for example a late response after the
// deadline already fired.
func (e *Engine) Deliver(resp stanza.Response) bool {
	ent := e.take(resp.ID)
	if ent == nil {
		e.logger.Debug("unmatched response", zap.String("id", resp.ID), zap.String("type", resp.Type))
		return false
	}
	ent.pending.done <- Result{ID: resp.ID, Outcome: Resolved, Response: resp}
	return true
}

// CancelAll resolves every outstanding request as Cancelled.
func (e *Engine) CancelAll() int {
	e.mu.Lock()
	entries := e.pending
	e.pending = make(map[string]*entry)
	e.mu.Unlock()

	for id, ent := range entries {
		ent.timer.Stop()
		ent.pending.done <- Result{ID: id, Outcome: Cancelled}
	}
	return len(entries)
}

// Close cancels everything outstanding and rejects new requests.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.CancelAll()
}

// Outstanding returns the number of requests still waiting.
func (e *Engine) Outstanding() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

func (e *Engine) expire(id string) {
	ent := e.take(id)
	if ent == nil {
		return
	}
	e.logger.Warn("request timed out", zap.String("id", id))
	ent.pending.done <- Result{ID: id, Outcome: TimedOut}
}

// take removes and returns the entry for id. Only one caller can win.
func (e *Engine) take(id string) *entry {
	e.mu.Lock()
	ent, ok := e.pending[id]
	if ok {
		delete(e.pending, id)
	}
	e.mu.Unlock()
	if !ok {
		return nil
	}
	ent.timer.Stop()
	return ent
}
