// Package sync keeps the local bookmark set in step with the server.
//
// A Controller owns the bookmark store and runs a single control loop. Every
// public call and every query resolution is posted to that loop, so the store
// is only ever touched from one goroutine. A sync cycle clears the store,
// queries both backends at once, and merges each answer as it arrives, then
// autojoins the rooms it learned about.
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/matheus3301/xmark/internal/bookmark"
	"github.com/matheus3301/xmark/internal/bus"
	"github.com/matheus3301/xmark/internal/config"
	"github.com/matheus3301/xmark/internal/correlate"
	"github.com/matheus3301/xmark/internal/jid"
	"github.com/matheus3301/xmark/internal/stanza"
	"github.com/matheus3301/xmark/internal/store"
	"go.uber.org/zap"
)

// ErrStopped is returned when the control loop is not running.
var ErrStopped = errors.New("bookmark controller stopped")

// Request id prefixes.
const (
	PrefixPrivateQuery  = "bookmark_private_storage_req"
	PrefixPubsubQuery   = "bookmark_pubsub_req"
	PrefixPrivateUpdate = "bookmark_private_storage_update"
	PrefixPubsubUpdate  = "bookmark_pubsub_update"
)

// Requester sends IQs and tracks their responses.
type Requester interface {
	Request(ctx context.Context, req correlate.Request) (*correlate.Pending, error)
	Push(ctx context.Context, req correlate.Request) (string, error)
	CancelAll() int
}

// Membership answers whether we are in a room and joins rooms.
type Membership interface {
	IsActive(room jid.JID) bool
	IsRosterComplete(room jid.JID) bool
	Join(ctx context.Context, room jid.JID, nick, password string) error
}

// Focuser brings an already joined room to the user's attention.
type Focuser interface {
	FocusOrShowRoom(room jid.JID, switchTo bool)
}

// Preferences supplies the current account preferences.
type Preferences interface {
	Get() config.Preferences
}

// Auditor persists sync outcomes and pushes.
type Auditor interface {
	RecordSyncOutcome(o store.SyncOutcome) error
	RecordPush(p store.Push) error
}

// Deps are the collaborators of a Controller. Audit and Bus may be nil.
type Deps struct {
	Requests   Requester
	Membership Membership
	UI         Focuser
	Prefs      Preferences
	Audit      Auditor
	Bus        *bus.Bus
}

// State is a point-in-time view of the controller.
type State struct {
	Phase     Phase
	Cycle     uint64
	Pending   int
	Bookmarks int
}

// Controller reconciles local bookmarks with the server.
type Controller struct {
	deps   Deps
	logger *zap.Logger

	ops     chan func()
	stopped chan struct{}
	running atomic.Bool
	cancel  context.CancelFunc
	ctx     context.Context

	// Owned by the loop goroutine.
	store   *bookmark.Store
	phase   Phase
	cycle   uint64
	pending int
}

// New creates a controller. Call Start before using it.
func New(deps Deps, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		deps:    deps,
		logger:  logger,
		ops:     make(chan func()),
		stopped: make(chan struct{}),
		store:   bookmark.NewStore(),
		ctx:     context.Background(),
	}
}

// Start runs the control loop until Stop or ctx is done.
func (c *Controller) Start(ctx context.Context) {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	go c.run(c.ctx)
}

// Stop ends the control loop. It cannot be restarted.
func (c *Controller) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.stopped
}

func (c *Controller) run(ctx context.Context) {
	defer close(c.stopped)
	for {
		select {
		case op := <-c.ops:
			op()
		case <-ctx.Done():
			c.running.Store(false)
			return
		}
	}
}

// do runs fn on the loop and waits for it to finish.
func (c *Controller) do(ctx context.Context, fn func()) error {
	if !c.running.Load() {
		return ErrStopped
	}
	done := make(chan struct{})
	select {
	case c.ops <- func() { fn(); close(done) }:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// post queues fn on the loop without waiting. It is dropped once stopped.
func (c *Controller) post(fn func()) {
	select {
	case c.ops <- fn:
	case <-c.stopped:
	}
}

// StartSync clears the store and queries both backends.
func (c *Controller) StartSync(ctx context.Context) error {
	return c.do(ctx, c.startSync)
}

// Disconnect cancels every outstanding query and drops all bookmarks without
// merging anything still in flight.
func (c *Controller) Disconnect(ctx context.Context) error {
	return c.do(ctx, func() {
		c.cycle++
		cancelled := c.deps.Requests.CancelAll()
		c.pending = 0
		c.store.Clear()
		c.setPhase(Idle)
		c.logger.Info("bookmarks discarded on disconnect", zap.Int("cancelled", cancelled))
	})
}

// Add inserts r under the account's default backend and pushes that
// backend's full set. It reports false if the room is already bookmarked.
// A push failure is returned alongside true: the local change stands.
func (c *Controller) Add(ctx context.Context, r bookmark.Record) (bool, error) {
	var (
		ok      bool
		pushErr error
	)
	err := c.do(ctx, func() {
		r.Backend = c.deps.Prefs.Get().DefaultBackend
		if ok = c.store.Add(r); !ok {
			return
		}
		c.logger.Info("bookmark added", zap.Object("bookmark", r))
		c.emitChanged("added", r)
		pushErr = c.push(ctx, r.Backend)
	})
	if err != nil {
		return false, err
	}
	return ok, pushErr
}

// Update changes the set fields of an existing bookmark and pushes its
// backend's full set. It reports false if the room is not bookmarked.
func (c *Controller) Update(ctx context.Context, room string, u bookmark.Update) (bool, error) {
	var (
		ok      bool
		pushErr error
	)
	err := c.do(ctx, func() {
		var r bookmark.Record
		if r, ok = c.store.Update(room, u); !ok {
			return
		}
		c.logger.Info("bookmark updated", zap.Object("bookmark", r))
		c.emitChanged("updated", r)
		pushErr = c.push(ctx, r.Backend)
	})
	if err != nil {
		return false, err
	}
	return ok, pushErr
}

// Remove deletes a bookmark and pushes the now shorter set of the backend
// that owned it. It reports false if the room is not bookmarked.
func (c *Controller) Remove(ctx context.Context, room string) (bool, error) {
	var (
		ok      bool
		pushErr error
	)
	err := c.do(ctx, func() {
		var r bookmark.Record
		if r, ok = c.store.Remove(room); !ok {
			return
		}
		c.logger.Info("bookmark removed", zap.Object("bookmark", r))
		c.emitChanged("removed", r)
		pushErr = c.push(ctx, r.Backend)
	})
	if err != nil {
		return false, err
	}
	return ok, pushErr
}

// Join enters a bookmarked room, or focuses it if already joined. It
// reports false if the room is not bookmarked.
func (c *Controller) Join(ctx context.Context, room string) (bool, error) {
	var (
		ok      bool
		joinErr error
	)
	err := c.do(ctx, func() {
		var r bookmark.Record
		if r, ok = c.store.Get(room); !ok {
			return
		}
		joinErr = c.autojoin(ctx, r, true)
	})
	if err != nil {
		return false, err
	}
	return ok, joinErr
}

// List returns every bookmark in insertion order.
func (c *Controller) List(ctx context.Context) ([]bookmark.Record, error) {
	var out []bookmark.Record
	err := c.do(ctx, func() { out = c.store.Snapshot() })
	return out, err
}

// CompletePrefix returns the next bookmarked room matching text.
func (c *Controller) CompletePrefix(ctx context.Context, text string) (string, bool, error) {
	var (
		room string
		ok   bool
	)
	err := c.do(ctx, func() { room, ok = c.store.FindByPrefix(text) })
	return room, ok, err
}

// ResetCompletion restarts completion cycling.
func (c *Controller) ResetCompletion(ctx context.Context) error {
	return c.do(ctx, c.store.ResetCompletion)
}

// State returns the current phase and counters.
func (c *Controller) State(ctx context.Context) (State, error) {
	var s State
	err := c.do(ctx, func() {
		s = State{Phase: c.phase, Cycle: c.cycle, Pending: c.pending, Bookmarks: c.store.Len()}
	})
	return s, err
}

// Phase returns the current phase of the sync cycle.
func (c *Controller) Phase(ctx context.Context) (Phase, error) {
	s, err := c.State(ctx)
	return s.Phase, err
}

type query struct {
	backend bookmark.Backend
	prefix  string
	payload []byte
}

func (c *Controller) startSync() {
	if c.pending > 0 {
		c.deps.Requests.CancelAll()
	}
	c.cycle++
	c.pending = 0
	c.store.Clear()
	cycle := c.cycle
	timeout := c.deps.Prefs.Get().RequestTimeout

	c.setPhase(QueryingBoth)
	c.emit(bus.KindSyncStarted, map[string]any{"cycle": cycle})

	for _, q := range []query{
		{bookmark.LegacyStorage, PrefixPrivateQuery, stanza.LegacyQuery()},
		{bookmark.Pubsub, PrefixPubsubQuery, stanza.PubsubQuery()},
	} {
		p, err := c.deps.Requests.Request(c.ctx, correlate.Request{
			Prefix:  q.prefix,
			Type:    stanza.TypeGet,
			Payload: q.payload,
			Timeout: timeout,
		})
		if err != nil {
			c.logger.Error("bookmark query not sent", zap.Stringer("backend", q.backend), zap.Error(err))
			c.audit(store.SyncOutcome{Backend: q.backend.String(), Outcome: "send_failed", Detail: err.Error()})
			continue
		}
		c.pending++
		go c.await(cycle, q.backend, p)
	}
	if c.pending == 0 {
		c.setPhase(Idle)
	}
}

func (c *Controller) await(cycle uint64, backend bookmark.Backend, p *correlate.Pending) {
	select {
	case res := <-p.Done():
		c.post(func() { c.resolve(cycle, backend, res) })
	case <-c.stopped:
	}
}

// resolve handles one query outcome on the loop.
func (c *Controller) resolve(cycle uint64, backend bookmark.Backend, res correlate.Result) {
	if cycle != c.cycle {
		c.logger.Debug("discarding result of superseded sync",
			zap.String("id", res.ID), zap.Uint64("cycle", cycle), zap.Uint64("current", c.cycle))
		return
	}
	c.pending--
	defer func() {
		if c.pending > 0 {
			c.setPhase(QueryingBoth)
		} else {
			c.setPhase(Idle)
		}
	}()

	outcome := store.SyncOutcome{Backend: backend.String(), RequestID: res.ID, Outcome: res.Outcome.String()}
	switch res.Outcome {
	case correlate.TimedOut:
		c.logger.Warn("bookmark query timed out", zap.Stringer("backend", backend), zap.String("id", res.ID))
		c.audit(outcome)
		c.emit(bus.KindSyncTimeout, map[string]any{"backend": backend.String(), "id": res.ID})
		return
	case correlate.Cancelled:
		c.audit(outcome)
		return
	}
	if res.Response.IsError() {
		c.logger.Warn("bookmark query rejected", zap.Stringer("backend", backend), zap.String("id", res.ID))
		outcome.Outcome = "error"
		c.audit(outcome)
		c.emit(bus.KindSyncResolved, map[string]any{"backend": backend.String(), "id": res.ID, "records": 0, "error": true})
		return
	}

	c.setPhase(Merging)
	records, err := stanza.Decode(res.Response.Payload, backend)
	if err != nil {
		c.logger.Warn("bookmark response partly decoded", zap.Stringer("backend", backend), zap.Error(err))
		outcome.Detail = err.Error()
	}
	added := make([]bookmark.Record, 0, len(records))
	for _, r := range records {
		if !c.store.Add(r) {
			c.logger.Debug("bookmark already known, skipped", zap.Object("bookmark", r))
			continue
		}
		added = append(added, r)
	}
	outcome.Records = len(added)
	c.audit(outcome)
	c.logger.Info("bookmarks merged", zap.Stringer("backend", backend), zap.Int("records", len(added)))
	c.emit(bus.KindSyncResolved, map[string]any{"backend": backend.String(), "id": res.ID, "records": len(added)})
	if len(added) > 0 {
		c.emit(bus.KindChanged, map[string]any{"op": "synced", "backend": backend.String()})
	}

	c.setPhase(Autojoining)
	for _, r := range added {
		if !r.Autojoin {
			continue
		}
		if err := c.autojoin(c.ctx, r, false); err != nil {
			c.logger.Error("autojoin failed", zap.Object("bookmark", r), zap.Error(err))
		}
	}
}

// autojoin joins r's room unless it is already active. A room whose roster
// is still arriving is left alone; a complete one is focused instead.
func (c *Controller) autojoin(ctx context.Context, r bookmark.Record, switchTo bool) error {
	m := c.deps.Membership
	switch {
	case !m.IsActive(r.Room):
		nick := r.Nick
		if nick == "" {
			nick = c.deps.Prefs.Get().MUCNick
		}
		return m.Join(ctx, r.Room, nick, r.Password)
	case !m.IsRosterComplete(r.Room):
		c.logger.Debug("room join already in progress", zap.String("room", r.Key()))
		return nil
	default:
		if c.deps.UI != nil {
			c.deps.UI.FocusOrShowRoom(r.Room, switchTo)
		}
		return nil
	}
}

// push sends the full current set of backend's bookmarks. Both backends are
// republished whole: private storage replaces its document on every set.
func (c *Controller) push(ctx context.Context, backend bookmark.Backend) error {
	records := c.store.ByBackend(backend)
	var (
		prefix  string
		payload []byte
		err     error
	)
	switch backend {
	case bookmark.Pubsub:
		prefix = PrefixPubsubUpdate
		payload, err = stanza.PubsubPublish(records)
	default:
		prefix = PrefixPrivateUpdate
		payload, err = stanza.LegacyUpdate(records)
	}
	if err != nil {
		return fmt.Errorf("build %s update: %w", backend, err)
	}

	id, err := c.deps.Requests.Push(ctx, correlate.Request{Prefix: prefix, Type: stanza.TypeSet, Payload: payload})
	entry := store.Push{Backend: backend.String(), RequestID: id, Records: len(records)}
	if err != nil {
		entry.Error = err.Error()
		c.logger.Error("bookmark push failed", zap.Stringer("backend", backend), zap.Error(err))
		c.emit(bus.KindPushFailed, map[string]any{"backend": backend.String(), "error": err.Error()})
	}
	if c.deps.Audit != nil {
		if aerr := c.deps.Audit.RecordPush(entry); aerr != nil {
			c.logger.Warn("failed to record push", zap.Error(aerr))
		}
	}
	if err != nil {
		return fmt.Errorf("push %s bookmarks: %w", backend, err)
	}
	return nil
}

func (c *Controller) setPhase(p Phase) {
	if c.phase == p {
		return
	}
	from := c.phase
	c.phase = p
	c.emit(bus.KindPhaseChanged, map[string]any{"from": from.String(), "to": p.String()})
}

func (c *Controller) emitChanged(op string, r bookmark.Record) {
	c.emit(bus.KindChanged, map[string]any{"op": op, "room": r.Key(), "backend": r.Backend.String()})
}

func (c *Controller) emit(kind string, payload map[string]any) {
	if c.deps.Bus != nil {
		c.deps.Bus.Emit(kind, payload)
	}
}

func (c *Controller) audit(o store.SyncOutcome) {
	if c.deps.Audit == nil {
		return
	}
	if err := c.deps.Audit.RecordSyncOutcome(o); err != nil {
		c.logger.Warn("failed to record sync outcome", zap.Error(err))
	}
}
