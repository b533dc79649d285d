// Package xmpp connects the daemon to an XMPP server and routes what the
// server sends to the bookmark machinery.
package xmpp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/matheus3301/xmark/internal/config"
	"github.com/matheus3301/xmark/internal/correlate"
	"github.com/matheus3301/xmark/internal/jid"
	"github.com/matheus3301/xmark/internal/stanza"
	goxmpp "github.com/xmppo/go-xmpp"
	"go.uber.org/zap"
)

// ErrNotConnected is returned when sending without a live connection.
var ErrNotConnected = errors.New("xmpp: not connected")

// Handler receives inbound stanzas.
type Handler interface {
	HandleIQ(resp stanza.Response)
	HandlePresence(from, presenceType string)
}

// Adapter wraps the go-xmpp client and manages the XMPP connection.
type Adapter struct {
	opts    goxmpp.Options
	account jid.JID
	logger  *zap.Logger

	mu     sync.Mutex
	client *goxmpp.Client
}

// NewAdapter creates an adapter for acct. It does not connect.
func NewAdapter(acct *config.Account, logger *zap.Logger) (*Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	addr, err := jid.Parse(acct.JID)
	if err != nil {
		return nil, fmt.Errorf("account jid: %w", err)
	}
	if addr.Local == "" {
		return nil, fmt.Errorf("account jid %q has no local part", acct.JID)
	}
	resource := acct.Resource
	if resource == "" {
		resource = addr.Resource
	}
	if resource == "" {
		resource = "xmark"
	}
	host := acct.Host
	if host == "" {
		host = net.JoinHostPort(addr.Domain, "5222")
	}
	return &Adapter{
		opts: goxmpp.Options{
			Host:     host,
			User:     addr.Bare(),
			Password: acct.Password,
			Resource: resource,
			NoTLS:    acct.NoTLS,
			StartTLS: acct.StartTLS,
			Session:  true,
		},
		account: addr.WithResource(resource),
		logger:  logger,
	}, nil
}

// Connect dials the server and authenticates.
func (a *Adapter) Connect(ctx context.Context) error {
	type result struct {
		client *goxmpp.Client
		err    error
	}
	done := make(chan result, 1)
	a.logger.Info("connecting to XMPP server", zap.String("host", a.opts.Host), zap.String("jid", a.account.String()))
	go func() {
		c, err := a.opts.NewClient()
		done <- result{c, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("connect %s: %w", a.opts.Host, r.err)
		}
		a.mu.Lock()
		a.client = r.client
		a.mu.Unlock()
		a.logger.Info("XMPP session established", zap.String("jid", r.client.JID()))
		return nil
	case <-ctx.Done():
		go func() {
			if r := <-done; r.client != nil {
				_ = r.client.Close()
			}
		}()
		return ctx.Err()
	}
}

// Send writes a serialized stanza to the server.
func (a *Adapter) Send(ctx context.Context, raw []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return ErrNotConnected
	}
	if _, err := a.client.SendOrg(string(raw)); err != nil {
		return fmt.Errorf("write stanza: %w", err)
	}
	return nil
}

// JoinRoom sends the presence that enters room under nick.
func (a *Adapter) JoinRoom(ctx context.Context, room jid.JID, nick, password string) error {
	raw, err := stanza.JoinPresence(correlate.NewID("muc_join"), room, nick, password)
	if err != nil {
		return err
	}
	return a.Send(ctx, raw)
}

// Run reads stanzas and hands them to h until the connection fails or ctx
// is done. It always returns a non-nil error.
func (a *Adapter) Run(ctx context.Context, h Handler) error {
	a.mu.Lock()
	client := a.client
	a.mu.Unlock()
	if client == nil {
		return ErrNotConnected
	}

	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()

	for {
		in, err := client.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("receive: %w", err)
		}
		dispatch(in, h)
	}
}

func dispatch(in any, h Handler) {
	switch v := in.(type) {
	case goxmpp.IQ:
		if v.Type == stanza.TypeResult || v.Type == stanza.TypeError {
			h.HandleIQ(stanza.Response{ID: v.ID, Type: v.Type, From: v.From, Payload: v.Query})
		}
	case goxmpp.Presence:
		h.HandlePresence(v.From, v.Type)
	}
}

// Disconnect closes the connection if there is one.
func (a *Adapter) Disconnect() {
	a.mu.Lock()
	client := a.client
	a.client = nil
	a.mu.Unlock()
	if client == nil {
		return
	}
	a.logger.Info("disconnecting from XMPP server")
	if err := client.Close(); err != nil {
		a.logger.Debug("close connection", zap.Error(err))
	}
}

// Connected reports whether a connection is open.
func (a *Adapter) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client != nil
}

// Domain returns the account's server.
func (a *Adapter) Domain() string {
	return a.account.Domain
}

// BareJID returns the account address without resource.
func (a *Adapter) BareJID() string {
	return a.account.Bare()
}
