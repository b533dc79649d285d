package client

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/matheus3301/xmark/internal/api"
)

const resubscribeDelay = 2 * time.Second

// Client wraps the daemon API with a self-healing event subscription.
type Client struct {
	*api.Client
	watch func(ctx context.Context, namespaces ...string) (EventSource, error)
}

// EventSource yields daemon events until it fails.
type EventSource interface {
	Recv() (api.Event, error)
}

// New dials the daemon's Unix domain socket.
func New(socketPath string) (*Client, error) {
	c, err := api.Dial(socketPath)
	if err != nil {
		return nil, err
	}
	return &Client{
		Client: c,
		watch: func(ctx context.Context, namespaces ...string) (EventSource, error) {
			return c.WatchEvents(ctx, namespaces...)
		},
	}, nil
}

// Watch delivers events to fn until ctx is done, subscribing again after
// the stream breaks. onError, if set, sees every subscription failure.
func (c *Client) Watch(ctx context.Context, fn func(api.Event), onError func(error), namespaces ...string) {
	for {
		err := c.watchOnce(ctx, fn, namespaces)
		if ctx.Err() != nil {
			return
		}
		if onError != nil && err != nil {
			onError(err)
		}
		select {
		case <-time.After(resubscribeDelay):
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) watchOnce(ctx context.Context, fn func(api.Event), namespaces []string) error {
	src, err := c.watch(ctx, namespaces...)
	if err != nil {
		return err
	}
	for {
		evt, err := src.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fn(evt)
	}
}
