// Package client is a reconnecting WebSocket client for the game server.
//
// The server does not replay missed events, so after every (re)connect the
// client runs Options.Resync before it delivers anything that arrived on the
// new connection.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/pkwy-game-suite/pkg/types"
)

var ErrNotConnected = errors.New("client: not connected")

type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateReconnecting:
		return "RECONNECTING"
	default:
		return "CLOSED"
	}
}

// DefaultRetryDelay is the fixed pause between reconnect attempts.
const DefaultRetryDelay = 2 * time.Second

type Options struct {
	// URL is the full endpoint, e.g. ws://host/ws/player/ABC123/<player id>.
	URL string
	// Resync re-fetches full session state. It runs after each successful
	// dial and before any event from that connection is delivered; an
	// error counts as a failed attempt.
	Resync func(ctx context.Context) error
	// Backoff paces reconnects. Defaults to a constant DefaultRetryDelay
	// forever; return backoff.Stop to give up.
	Backoff backoff.BackOff
	// OnState observes every state change.
	OnState func(State)
	Logger  *zap.Logger
	Buffer  int
}

type Client struct {
	opts   Options
	events chan types.Envelope
	state  atomic.Int32

	mu   sync.Mutex
	conn *websocket.Conn
}

func New(opts Options) *Client {
	if opts.Backoff == nil {
		opts.Backoff = backoff.NewConstantBackOff(DefaultRetryDelay)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	c := &Client{opts: opts, events: make(chan types.Envelope, opts.Buffer)}
	c.state.Store(int32(StateClosed))
	return c
}

// Events is closed when Run returns.
func (c *Client) Events() <-chan types.Envelope { return c.events }

func (c *Client) State() State { return State(c.state.Load()) }

// Run connects and keeps reconnecting until ctx is done or the backoff
// policy stops. It returns ctx.Err() or the last connection error.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)
	defer c.setState(StateClosed)

	c.opts.Backoff.Reset()
	next := StateConnecting
	for {
		c.setState(next)
		err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := c.opts.Backoff.NextBackOff()
		if wait == backoff.Stop {
			return err
		}
		c.opts.Logger.Info("connection lost, retrying", zap.Error(err), zap.Duration("in", wait))
		next = StateReconnecting

		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
}

// session runs one connection from dial to disconnect.
func (c *Client) session(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.opts.URL, nil)
	if err != nil {
		return err
	}
	defer conn.CloseNow()

	if c.opts.Resync != nil {
		if err := c.opts.Resync(ctx); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
	}()

	c.opts.Backoff.Reset()
	c.setState(StateOpen)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var env types.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.opts.Logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		select {
		case c.events <- env:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Send writes one envelope on the current connection.
func (c *Client) Send(ctx context.Context, event string, data any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	env, err := types.NewEnvelope(event, data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, payload)
}

func (c *Client) setState(s State) {
	if State(c.state.Swap(int32(s))) == s {
		return
	}
	if c.opts.OnState != nil {
		c.opts.OnState(s)
	}
}
