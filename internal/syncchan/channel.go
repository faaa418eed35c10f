// Package syncchan carries presentation state between a peer and the relay.
//
// A Channel owns at most one websocket at a time. Socket callbacks are
// turned into Events on a single channel so that the consumer (the
// controller) is the only goroutine that reacts to them. Every socket gets a
// generation number; events from a socket that has since been replaced are
// tagged with its old generation and can be discarded by the consumer.
package syncchan

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nrdvana/slidelink/internal/config"
)

// ErrNotConnected is returned by Send while no socket is open
var ErrNotConnected = errors.New("not connected")

// ErrClosed is returned by Connect after Close
var ErrClosed = errors.New("channel closed")

const (
	eventBuffer  = 64
	writeTimeout = 10 * time.Second
)

// KeyProvider solicits the connection credential for non-observer modes
type KeyProvider interface {
	Key(ctx context.Context) (string, error)
}

// KeyFunc adapts a function to KeyProvider
type KeyFunc func(ctx context.Context) (string, error)

// Key calls f
func (f KeyFunc) Key(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticKey always returns the same credential
type StaticKey string

// Key returns k
func (k StaticKey) Key(context.Context) (string, error) {
	return string(k), nil
}

// Options configures a Channel
type Options struct {
	// Address is the configured relay address, absolute or page-relative
	Address string
	PageURL string
	Mode    string
	Keys    KeyProvider

	HandshakeTimeout time.Duration
	// Heartbeat enables websocket pings at this interval
	Heartbeat time.Duration
	// DeadAfter closes a socket that has been silent this long while pinging
	DeadAfter time.Duration

	Dialer *websocket.Dialer
	Header http.Header
}

// Channel is the client side of the sync protocol
type Channel struct {
	opts   Options
	log    zerolog.Logger
	events chan Event
	done   chan struct{}

	mu     sync.Mutex
	state  State
	gen    uint64
	url    string
	conn   *websocket.Conn
	cancel context.CancelFunc
	closed bool

	writeMu sync.Mutex
}

// New creates a disconnected channel
func New(opts Options, logger zerolog.Logger) *Channel {
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		}
	}
	if opts.Keys == nil {
		opts.Keys = StaticKey("")
	}
	return &Channel{
		opts:   opts,
		log:    logger.With().Str("component", "syncchan").Logger(),
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}
}

// Events is the single stream of socket events, in arrival order
func (c *Channel) Events() <-chan Event {
	return c.events
}

// State is the current connection state
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Gen is the generation of the current socket
func (c *Channel) Gen() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// URL is the address of the most recent connection attempt
func (c *Channel) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

// Connect replaces any existing socket with a new one and returns the new
// generation. Dialing happens in the background; the outcome arrives as an
// EventOpen or EventClose. The key is solicited before dialing unless the
// mode is observer.
func (c *Channel) Connect(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, ErrClosed
	}
	c.teardownLocked()
	c.gen++
	gen := c.gen
	c.state = Connecting
	dialCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	c.log.Debug().Uint64("gen", gen).Msg("connecting")
	go c.dial(dialCtx, gen)
	return gen, nil
}

func (c *Channel) dial(ctx context.Context, gen uint64) {
	key := ""
	if c.opts.Mode != config.ModeObserver {
		k, err := c.opts.Keys.Key(ctx)
		if err != nil {
			c.fail(gen, fmt.Errorf("failed to get key: %w", err))
			return
		}
		key = k
	}

	target, err := ResolveURL(c.opts.Address, c.opts.PageURL, c.opts.Mode, key)
	if err != nil {
		c.fail(gen, err)
		return
	}
	c.mu.Lock()
	if gen == c.gen {
		c.url = target
	}
	c.mu.Unlock()

	conn, _, err := c.opts.Dialer.DialContext(ctx, target, c.opts.Header)
	if err != nil {
		c.fail(gen, fmt.Errorf("failed to connect: %w", err))
		return
	}

	c.mu.Lock()
	if gen != c.gen || c.closed {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.state = Connected
	c.mu.Unlock()

	c.log.Info().Uint64("gen", gen).Str("host", HostOf(target)).Msg("connected")
	c.emit(Event{Kind: EventOpen, Gen: gen})

	if c.opts.Heartbeat > 0 {
		c.armDeadline(conn)
		conn.SetPongHandler(func(string) error {
			c.armDeadline(conn)
			return nil
		})
		go c.ping(ctx, conn)
	}
	c.read(gen, conn)
}

func (c *Channel) read(gen uint64, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.fail(gen, err)
			return
		}
		msg, err := DecodeInbound(data)
		if err != nil {
			c.log.Warn().Err(err).Uint64("gen", gen).Msg("dropping frame")
			continue
		}
		c.emit(Event{Kind: EventMessage, Gen: gen, Message: msg})
	}
}

func (c *Channel) ping(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.opts.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.log.Debug().Err(err).Msg("ping failed")
				return
			}
		}
	}
}

func (c *Channel) armDeadline(conn *websocket.Conn) {
	if c.opts.DeadAfter > 0 {
		conn.SetReadDeadline(time.Now().Add(c.opts.DeadAfter))
	}
}

// fail records the end of socket gen and reports it, unless gen was replaced.
func (c *Channel) fail(gen uint64, err error) {
	c.mu.Lock()
	current := gen == c.gen
	if current {
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		c.state = Disconnected
	}
	c.mu.Unlock()

	if !current {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.log.Info().Uint64("gen", gen).Msg("connection closed")
	} else {
		c.log.Warn().Err(err).Uint64("gen", gen).Msg("connection lost")
	}
	c.emit(Event{Kind: EventClose, Gen: gen, Err: err})
}

func (c *Channel) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// Send writes one cursor update. Updates are written in call order.
func (c *Channel) Send(msg Outbound) error {
	c.mu.Lock()
	conn := c.conn
	gen := c.gen
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		// the read loop sees the broken socket and reports the close
		conn.Close()
		return fmt.Errorf("failed to send update (gen %d): %w", gen, err)
	}
	return nil
}

// Disconnect closes the current socket. The close is reported as an
// EventClose by the socket's read loop.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	c.writeMu.Lock()
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	c.writeMu.Unlock()
	conn.Close()
}

// Close shuts the channel down for good
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.teardownLocked()
	c.state = Disconnected
	c.mu.Unlock()
	close(c.done)
	return nil
}

// teardownLocked drops the current socket without reporting it; the caller
// is replacing it or shutting down. Must be called with mu held.
func (c *Channel) teardownLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
