// Package stream keeps a WebSocket connection to the backend's event stream
// alive and hands every frame to a subscriber. Unexpected disconnects are
// retried after a fixed delay until a bounded budget is used up; an explicit
// Close always wins over a pending reconnect.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/large-farva/conveyor-guard/internal/telemetry"
)

const (
	DefaultRetryDelay = 5 * time.Second
	DefaultMaxRetries = 3
)

// Handler receives every frame in the order it was read. It runs on the
// client's read goroutine and must not call Close.
type Handler func(telemetry.Frame)

// Options tunes a Client. Use DefaultOptions as the starting point.
type Options struct {
	RetryDelay time.Duration
	MaxRetries int
	// IdleTimeout drops the connection when nothing, pings included, arrives
	// for this long. Zero disables it.
	IdleTimeout time.Duration
	Dialer      *websocket.Dialer
	Header      http.Header
	Logger      *zap.Logger
	// OnStatus observes every state transition, in order. It must not call Close.
	OnStatus func(Status)
}

// DefaultOptions returns a 5s fixed retry delay and a budget of 3 retries.
func DefaultOptions() Options {
	return Options{
		RetryDelay: DefaultRetryDelay,
		MaxRetries: DefaultMaxRetries,
	}
}

// Client is one live subscription to the event stream.
type Client struct {
	url     string
	opts    Options
	handler Handler
	log     *zap.Logger
	dialer  *websocket.Dialer

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	state    State
	err      error
	retries  int
	terminal bool
	conn     *websocket.Conn
	pending  []Status

	// emitMu keeps observer callbacks in transition order across goroutines.
	emitMu sync.Mutex
}

// Connect validates rawURL and starts connecting in the background. The
// returned client is in StateConnecting. Cancelling ctx is equivalent to Close.
func Connect(ctx context.Context, rawURL string, handler Handler, opts Options) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if handler == nil {
		return nil, errors.New("stream: nil handler")
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	c := &Client{
		url:     u.String(),
		opts:    opts,
		handler: handler,
		log:     opts.Logger,
		dialer:  opts.Dialer,
		done:    make(chan struct{}),
		state:   StateConnecting,
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.dialer == nil {
		c.dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		}
	}
	c.log = c.log.With(zap.String("url", c.url))
	c.ctx, c.cancel = context.WithCancel(ctx)
	context.AfterFunc(c.ctx, c.shutdown)

	c.mu.Lock()
	c.pending = append(c.pending, c.statusLocked())
	c.unlockAndEmit()

	go c.run()
	return c, nil
}

// Status returns the current connection status.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// Done is closed once the client has stopped for good.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close tears the connection down and waits for the read goroutine to exit.
// No frame is delivered and no reconnect is attempted after Close returns.
// It is safe to call more than once.
func (c *Client) Close() {
	c.shutdown()
	<-c.done
}

// shutdown marks the client as shutting down before touching the socket, so
// a close event racing with teardown sees the flag and never reconnects.
func (c *Client) shutdown() {
	c.mu.Lock()
	if c.terminal || c.state == StateShuttingDown {
		c.mu.Unlock()
		return
	}
	c.setLocked(StateShuttingDown, nil)
	conn := c.conn
	c.unlockAndEmit()

	c.cancel()
	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Client) run() {
	defer close(c.done)
	defer c.finish()

	for {
		if !c.begin() {
			return
		}
		conn, resp, err := c.dialer.DialContext(c.ctx, c.url, c.opts.Header)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err == nil {
			if !c.opened(conn) {
				_ = conn.Close()
				return
			}
			err = c.readLoop(conn)
			_ = conn.Close()
		}
		if !c.disconnected(err) {
			return
		}
		if !c.sleep() {
			return
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	if idle := c.opts.IdleTimeout; idle > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(idle))
		conn.SetPingHandler(func(data string) error {
			_ = conn.SetReadDeadline(time.Now().Add(idle))
			err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
			if errors.Is(err, websocket.ErrCloseSent) {
				return nil
			}
			return err
		})
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if idle := c.opts.IdleTimeout; idle > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(idle))
		}
		if !c.live() {
			return errShutdown
		}
		c.handler(telemetry.Decode(msg))
	}
}

var errShutdown = errors.New("stream: shutting down")

// begin moves to Connecting unless a teardown is in progress.
func (c *Client) begin() bool {
	c.mu.Lock()
	if c.state == StateShuttingDown {
		c.mu.Unlock()
		return false
	}
	if c.state != StateConnecting {
		c.setLocked(StateConnecting, nil)
	}
	c.unlockAndEmit()
	return true
}

func (c *Client) opened(conn *websocket.Conn) bool {
	c.mu.Lock()
	if c.state == StateShuttingDown {
		c.mu.Unlock()
		return false
	}
	c.conn = conn
	c.retries = 0
	c.setLocked(StateOpen, nil)
	c.unlockAndEmit()
	c.log.Info("event stream connected")
	return true
}

// disconnected records why the connection ended and reports whether a
// reconnect should be scheduled.
func (c *Client) disconnected(err error) bool {
	c.mu.Lock()
	c.conn = nil
	if c.state == StateShuttingDown {
		c.mu.Unlock()
		return false
	}

	next := StateErrored
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		next = StateClosed
	}
	c.setLocked(next, err)

	if c.retries >= c.opts.MaxRetries {
		retries := c.retries
		c.unlockAndEmit()
		c.log.Error("event stream lost, retry budget exhausted",
			zap.Int("max_retries", c.opts.MaxRetries),
			zap.Int("retries", retries),
			zap.Error(err),
		)
		return false
	}
	c.retries++
	retries := c.retries
	c.unlockAndEmit()
	c.log.Warn("event stream lost, reconnecting",
		zap.Int("retry", retries),
		zap.Int("max_retries", c.opts.MaxRetries),
		zap.Duration("delay", c.opts.RetryDelay),
		zap.Error(err),
	)
	return true
}

func (c *Client) sleep() bool {
	t := time.NewTimer(c.opts.RetryDelay)
	defer t.Stop()

	select {
	case <-c.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// finish moves to the terminal Closed state.
func (c *Client) finish() {
	c.mu.Lock()
	c.terminal = true
	c.conn = nil
	c.setLocked(StateClosed, c.err)
	c.unlockAndEmit()
	c.cancel()
}

func (c *Client) live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateOpen
}

// setLocked applies a transition and queues the resulting status for the
// observer. Illegal transitions are logged and ignored.
func (c *Client) setLocked(to State, err error) {
	if to != c.state && !canTransition(c.state, to) {
		c.log.Warn("illegal stream transition",
			zap.Stringer("from", c.state),
			zap.Stringer("to", to),
		)
		return
	}
	c.state = to
	c.err = err
	c.pending = append(c.pending, c.statusLocked())
}

func (c *Client) statusLocked() Status {
	return Status{
		State:    c.state,
		Err:      c.err,
		Retries:  c.retries,
		Terminal: c.terminal,
	}
}

// unlockAndEmit releases mu and delivers queued statuses. emitMu is taken
// before mu is released so observers see transitions in order.
func (c *Client) unlockAndEmit() {
	pending := c.pending
	c.pending = nil
	c.emitMu.Lock()
	c.mu.Unlock()
	defer c.emitMu.Unlock()

	if c.opts.OnStatus == nil {
		return
	}
	for _, s := range pending {
		c.opts.OnStatus(s)
	}
}
