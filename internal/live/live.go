// Package live maintains the persistent push connection that delivers
// inbound message events and accepts outbound sends. One logical
// connection exists per mounted dashboard; any close triggers a
// reconnect attempt, bounded by exponential backoff with jitter and a
// maximum-attempts ceiling.
package live

import (
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nwestfall/parley/internal/types"
)

// ErrNotOpen is returned by Send while the connection is not open.
var ErrNotOpen = errors.New("live channel not open")

// State is the connection state of the live channel.
type State int

const (
	Connecting State = iota
	Open
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	}
	return "unknown"
}

const (
	defaultMaxAttempts = 10
	defaultBaseDelay   = 500 * time.Millisecond
	defaultMaxDelay    = 30 * time.Second
)

// Options configure the live channel.
type Options struct {
	URL         string
	MaxAttempts int           // consecutive failed connects before giving up
	BaseDelay   time.Duration // first retry delay, doubled per attempt
	MaxDelay    time.Duration // backoff ceiling
	Logf        func(format string, args ...any)
}

// Channel is a persistent, auto-reconnecting websocket connection
// carrying JSON-encoded message frames.
type Channel struct {
	opts   Options
	events chan types.Message
	done   chan struct{}
	once   sync.Once

	mu    sync.Mutex
	state State
	conn  *websocket.Conn
}

// Dial starts the live channel. The connection loop runs until Close
// is called or the retry ceiling is exhausted.
func Dial(opts Options) *Channel {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = defaultMaxDelay
	}
	if opts.Logf == nil {
		opts.Logf = func(string, ...any) {}
	}
	c := &Channel{
		opts:   opts,
		events: make(chan types.Message, 32),
		done:   make(chan struct{}),
		state:  Connecting,
	}
	go c.run()
	return c
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Events returns the stream of decoded inbound frames. The channel is
// never closed; consumers stop reading when they tear down.
func (c *Channel) Events() <-chan types.Message {
	return c.events
}

// Send writes one message frame. It fails with ErrNotOpen unless the
// connection is currently open.
func (c *Channel) Send(msg types.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Open || c.conn == nil {
		return ErrNotOpen
	}
	return c.conn.WriteJSON(msg)
}

// Close tears the connection down and stops reconnecting. Idempotent.
func (c *Channel) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.state = Closing
		conn := c.conn
		c.mu.Unlock()
		close(c.done)
		if conn != nil {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		}
	})
}

func (c *Channel) run() {
	attempts := 0
	for {
		select {
		case <-c.done:
			c.setState(Closed)
			return
		default:
		}

		c.setState(Connecting)
		conn, _, err := websocket.DefaultDialer.Dial(c.opts.URL, nil)
		if err != nil {
			attempts++
			if attempts >= c.opts.MaxAttempts {
				c.opts.Logf("live: giving up after %d failed connects: %v", attempts, err)
				c.setState(Closed)
				return
			}
			delay := backoffDelay(attempts, c.opts.BaseDelay, c.opts.MaxDelay)
			c.opts.Logf("live: connect failed (attempt %d): %v, retrying in %s", attempts, err, delay)
			select {
			case <-c.done:
				c.setState(Closed)
				return
			case <-time.After(delay):
			}
			continue
		}

		select {
		case <-c.done:
			_ = conn.Close()
			c.setState(Closed)
			return
		default:
		}

		c.mu.Lock()
		c.conn = conn
		c.state = Open
		c.mu.Unlock()
		c.opts.Logf("live: connected to %s", c.opts.URL)

		delivered := c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()

		// A connection that never delivered a frame counts as a failed
		// attempt, so a server that accepts and immediately drops still
		// walks the backoff schedule instead of a tight dial loop.
		if delivered {
			attempts = 0
		} else {
			attempts++
			if attempts >= c.opts.MaxAttempts {
				c.opts.Logf("live: giving up after %d failed connects", attempts)
				c.setState(Closed)
				return
			}
		}
		delay := backoffDelay(attempts, c.opts.BaseDelay, c.opts.MaxDelay)
		select {
		case <-c.done:
			c.setState(Closed)
			return
		case <-time.After(delay):
		}
	}
}

// readLoop reads until the connection dies, reporting whether at least
// one frame was delivered.
func (c *Channel) readLoop(conn *websocket.Conn) bool {
	delivered := false
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.opts.Logf("live: read: %v", err)
			return delivered
		}
		var msg types.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			// Malformed frames are dropped; the receive path survives.
			c.opts.Logf("live: dropping malformed frame: %v", err)
			continue
		}
		select {
		case c.events <- msg:
			delivered = true
		case <-c.done:
			return delivered
		}
	}
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	// Closing is sticky until the loop lands on Closed.
	if c.state == Closing && s != Closed {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()
}

// backoffDelay returns the wait before reconnect attempt n, doubling
// from base up to max, with jitter in the upper half of the window.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}
