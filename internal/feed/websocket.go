// Package feed connects the traffic tracker to the Stratux websocket feed.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dyluth/stratux-companion/internal/traffic"
	"github.com/gorilla/websocket"
)

const (
	// HandshakeTimeout bounds the websocket opening handshake.
	HandshakeTimeout = 10 * time.Second

	// MaxBacklog is how many received messages are held for Read before the
	// oldest are dropped.
	MaxBacklog = 1024

	closeGrace = time.Second
)

// Dialer opens websocket connections to the traffic feed.
type Dialer struct {
	ws *websocket.Dialer
}

// NewDialer returns a Dialer with the default handshake timeout.
func NewDialer() *Dialer {
	return &Dialer{ws: &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: HandshakeTimeout,
	}}
}

// Dial implements traffic.Dialer.
func (d *Dialer) Dial(ctx context.Context, endpoint string) (traffic.Conn, error) {
	ws, resp, err := d.ws.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return newConn(ws), nil
}

// Conn adapts a websocket connection to traffic.Conn.
//
// gorilla/websocket connections cannot be read again after a read deadline
// expires, so a single goroutine owns ReadMessage. Control frames (pongs,
// close) are only processed while that goroutine reads, so it never waits
// for a consumer: data frames go onto a bounded backlog and Read takes them
// from there. A ping sent before anything is read still gets its pong.
type Conn struct {
	ws *websocket.Conn

	mu      sync.Mutex
	backlog [][]byte
	dropped uint64

	// ready is signalled whenever the backlog grows
	ready chan struct{}
	pongs chan struct{}

	// done is closed when the reader exits; err is set before.
	done chan struct{}
	err  error

	closed    chan struct{}
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn) *Conn {
	c := &Conn{
		ws:     ws,
		ready:  make(chan struct{}, 1),
		pongs:  make(chan struct{}, 1),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}

	ws.SetPongHandler(func(string) error {
		select {
		case c.pongs <- struct{}{}:
		default:
		}
		return nil
	})

	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	defer close(c.done)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.err = err
			return
		}
		c.push(data)
	}
}

// push appends to the backlog, dropping the oldest frame when it is full.
func (c *Conn) push(data []byte) {
	c.mu.Lock()
	if len(c.backlog) >= MaxBacklog {
		c.backlog = c.backlog[1:]
		c.dropped++
		if c.dropped == 1 || c.dropped%MaxBacklog == 0 {
			log.Printf("[WARN] Traffic feed backlog full, %d messages dropped", c.dropped)
		}
	}
	c.backlog = append(c.backlog, data)
	c.mu.Unlock()

	select {
	case c.ready <- struct{}{}:
	default:
	}
}

func (c *Conn) pop() ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.backlog) == 0 {
		return nil, false
	}
	data := c.backlog[0]
	c.backlog[0] = nil
	c.backlog = c.backlog[1:]
	return data, true
}

// Ping sends a websocket ping and waits for the pong.
func (c *Conn) Ping(ctx context.Context) error {
	select {
	case <-c.pongs:
	default:
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(traffic.PingTimeout)
	}
	if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		return fmt.Errorf("failed to send ping: %w", err)
	}

	select {
	case <-c.pongs:
		return nil
	case <-c.done:
		return c.readErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Read returns the oldest unread message, waiting up to timeout for one to
// arrive. Messages received before the peer closed are still returned
// before the close is reported.
func (c *Conn) Read(ctx context.Context, timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if data, ok := c.pop(); ok {
			return data, nil
		}

		select {
		case <-c.ready:
		case <-c.done:
			if data, ok := c.pop(); ok {
				return data, nil
			}
			return nil, c.readErr()
		case <-c.closed:
			return nil, fmt.Errorf("%w: %v", traffic.ErrClosed, net.ErrClosed)
		case <-timer.C:
			return nil, traffic.ErrReadTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Dropped returns how many messages were discarded because the backlog was full.
func (c *Conn) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Close sends a close frame and tears down the connection. It is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
		err = c.ws.Close()
	})
	return err
}

// readErr maps the reader's terminal error. Any form of connection loss is
// reported as traffic.ErrClosed so the tracker reconnects on its next tick.
func (c *Conn) readErr() error {
	var closeErr *websocket.CloseError
	switch {
	case errors.As(c.err, &closeErr),
		errors.Is(c.err, net.ErrClosed),
		errors.Is(c.err, io.EOF),
		errors.Is(c.err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: %v", traffic.ErrClosed, c.err)
	default:
		return fmt.Errorf("websocket read failed: %w", c.err)
	}
}
