// Package wschannel adapts a gorilla/websocket connection to the bridge's
// channel contract. A websocket is a serial ordered byte stream, so the
// protocol's in-order delivery requirement holds without extra framing.
package wschannel

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	bridgeErrors "github.com/c0deZ3R0/go-bridge-kit/errors"
	"github.com/c0deZ3R0/go-bridge-kit/logging"
)

// Channel wraps an established websocket connection. The caller dials or
// upgrades the connection; the channel only pumps messages.
type Channel struct {
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	handler  func(string)
	pending  []string
	draining bool

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger sets the logger for read-loop failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		c.logger = logger
	}
}

// New wraps conn and starts its read loop. Text and binary frames are
// both accepted; each frame is one protocol message.
func New(conn *websocket.Conn, opts ...Option) *Channel {
	c := &Channel{
		conn:   conn,
		logger: logging.Default().Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop()
	return c
}

func (c *Channel) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("websocket channel read failed", "error", err)
			}
			_ = c.Close()
			return
		}
		c.deliver(string(data))
	}
}

func (c *Channel) deliver(msg string) {
	c.mu.Lock()
	// While a buffered replay is in flight, newly read frames queue
	// behind it; handing them to the handler directly would reorder them
	// ahead of older buffered frames.
	if c.handler == nil || c.draining {
		c.pending = append(c.pending, msg)
		c.mu.Unlock()
		return
	}
	handler := c.handler
	c.mu.Unlock()
	handler(msg)
}

func (c *Channel) Send(msg string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		return bridgeErrors.NewTransportError(bridgeErrors.OpSend, err)
	}
	return nil
}

// OnMessage installs the inbound handler and replays buffered frames in
// receipt order. The read loop keeps running throughout; direct delivery
// takes over only once the buffer has fully drained.
func (c *Channel) OnMessage(handler func(msg string)) {
	c.mu.Lock()
	c.handler = handler
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true
	for len(c.pending) > 0 && c.handler != nil {
		msg := c.pending[0]
		c.pending = c.pending[1:]
		h := c.handler
		c.mu.Unlock()
		h(msg)
		c.mu.Lock()
	}
	c.draining = false
	c.mu.Unlock()
}

func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.handler = nil
		c.pending = nil
		c.mu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
