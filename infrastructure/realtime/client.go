package realtime

import (
	"context"
	"dot-catcher/contract"
	"dot-catcher/domain/event"
	"dot-catcher/errors"
	"dot-catcher/services"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

var _ contract.Session = (*Client)(nil)

// Client is one websocket session. Outbound frames go through a bounded queue
// drained by writePump; when the queue is full the oldest frame is dropped.
type Client struct {
	id             string
	log            *slog.Logger
	conn           *websocket.Conn
	sessions       services.ISessionService
	publishTimeout time.Duration

	mu        sync.Mutex
	send      chan []byte
	done      chan struct{}
	closed    bool
	closeOnce sync.Once
}

func NewClient(log *slog.Logger, conn *websocket.Conn, sessions services.ISessionService,
	bufferSize int, publishTimeout time.Duration) *Client {
	id := uuid.NewString()
	return &Client{
		id:             id,
		log:            log.With("session", id),
		conn:           conn,
		sessions:       sessions,
		publishTimeout: publishTimeout,
		send:           make(chan []byte, bufferSize),
		done:           make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

// Consume encodes the event and queues it. It never blocks.
func (c *Client) Consume(_ context.Context, e event.DomainEvent) error {
	frame, err := event.Encode(e)
	if err != nil {
		return err
	}
	return c.enqueue(frame)
}

func (c *Client) enqueue(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.ErrSessionClosed
	}
	select {
	case c.send <- frame:
	default:
		select {
		case <-c.send:
			c.log.Debug("Send queue full, dropping oldest frame")
		default:
		}
		select {
		case c.send <- frame:
		default:
		}
	}
	return nil
}

// serve runs the pumps until the connection ends.
func (c *Client) serve(ctx context.Context) {
	c.sessions.OnConnect(c)
	go c.writePump()
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.sessions.OnDisconnect(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("Failed to set read deadline", "err", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("Websocket read error", "err", err)
			}
			return
		}
		c.handleFrame(ctx, frame)
	}
}

func (c *Client) handleFrame(ctx context.Context, frame []byte) {
	env, err := event.Decode(frame)
	if err != nil {
		c.sessions.Reject(c, services.CodeInvalidAction, "malformed frame")
		return
	}

	switch env.Event {
	case event.CatchDotName:
		actionCtx, cancel := context.WithTimeout(ctx, c.publishTimeout)
		defer cancel()
		// Errors were already reported to this session.
		_ = c.sessions.OnClientAction(actionCtx, c, env.Data)
	default:
		c.sessions.Reject(c, services.CodeUnsupportedEvent, "unsupported event "+string(env.Event))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.Warn("Failed to set write deadline", "err", err)
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug("Write failed", "err", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.Warn("Failed to set ping write deadline", "err", err)
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("Ping failed", "err", err)
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.done)
		c.mu.Unlock()
		if err := c.conn.Close(); err != nil {
			c.log.Debug("Failed to close websocket", "err", err)
		}
	})
}
