package realtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var _ contract.Connection = (*Connection)(nil)

// Connection wraps a websocket and funnels every outbound frame through one write loop.
// Send never blocks: a client too slow to drain its buffer is disconnected.
// Safe for concurrent use.
type Connection struct {
	id   string
	ws   *websocket.Conn
	log  *slog.Logger
	send chan []byte
	done chan struct{}
	once sync.Once

	closeMessage []byte
}

func NewConnection(ws *websocket.Conn, bufferSize int, log *slog.Logger) *Connection {
	return &Connection{
		id:   uuid.NewString(),
		ws:   ws,
		log:  log,
		send: make(chan []byte, bufferSize),
		done: make(chan struct{}),
	}
}

func (c *Connection) ID() string { return c.id }

// Start launches the write loop. It must be called exactly once.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Done is closed once the connection is closed.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Send delivers a persisted message as a message frame.
func (c *Connection) Send(ctx context.Context, message domain.Message) error {
	return c.SendFrame(ctx, OutboundFrame{Type: FrameMessage, ConversationID: message.ConversationID, Message: &message})
}

func (c *Connection) SendFrame(ctx context.Context, frame OutboundFrame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return errors.ErrConnectionClosed
	default:
	}
	select {
	case <-c.done:
		return errors.ErrConnectionClosed
	case c.send <- payload:
		return nil
	default:
		c.log.Warn("Send buffer full, disconnecting slow client", "connection_id", c.id)
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return errors.ErrQueueFull
	}
}

// Close stops the connection. Frames already buffered are flushed before the close frame is sent.
// Later calls do nothing. The send channel is left open so concurrent senders never write to a closed channel.
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		c.closeMessage = websocket.FormatCloseMessage(code, reason)
		close(c.done)
	})
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.shutdown()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			if err := c.write(websocket.TextMessage, payload); err != nil {
				c.log.Debug("Write failed, closing connection", "connection_id", c.id, "error", err)
				c.Close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		}
	}
}

// shutdown runs on the write goroutine once done is closed.
func (c *Connection) shutdown() {
	deadline := time.Now().Add(writeWait)
	_ = c.ws.SetWriteDeadline(deadline)
drain:
	for {
		select {
		case payload := <-c.send:
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				_ = c.ws.Close()
				return
			}
		default:
			break drain
		}
	}
	_ = c.ws.WriteControl(websocket.CloseMessage, c.closeMessage, deadline)
	_ = c.ws.Close()
}

func (c *Connection) write(messageType int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, payload)
}
