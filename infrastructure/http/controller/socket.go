package controller

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/infrastructure/realtime"
	"chat-relay/services"
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const maxFrameSize = 1 << 20

type SocketConfig struct {
	BufferSize      int
	ReadTimeout     time.Duration
	InflightTimeout time.Duration
	// Sessions lets shutdown drain live sockets. A private tracker is used when nil.
	Sessions *Sessions
}

// SocketController serves the realtime endpoint.
// One goroutine reads frames, the connection's own goroutine writes them.
// Leaving the room runs on every exit path.
type SocketController struct {
	log      *slog.Logger
	chat     services.IChatService
	config   SocketConfig
	sessions *Sessions
	upgrader websocket.Upgrader
}

func NewSocketController(log *slog.Logger, chat services.IChatService, config SocketConfig) *SocketController {
	sessions := config.Sessions
	if sessions == nil {
		sessions = NewSessions()
	}
	return &SocketController{
		log:      log,
		chat:     chat,
		config:   config,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// No authentication in front of the relay, origins are not checked either.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// session is the per-connection state owned by the read loop.
type session struct {
	conn   *realtime.Connection
	joined domain.ConversationID
}

func (ctl *SocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ctl.sessions.add() {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		defer ctl.sessions.done()

		ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already answered the client
			ctl.log.Debug("Websocket upgrade failed", "error", err)
			return
		}

		s := &session{conn: realtime.NewConnection(ws, ctl.config.BufferSize, ctl.log)}
		s.conn.Start()
		defer func() {
			ctl.chat.LeaveRoom(s.conn)
			s.conn.Close(websocket.CloseNormalClosure, "session closed")
		}()
		go func() {
			select {
			case <-ctl.sessions.Closing():
				s.conn.Close(websocket.CloseGoingAway, "server shutting down")
			case <-s.conn.Done():
			}
		}()

		ws.SetReadLimit(maxFrameSize)
		_ = ws.SetReadDeadline(time.Now().Add(ctl.config.ReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(ctl.config.ReadTimeout))
		})

		ctx := c.Request.Context()
		ctl.reply(ctx, s, realtime.OutboundFrame{Type: realtime.FrameConnected, ConnectionID: s.conn.ID()})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) &&
					!goerrors.Is(err, websocket.ErrCloseSent) {
					ctl.log.Debug("Websocket read ended", "connection_id", s.conn.ID(), "error", err)
				}
				return
			}

			var frame realtime.InboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(ctx, s, fmt.Errorf("%w: invalid payload", errors.ErrValidation))
				continue
			}

			switch frame.Type {
			case realtime.FrameJoin:
				ctl.handleJoin(ctx, s, frame)
			case realtime.FrameMessage:
				ctl.handleMessage(ctx, s, frame)
			case realtime.FrameLeave:
				ctl.reply(ctx, s, realtime.OutboundFrame{Type: realtime.FrameLeft, ConversationID: s.joined})
				return
			default:
				ctl.replyError(ctx, s, fmt.Errorf("%w: unknown frame type %q", errors.ErrValidation, frame.Type))
			}
		}
	}
}

func (ctl *SocketController) handleJoin(ctx context.Context, s *session, frame realtime.InboundFrame) {
	if frame.ConversationID == "" {
		ctl.replyError(ctx, s, fmt.Errorf("%w: conversation_id is required", errors.ErrValidation))
		return
	}
	if err := ctl.chat.JoinRoom(s.conn, frame.ConversationID); err != nil {
		ctl.replyError(ctx, s, err)
		return
	}
	s.joined = frame.ConversationID
	ctl.reply(ctx, s, realtime.OutboundFrame{Type: realtime.FrameJoined, ConversationID: s.joined})
}

// handleMessage submits to the joined conversation. The sender gets its own copy through the broadcast.
func (ctl *SocketController) handleMessage(ctx context.Context, s *session, frame realtime.InboundFrame) {
	if s.joined == "" {
		ctl.replyError(ctx, s, errors.ErrNotJoined)
		return
	}
	if frame.ConversationID == "" {
		frame.ConversationID = s.joined
	}
	if frame.ConversationID != s.joined {
		ctl.replyError(ctx, s, fmt.Errorf("%w: connection is attached to conversation %s", errors.ErrNotJoined, s.joined))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, ctl.config.InflightTimeout)
	defer cancel()
	if _, err := ctl.chat.PostMessage(ctx, frame.Command()); err != nil {
		ctl.replyError(ctx, s, err)
	}
}

func (ctl *SocketController) reply(ctx context.Context, s *session, frame realtime.OutboundFrame) {
	if err := s.conn.SendFrame(context.WithoutCancel(ctx), frame); err != nil {
		ctl.log.Debug("Frame not sent", "connection_id", s.conn.ID(), "type", frame.Type, "error", err)
	}
}

func (ctl *SocketController) replyError(ctx context.Context, s *session, err error) {
	ctl.reply(ctx, s, realtime.ErrorFrame(errors.FrameCode(err), err.Error()))
}
