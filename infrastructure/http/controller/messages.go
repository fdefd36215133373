package controller

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/infrastructure/realtime"
	"chat-relay/services"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// MessagesController lists and posts messages over plain HTTP.
type MessagesController struct {
	query   services.IQueryService
	chat    services.IChatService
	timeout time.Duration
}

func NewMessagesController(query services.IQueryService, chat services.IChatService, timeout time.Duration) *MessagesController {
	return &MessagesController{query: query, chat: chat, timeout: timeout}
}

// List handles GET /messages.
// conversation_id (or applicant_id, as older clients send it) narrows the list to one conversation,
// viewer=lead hides internal messages.
func (ctl *MessagesController) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := domain.Category(c.DefaultQuery("viewer", string(domain.CategoryInternal)))
		if !viewer.IsValid() {
			abort(c, fmt.Errorf("%w: viewer must be lead or internal", errors.ErrValidation))
			return
		}
		conversationID := c.Query("conversation_id")
		if conversationID == "" {
			conversationID = c.Query("applicant_id")
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.timeout)
		defer cancel()
		messages, err := ctl.query.Messages(ctx, conversationID)
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusOK, domain.VisibleTo(viewer, messages))
	}
}

// Post handles POST /messages with the same payload as a websocket message frame.
// The message is broadcast to the conversation's live members like any other.
func (ctl *MessagesController) Post() gin.HandlerFunc {
	return func(c *gin.Context) {
		var frame realtime.InboundFrame
		if err := c.ShouldBindJSON(&frame); err != nil {
			abort(c, fmt.Errorf("%w: %v", errors.ErrValidation, err))
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.timeout)
		defer cancel()
		message, err := ctl.chat.PostMessage(ctx, frame.Command())
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusCreated, message)
	}
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(errors.HTTPStatus(err), gin.H{"error": err.Error(), "code": errors.FrameCode(err)})
}
