package domain

import (
	"fmt"
	"strings"
	"time"

	"chat-relay/errors"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = validator.New()

// SubmitMessageCommand is an inbound message as sent by a client, not yet persisted.
// Recipients names the internal participants to alert through the notifier.
type SubmitMessageCommand struct {
	Message    Message
	Recipients []string
}

func (c SubmitMessageCommand) RoomID() ConversationID {
	return c.Message.ConversationID
}

// Normalize trims identifiers and validates the command, filling defaults.
// The body must hold more than whitespace but is kept exactly as sent.
// The returned command is ready to be persisted.
func (c SubmitMessageCommand) Normalize(now time.Time) (SubmitMessageCommand, error) {
	m := c.Message
	m.ID = 0
	m.ConversationID = ConversationID(strings.TrimSpace(string(m.ConversationID)))
	m.SenderID = strings.TrimSpace(m.SenderID)
	m.Category = Category(strings.TrimSpace(string(m.Category)))
	m.SenderRole = Category(strings.TrimSpace(string(m.SenderRole)))

	checked := m
	checked.Body = strings.TrimSpace(m.Body)
	if err := validate.Struct(checked); err != nil {
		return SubmitMessageCommand{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}

	if m.SenderRole == "" {
		m.SenderRole = CategoryLead
	}
	switch {
	case m.Category == "" && m.IsInternalSender():
		return SubmitMessageCommand{}, errors.ErrCategoryRequired
	case m.Category == "":
		m.Category = CategoryLead
	case m.Category == CategoryInternal && !m.IsInternalSender():
		return SubmitMessageCommand{}, fmt.Errorf("%w: lead participants can only post lead messages", errors.ErrValidation)
	}

	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.CreatedAt = m.CreatedAt.UTC()

	recipients := lo.Uniq(lo.Compact(lo.Map(c.Recipients, func(r string, _ int) string {
		return strings.TrimSpace(r)
	})))
	return SubmitMessageCommand{Message: m, Recipients: recipients}, nil
}
