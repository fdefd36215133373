// Package domain contains core concepts of the chat relay.
// This file defines Message entries and the conversation key they belong to.
// Messages are immutable once persisted and ordered by ID inside a conversation.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Category tells who a message is meant for, and which side a participant stands on.
type Category string

const (
	CategoryLead     Category = "lead"
	CategoryInternal Category = "internal"
)

func (c Category) IsValid() bool {
	return c == CategoryLead || c == CategoryInternal
}

// ConversationID is the applicant/case key scoping both history and live rooms.
// Clients send it either as a JSON string or as a JSON number.
type ConversationID string

func (c *ConversationID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = ConversationID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("conversation id must be a string or a number: %w", err)
	}
	*c = ConversationID(n.String())
	return nil
}

func (c ConversationID) String() string {
	return string(c)
}

// Message is a persisted chat entry.
type Message struct {
	ID             int64          `json:"id"`
	ConversationID ConversationID `json:"conversation_id" validate:"required"`
	ApplicationID  string         `json:"application_id,omitempty"`
	Category       Category       `json:"communication_category" validate:"omitempty,oneof=lead internal"`
	Channel        string         `json:"channel,omitempty"`
	Status         string         `json:"status,omitempty"`
	ActivityURL    string         `json:"activity_url,omitempty"`
	Body           string         `json:"body" validate:"required"`
	ThreadID       string         `json:"thread_id,omitempty"`
	SenderName     string         `json:"sender_name,omitempty"`
	SenderRole     Category       `json:"sender_role" validate:"omitempty,oneof=lead internal"`
	SenderAvatar   string         `json:"sender_avatar,omitempty"`
	SenderID       string         `json:"sender_id" validate:"required"`
	CreatedAt      time.Time      `json:"created_at"`
}

// IsInternalSender reports whether the author is a staff-side participant.
func (m Message) IsInternalSender() bool {
	return m.SenderRole == CategoryInternal
}
