package repositories

import (
	"chat-relay/domain"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the on-disk records. Never reuse a number once released.
const (
	messageFieldID           protowire.Number = 1
	messageFieldConversation protowire.Number = 2
	messageFieldApplication  protowire.Number = 3
	messageFieldCategory     protowire.Number = 4
	messageFieldChannel      protowire.Number = 5
	messageFieldStatus       protowire.Number = 6
	messageFieldActivityURL  protowire.Number = 7
	messageFieldBody         protowire.Number = 8
	messageFieldThread       protowire.Number = 9
	messageFieldSenderName   protowire.Number = 10
	messageFieldSenderRole   protowire.Number = 11
	messageFieldSenderAvatar protowire.Number = 12
	messageFieldSenderID     protowire.Number = 13
	messageFieldCreatedAt    protowire.Number = 14
	messageFieldCreatedNanos protowire.Number = 15
	contactFieldID           protowire.Number = 1
	contactFieldCategory     protowire.Number = 2
	contactFieldDisplayName  protowire.Number = 3
	contactFieldOwnerID      protowire.Number = 4
	contactFieldOwnerName    protowire.Number = 5
	contactFieldStatus       protowire.Number = 6
	contactFieldLastActivity protowire.Number = 7
	contactFieldActivityNano protowire.Number = 8
)

func marshalMessage(m domain.Message) []byte {
	var b []byte
	b = appendVarint(b, messageFieldID, uint64(m.ID))
	b = appendString(b, messageFieldConversation, string(m.ConversationID))
	b = appendString(b, messageFieldApplication, m.ApplicationID)
	b = appendString(b, messageFieldCategory, string(m.Category))
	b = appendString(b, messageFieldChannel, m.Channel)
	b = appendString(b, messageFieldStatus, m.Status)
	b = appendString(b, messageFieldActivityURL, m.ActivityURL)
	b = appendString(b, messageFieldBody, m.Body)
	b = appendString(b, messageFieldThread, m.ThreadID)
	b = appendString(b, messageFieldSenderName, m.SenderName)
	b = appendString(b, messageFieldSenderRole, string(m.SenderRole))
	b = appendString(b, messageFieldSenderAvatar, m.SenderAvatar)
	b = appendString(b, messageFieldSenderID, m.SenderID)
	b = appendTime(b, messageFieldCreatedAt, messageFieldCreatedNanos, m.CreatedAt)
	return b
}

func unmarshalMessage(b []byte) (domain.Message, error) {
	var m domain.Message
	var created timestamp
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case typ == protowire.VarintType && num == messageFieldID:
			v, n := protowire.ConsumeVarint(b)
			m.ID = int64(v)
			return n
		case typ == protowire.VarintType && num == messageFieldCreatedAt:
			return created.consumeSeconds(b)
		case typ == protowire.VarintType && num == messageFieldCreatedNanos:
			return created.consumeNanos(b)
		case typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n >= 0 {
				setMessageField(&m, num, s)
			}
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	m.CreatedAt = created.time()
	return m, err
}

func setMessageField(m *domain.Message, num protowire.Number, s string) {
	switch num {
	case messageFieldConversation:
		m.ConversationID = domain.ConversationID(s)
	case messageFieldApplication:
		m.ApplicationID = s
	case messageFieldCategory:
		m.Category = domain.Category(s)
	case messageFieldChannel:
		m.Channel = s
	case messageFieldStatus:
		m.Status = s
	case messageFieldActivityURL:
		m.ActivityURL = s
	case messageFieldBody:
		m.Body = s
	case messageFieldThread:
		m.ThreadID = s
	case messageFieldSenderName:
		m.SenderName = s
	case messageFieldSenderRole:
		m.SenderRole = domain.Category(s)
	case messageFieldSenderAvatar:
		m.SenderAvatar = s
	case messageFieldSenderID:
		m.SenderID = s
	}
}

func marshalContact(c domain.Contact) []byte {
	var b []byte
	b = appendString(b, contactFieldID, c.ID)
	b = appendString(b, contactFieldCategory, string(c.Category))
	b = appendString(b, contactFieldDisplayName, c.DisplayName)
	b = appendString(b, contactFieldOwnerID, c.OwnerID)
	b = appendString(b, contactFieldOwnerName, c.OwnerName)
	b = appendString(b, contactFieldStatus, string(c.Status))
	b = appendTime(b, contactFieldLastActivity, contactFieldActivityNano, c.LastActivityAt)
	return b
}

func unmarshalContact(b []byte) (domain.Contact, error) {
	var c domain.Contact
	var lastActivity timestamp
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case typ == protowire.VarintType && num == contactFieldLastActivity:
			return lastActivity.consumeSeconds(b)
		case typ == protowire.VarintType && num == contactFieldActivityNano:
			return lastActivity.consumeNanos(b)
		case typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n >= 0 {
				setContactField(&c, num, s)
			}
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	c.LastActivityAt = lastActivity.time()
	return c, err
}

func setContactField(c *domain.Contact, num protowire.Number, s string) {
	switch num {
	case contactFieldID:
		c.ID = s
	case contactFieldCategory:
		c.Category = domain.Category(s)
	case contactFieldDisplayName:
		c.DisplayName = s
	case contactFieldOwnerID:
		c.OwnerID = s
	case contactFieldOwnerName:
		c.OwnerName = s
	case contactFieldStatus:
		c.Status = domain.ContactStatus(s)
	}
}

// consumeFields walks a record, handing each field value to fn.
// fn returns the number of bytes it consumed, or a negative protowire error code.
func consumeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) int) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		n = fn(num, typ, b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}
	return nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// appendTime writes unix seconds (zigzag) and the nanosecond remainder as two fields,
// so any time.Time survives, not only the int64 nanosecond range.
func appendTime(b []byte, secNum, nanoNum protowire.Number, t time.Time) []byte {
	if t.IsZero() {
		return b
	}
	b = appendVarint(b, secNum, protowire.EncodeZigZag(t.Unix()))
	if nanos := t.Nanosecond(); nanos != 0 {
		b = appendVarint(b, nanoNum, uint64(nanos))
	}
	return b
}

type timestamp struct {
	seconds int64
	nanos   int64
	set     bool
}

func (ts *timestamp) consumeSeconds(b []byte) int {
	v, n := protowire.ConsumeVarint(b)
	ts.seconds, ts.set = protowire.DecodeZigZag(v), true
	return n
}

func (ts *timestamp) consumeNanos(b []byte) int {
	v, n := protowire.ConsumeVarint(b)
	ts.nanos, ts.set = int64(v), true
	return n
}

func (ts timestamp) time() time.Time {
	if !ts.set {
		return time.Time{}
	}
	return time.Unix(ts.seconds, ts.nanos).UTC()
}
