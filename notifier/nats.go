package notifier

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

var _ contract.INotifier = (*NatsNotifier)(nil)

// NatsNotifier publishes notifications on "<prefix>.<conversation_id>".
// With a stream name the publish goes through JetStream and waits for the stream's ack,
// otherwise it is a core NATS publish flushed within the caller's deadline.
type NatsNotifier struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	prefix string
	log    *slog.Logger
}

// NewNatsNotifier connects to url. A non empty stream is created when missing and
// captures every subject under prefix.
func NewNatsNotifier(ctx context.Context, url, prefix, stream string, log *slog.Logger) (*NatsNotifier, error) {
	nc, err := nats.Connect(url, nats.Name("chat-relay-notifier"))
	if err != nil {
		return nil, fmt.Errorf("nats: connect: %w", err)
	}
	n := &NatsNotifier{nc: nc, prefix: prefix, log: log}
	if stream == "" {
		return n, nil
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("nats: jetstream: %w", err)
	}
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        stream,
		Description: "Chat relay notifications",
		Subjects:    []string{prefix + ".*"},
		MaxAge:      24 * time.Hour,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("nats: stream %q: %w", stream, err)
	}
	n.js = js
	return n, nil
}

func (n *NatsNotifier) Notify(ctx context.Context, notification domain.Notification) error {
	subject := Subject(n.prefix, notification.Message.ConversationID)
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("nats: encode notification: %w", err)
	}

	if n.js != nil {
		if _, err := n.js.Publish(ctx, subject, payload); err != nil {
			return fmt.Errorf("nats: publish %s: %w", subject, err)
		}
	} else {
		if err := n.nc.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats: publish %s: %w", subject, err)
		}
		if err := n.nc.FlushWithContext(ctx); err != nil {
			return fmt.Errorf("nats: flush: %w", err)
		}
	}
	n.log.Debug("Notification published", "subject", subject, "message_id", notification.Message.ID)
	return nil
}

func (n *NatsNotifier) Close() {
	n.nc.Close()
}

// Subject maps a conversation to a single NATS token under prefix.
// ASCII letters, digits and '-' are kept, every other byte becomes "_xx" in hex,
// so two conversations never share a subject.
func Subject(prefix string, conversationID domain.ConversationID) string {
	id := conversationID.String()
	if id == "" {
		return prefix + "._"
	}
	var token strings.Builder
	for i := 0; i < len(id); i++ {
		b := id[i]
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9', b == '-':
			token.WriteByte(b)
		default:
			fmt.Fprintf(&token, "_%02x", b)
		}
	}
	return prefix + "." + token.String()
}
