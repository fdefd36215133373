package notifier

import (
	"chat-relay/domain"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func notification() domain.Notification {
	return domain.Notification{
		Message:    domain.Message{ID: 7, ConversationID: "42", SenderID: "u1", Body: "hello", Category: domain.CategoryLead},
		Recipients: []string{"Jane Doe"},
	}
}

func TestWebhookNotifier_Posts_Notification(t *testing.T) {
	req := require.New(t)
	received := make(chan domain.Notification, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n domain.Notification
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		received <- n
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()
	webhook := NewWebhookNotifier(server.URL, server.Client(), logs.GetLoggerFromLevel(slog.LevelDebug))

	// When a notification is sent
	err := webhook.Notify(context.Background(), notification())

	// Then the endpoint got the message and the recipients
	req.NoError(err)
	n := <-received
	req.Equal(int64(7), n.Message.ID)
	req.Equal(domain.ConversationID("42"), n.Message.ConversationID)
	req.Equal([]string{"Jane Doe"}, n.Recipients)
}

func TestWebhookNotifier_Error_Status(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()
	webhook := NewWebhookNotifier(server.URL, server.Client(), logs.GetLoggerFromLevel(slog.LevelDebug))

	err := webhook.Notify(context.Background(), notification())

	req.ErrorContains(err, "500")
}

func TestWebhookNotifier_Honors_Deadline(t *testing.T) {
	req := require.New(t)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)
	webhook := NewWebhookNotifier(server.URL, server.Client(), logs.GetLoggerFromLevel(slog.LevelDebug))

	// Given a slow endpoint and a short deadline
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	// Then the call gives up
	start := time.Now()
	err := webhook.Notify(ctx, notification())
	req.Error(err)
	req.Less(time.Since(start), time.Second)
}

func TestLogNotifier_Never_Fails(t *testing.T) {
	req := require.New(t)

	err := NewLogNotifier(logs.GetLoggerFromLevel(slog.LevelDebug)).Notify(context.Background(), notification())

	req.NoError(err)
}

func TestSubject(t *testing.T) {
	req := require.New(t)

	req.Equal("relay.notify.42", Subject("relay.notify", "42"))
	req.Equal("relay.notify.a_2eb_2ac_3ed", Subject("relay.notify", "a.b*c>d"))
	req.Equal("relay.notify.jane_20doe", Subject("relay.notify", "jane doe"))
	req.Equal("relay.notify._", Subject("relay.notify", ""))

	// Ids differing only by characters NATS cannot carry stay apart
	req.NotEqual(Subject("relay.notify", "a.b"), Subject("relay.notify", "a_b"))
	req.Equal("relay.notify.a_5fb", Subject("relay.notify", "a_b"))
}

func TestNatsNotifier_Unreachable_Server(t *testing.T) {
	req := require.New(t)

	_, err := NewNatsNotifier(context.Background(), "nats://127.0.0.1:1", "relay.notify", "", logs.GetLoggerFromLevel(slog.LevelDebug))

	req.Error(err)
}
