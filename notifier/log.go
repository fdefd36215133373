package notifier

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"log/slog"
)

var _ contract.INotifier = (*LogNotifier)(nil)

// LogNotifier only writes the notification to the log.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(_ context.Context, notification domain.Notification) error {
	l.log.Info("Notify recipients",
		"message_id", notification.Message.ID,
		"conversation_id", notification.Message.ConversationID,
		"recipients", notification.Recipients)
	return nil
}
