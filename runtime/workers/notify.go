package workers

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ contract.Worker = (*NotifyWorker)(nil)

// NotifyWorker drains the notify queue and calls the notifier once per job.
// Each call is bounded by timeout and never retried, failures are only logged and traced.
type NotifyWorker struct {
	log      *slog.Logger
	notifier contract.INotifier
	jobs     <-chan NotifyJob
	timeout  time.Duration
}

func NewNotifyWorker(log *slog.Logger, notifier contract.INotifier, jobs <-chan NotifyJob, timeout time.Duration) *NotifyWorker {
	return &NotifyWorker{log: log, notifier: notifier, jobs: jobs, timeout: timeout}
}

func (w *NotifyWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping notify worker")
			return nil
		case job := <-w.jobs:
			w.handle(ctx, job)
		}
	}
}

func (w *NotifyWorker) handle(ctx context.Context, job NotifyJob) {
	message := job.Notification.Message
	ctx, span := otel.Tracer(tracerName).Start(ctx, "relay.notify",
		trace.WithLinks(links(job.Origin)...),
		trace.WithAttributes(
			attribute.Int64("message.id", message.ID),
			attribute.String("conversation.id", message.ConversationID.String()),
			attribute.StringSlice("notify.recipients", job.Notification.Recipients),
		))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.notifier.Notify(ctx, job.Notification); err != nil {
		err = fmt.Errorf("%w: %v", errors.ErrNotify, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.log.Warn("Notifier call failed", "message_id", message.ID,
			"conversation_id", message.ConversationID, "recipients", job.Notification.Recipients, "error", err)
		return
	}
	w.log.Debug("Recipients notified", "message_id", message.ID, "recipients", job.Notification.Recipients)
}
