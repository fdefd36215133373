package workers

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"context"
	goerrors "errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ contract.Worker = (*ActivityWorker)(nil)

// ActivityWorker keeps contacts' last activity fresh once their conversation received a message.
// A conversation without a matching contact is common and only logged at debug level.
type ActivityWorker struct {
	log      *slog.Logger
	contacts contract.IContactRepository
	jobs     <-chan ActivityJob
	timeout  time.Duration
}

func NewActivityWorker(log *slog.Logger, contacts contract.IContactRepository, jobs <-chan ActivityJob, timeout time.Duration) *ActivityWorker {
	return &ActivityWorker{log: log, contacts: contacts, jobs: jobs, timeout: timeout}
}

func (w *ActivityWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping activity worker")
			return nil
		case job := <-w.jobs:
			w.handle(ctx, job)
		}
	}
}

func (w *ActivityWorker) handle(ctx context.Context, job ActivityJob) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "relay.touch_contact",
		trace.WithLinks(links(job.Origin)...),
		trace.WithAttributes(attribute.String("contact.id", job.ContactID)))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	contact, err := w.contacts.TouchContact(ctx, job.ContactID, job.At)
	switch {
	case goerrors.Is(err, errors.ErrNotFound):
		w.log.Debug("No contact for conversation, skipping freshness update", "contact_id", job.ContactID)
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.log.Warn("Contact freshness update failed", "contact_id", job.ContactID, "error", err)
	default:
		w.log.Debug("Contact touched", "contact_id", contact.ID, "last_activity_at", contact.LastActivityAt)
	}
}
