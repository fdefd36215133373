package workers

import (
	"chat-relay/domain"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const tracerName = "chat-relay/workers"

// NotifyJob is one notifier call queued by the relay after a successful submit.
// Origin links the worker span back to the submit that produced the job.
type NotifyJob struct {
	Notification domain.Notification
	Origin       trace.SpanContext
}

// ActivityJob moves a contact's last activity forward after a message landed in its conversation.
type ActivityJob struct {
	ContactID string
	At        time.Time
	Origin    trace.SpanContext
}

func links(origin trace.SpanContext) []trace.Link {
	if !origin.IsValid() {
		return nil
	}
	return []trace.Link{{SpanContext: origin}}
}
