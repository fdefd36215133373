package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "chat-relay/runtime"

var _ contract.IRelay = (*Relay)(nil)

// Relay turns submitted messages into persisted, broadcast messages.
//
// Submit runs in this order:
//  1. Normalize and validate the command, nothing is written on failure.
//  2. Persist the message, this is the durability point.
//  3. Broadcast to a snapshot of the room's members.
//  4. Queue the notifier call and the contact freshness update for background workers.
//
// Steps 2 and 3 run under a per-conversation lock so that, inside one conversation,
// the delivery order is the persistence order. Conversations never wait on each other.
// The registry lock is only taken to copy the member list, never across I/O.
type Relay struct {
	log          *slog.Logger
	registry     contract.IRegistry
	messages     contract.IMessageRepository
	locks        *keyedMutex
	notifyJobs   chan workers.NotifyJob
	activityJobs chan workers.ActivityJob
	sendTimeout  time.Duration
	monitoring   *observability.MonitoringManager
	now          func() time.Time
}

type Option func(*Relay)

// WithMonitoring counts relayed messages, deliveries and dropped jobs.
func WithMonitoring(mm *observability.MonitoringManager) Option {
	return func(r *Relay) { r.monitoring = mm }
}

func NewRelay(log *slog.Logger,
	registry contract.IRegistry,
	messages contract.IMessageRepository,
	queueSize int,
	sendTimeout time.Duration,
	opts ...Option) *Relay {
	r := &Relay{
		log:          log,
		registry:     registry,
		messages:     messages,
		locks:        newKeyedMutex(),
		notifyJobs:   make(chan workers.NotifyJob, queueSize),
		activityJobs: make(chan workers.ActivityJob, queueSize),
		sendTimeout:  sendTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NotifyJobs is consumed by workers.NotifyWorker.
func (r *Relay) NotifyJobs() <-chan workers.NotifyJob { return r.notifyJobs }

// ActivityJobs is consumed by workers.ActivityWorker.
func (r *Relay) ActivityJobs() <-chan workers.ActivityJob { return r.activityJobs }

func (r *Relay) Join(conn contract.Connection, conversationID domain.ConversationID) error {
	if err := r.registry.Join(conn, conversationID); err != nil {
		r.log.Debug("Join refused", "connection_id", conn.ID(), "conversation_id", conversationID, "error", err)
		return err
	}
	r.log.Debug("Connection joined", "connection_id", conn.ID(), "conversation_id", conversationID)
	return nil
}

func (r *Relay) Leave(conn contract.Connection) {
	r.registry.Leave(conn)
	r.log.Debug("Connection left", "connection_id", conn.ID())
}

func (r *Relay) Submit(ctx context.Context, cmd domain.SubmitMessageCommand) (domain.Message, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "relay.submit")
	defer span.End()

	cmd, err := cmd.Normalize(r.now())
	if err != nil {
		fail(span, err)
		return domain.Message{}, err
	}
	conversationID := cmd.RoomID()
	span.SetAttributes(
		attribute.String("conversation.id", conversationID.String()),
		attribute.String("message.category", string(cmd.Message.Category)),
	)

	message, delivered, err := r.persistAndBroadcast(ctx, cmd.Message)
	if err != nil {
		fail(span, err)
		r.log.Error("Message not persisted", "conversation_id", conversationID, "error", err)
		return domain.Message{}, err
	}
	span.SetAttributes(attribute.Int64("message.id", message.ID), attribute.Int("broadcast.delivered", delivered))
	r.monitoring.IncrRelayed()

	origin := span.SpanContext()
	if len(cmd.Recipients) > 0 {
		r.enqueueNotify(span, workers.NotifyJob{
			Notification: domain.Notification{Message: message, Recipients: cmd.Recipients},
			Origin:       origin,
		})
	}
	r.enqueueActivity(span, workers.ActivityJob{ContactID: conversationID.String(), At: r.now(), Origin: origin})
	return message, nil
}

// persistAndBroadcast holds the conversation lock from the store write until every member was offered the message.
func (r *Relay) persistAndBroadcast(ctx context.Context, message domain.Message) (domain.Message, int, error) {
	unlock := r.locks.Lock(message.ConversationID)
	defer unlock()

	persisted, err := r.messages.Create(ctx, message)
	if err != nil {
		return domain.Message{}, 0, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	// The message is durable, a submitter going away must not stop the broadcast.
	return persisted, r.broadcast(context.WithoutCancel(ctx), persisted), nil
}

// broadcast offers the message to every member, a slow or dead member never blocks the others for longer than sendTimeout.
func (r *Relay) broadcast(ctx context.Context, message domain.Message) int {
	members := r.registry.Members(message.ConversationID)
	delivered := 0
	for _, conn := range members {
		sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
		err := conn.Send(sendCtx, message)
		cancel()
		if err != nil {
			r.log.Debug("Broadcast skipped a member", "connection_id", conn.ID(), "message_id", message.ID, "error", err)
			continue
		}
		delivered++
	}
	r.monitoring.AddDeliveries(delivered, len(members)-delivered)
	r.log.Debug("Message broadcast", "conversation_id", message.ConversationID,
		"message_id", message.ID, "members", len(members), "delivered", delivered)
	return delivered
}

func (r *Relay) enqueueNotify(span trace.Span, job workers.NotifyJob) {
	select {
	case r.notifyJobs <- job:
	default:
		r.dropped(span, "notify", job.Notification.Message.ConversationID.String())
	}
}

func (r *Relay) enqueueActivity(span trace.Span, job workers.ActivityJob) {
	select {
	case r.activityJobs <- job:
	default:
		r.dropped(span, "activity", job.ContactID)
	}
}

func (r *Relay) dropped(span trace.Span, queue, conversationID string) {
	r.monitoring.IncrDropped()
	span.AddEvent("job dropped", trace.WithAttributes(attribute.String("queue", queue)))
	r.log.Warn("Side-channel job dropped", "queue", queue, "conversation_id", conversationID, "error", errors.ErrQueueFull)
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
