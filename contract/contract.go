//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker is one background loop. Run returns nil when its job is over,
// an error or a panic gets it restarted by the supervisor.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName names a worker after its concrete type, pointers dereferenced.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Connection is one client's live channel as seen by the relay.
// The transport owns its lifecycle; the registry only references it.
type Connection interface {
	ID() string
	Send(ctx context.Context, message domain.Message) error
}

type IRegistry interface {
	Join(conn Connection, conversationID domain.ConversationID) error
	Leave(conn Connection)
	Members(conversationID domain.ConversationID) []Connection
}

type IMessageRepository interface {
	Create(ctx context.Context, message domain.Message) (domain.Message, error)
	ListByConversation(ctx context.Context, conversationID domain.ConversationID) ([]domain.Message, error)
	List(ctx context.Context) ([]domain.Message, error)
	GetByID(ctx context.Context, id int64) (domain.Message, error)
}

type IContactRepository interface {
	SaveContact(ctx context.Context, contact domain.Contact) error
	GetContact(ctx context.Context, id string) (domain.Contact, error)
	ListContacts(ctx context.Context) ([]domain.Contact, error)
	TouchContact(ctx context.Context, id string, at time.Time) (domain.Contact, error)
}

type INotifier interface {
	Notify(ctx context.Context, notification domain.Notification) error
}

// ICache is a string key/value cache. Misses are reported as errors.ErrNotFound.
type ICache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// CompareAndSet reads key and lets decide pick the replacement atomically.
	// decide returns false to leave the entry untouched.
	CompareAndSet(ctx context.Context, key string, ttl time.Duration, decide func(current string, found bool) (string, bool)) error
}

type IRelay interface {
	Submit(ctx context.Context, cmd domain.SubmitMessageCommand) (domain.Message, error)
	Join(conn Connection, conversationID domain.ConversationID) error
	Leave(conn Connection)
}
