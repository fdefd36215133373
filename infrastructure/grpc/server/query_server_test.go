package server

import (
	"chat-relay/domain"
	pb "chat-relay/proto/relay"
	"chat-relay/repositories"
	"chat-relay/services"
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type stores struct {
	messages *repositories.MessageRepository
	contacts *repositories.ContactRepository
}

func startServer(t *testing.T) (*pb.ConversationQueryClient, stores) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	messages, err := repositories.NewMessageRepository(db, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = messages.Close() })
	contacts := repositories.NewContactRepository(db, log)

	listener := bufconn.Listen(1 << 20)
	s := NewGRPCServer(log, services.NewQueryService(log, messages, contacts))
	go func() { _ = s.Serve(listener) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return pb.NewConversationQueryClient(conn), stores{messages: messages, contacts: contacts}
}

func TestQueryServer_History(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	client, s := startServer(t)

	// Given a lead message and an internal note in conversation 42
	_, err := s.messages.Create(ctx, domain.Message{ConversationID: "42", SenderID: "lead-1", Body: "hi",
		Category: domain.CategoryLead, SenderRole: domain.CategoryLead, CreatedAt: time.Now().UTC()})
	req.NoError(err)
	_, err = s.messages.Create(ctx, domain.Message{ConversationID: "42", SenderID: "staff-1", Body: "note",
		Category: domain.CategoryInternal, SenderRole: domain.CategoryInternal, CreatedAt: time.Now().UTC()})
	req.NoError(err)

	// When staff asks for the history
	all, err := client.History(ctx, &pb.HistoryRequest{ConversationID: "42"})

	// Then both messages come back in id order
	req.NoError(err)
	req.Len(all.Messages, 2)
	req.Equal("hi", all.Messages[0].Body)
	req.Equal("note", all.Messages[1].Body)

	// And a lead only sees lead messages
	lead, err := client.History(ctx, &pb.HistoryRequest{ConversationID: "42", Viewer: "lead"})
	req.NoError(err)
	req.Len(lead.Messages, 1)
}

func TestQueryServer_History_Invalid_Arguments(t *testing.T) {
	req := require.New(t)
	client, _ := startServer(t)

	_, err := client.History(context.Background(), &pb.HistoryRequest{})
	req.Equal(codes.InvalidArgument, status.Code(err))

	_, err = client.History(context.Background(), &pb.HistoryRequest{ConversationID: "42", Viewer: "admin"})
	req.Equal(codes.InvalidArgument, status.Code(err))
}

func TestQueryServer_Contacts(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	client, s := startServer(t)

	// Given an active staff member and an applicant
	req.NoError(s.contacts.SaveContact(ctx, domain.Contact{ID: "s1", Category: domain.CategoryInternal, DisplayName: "Jane Doe", Status: domain.ContactActive}))
	req.NoError(s.contacts.SaveContact(ctx, domain.Contact{ID: "42", Category: domain.CategoryLead, DisplayName: "Applicant", Status: domain.ContactActive}))

	// Then the staff member is listed
	internal, err := client.InternalContacts(ctx, &pb.InternalContactsRequest{})
	req.NoError(err)
	req.Len(internal.Contacts, 1)
	req.Equal("Jane Doe", internal.Contacts[0].DisplayName)

	// And the applicant resolves by id
	found, err := client.ContactByID(ctx, &pb.ContactRequest{ContactID: "42"})
	req.NoError(err)
	req.Equal("Applicant", found.Contact.DisplayName)

	// And touching moves its activity forward
	touched, err := client.TouchContact(ctx, &pb.ContactRequest{ContactID: "42"})
	req.NoError(err)
	req.False(touched.Contact.LastActivityAt.IsZero())

	// And unknown ids are reported as such
	_, err = client.ContactByID(ctx, &pb.ContactRequest{ContactID: "unknown"})
	req.Equal(codes.NotFound, status.Code(err))
	_, err = client.TouchContact(ctx, &pb.ContactRequest{})
	req.Equal(codes.InvalidArgument, status.Code(err))
}

func TestQueryServer_SaveContact(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	client, _ := startServer(t)

	// When a staff member is saved through the service
	saved, err := client.SaveContact(ctx, &pb.SaveContactRequest{Contact: domain.Contact{ID: "s1", Category: domain.CategoryInternal, DisplayName: "Jane Doe"}})

	// Then it is stored active and becomes a notification target
	req.NoError(err)
	req.Equal(domain.ContactActive, saved.Contact.Status)
	internal, err := client.InternalContacts(ctx, &pb.InternalContactsRequest{})
	req.NoError(err)
	req.Len(internal.Contacts, 1)

	// And an unknown category is refused
	_, err = client.SaveContact(ctx, &pb.SaveContactRequest{Contact: domain.Contact{ID: "s2", Category: "admin"}})
	req.Equal(codes.InvalidArgument, status.Code(err))
}
