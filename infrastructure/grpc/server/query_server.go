package server

import (
	"chat-relay/domain"
	"chat-relay/errors"
	pb "chat-relay/proto/relay"
	"chat-relay/services"
	"context"
	"fmt"
	"log/slog"

	grpclog "github.com/mama165/sdk-go/grpc"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
)

var _ pb.ConversationQueryServer = (*QueryServer)(nil)

// QueryServer exposes the read side of the relay to back-office services.
type QueryServer struct {
	log   *slog.Logger
	query services.IQueryService
}

func NewQueryServer(log *slog.Logger, query services.IQueryService) *QueryServer {
	return &QueryServer{log: log, query: query}
}

// NewGRPCServer builds a traced, logged gRPC server with the query service registered.
func NewGRPCServer(log *slog.Logger, query services.IQueryService) *grpc.Server {
	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(grpclog.UnaryLoggingInterceptor(log)),
	)
	pb.RegisterConversationQueryServer(s, NewQueryServer(log, query))
	return s
}

func (s *QueryServer) History(ctx context.Context, req *pb.HistoryRequest) (*pb.HistoryResponse, error) {
	viewer := domain.CategoryInternal
	if req.Viewer != "" {
		viewer = domain.Category(req.Viewer)
	}
	if !viewer.IsValid() {
		return nil, errors.MapToGRPCError(fmt.Errorf("%w: viewer must be lead or internal", errors.ErrValidation))
	}
	messages, err := s.query.History(ctx, domain.ConversationID(req.ConversationID))
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &pb.HistoryResponse{Messages: domain.VisibleTo(viewer, messages)}, nil
}

func (s *QueryServer) InternalContacts(ctx context.Context, _ *pb.InternalContactsRequest) (*pb.ContactsResponse, error) {
	contacts, err := s.query.InternalContacts(ctx)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &pb.ContactsResponse{Contacts: contacts}, nil
}

func (s *QueryServer) ContactByID(ctx context.Context, req *pb.ContactRequest) (*pb.ContactResponse, error) {
	contact, err := s.query.ContactByID(ctx, req.ContactID)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &pb.ContactResponse{Contact: contact}, nil
}

func (s *QueryServer) TouchContact(ctx context.Context, req *pb.ContactRequest) (*pb.ContactResponse, error) {
	contact, err := s.query.TouchContact(ctx, req.ContactID)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &pb.ContactResponse{Contact: contact}, nil
}

func (s *QueryServer) SaveContact(ctx context.Context, req *pb.SaveContactRequest) (*pb.ContactResponse, error) {
	contact, err := s.query.SaveContact(ctx, req.Contact)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return &pb.ContactResponse{Contact: contact}, nil
}
