// Package relay declares the relay.v1.ConversationQuery gRPC service.
// Payloads travel as JSON through a codec registered under the "json" content subtype,
// so clients must call with grpc.CallContentSubtype(CodecName). The client below does it for them.
package relay

import (
	"chat-relay/domain"
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "relay.v1.ConversationQuery"

const (
	historyMethod          = "History"
	internalContactsMethod = "InternalContacts"
	contactByIDMethod      = "ContactByID"
	touchContactMethod     = "TouchContact"
	saveContactMethod      = "SaveContact"
)

type HistoryRequest struct {
	ConversationID string `json:"conversation_id"`
	// Viewer is lead or internal, internal when empty.
	Viewer string `json:"viewer,omitempty"`
}

type HistoryResponse struct {
	Messages []domain.Message `json:"messages"`
}

type InternalContactsRequest struct{}

type ContactsResponse struct {
	Contacts []domain.Contact `json:"contacts"`
}

type ContactRequest struct {
	ContactID string `json:"contact_id"`
}

// SaveContactRequest upserts a profile. Its last activity is ignored.
type SaveContactRequest struct {
	Contact domain.Contact `json:"contact"`
}

type ContactResponse struct {
	Contact domain.Contact `json:"contact"`
}

type ConversationQueryServer interface {
	History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error)
	InternalContacts(ctx context.Context, req *InternalContactsRequest) (*ContactsResponse, error)
	ContactByID(ctx context.Context, req *ContactRequest) (*ContactResponse, error)
	TouchContact(ctx context.Context, req *ContactRequest) (*ContactResponse, error)
	SaveContact(ctx context.Context, req *SaveContactRequest) (*ContactResponse, error)
}

var ConversationQueryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConversationQueryServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(historyMethod, ConversationQueryServer.History),
		unary(internalContactsMethod, ConversationQueryServer.InternalContacts),
		unary(contactByIDMethod, ConversationQueryServer.ContactByID),
		unary(touchContactMethod, ConversationQueryServer.TouchContact),
		unary(saveContactMethod, ConversationQueryServer.SaveContact),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "relay/v1/conversation_query.proto",
}

func RegisterConversationQueryServer(s grpc.ServiceRegistrar, srv ConversationQueryServer) {
	s.RegisterService(&ConversationQueryServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unary[Req, Resp any](method string, call func(ConversationQueryServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(ConversationQueryServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(server, ctx, req.(*Req))
			})
		},
	}
}

type ConversationQueryClient struct {
	cc grpc.ClientConnInterface
}

func NewConversationQueryClient(cc grpc.ClientConnInterface) *ConversationQueryClient {
	return &ConversationQueryClient{cc: cc}
}

func (c *ConversationQueryClient) History(ctx context.Context, req *HistoryRequest, opts ...grpc.CallOption) (*HistoryResponse, error) {
	out := new(HistoryResponse)
	return out, c.invoke(ctx, historyMethod, req, out, opts)
}

func (c *ConversationQueryClient) InternalContacts(ctx context.Context, req *InternalContactsRequest, opts ...grpc.CallOption) (*ContactsResponse, error) {
	out := new(ContactsResponse)
	return out, c.invoke(ctx, internalContactsMethod, req, out, opts)
}

func (c *ConversationQueryClient) ContactByID(ctx context.Context, req *ContactRequest, opts ...grpc.CallOption) (*ContactResponse, error) {
	out := new(ContactResponse)
	return out, c.invoke(ctx, contactByIDMethod, req, out, opts)
}

func (c *ConversationQueryClient) TouchContact(ctx context.Context, req *ContactRequest, opts ...grpc.CallOption) (*ContactResponse, error) {
	out := new(ContactResponse)
	return out, c.invoke(ctx, touchContactMethod, req, out, opts)
}

func (c *ConversationQueryClient) SaveContact(ctx context.Context, req *SaveContactRequest, opts ...grpc.CallOption) (*ContactResponse, error) {
	out := new(ContactResponse)
	return out, c.invoke(ctx, saveContactMethod, req, out, opts)
}

func (c *ConversationQueryClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, fullMethod(method), in, out, opts...)
}
