package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"
)

type IQueryService interface {
	History(ctx context.Context, conversationID domain.ConversationID) ([]domain.Message, error)
	Messages(ctx context.Context, conversationID string) ([]domain.Message, error)
	InternalContacts(ctx context.Context) ([]domain.Contact, error)
	ContactByID(ctx context.Context, id string) (domain.Contact, error)
	TouchContact(ctx context.Context, id string) (domain.Contact, error)
	SaveContact(ctx context.Context, contact domain.Contact) (domain.Contact, error)
}

// QueryService answers the read side of the relay: backfill for joining clients and contact lookups.
// History is never filtered by viewer, visibility is applied by the presentation layer.
type QueryService struct {
	log      *slog.Logger
	messages contract.IMessageRepository
	contacts contract.IContactRepository
	now      func() time.Time
}

func NewQueryService(log *slog.Logger, messages contract.IMessageRepository, contacts contract.IContactRepository) *QueryService {
	return &QueryService{
		log:      log,
		messages: messages,
		contacts: contacts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// History returns every message of the conversation by ascending id.
func (s *QueryService) History(ctx context.Context, conversationID domain.ConversationID) ([]domain.Message, error) {
	if strings.TrimSpace(conversationID.String()) == "" {
		return nil, fmt.Errorf("%w: conversation id is required", errors.ErrValidation)
	}
	messages, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return messages, nil
}

// Messages lists one conversation, or every message when conversationID is blank.
func (s *QueryService) Messages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID != "" {
		return s.History(ctx, domain.ConversationID(conversationID))
	}
	messages, err := s.messages.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return messages, nil
}

// InternalContacts returns the active staff contacts, the people a message can notify.
func (s *QueryService) InternalContacts(ctx context.Context) ([]domain.Contact, error) {
	contacts, err := s.contacts.ListContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return lo.Filter(contacts, func(c domain.Contact, _ int) bool {
		return c.IsActiveInternal()
	}), nil
}

func (s *QueryService) ContactByID(ctx context.Context, id string) (domain.Contact, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Contact{}, errors.ErrContactIDRequired
	}
	return s.wrap(s.contacts.GetContact(ctx, id))
}

// TouchContact moves the contact's last activity to now. It never moves it backwards.
func (s *QueryService) TouchContact(ctx context.Context, id string) (domain.Contact, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Contact{}, errors.ErrContactIDRequired
	}
	contact, err := s.wrap(s.contacts.TouchContact(ctx, id, s.now()))
	if err != nil {
		return domain.Contact{}, err
	}
	s.log.Debug("Contact touched", "contact_id", id, "last_activity_at", contact.LastActivityAt)
	return contact, nil
}

// SaveContact creates or updates a contact profile and returns what the store now holds.
// Last activity is owned by the relay, a client supplied one is ignored.
func (s *QueryService) SaveContact(ctx context.Context, contact domain.Contact) (domain.Contact, error) {
	contact.ID = strings.TrimSpace(contact.ID)
	if contact.ID == "" {
		return domain.Contact{}, errors.ErrContactIDRequired
	}
	if contact.Status == "" {
		contact.Status = domain.ContactActive
	}
	if !contact.Category.IsValid() {
		return domain.Contact{}, fmt.Errorf("%w: category must be lead or internal", errors.ErrValidation)
	}
	if !contact.Status.IsValid() {
		return domain.Contact{}, fmt.Errorf("%w: status must be active or inactive", errors.ErrValidation)
	}
	contact.LastActivityAt = time.Time{}
	if err := s.contacts.SaveContact(ctx, contact); err != nil {
		return domain.Contact{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	s.log.Debug("Contact saved", "contact_id", contact.ID, "category", contact.Category)
	return s.wrap(s.contacts.GetContact(ctx, contact.ID))
}

// wrap keeps ErrNotFound as is and turns every other store failure into ErrPersistence.
func (s *QueryService) wrap(contact domain.Contact, err error) (domain.Contact, error) {
	switch {
	case err == nil:
		return contact, nil
	case errors.IsNotFound(err):
		return domain.Contact{}, err
	default:
		return domain.Contact{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
}
