package repositories

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	contactPrefix = "contact:"
	// touchAttempts bounds retries when concurrent touches hit the same key
	touchAttempts = 3
)

var _ contract.IContactRepository = (*ContactRepository)(nil)

type ContactRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewContactRepository(db *badger.DB, log *slog.Logger) *ContactRepository {
	return &ContactRepository{db: db, log: log}
}

// SaveContact upserts the profile. A stored last activity newer than the saved one is kept.
func (c *ContactRepository) SaveContact(ctx context.Context, contact domain.Contact) error {
	if contact.ID == "" {
		return errors.ErrContactIDRequired
	}
	return c.updateWithRetry(ctx, contact.ID, func(txn *badger.Txn) error {
		saved := contact
		existing, err := getContact(txn, contact.ID)
		switch {
		case errors.IsNotFound(err):
		case err != nil:
			return err
		default:
			saved = saved.Touch(existing.LastActivityAt)
		}
		return txn.Set(contactKey(contact.ID), marshalContact(saved))
	})
}

func (c *ContactRepository) GetContact(ctx context.Context, id string) (domain.Contact, error) {
	if err := ctx.Err(); err != nil {
		return domain.Contact{}, err
	}
	var contact domain.Contact
	err := c.db.View(func(txn *badger.Txn) error {
		var err error
		contact, err = getContact(txn, id)
		return err
	})
	return contact, err
}

func (c *ContactRepository) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	contacts := make([]domain.Contact, 0)
	err := c.db.View(func(txn *badger.Txn) error {
		prefix := []byte(contactPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				contact, err := unmarshalContact(value)
				if err != nil {
					return err
				}
				contacts = append(contacts, contact)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

// TouchContact moves the contact's last activity forward to at inside a read-modify-write transaction.
func (c *ContactRepository) TouchContact(ctx context.Context, id string, at time.Time) (domain.Contact, error) {
	if id == "" {
		return domain.Contact{}, errors.ErrContactIDRequired
	}
	var touched domain.Contact
	err := c.updateWithRetry(ctx, id, func(txn *badger.Txn) error {
		contact, err := getContact(txn, id)
		if err != nil {
			return err
		}
		touched = contact.Touch(at)
		if touched.LastActivityAt.Equal(contact.LastActivityAt) {
			return nil
		}
		return txn.Set(contactKey(id), marshalContact(touched))
	})
	if err != nil {
		return domain.Contact{}, err
	}
	return touched, nil
}

// updateWithRetry runs fn in an update transaction.
// badger fails one of two concurrent writers on the same key with ErrConflict,
// the losing side reruns fn against the fresh value so an older timestamp never wins.
func (c *ContactRepository) updateWithRetry(ctx context.Context, id string, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 1; attempt <= touchAttempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = c.db.Update(fn)
		if !goerrors.Is(err, badger.ErrConflict) {
			return err
		}
		c.log.Debug("Contact update conflicted, retrying", "contact_id", id, "attempt", attempt)
	}
	return err
}

func getContact(txn *badger.Txn, id string) (domain.Contact, error) {
	item, err := txn.Get(contactKey(id))
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Contact{}, fmt.Errorf("%w: contact %s", errors.ErrNotFound, id)
	}
	if err != nil {
		return domain.Contact{}, err
	}
	var contact domain.Contact
	err = item.Value(func(value []byte) error {
		contact, err = unmarshalContact(value)
		return err
	})
	return contact, err
}

func contactKey(id string) []byte {
	return []byte(contactPrefix + id)
}
