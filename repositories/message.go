package repositories

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"encoding/hex"
	goerrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

const (
	messageSequenceKey = "seq:message"
	sequenceBandwidth  = 100
	messagePrefix      = "msg:"
	conversationPrefix = "conv:"
)

var _ contract.IMessageRepository = (*MessageRepository)(nil)

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
	seq *badger.Sequence
	// mu keeps id assignment and commit in the same order
	mu sync.Mutex
}

// NewMessageRepository leases ids from badger. A read-only db gives a repository that can only read.
func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	if db.Opts().ReadOnly {
		return &MessageRepository{db: db, log: log}, nil
	}
	seq, err := db.GetSequence([]byte(messageSequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, err
	}
	return &MessageRepository{db: db, log: log, seq: seq}, nil
}

// Close hands the unused part of the leased id range back to badger.
func (m *MessageRepository) Close() error {
	if m.seq == nil {
		return nil
	}
	return m.seq.Release()
}

// Create assigns the next id and persists the message.
// Two keys are written in one transaction:
//  1. "msg:{id_padded}" holding the record, so a full scan comes back in id order.
//  2. "conv:{hex(conversation)}:{id_padded}" as an empty index entry.
//
// The conversation id is hex encoded so a ':' inside it can never collide with another prefix.
func (m *MessageRepository) Create(ctx context.Context, message domain.Message) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	if m.seq == nil {
		return domain.Message{}, badger.ErrReadOnlyTxn
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.seq.Next()
	if err != nil {
		return domain.Message{}, err
	}
	// badger sequences start at 0, ids start at 1
	message.ID = int64(next) + 1
	bytes := marshalMessage(message)
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messageKey(message.ID), bytes); err != nil {
			return err
		}
		return txn.Set(conversationKey(message.ConversationID, message.ID), []byte{})
	})
	if err != nil {
		return domain.Message{}, err
	}
	m.log.Debug("Message stored", "id", message.ID, "conversation_id", message.ConversationID)
	return message, nil
}

// ListByConversation walks the conversation index and resolves every entry.
// Results are ordered by ascending id.
func (m *MessageRepository) ListByConversation(ctx context.Context, conversationID domain.ConversationID) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	messages := make([]domain.Message, 0)
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := conversationKeyPrefix(conversationID)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id, err := strconv.ParseInt(string(it.Item().Key()[len(prefix):]), 10, 64)
			if err != nil {
				return fmt.Errorf("corrupted index key %q: %w", it.Item().Key(), err)
			}
			message, err := getMessage(txn, id)
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// List returns every stored message, by ascending id.
func (m *MessageRepository) List(ctx context.Context) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	messages := make([]domain.Message, 0)
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				message, err := unmarshalMessage(value)
				if err != nil {
					return err
				}
				messages = append(messages, message)
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
	return messages, nil
}

func (m *MessageRepository) GetByID(ctx context.Context, id int64) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	var message domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		var err error
		message, err = getMessage(txn, id)
		return err
	})
	return message, err
}

func getMessage(txn *badger.Txn, id int64) (domain.Message, error) {
	item, err := txn.Get(messageKey(id))
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, fmt.Errorf("%w: message %d", errors.ErrNotFound, id)
	}
	if err != nil {
		return domain.Message{}, err
	}
	var message domain.Message
	err = item.Value(func(value []byte) error {
		message, err = unmarshalMessage(value)
		return err
	})
	return message, err
}

func messageKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%019d", messagePrefix, id))
}

func conversationKeyPrefix(conversationID domain.ConversationID) []byte {
	return []byte(conversationPrefix + hex.EncodeToString([]byte(conversationID)) + ":")
}

func conversationKey(conversationID domain.ConversationID, id int64) []byte {
	return append(conversationKeyPrefix(conversationID), fmt.Sprintf("%019d", id)...)
}
