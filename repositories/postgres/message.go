package postgres

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const messageColumns = `id, applicant_id, application_id, communication_type, channel, status, activity_url,
	message_content, thread_id, sender_fullname, sender_type, sender_photo, sender_id, date_timestamp`

var _ contract.IMessageRepository = (*MessageRepository)(nil)

type MessageRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewMessageRepository(pool *pgxpool.Pool, log *slog.Logger) *MessageRepository {
	return &MessageRepository{pool: pool, log: log}
}

// Create inserts the message and lets the BIGSERIAL column assign its id.
// The timestamp column keeps the RFC 3339 text the first version of the relay stored.
func (r *MessageRepository) Create(ctx context.Context, m domain.Message) (domain.Message, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO communications (
			timestamp, status, activity_url, application_id, applicant_id, communication_type, channel,
			message_content, thread_id, sender_fullname, sender_type, sender_photo, sender_id, date_timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`, m.CreatedAt.Format(time.RFC3339Nano), m.Status, m.ActivityURL, m.ApplicationID, string(m.ConversationID),
		string(m.Category), m.Channel, m.Body, m.ThreadID, m.SenderName, string(m.SenderRole), m.SenderAvatar,
		m.SenderID, m.CreatedAt).Scan(&m.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return m, nil
}

func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID domain.ConversationID) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+messageColumns+" FROM communications WHERE applicant_id = $1 ORDER BY id ASC",
		string(conversationID))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanMessage)
}

func (r *MessageRepository) List(ctx context.Context) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+messageColumns+" FROM communications ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanMessage)
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (domain.Message, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+messageColumns+" FROM communications WHERE id = $1", id)
	if err != nil {
		return domain.Message{}, err
	}
	message, err := pgx.CollectExactlyOneRow(rows, scanMessage)
	if goerrors.Is(err, pgx.ErrNoRows) {
		return domain.Message{}, fmt.Errorf("%w: message %d", errors.ErrNotFound, id)
	}
	return message, err
}

func scanMessage(row pgx.CollectableRow) (domain.Message, error) {
	var (
		m              domain.Message
		conversationID string
		category       string
		senderRole     string
	)
	err := row.Scan(&m.ID, &conversationID, &m.ApplicationID, &category, &m.Channel, &m.Status, &m.ActivityURL,
		&m.Body, &m.ThreadID, &m.SenderName, &senderRole, &m.SenderAvatar, &m.SenderID, &m.CreatedAt)
	if err != nil {
		return domain.Message{}, err
	}
	m.ConversationID = domain.ConversationID(conversationID)
	m.Category = domain.Category(category)
	m.SenderRole = domain.Category(senderRole)
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}
