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

const contactColumns = "id, category, display_name, owner_id, owner_name, status, last_activity_at"

var _ contract.IContactRepository = (*ContactRepository)(nil)

type ContactRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewContactRepository(pool *pgxpool.Pool, log *slog.Logger) *ContactRepository {
	return &ContactRepository{pool: pool, log: log}
}

func (r *ContactRepository) SaveContact(ctx context.Context, c domain.Contact) error {
	if c.ID == "" {
		return errors.ErrContactIDRequired
	}
	var lastActivity *time.Time
	if !c.LastActivityAt.IsZero() {
		lastActivity = &c.LastActivityAt
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO contacts (id, category, display_name, owner_id, owner_name, status, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id)
		DO UPDATE SET category = EXCLUDED.category,
		              display_name = EXCLUDED.display_name,
		              owner_id = EXCLUDED.owner_id,
		              owner_name = EXCLUDED.owner_name,
		              status = EXCLUDED.status,
		              last_activity_at = GREATEST(contacts.last_activity_at, EXCLUDED.last_activity_at)
	`, c.ID, string(c.Category), c.DisplayName, c.OwnerID, c.OwnerName, string(c.Status), lastActivity)
	return err
}

func (r *ContactRepository) GetContact(ctx context.Context, id string) (domain.Contact, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+contactColumns+" FROM contacts WHERE id = $1", id)
	if err != nil {
		return domain.Contact{}, err
	}
	return oneContact(rows, id)
}

func (r *ContactRepository) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+contactColumns+" FROM contacts ORDER BY id")
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanContact)
}

// TouchContact relies on GREATEST so concurrent touches can never move the timestamp backwards.
// GREATEST ignores NULL, the first touch simply sets the value.
func (r *ContactRepository) TouchContact(ctx context.Context, id string, at time.Time) (domain.Contact, error) {
	if id == "" {
		return domain.Contact{}, errors.ErrContactIDRequired
	}
	rows, err := r.pool.Query(ctx, `
		UPDATE contacts SET last_activity_at = GREATEST(last_activity_at, $2)
		WHERE id = $1
		RETURNING `+contactColumns, id, at.UTC())
	if err != nil {
		return domain.Contact{}, err
	}
	return oneContact(rows, id)
}

func oneContact(rows pgx.Rows, id string) (domain.Contact, error) {
	contact, err := pgx.CollectExactlyOneRow(rows, scanContact)
	if goerrors.Is(err, pgx.ErrNoRows) {
		return domain.Contact{}, fmt.Errorf("%w: contact %s", errors.ErrNotFound, id)
	}
	return contact, err
}

func scanContact(row pgx.CollectableRow) (domain.Contact, error) {
	var (
		c            domain.Contact
		category     string
		status       string
		lastActivity *time.Time
	)
	if err := row.Scan(&c.ID, &category, &c.DisplayName, &c.OwnerID, &c.OwnerName, &status, &lastActivity); err != nil {
		return domain.Contact{}, err
	}
	c.Category = domain.Category(category)
	c.Status = domain.ContactStatus(status)
	if lastActivity != nil {
		c.LastActivityAt = lastActivity.UTC()
	}
	return c, nil
}
