package repositories

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"encoding/json"
	goerrors "errors"
	"log/slog"
	"time"
)

const contactCachePrefix = "chat-relay:contact:"

var _ contract.IContactRepository = (*CachedContactRepository)(nil)

// CachedContactRepository serves contact lookups from a cache in front of another repository.
// Writes go to the repository first, then the stored contact is written through to the cache.
// A cached entry is only replaced by a contact whose last activity is not older,
// and a read-through never replaces an entry with the same last activity.
// The cache is best effort: its failures are logged and the repository answers instead.
type CachedContactRepository struct {
	next  contract.IContactRepository
	cache contract.ICache
	ttl   time.Duration
	log   *slog.Logger
}

func NewCachedContactRepository(next contract.IContactRepository, cache contract.ICache, ttl time.Duration, log *slog.Logger) *CachedContactRepository {
	return &CachedContactRepository{next: next, cache: cache, ttl: ttl, log: log}
}

func (c *CachedContactRepository) GetContact(ctx context.Context, id string) (domain.Contact, error) {
	key := contactCachePrefix + id
	value, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		var contact domain.Contact
		if err := json.Unmarshal([]byte(value), &contact); err == nil {
			return contact, nil
		}
		c.log.Warn("Dropping undecodable cached contact", "contact_id", id)
	case !goerrors.Is(err, errors.ErrNotFound):
		c.log.Warn("Contact cache unavailable", "contact_id", id, "error", err)
	}

	contact, err := c.next.GetContact(ctx, id)
	if err != nil {
		return domain.Contact{}, err
	}
	c.store(ctx, contact, false)
	return contact, nil
}

// SaveContact re-reads the stored row, the repository may have kept a newer last activity.
func (c *CachedContactRepository) SaveContact(ctx context.Context, contact domain.Contact) error {
	if err := c.next.SaveContact(ctx, contact); err != nil {
		return err
	}
	saved, err := c.next.GetContact(ctx, contact.ID)
	if err != nil {
		c.evict(ctx, contact.ID)
		return nil
	}
	c.store(ctx, saved, true)
	return nil
}

func (c *CachedContactRepository) TouchContact(ctx context.Context, id string, at time.Time) (domain.Contact, error) {
	contact, err := c.next.TouchContact(ctx, id, at)
	if err != nil {
		return domain.Contact{}, err
	}
	c.store(ctx, contact, true)
	return contact, nil
}

func (c *CachedContactRepository) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	return c.next.ListContacts(ctx)
}

// store caches contact unless the entry already holds a fresher one.
// written is true for values coming out of a repository write, they win ties.
func (c *CachedContactRepository) store(ctx context.Context, contact domain.Contact, written bool) {
	value, err := json.Marshal(contact)
	if err != nil {
		return
	}
	err = c.cache.CompareAndSet(ctx, contactCachePrefix+contact.ID, c.ttl, func(current string, found bool) (string, bool) {
		if !found {
			return string(value), true
		}
		var cached domain.Contact
		if err := json.Unmarshal([]byte(current), &cached); err != nil {
			return string(value), true
		}
		if written {
			return string(value), !cached.LastActivityAt.After(contact.LastActivityAt)
		}
		return string(value), contact.LastActivityAt.After(cached.LastActivityAt)
	})
	if err != nil {
		c.log.Warn("Contact not cached", "contact_id", contact.ID, "error", err)
	}
}

func (c *CachedContactRepository) evict(ctx context.Context, id string) {
	if err := c.cache.Del(ctx, contactCachePrefix+id); err != nil {
		c.log.Warn("Contact cache eviction failed", "contact_id", id, "error", err)
	}
}
