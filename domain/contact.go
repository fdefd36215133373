package domain

import "time"

type ContactStatus string

const (
	ContactActive   ContactStatus = "active"
	ContactInactive ContactStatus = "inactive"
)

func (s ContactStatus) IsValid() bool {
	return s == ContactActive || s == ContactInactive
}

// Contact is a participant profile, either an applicant (lead) or a staff member (internal).
type Contact struct {
	ID             string        `json:"id"`
	Category       Category      `json:"category"`
	DisplayName    string        `json:"display_name"`
	OwnerID        string        `json:"owner_id,omitempty"`
	OwnerName      string        `json:"owner_name,omitempty"`
	Status         ContactStatus `json:"status"`
	LastActivityAt time.Time     `json:"last_activity_at"`
}

// Touch moves LastActivityAt forward to at. An older at never rewinds it.
func (c Contact) Touch(at time.Time) Contact {
	if at.After(c.LastActivityAt) {
		c.LastActivityAt = at.UTC()
	}
	return c
}

func (c Contact) IsActiveInternal() bool {
	return c.Category == CategoryInternal && c.Status == ContactActive
}
