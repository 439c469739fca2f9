package items

import "time"

// Status is the lifecycle state of an item. New items start as drafts, get
// published with activate, and are retired with archive.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// StatusValues lists the accepted states, in lifecycle order. Used for
// query-parameter validation messages.
func StatusValues() []string {
	return []string{string(StatusDraft), string(StatusActive), string(StatusArchived)}
}

// IsValid reports whether the status is a known lifecycle state.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusArchived:
		return true
	}
	return false
}

// Item is a user-owned content record. It exists to exercise the protected
// CRUD surface; ownership drives the write-access rules.
type Item struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
