package model

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is substituted when an entry is created or updated with an
// empty title.
const DefaultTitle = "Untitled Entry"

// EntryStore defines persistence operations for diary entries.
type EntryStore interface {
	Create(ctx context.Context, entry Entry) (Entry, error)
	GetByID(ctx context.Context, id uuid.UUID) (Entry, error)
	ListByUser(ctx context.Context, userID uuid.UUID, filter EntryFilter) ([]Entry, error)
	Update(ctx context.Context, entry Entry) (Entry, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// EntryFeed delivers live change notifications for one user's entries.
// The returned channel is closed when ctx is cancelled or the underlying
// connection is lost.
type EntryFeed interface {
	Subscribe(ctx context.Context, userID uuid.UUID) (<-chan EntryEvent, error)
}

// Entry represents a single diary record owned by a user.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntryFilter restricts a listing to entries matching a search term and a
// set of tags. Search is a case-insensitive substring match over title and
// content; Tags is a contains-all condition.
type EntryFilter struct {
	Search string
	Tags   []string
}

// IsZero reports whether the filter imposes no restriction.
func (f EntryFilter) IsZero() bool {
	return f.Search == "" && len(f.Tags) == 0
}

// Matches reports whether the entry satisfies the filter. Bindings that
// cannot push the filter down to the backend use this to evaluate it on the
// fetched rows instead.
func (f EntryFilter) Matches(e Entry) bool {
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.Title), term) &&
			!strings.Contains(strings.ToLower(e.Content), term) {
			return false
		}
	}
	for _, tag := range f.Tags {
		if !slices.Contains(e.Tags, tag) {
			return false
		}
	}
	return true
}

// CreateEntryParams contains parameters to create an entry.
type CreateEntryParams struct {
	UserID  uuid.UUID
	Title   string
	Content string
	Tags    []string
}

// UpdateEntryParams contains a partial update to an entry. Nil fields are
// left unchanged.
type UpdateEntryParams struct {
	Title   *string
	Content *string
	Tags    *[]string
}

// EntryEventType enumerates live-update event kinds.
type EntryEventType string

const (
	// EntryCreated signals a newly inserted entry.
	EntryCreated EntryEventType = "created"
	// EntryUpdated signals a modified entry.
	EntryUpdated EntryEventType = "updated"
	// EntryDeleted signals a removed entry. Only EntryID is populated.
	EntryDeleted EntryEventType = "deleted"
)

// EntryEvent is one change notification on an entry feed.
type EntryEvent struct {
	Type    EntryEventType `json:"type"`
	Entry   Entry          `json:"entry,omitempty"`
	EntryID uuid.UUID      `json:"entry_id"`
}
