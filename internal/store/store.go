// Package store holds the per-session entry state consumed by a frontend:
// the visible entry list, the active search/tag filters and the async
// status of the operations on them. A Session is constructed when a user
// signs in and closed when they sign out; it is never shared across users.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/quietpages/quietpages-server/internal/logger"
	"github.com/quietpages/quietpages-server/internal/model"
)

// EntryAccess is the data-access surface the session consumes. It is
// satisfied by service.Entry.
type EntryAccess interface {
	CreateEntry(ctx context.Context, params model.CreateEntryParams) (model.Entry, error)
	ListEntries(ctx context.Context, userID uuid.UUID, filter model.EntryFilter) ([]model.Entry, error)
	UpdateEntry(ctx context.Context, userID, entryID uuid.UUID, params model.UpdateEntryParams) (model.Entry, error)
	DeleteEntry(ctx context.Context, userID, entryID uuid.UUID) error
	Subscribe(ctx context.Context, userID uuid.UUID) (<-chan model.EntryEvent, error)
}

// ErrCode classifies a failed fetch for the frontend's recovery banner.
type ErrCode string

const (
	ErrCodeNone             ErrCode = ""
	ErrCodeNotSetup         ErrCode = "NOT_SETUP"
	ErrCodePermissionDenied ErrCode = "PERMISSION_DENIED"
	ErrCodeUnknown          ErrCode = "UNKNOWN"
)

// Snapshot is an immutable view of the session state.
type Snapshot struct {
	Entries      []model.Entry
	Loading      bool
	ErrCode      ErrCode
	ErrMessage   string
	SearchTerm   string
	SelectedTags []string
}

// Session is the single source of truth for one signed-in user's entry
// list. All mutation goes through its methods or the feed subscription; a
// mutex guards the state and Snapshot returns defensive copies.
type Session struct {
	userID   uuid.UUID
	access   EntryAccess
	notifier Notifier
	logger   *logger.Logger

	mu           sync.RWMutex
	entries      []model.Entry
	loading      bool
	errCode      ErrCode
	errMessage   string
	searchTerm   string
	selectedTags []string
	fetchSeq     uint64

	subCancel context.CancelFunc
	subDone   chan struct{}
}

// NewSession builds the session for one signed-in user. A nil notifier
// falls back to routing notifications through the application log.
func NewSession(userID uuid.UUID, access EntryAccess, notifier Notifier, logger *logger.Logger) *Session {
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	return &Session{
		userID:   userID,
		access:   access,
		notifier: notifier,
		logger:   logger,
	}
}

// UserID returns the owning user.
func (s *Session) UserID() uuid.UUID {
	return s.userID
}

// SetSearchTerm updates the search filter and re-fetches with it.
func (s *Session) SetSearchTerm(ctx context.Context, term string) {
	s.mu.Lock()
	s.searchTerm = term
	s.mu.Unlock()

	s.Fetch(ctx)
}

// SetSelectedTags updates the tag filter and re-fetches with it.
func (s *Session) SetSelectedTags(ctx context.Context, tags []string) {
	s.mu.Lock()
	s.selectedTags = cloneTags(tags)
	s.mu.Unlock()

	s.Fetch(ctx)
}

// Fetch replaces the entry list with the backend's view under the current
// filters. Failures never propagate; they are classified into the ErrCode
// state field for the frontend to render. Overlapping fetches are resolved
// by sequence number: only the most recently started one may publish its
// result.
func (s *Session) Fetch(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.errCode = ErrCodeNone
	s.errMessage = ""
	s.fetchSeq++
	seq := s.fetchSeq
	filter := model.EntryFilter{Search: s.searchTerm, Tags: cloneTags(s.selectedTags)}
	s.mu.Unlock()

	entries, err := s.access.ListEntries(ctx, s.userID, filter)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.fetchSeq {
		// A newer fetch started while this one was in flight.
		return
	}
	s.loading = false

	if err != nil {
		s.errCode, s.errMessage = classifyFetchError(err)
		s.logger.Error("failed to fetch entries", "user_id", s.userID, "code", s.errCode, "error", err)
		s.notifier.Error("Failed to fetch entries: " + s.errMessage)
		return
	}

	s.entries = entries
	s.errCode = ErrCodeNone
	s.errMessage = ""
}

// Create stores a new entry and prepends it to the list.
func (s *Session) Create(ctx context.Context, title, content string, tags []string) (model.Entry, error) {
	entry, err := s.access.CreateEntry(ctx, model.CreateEntryParams{
		UserID:  s.userID,
		Title:   title,
		Content: content,
		Tags:    tags,
	})
	if err != nil {
		s.notifier.Error("Failed to create entry: " + err.Error())
		return model.Entry{}, err
	}

	s.mu.Lock()
	s.upsertFront(entry)
	s.mu.Unlock()

	s.notifier.Success("Entry created successfully")
	return entry, nil
}

// Update applies a partial update and replaces the entry in place,
// preserving list order.
func (s *Session) Update(ctx context.Context, entryID uuid.UUID, params model.UpdateEntryParams) (model.Entry, error) {
	entry, err := s.access.UpdateEntry(ctx, s.userID, entryID, params)
	if err != nil {
		s.notifier.Error("Failed to update entry: " + err.Error())
		return model.Entry{}, err
	}

	s.mu.Lock()
	s.replace(entry)
	s.mu.Unlock()

	s.notifier.Success("Entry updated successfully")
	return entry, nil
}

// Delete removes the entry. The list is only touched after the backend
// confirms; there is no optimistic removal.
func (s *Session) Delete(ctx context.Context, entryID uuid.UUID) error {
	if err := s.access.DeleteEntry(ctx, s.userID, entryID); err != nil {
		s.notifier.Error("Failed to delete entry: " + err.Error())
		return err
	}

	s.mu.Lock()
	s.remove(entryID)
	s.mu.Unlock()

	s.notifier.Success("Entry deleted successfully")
	return nil
}

// Subscribe opens the live-update feed and applies incoming events to the
// list. At most one feed is active per session: an existing one is torn
// down first.
func (s *Session) Subscribe(ctx context.Context) error {
	s.Unsubscribe()

	feedCtx, cancel := context.WithCancel(ctx)
	events, err := s.access.Subscribe(feedCtx, s.userID)
	if err != nil {
		cancel()
		return err
	}

	done := make(chan struct{})

	s.mu.Lock()
	s.subCancel = cancel
	s.subDone = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		for event := range events {
			s.apply(event)
		}
	}()

	return nil
}

// Unsubscribe tears down the active feed, if any. Safe to call repeatedly.
func (s *Session) Unsubscribe() {
	s.mu.Lock()
	cancel := s.subCancel
	done := s.subDone
	s.subCancel = nil
	s.subDone = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Close tears down the feed and clears all state. Filters are ephemeral
// and do not survive sign-out.
func (s *Session) Close() {
	s.Unsubscribe()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.loading = false
	s.errCode = ErrCodeNone
	s.errMessage = ""
	s.searchTerm = ""
	s.selectedTags = nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]model.Entry, len(s.entries))
	copy(entries, s.entries)

	return Snapshot{
		Entries:      entries,
		Loading:      s.loading,
		ErrCode:      s.errCode,
		ErrMessage:   s.errMessage,
		SearchTerm:   s.searchTerm,
		SelectedTags: cloneTags(s.selectedTags),
	}
}

func (s *Session) apply(event model.EntryEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Type {
	case model.EntryCreated:
		s.upsertFront(event.Entry)
	case model.EntryUpdated:
		s.replace(event.Entry)
	case model.EntryDeleted:
		s.remove(event.EntryID)
	}
}

// upsertFront prepends the entry, or replaces it in place when the feed
// echoes back a create the session already applied locally.
func (s *Session) upsertFront(entry model.Entry) {
	for i := range s.entries {
		if s.entries[i].ID == entry.ID {
			s.entries[i] = entry
			return
		}
	}
	s.entries = append([]model.Entry{entry}, s.entries...)
}

func (s *Session) replace(entry model.Entry) {
	for i := range s.entries {
		if s.entries[i].ID == entry.ID {
			s.entries[i] = entry
			return
		}
	}
}

func (s *Session) remove(entryID uuid.UUID) {
	for i := range s.entries {
		if s.entries[i].ID == entryID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

func classifyFetchError(err error) (ErrCode, string) {
	switch {
	case errors.Is(err, model.ErrNotProvisioned):
		return ErrCodeNotSetup, "Database not set up. Please run the setup first."
	case errors.Is(err, model.ErrPermissionDenied):
		return ErrCodePermissionDenied, "Permission denied. Please sign in again."
	default:
		return ErrCodeUnknown, err.Error()
	}
}

func cloneTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}
