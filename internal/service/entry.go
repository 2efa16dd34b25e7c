package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/quietpages/quietpages-server/internal/logger"
	"github.com/quietpages/quietpages-server/internal/model"
)

// Entry owns the business rules around diary entries: validation, tag
// normalization and ownership enforcement.
type Entry struct {
	entryStore model.EntryStore
	userStore  model.UserStore
	feed       model.EntryFeed
	logger     *logger.Logger
}

func NewEntry(
	entryStore model.EntryStore,
	userStore model.UserStore,
	feed model.EntryFeed,
	logger *logger.Logger,
) *Entry {
	return &Entry{
		entryStore: entryStore,
		userStore:  userStore,
		feed:       feed,
		logger:     logger,
	}
}

func (s *Entry) CreateEntry(ctx context.Context, params model.CreateEntryParams) (model.Entry, error) {
	if strings.TrimSpace(params.Content) == "" {
		return model.Entry{}, model.ErrContentRequired
	}

	if _, err := s.userStore.GetByID(ctx, params.UserID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Entry{}, model.ErrNotFound
		}
		return model.Entry{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	entry := model.Entry{
		UserID:  params.UserID,
		Title:   normalizeTitle(params.Title),
		Content: params.Content,
		Tags:    normalizeTags(params.Tags),
	}

	entry, err := s.entryStore.Create(ctx, entry)
	if err != nil {
		return model.Entry{}, fmt.Errorf("failed to save entry: %w", err)
	}

	return entry, nil
}

func (s *Entry) GetEntry(ctx context.Context, userID, entryID uuid.UUID) (model.Entry, error) {
	entry, err := s.entryStore.GetByID(ctx, entryID)
	if err != nil {
		return model.Entry{}, fmt.Errorf("failed to get entry by id: %w", err)
	}

	// Foreign entries are indistinguishable from missing ones.
	if entry.UserID != userID {
		return model.Entry{}, model.ErrNotFound
	}

	return entry, nil
}

func (s *Entry) ListEntries(ctx context.Context, userID uuid.UUID, filter model.EntryFilter) ([]model.Entry, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Tags = normalizeTags(filter.Tags)

	entries, err := s.entryStore.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries by user id: %w", err)
	}
	if entries == nil {
		entries = []model.Entry{}
	}

	return entries, nil
}

func (s *Entry) UpdateEntry(ctx context.Context, userID, entryID uuid.UUID, params model.UpdateEntryParams) (model.Entry, error) {
	entry, err := s.GetEntry(ctx, userID, entryID)
	if err != nil {
		return model.Entry{}, err
	}

	if params.Title != nil {
		entry.Title = normalizeTitle(*params.Title)
	}
	if params.Content != nil {
		if strings.TrimSpace(*params.Content) == "" {
			return model.Entry{}, model.ErrContentRequired
		}
		entry.Content = *params.Content
	}
	if params.Tags != nil {
		entry.Tags = normalizeTags(*params.Tags)
	}

	saved, err := s.entryStore.Update(ctx, entry)
	if err != nil {
		return model.Entry{}, fmt.Errorf("failed to update entry: %w", err)
	}

	return saved, nil
}

func (s *Entry) DeleteEntry(ctx context.Context, userID, entryID uuid.UUID) error {
	if _, err := s.GetEntry(ctx, userID, entryID); err != nil {
		return err
	}

	if err := s.entryStore.Delete(ctx, entryID); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	return nil
}

// Subscribe opens a live-update stream for the user's entries. The stream
// closes when ctx is cancelled.
func (s *Entry) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan model.EntryEvent, error) {
	events, err := s.feed.Subscribe(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to entry feed: %w", err)
	}
	return events, nil
}

func normalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.DefaultTitle
	}
	return title
}

// normalizeTags trims whitespace, drops empties and removes duplicates
// while preserving first-seen order.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return []string{}
	}

	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
