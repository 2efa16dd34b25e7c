package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/quietpages/quietpages-server/internal/logger"
	"github.com/quietpages/quietpages-server/internal/model"
)

var _ model.EntryStore = (*EntryRepository)(nil)

// EntryRepository stores entries as JSON documents keyed by id, with a
// per-user set as the ownership index. The backend cannot execute the
// compound search/tags/ordering query, so the filter is evaluated on the
// fetched documents and the recency ordering is applied here; the caller's
// contract is unchanged.
type EntryRepository struct {
	client *redis.Client
	logger *logger.Logger
}

func NewEntryRepository(client *redis.Client, logger *logger.Logger) *EntryRepository {
	return &EntryRepository{
		client: client,
		logger: logger,
	}
}

func (r *EntryRepository) Create(ctx context.Context, entry model.Entry) (model.Entry, error) {
	now := time.Now().UTC()
	entry.ID = uuid.New()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	if err := r.save(ctx, entry); err != nil {
		return model.Entry{}, fmt.Errorf("failed to create entry: %w", err)
	}

	if err := r.client.SAdd(ctx, UserEntriesKey(entry.UserID), entry.ID.String()).Err(); err != nil {
		return model.Entry{}, fmt.Errorf("failed to index entry: %w", err)
	}

	r.publish(ctx, model.EntryEvent{Type: model.EntryCreated, Entry: entry, EntryID: entry.ID})

	return entry, nil
}

func (r *EntryRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Entry, error) {
	data, err := r.client.Get(ctx, EntryKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Entry{}, model.ErrNotFound
		}
		return model.Entry{}, fmt.Errorf("failed to get entry: %w", err)
	}

	var entry model.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return model.Entry{}, fmt.Errorf("failed to unmarshal entry: %w", err)
	}

	return entry, nil
}

func (r *EntryRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter model.EntryFilter) ([]model.Entry, error) {
	ids, err := r.client.SMembers(ctx, UserEntriesKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get entry ids: %w", err)
	}

	if len(ids) == 0 {
		return []model.Entry{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, KeyPrefixEntry+id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}

	entries := make([]model.Entry, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// Document expired or was removed out of band; drop the
			// dangling index member.
			r.client.SRem(ctx, UserEntriesKey(userID), ids[i])
			continue
		}

		var entry model.Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			r.logger.Error("skipping undecodable entry document", "entry_id", ids[i], "error", err)
			continue
		}
		if filter.Matches(entry) {
			entries = append(entries, entry)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})

	return entries, nil
}

func (r *EntryRepository) Update(ctx context.Context, entry model.Entry) (model.Entry, error) {
	current, err := r.GetByID(ctx, entry.ID)
	if err != nil {
		return model.Entry{}, err
	}

	entry.UserID = current.UserID
	entry.CreatedAt = current.CreatedAt
	entry.UpdatedAt = time.Now().UTC()

	if err := r.save(ctx, entry); err != nil {
		return model.Entry{}, fmt.Errorf("failed to update entry: %w", err)
	}

	r.publish(ctx, model.EntryEvent{Type: model.EntryUpdated, Entry: entry, EntryID: entry.ID})

	return entry, nil
}

func (r *EntryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	entry, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := r.client.Del(ctx, EntryKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if err := r.client.SRem(ctx, UserEntriesKey(entry.UserID), id.String()).Err(); err != nil {
		return fmt.Errorf("failed to unindex entry: %w", err)
	}

	r.publish(ctx, model.EntryEvent{Type: model.EntryDeleted, EntryID: id, Entry: model.Entry{UserID: entry.UserID}})

	return nil
}

func (r *EntryRepository) save(ctx context.Context, entry model.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	return r.client.Set(ctx, EntryKey(entry.ID), data, 0).Err()
}

func (r *EntryRepository) publish(ctx context.Context, event model.EntryEvent) {
	userID := event.Entry.UserID

	data, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("failed to marshal entry event", "entry_id", event.EntryID, "error", err)
		return
	}
	if err := r.client.Publish(ctx, FeedChannel(userID), data).Err(); err != nil {
		r.logger.Error("failed to publish entry event", "entry_id", event.EntryID, "error", err)
	}
}
