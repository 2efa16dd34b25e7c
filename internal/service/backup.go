package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quietpages/quietpages-server/internal/logger"
	"github.com/quietpages/quietpages-server/internal/model"
)

// Backup exports a user's entries as a JSON snapshot to object storage.
type Backup struct {
	entryStore model.EntryStore
	storage    model.Storage
	logger     *logger.Logger
}

func NewBackup(entryStore model.EntryStore, storage model.Storage, logger *logger.Logger) *Backup {
	return &Backup{
		entryStore: entryStore,
		storage:    storage,
		logger:     logger,
	}
}

// backupSnapshot is the on-storage export format.
type backupSnapshot struct {
	UserID     uuid.UUID     `json:"user_id"`
	ExportedAt time.Time     `json:"exported_at"`
	EntryCount int           `json:"entry_count"`
	Entries    []model.Entry `json:"entries"`
}

// Export uploads the user's full entry set and returns the object key.
func (s *Backup) Export(ctx context.Context, userID uuid.UUID) (string, error) {
	entries, err := s.entryStore.ListByUser(ctx, userID, model.EntryFilter{})
	if err != nil {
		return "", fmt.Errorf("failed to list entries for backup: %w", err)
	}
	if entries == nil {
		entries = []model.Entry{}
	}

	now := time.Now().UTC()
	snapshot := backupSnapshot{
		UserID:     userID,
		ExportedAt: now,
		EntryCount: len(entries),
		Entries:    entries,
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal backup: %w", err)
	}

	key := fmt.Sprintf("backups/%s/%s.json", userID, now.Format("20060102T150405Z"))
	if err := s.storage.Upload(ctx, key, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to upload backup: %w", err)
	}

	s.logger.Info("entry backup exported", "user_id", userID, "key", key, "entries", len(entries))

	return key, nil
}
