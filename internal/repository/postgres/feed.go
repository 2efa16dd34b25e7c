package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quietpages/quietpages-server/internal/logger"
	"github.com/quietpages/quietpages-server/internal/model"
)

var _ model.EntryFeed = (*EntryFeed)(nil)

// EntryFeed bridges the entry_changes NOTIFY channel into EntryEvent
// streams. Each subscription holds one dedicated connection from the pool
// for the lifetime of its context.
type EntryFeed struct {
	db      *Connection
	entries *EntryRepository
	logger  *logger.Logger
}

func NewEntryFeed(db *Connection, entries *EntryRepository, logger *logger.Logger) *EntryFeed {
	return &EntryFeed{
		db:      db,
		entries: entries,
		logger:  logger,
	}
}

// changePayload is the trigger's NOTIFY payload. It carries identifiers
// only; the row itself is re-read on delivery.
type changePayload struct {
	Op     string    `json:"op"`
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
}

func (f *EntryFeed) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan model.EntryEvent, error) {
	conn, err := f.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire feed connection: %w", classify(err))
	}

	if _, err := conn.Exec(ctx, "LISTEN entry_changes"); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen for entry changes: %w", classify(err))
	}

	events := make(chan model.EntryEvent, 16)
	go f.pump(ctx, conn, userID, events)

	return events, nil
}

func (f *EntryFeed) pump(ctx context.Context, conn *pgxpool.Conn, userID uuid.UUID, events chan<- model.EntryEvent) {
	defer close(events)
	defer conn.Release()

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil {
				f.logger.Error("entry feed interrupted", "user_id", userID, "error", err)
			}
			return
		}

		var payload changePayload
		if err := json.Unmarshal([]byte(notification.Payload), &payload); err != nil {
			f.logger.Error("entry feed received malformed payload", "error", err)
			continue
		}
		if payload.UserID != userID {
			continue
		}

		event := model.EntryEvent{EntryID: payload.ID}
		switch payload.Op {
		case "DELETE":
			event.Type = model.EntryDeleted
		case "INSERT", "UPDATE":
			entry, err := f.entries.GetByID(ctx, payload.ID)
			if errors.Is(err, model.ErrNotFound) {
				// Row removed between notification and re-read.
				continue
			}
			if err != nil {
				f.logger.Error("entry feed failed to load changed entry", "entry_id", payload.ID, "error", err)
				continue
			}
			event.Entry = entry
			if payload.Op == "INSERT" {
				event.Type = model.EntryCreated
			} else {
				event.Type = model.EntryUpdated
			}
		default:
			continue
		}

		select {
		case events <- event:
		case <-ctx.Done():
			return
		}
	}
}
