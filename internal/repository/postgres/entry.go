package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quietpages/quietpages-server/internal/model"
)

var _ model.EntryStore = (*EntryRepository)(nil)

type EntryRepository struct {
	db *Connection
}

func NewEntryRepository(db *Connection) *EntryRepository {
	return &EntryRepository{
		db: db,
	}
}

func (r *EntryRepository) Create(ctx context.Context, entry model.Entry) (model.Entry, error) {
	const query = `
		INSERT INTO diary_entries (user_id, title, content, tags)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	saved := entry
	err := r.db.QueryRow(ctx, query,
		entry.UserID, entry.Title, entry.Content, entry.Tags,
	).Scan(&saved.ID, &saved.CreatedAt, &saved.UpdatedAt)
	if err != nil {
		return model.Entry{}, fmt.Errorf("failed to create entry: %w", classify(err))
	}

	return saved, nil
}

func (r *EntryRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Entry, error) {
	const query = `
		SELECT id, user_id, title, content, tags, created_at, updated_at
		FROM diary_entries
		WHERE id = $1`

	var entry model.Entry
	err := r.db.QueryRow(ctx, query, id).Scan(
		&entry.ID, &entry.UserID, &entry.Title, &entry.Content,
		&entry.Tags, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Entry{}, model.ErrNotFound
		}
		return model.Entry{}, fmt.Errorf("failed to get entry by id: %w", classify(err))
	}

	return entry, nil
}

func (r *EntryRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter model.EntryFilter) ([]model.Entry, error) {
	const query = `
		SELECT id, user_id, title, content, tags, created_at, updated_at
		FROM diary_entries
		WHERE user_id = $1
		  AND ($2 = '' OR title ILIKE '%' || $2 || '%' ESCAPE '\' OR content ILIKE '%' || $2 || '%' ESCAPE '\')
		  AND (cardinality($3::text[]) = 0 OR tags @> $3::text[])
		ORDER BY updated_at DESC`

	tags := filter.Tags
	if tags == nil {
		tags = []string{}
	}

	entries, err := r.queryEntries(ctx, query, userID, escapeLike(filter.Search), tags)
	if err == nil {
		return entries, nil
	}
	if !needsFilterFallback(err) {
		return nil, fmt.Errorf("failed to list entries: %w", classify(err))
	}

	// Compound filtering is not available on this schema yet; fetch the
	// ownership-scoped rows and evaluate the filter here so the caller still
	// sees the contracted ordering and restriction.
	const plain = `
		SELECT id, user_id, title, content, tags, created_at, updated_at
		FROM diary_entries
		WHERE user_id = $1`

	entries, err = r.queryEntries(ctx, plain, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", classify(err))
	}

	filtered := entries[:0]
	for _, e := range entries {
		if filter.Matches(e) {
			filtered = append(filtered, e)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].UpdatedAt.After(filtered[j].UpdatedAt)
	})
	return filtered, nil
}

func (r *EntryRepository) Update(ctx context.Context, entry model.Entry) (model.Entry, error) {
	const query = `
		UPDATE diary_entries
		SET title = $2, content = $3, tags = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING id, user_id, title, content, tags, created_at, updated_at`

	var saved model.Entry
	err := r.db.QueryRow(ctx, query,
		entry.ID, entry.Title, entry.Content, entry.Tags,
	).Scan(
		&saved.ID, &saved.UserID, &saved.Title, &saved.Content,
		&saved.Tags, &saved.CreatedAt, &saved.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Entry{}, model.ErrNotFound
		}
		return model.Entry{}, fmt.Errorf("failed to update entry: %w", classify(err))
	}

	return saved, nil
}

func (r *EntryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM diary_entries WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", classify(err))
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *EntryRepository) queryEntries(ctx context.Context, query string, args ...any) ([]model.Entry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.Entry
	for rows.Next() {
		var entry model.Entry
		err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.Title, &entry.Content,
			&entry.Tags, &entry.CreatedAt, &entry.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// escapeLike neutralizes LIKE metacharacters in a user-supplied term.
func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}
