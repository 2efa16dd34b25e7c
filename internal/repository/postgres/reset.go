package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/quietpages/quietpages-server/internal/model"
)

var _ model.PasswordResetStore = (*PasswordResetRepository)(nil)

type PasswordResetRepository struct {
	db *Connection
}

func NewPasswordResetRepository(db *Connection) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

func (r *PasswordResetRepository) Create(ctx context.Context, reset model.PasswordReset) error {
	const query = `
        INSERT INTO password_resets (token, user_id, email, expires_at, consumed)
        VALUES ($1, $2, $3, $4, FALSE)
    `
	_, err := r.db.Exec(ctx, query, reset.Token, reset.UserID, reset.Email, reset.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create password reset: %w", classify(err))
	}
	return nil
}

func (r *PasswordResetRepository) GetByToken(ctx context.Context, token string) (model.PasswordReset, error) {
	const query = `
        SELECT token, user_id, email, expires_at, consumed
        FROM password_resets WHERE token = $1
    `
	var reset model.PasswordReset
	err := r.db.QueryRow(ctx, query, token).Scan(
		&reset.Token, &reset.UserID, &reset.Email, &reset.ExpiresAt, &reset.Consumed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PasswordReset{}, model.ErrNotFound
		}
		return model.PasswordReset{}, fmt.Errorf("failed to get password reset: %w", classify(err))
	}
	return reset, nil
}

func (r *PasswordResetRepository) Consume(ctx context.Context, token string) error {
	const query = `
        UPDATE password_resets SET consumed = TRUE
        WHERE token = $1 AND consumed = FALSE
    `
	cmd, err := r.db.Exec(ctx, query, token)
	if err != nil {
		return fmt.Errorf("failed to consume password reset: %w", classify(err))
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
