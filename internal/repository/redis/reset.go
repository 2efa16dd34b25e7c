package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quietpages/quietpages-server/internal/model"
)

var _ model.PasswordResetStore = (*PasswordResetRepository)(nil)

type PasswordResetRepository struct {
	client *redis.Client
}

func NewPasswordResetRepository(client *redis.Client) *PasswordResetRepository {
	return &PasswordResetRepository{client: client}
}

func (r *PasswordResetRepository) Create(ctx context.Context, reset model.PasswordReset) error {
	data, err := json.Marshal(reset)
	if err != nil {
		return fmt.Errorf("failed to marshal password reset: %w", err)
	}

	ttl := time.Until(reset.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("password reset already expired")
	}

	if err := r.client.Set(ctx, ResetKey(reset.Token), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to create password reset: %w", err)
	}
	return nil
}

func (r *PasswordResetRepository) GetByToken(ctx context.Context, token string) (model.PasswordReset, error) {
	data, err := r.client.Get(ctx, ResetKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.PasswordReset{}, model.ErrNotFound
		}
		return model.PasswordReset{}, fmt.Errorf("failed to get password reset: %w", err)
	}

	var reset model.PasswordReset
	if err := json.Unmarshal(data, &reset); err != nil {
		return model.PasswordReset{}, fmt.Errorf("failed to unmarshal password reset: %w", err)
	}
	return reset, nil
}

func (r *PasswordResetRepository) Consume(ctx context.Context, token string) error {
	reset, err := r.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if reset.Consumed {
		return model.ErrNotFound
	}

	reset.Consumed = true
	data, err := json.Marshal(reset)
	if err != nil {
		return fmt.Errorf("failed to marshal password reset: %w", err)
	}
	if err := r.client.Set(ctx, ResetKey(token), data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("failed to consume password reset: %w", err)
	}
	return nil
}
