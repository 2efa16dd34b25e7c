package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/quietpages/quietpages-server/internal/model"
)

var _ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)

// RefreshTokenRepository keeps refresh token documents with a TTL matching
// their expiry, so expired sessions age out of the store on their own.
type RefreshTokenRepository struct {
	client *redis.Client
}

func NewRefreshTokenRepository(client *redis.Client) *RefreshTokenRepository {
	return &RefreshTokenRepository{client: client}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token model.RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal refresh token: %w", err)
	}

	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("refresh token already expired")
	}

	if err := r.client.Set(ctx, RefreshKey(token.JTI), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	if err := r.client.SAdd(ctx, UserTokensKey(token.UserID), token.JTI).Err(); err != nil {
		return fmt.Errorf("failed to index refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) GetByJTI(ctx context.Context, jti string) (model.RefreshToken, error) {
	data, err := r.client.Get(ctx, RefreshKey(jti)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.RefreshToken{}, model.ErrNotFound
		}
		return model.RefreshToken{}, fmt.Errorf("failed to get refresh token: %w", err)
	}

	var token model.RefreshToken
	if err := json.Unmarshal(data, &token); err != nil {
		return model.RefreshToken{}, fmt.Errorf("failed to unmarshal refresh token: %w", err)
	}
	return token, nil
}

func (r *RefreshTokenRepository) RevokeByJTI(ctx context.Context, jti string) error {
	token, err := r.GetByJTI(ctx, jti)
	if errors.Is(err, model.ErrNotFound) {
		// Already expired out of the store; nothing to revoke.
		return nil
	}
	if err != nil {
		return err
	}
	if token.RevokedAt != nil {
		return nil
	}

	now := time.Now().UTC()
	token.RevokedAt = &now
	token.UpdatedAt = now

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal refresh token: %w", err)
	}
	if err := r.client.Set(ctx, RefreshKey(jti), data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) RevokeAllByUser(ctx context.Context, userID uuid.UUID) error {
	jtis, err := r.client.SMembers(ctx, UserTokensKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to get user refresh tokens: %w", err)
	}
	for _, jti := range jtis {
		if err := r.RevokeByJTI(ctx, jti); err != nil {
			return err
		}
	}
	return nil
}
