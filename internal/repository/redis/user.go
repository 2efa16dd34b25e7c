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

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	client *redis.Client
}

func NewUserRepository(client *redis.Client) *UserRepository {
	return &UserRepository{client: client}
}

func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	// The email index doubles as the uniqueness guard.
	claimed, err := r.client.SetNX(ctx, UserEmailKey(user.Email), user.ID.String(), 0).Result()
	if err != nil {
		return model.User{}, fmt.Errorf("failed to claim email: %w", err)
	}
	if !claimed {
		return model.User{}, model.ErrEmailTaken
	}

	if err := r.save(ctx, user); err != nil {
		r.client.Del(ctx, UserEmailKey(user.Email))
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	idStr, err := r.client.Get(ctx, UserEmailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to resolve email: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return model.User{}, fmt.Errorf("corrupt email index for %s: %w", email, err)
	}

	return r.GetByID(ctx, id)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	data, err := r.client.Get(ctx, UserKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return model.User{}, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	return user, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash []byte) error {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now().UTC()

	if err := r.save(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (r *UserRepository) save(ctx context.Context, user model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	return r.client.Set(ctx, UserKey(user.ID), data, 0).Err()
}
