package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PasswordResetDuration is a TTL for password reset tokens.
const PasswordResetDuration = time.Hour

// PasswordResetStore persists pending password reset tokens.
type PasswordResetStore interface {
	Create(ctx context.Context, reset PasswordReset) error
	GetByToken(ctx context.Context, token string) (PasswordReset, error)
	Consume(ctx context.Context, token string) error
}

// PasswordReset describes a pending password reset request.
type PasswordReset struct {
	Token     string
	UserID    uuid.UUID
	Email     string
	ExpiresAt time.Time
	Consumed  bool
}

// Mailer dispatches account mail. The reset flow only needs one message
// kind; transports beyond logging are deployment concerns.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email string, token string) error
}
