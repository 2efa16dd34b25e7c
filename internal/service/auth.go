package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quietpages/quietpages-server/internal/logger"
	"github.com/quietpages/quietpages-server/internal/model"
	"github.com/quietpages/quietpages-server/internal/security"
)

// Auth wraps account lifecycle operations: sign-up, sign-in, sign-out,
// session refresh and the password reset flow.
type Auth struct {
	userStore    model.UserStore
	resetStore   model.PasswordResetStore
	tokenService *TokenService
	mailer       model.Mailer
	logger       *logger.Logger
}

func NewAuth(
	userStore model.UserStore,
	resetStore model.PasswordResetStore,
	refreshTokenStore model.RefreshTokenStore,
	tokenManager model.TokenManager,
	mailer model.Mailer,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		userStore:    userStore,
		resetStore:   resetStore,
		tokenService: NewTokenService(tokenManager, refreshTokenStore, logger),
		mailer:       mailer,
		logger:       logger,
	}
}

// Session is an authenticated user plus the token pair backing it.
type Session struct {
	User         model.User
	AccessToken  string
	RefreshToken string
}

func (a *Auth) SignUp(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	if err := security.ValidatePassword(password); err != nil {
		return Session{}, err
	}

	existing, err := a.userStore.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return Session{}, fmt.Errorf("failed to get user by email: %w", err)
	}
	if existing.ID != uuid.Nil {
		a.logger.Info("sign-up with registered email", "email", email)
		return Session{}, model.ErrEmailTaken
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return Session{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := a.userStore.Create(ctx, model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		// A concurrent sign-up may have claimed the email after our check.
		if errors.Is(err, model.ErrEmailTaken) {
			return Session{}, model.ErrEmailTaken
		}
		return Session{}, fmt.Errorf("failed to create user: %w", err)
	}

	a.logger.Info("user registered", "user_id", user.ID)

	return a.issueSession(ctx, user)
}

func (a *Auth) SignIn(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}

	user, err := a.userStore.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return Session{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	if !security.VerifyPassword(user.PasswordHash, password) {
		return Session{}, model.ErrInvalidCredentials
	}

	return a.issueSession(ctx, user)
}

// SignInWithProvider signs in a user whose identity was established by an
// external provider, creating the account on first sign-in. Provider-created
// accounts get a random placeholder password; the reset flow can replace it
// with a real one later.
func (a *Auth) SignInWithProvider(ctx context.Context, email string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}

	user, err := a.userStore.GetByEmail(ctx, email)
	if err == nil {
		return a.issueSession(ctx, user)
	}
	if !errors.Is(err, model.ErrNotFound) {
		return Session{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	hash, err := security.HashPassword(uuid.NewString())
	if err != nil {
		return Session{}, fmt.Errorf("failed to hash placeholder password: %w", err)
	}

	user, err = a.userStore.Create(ctx, model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
	})
	if errors.Is(err, model.ErrEmailTaken) {
		// A concurrent provider sign-in created the account first.
		user, err = a.userStore.GetByEmail(ctx, email)
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to create user: %w", err)
	}

	a.logger.Info("user registered via provider", "user_id", user.ID)

	return a.issueSession(ctx, user)
}

// SignOut revokes the presented refresh token. Revoking an unknown or
// already-revoked token is not an error.
func (a *Auth) SignOut(ctx context.Context, refreshToken string) error {
	err := a.tokenService.RevokeByToken(ctx, refreshToken)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	return err
}

// Refresh rotates the presented refresh token and returns a new session.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	access, refresh, err := a.tokenService.Refresh(ctx, refreshToken)
	if err != nil {
		return Session{}, err
	}

	userID, err := a.tokenService.GetUserID(ctx, access)
	if err != nil {
		return Session{}, fmt.Errorf("failed to read new access token: %w", err)
	}

	user, err := a.userStore.GetByID(ctx, userID)
	if err != nil {
		return Session{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	return Session{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// CurrentUser resolves an access token into the account it belongs to.
func (a *Auth) CurrentUser(ctx context.Context, accessToken string) (model.User, error) {
	userID, err := a.tokenService.GetUserID(ctx, accessToken)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to parse access token: %w", err)
	}
	return a.userStore.GetByID(ctx, userID)
}

// RequestPasswordReset creates a reset token and dispatches it to the
// address. Unknown addresses are not reported to the caller.
func (a *Auth) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := a.userStore.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		a.logger.Info("password reset requested for unknown email", "email", email)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get user by email: %w", err)
	}

	reset := model.PasswordReset{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: time.Now().Add(model.PasswordResetDuration),
	}
	if err := a.resetStore.Create(ctx, reset); err != nil {
		return fmt.Errorf("failed to create password reset: %w", err)
	}

	if err := a.mailer.SendPasswordReset(ctx, user.Email, reset.Token); err != nil {
		return fmt.Errorf("failed to send password reset: %w", err)
	}

	return nil
}

// ResetPassword completes a reset flow. All sessions are revoked on success.
func (a *Auth) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := security.ValidatePassword(newPassword); err != nil {
		return err
	}

	reset, err := a.resetStore.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if reset.Consumed || time.Now().After(reset.ExpiresAt) {
		return model.ErrNotFound
	}

	if err := a.resetStore.Consume(ctx, token); err != nil {
		return fmt.Errorf("failed to consume password reset: %w", err)
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := a.userStore.UpdatePassword(ctx, reset.UserID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := a.tokenService.RevokeAllForUser(ctx, reset.UserID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	a.logger.Info("password reset completed", "user_id", reset.UserID)
	return nil
}

// UpdatePassword changes the password of an authenticated user. Existing
// sessions stay valid.
func (a *Auth) UpdatePassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	if err := security.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := a.userStore.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// Tokens exposes the underlying token service for transport middleware.
func (a *Auth) Tokens() *TokenService {
	return a.tokenService
}

func (a *Auth) issueSession(ctx context.Context, user model.User) (Session, error) {
	access, refresh, err := a.tokenService.Issue(ctx, user.ID)
	if err != nil {
		return Session{}, fmt.Errorf("failed to issue tokens: %w", err)
	}
	return Session{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", model.ErrInvalidEmail
	}
	return email, nil
}
