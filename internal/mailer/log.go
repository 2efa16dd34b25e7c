package mailer

import (
	"context"

	"github.com/quietpages/quietpages-server/internal/logger"
	"github.com/quietpages/quietpages-server/internal/model"
)

var _ model.Mailer = (*Log)(nil)

// Log writes outgoing mail to the application log instead of an SMTP
// relay. Deployments front it with a real transport.
type Log struct {
	logger *logger.Logger
}

func NewLog(logger *logger.Logger) *Log {
	return &Log{logger: logger}
}

func (m *Log) SendPasswordReset(ctx context.Context, email string, token string) error {
	m.logger.Info("password reset mail", "email", email, "token", token)
	return nil
}
