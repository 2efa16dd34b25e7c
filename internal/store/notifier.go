package store

import "github.com/quietpages/quietpages-server/internal/logger"

// Notifier receives one-shot user-facing notifications for mutation
// outcomes. Frontends plug in their own toast mechanism.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

var _ Notifier = (*LogNotifier)(nil)

// LogNotifier routes notifications to the application log.
type LogNotifier struct {
	logger *logger.Logger
}

func NewLogNotifier(logger *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Success(msg string) {
	n.logger.Info("notification", "kind", "success", "message", msg)
}

func (n *LogNotifier) Error(msg string) {
	n.logger.Warn("notification", "kind", "error", "message", msg)
}
