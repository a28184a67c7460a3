package notify

import (
	"context"
	"package-tracking-service/internal/platform/logger"
	"package-tracking-service/internal/ports"
)

// LogNotifier records mail instead of sending it. Used when no SMTP server
// is configured.
type LogNotifier struct {
	Log *logger.Logger
}

func (n LogNotifier) Send(_ context.Context, m ports.Mail) error {
	n.Log.Info("mail suppressed (no smtp configured)", "to_email", m.To, "subject", m.Subject, "bytes", len(m.HTMLBody))
	return nil
}

var _ ports.Notifier = LogNotifier{}
