package ports

import "context"

// Outbound mail message.
type Mail struct {
	To       string
	Subject  string
	HTMLBody string
}

// Contract for sending mail. Callers treat failures as non-fatal.
type Notifier interface {
	Send(ctx context.Context, m Mail) error
}
