package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"package-tracking-service/internal/platform/logger"
	"package-tracking-service/internal/platform/obs"
	"package-tracking-service/internal/ports"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/microcosm-cc/bluemonday"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier builds a multipart (HTML + plain text) message and relays it
// through an SMTP server. Bodies are sanitized before sending since operator
// messages are free-form.
type SMTPNotifier struct {
	addr     string
	auth     smtp.Auth
	from     string
	fromName string
	log      *logger.Logger

	htmlPolicy      *bluemonday.Policy
	stripTagsPolicy *bluemonday.Policy

	send        sendFunc
	maxAttempts int
	backoff     time.Duration
}

type SMTPConfig struct {
	Addr     string
	Username string
	Password string
	From     string
	FromName string
}

func NewSMTPNotifier(cfg SMTPConfig, log *logger.Logger) (*SMTPNotifier, error) {
	if cfg.Addr == "" {
		return nil, errors.New("smtp: address is empty")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp: from address is empty")
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		host, _, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("smtp: parse address: %w", err)
		}
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}

	return &SMTPNotifier{
		addr:            cfg.Addr,
		auth:            auth,
		from:            cfg.From,
		fromName:        cfg.FromName,
		log:             log,
		htmlPolicy:      bluemonday.UGCPolicy(),
		stripTagsPolicy: bluemonday.StripTagsPolicy(),
		send:            smtp.SendMail,
		maxAttempts:     3,
		backoff:         500 * time.Millisecond,
	}, nil
}

var _ ports.Notifier = (*SMTPNotifier)(nil)

func (n *SMTPNotifier) Send(ctx context.Context, m ports.Mail) (err error) {
	defer obs.Time(ctx, n.log, "notify.smtp.Send")(&err)

	msg, err := n.compose(m)
	if err != nil {
		return err
	}

	backoff := n.backoff
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err = n.send(n.addr, n.auth, n.from, []string{m.To}, msg)
		if err == nil {
			return nil
		}
		if !isTransient(err) || attempt == n.maxAttempts {
			return fmt.Errorf("smtp: send %q: %w", m.Subject, err)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}

func (n *SMTPNotifier) compose(m ports.Mail) ([]byte, error) {
	if strings.TrimSpace(m.To) == "" {
		return nil, errors.New("smtp: recipient is empty")
	}

	cleanHTML := n.htmlPolicy.Sanitize(m.HTMLBody)
	text := strings.TrimSpace(n.stripTagsPolicy.Sanitize(cleanHTML))

	part, err := enmime.Builder().
		From(n.fromName, n.from).
		To("", m.To).
		Subject(m.Subject).
		HTML([]byte(cleanHTML)).
		Text([]byte(text)).
		Build()
	if err != nil {
		return nil, fmt.Errorf("smtp: build message: %w", err)
	}

	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, fmt.Errorf("smtp: encode message: %w", err)
	}
	return buf.Bytes(), nil
}

// isTransient reports network failures and 4xx SMTP replies, which servers
// use for temporary conditions.
func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	return len(msg) >= 3 && msg[0] == '4' && msg[1] >= '0' && msg[1] <= '9' && msg[2] >= '0' && msg[2] <= '9'
}
