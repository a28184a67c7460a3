package notify

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"package-tracking-service/internal/platform/logger"
	"package-tracking-service/internal/ports"
	"testing"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier(t *testing.T) *SMTPNotifier {
	t.Helper()
	n, err := NewSMTPNotifier(SMTPConfig{
		Addr:     "localhost:2525",
		From:     "tracking@example.com",
		FromName: "Package Tracking",
	}, logger.Nop())
	require.NoError(t, err)
	n.backoff = time.Millisecond
	return n
}

func TestSMTPNotifierComposesSanitizedMultipart(t *testing.T) {
	n := newTestNotifier(t)

	var gotFrom string
	var gotTo []string
	var gotMsg []byte
	n.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		assert.Equal(t, "localhost:2525", addr)
		gotFrom, gotTo, gotMsg = from, to, msg
		return nil
	}

	err := n.Send(context.Background(), ports.Mail{
		To:       "jane@example.com",
		Subject:  "Your package DU1234567890 is In Transit",
		HTMLBody: `<p>Hello <b>Jane</b></p><script>alert(1)</script>`,
	})
	require.NoError(t, err)

	assert.Equal(t, "tracking@example.com", gotFrom)
	assert.Equal(t, []string{"jane@example.com"}, gotTo)

	env, err := enmime.ReadEnvelope(bytes.NewReader(gotMsg))
	require.NoError(t, err)
	assert.Equal(t, "Your package DU1234567890 is In Transit", env.GetHeader("Subject"))
	assert.Contains(t, env.HTML, "<b>Jane</b>")
	assert.NotContains(t, env.HTML, "<script>")
	assert.Contains(t, env.Text, "Hello Jane")
}

func TestSMTPNotifierRetriesTransientFailures(t *testing.T) {
	n := newTestNotifier(t)

	calls := 0
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		calls++
		if calls < 3 {
			return errors.New("421 service not available")
		}
		return nil
	}

	require.NoError(t, n.Send(context.Background(), ports.Mail{To: "a@example.com", Subject: "s", HTMLBody: "b"}))
	assert.Equal(t, 3, calls)
}

func TestSMTPNotifierPermanentFailure(t *testing.T) {
	n := newTestNotifier(t)

	calls := 0
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		calls++
		return errors.New("550 mailbox unavailable")
	}

	err := n.Send(context.Background(), ports.Mail{To: "a@example.com", Subject: "s", HTMLBody: "b"})
	assert.ErrorContains(t, err, "550")
	assert.Equal(t, 1, calls)
}

func TestSMTPNotifierRejectsEmptyRecipient(t *testing.T) {
	n := newTestNotifier(t)
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}
	assert.Error(t, n.Send(context.Background(), ports.Mail{Subject: "s"}))
}

func TestNewSMTPNotifierValidatesConfig(t *testing.T) {
	_, err := NewSMTPNotifier(SMTPConfig{From: "x@example.com"}, logger.Nop())
	assert.Error(t, err)
	_, err = NewSMTPNotifier(SMTPConfig{Addr: "host:25"}, logger.Nop())
	assert.Error(t, err)
	_, err = NewSMTPNotifier(SMTPConfig{Addr: "no-port", Username: "u", From: "x@example.com"}, logger.Nop())
	assert.Error(t, err)
}
