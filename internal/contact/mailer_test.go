package contact

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/core"
)

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	msg := NewMessage("admin@example.com", validForm())

	m := NewLogMailer(logger, 0)
	require.NoError(t, m.Send(context.Background(), msg))
	assert.Contains(t, buf.String(), `"subject":"Contact Form: Hi"`)
	assert.NotContains(t, buf.String(), `"Hello"`, "message body is not logged")

	m = NewLogMailer(logger, 0.05)
	m.roll = func() float64 { return 0.01 }
	assert.ErrorIs(t, m.Send(context.Background(), msg), ErrMailUnavailable)

	m.roll = func() float64 { return 0.5 }
	assert.NoError(t, m.Send(context.Background(), msg))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, msg), context.Canceled)
}

func TestSMTPMailer(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Username: "bot@example.com", Password: "secret"})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	var gotAuth smtp.Auth
	m.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, msg
		return nil
	}

	form := validForm()
	form.Subject = "Hi\r\nBcc: victim@example.com"
	form.Message = "line one\nline two"
	require.NoError(t, m.Send(context.Background(), NewMessage("admin@example.com", form)))

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "bot@example.com", gotFrom)
	assert.Equal(t, []string{"admin@example.com"}, gotTo)

	raw := string(gotMsg)
	assert.Contains(t, raw, "Subject: Contact Form: Hi  Bcc: victim@example.com\r\n")
	assert.NotContains(t, raw, "\r\nBcc:")
	assert.Contains(t, raw, `Reply-To: "John Doe" <john@example.com>`)
	assert.True(t, strings.HasSuffix(raw, "line one\r\nline two\r\n"))
}

func TestSMTPMailer_Errors(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 25, From: "site@example.com"})
	m.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("550 rejected")
	}
	err := m.Send(context.Background(), NewMessage("admin@example.com", validForm()))
	assert.ErrorContains(t, err, "550 rejected")

	block := make(chan struct{})
	defer close(block)
	m.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		<-block
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Send(ctx, NewMessage("admin@example.com", core.ContactForm{})), context.DeadlineExceeded)
}
