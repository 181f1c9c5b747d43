package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"folio/internal/core"
)

// Message is an outgoing notification for one contact submission.
type Message struct {
	To         string
	ReplyTo    string
	SenderName string
	Subject    string
	Body       string
}

// NewMessage addresses form to recipient.
func NewMessage(recipient string, form core.ContactForm) Message {
	return Message{
		To:         recipient,
		ReplyTo:    form.Email,
		SenderName: form.Name,
		Subject:    "Contact Form: " + form.Subject,
		Body:       form.Message,
	}
}

// Mailer delivers contact messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ErrMailUnavailable is returned by LogMailer when a simulated failure is drawn.
var ErrMailUnavailable = errors.New("email service temporarily unavailable")

// LogMailer writes messages to the log instead of sending them.
// FailureRate in [0,1] makes a share of sends fail, for exercising error paths.
type LogMailer struct {
	logger      *slog.Logger
	failureRate float64
	roll        func() float64
}

// NewLogMailer creates a LogMailer. A nil logger uses slog.Default().
func NewLogMailer(logger *slog.Logger, failureRate float64) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger, failureRate: failureRate, roll: rand.Float64}
}

// Send implements Mailer.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.Info("sending email",
		"to", msg.To,
		"reply_to", msg.ReplyTo,
		"sender_name", msg.SenderName,
		"subject", msg.Subject,
		"message_length", len(msg.Body),
		"request_id", core.GetRequestID(ctx),
	)
	if m.failureRate > 0 && m.roll() < m.failureRate {
		return ErrMailUnavailable
	}
	return nil
}

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends messages through an SMTP relay using PLAIN auth when credentials are set.
type SMTPMailer struct {
	config   SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer creates an SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{config: cfg, sendMail: smtp.SendMail}
}

// Send implements Mailer. The SMTP exchange itself cannot be interrupted;
// ctx only bounds how long Send waits for it.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	addr := net.JoinHostPort(m.config.Host, strconv.Itoa(m.config.Port))

	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	from := m.config.From
	if from == "" {
		from = m.config.Username
	}

	raw := buildMIME(from, msg, time.Now())
	done := make(chan error, 1)
	go func() {
		done <- m.sendMail(addr, auth, from, []string{msg.To}, raw)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMIME(from string, msg Message, now time.Time) []byte {
	var b strings.Builder
	header := func(k, v string) {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(stripCRLF(v))
		b.WriteString("\r\n")
	}
	header("From", from)
	header("To", msg.To)
	if msg.ReplyTo != "" {
		if msg.SenderName != "" {
			header("Reply-To", fmt.Sprintf("%q <%s>", msg.SenderName, msg.ReplyTo))
		} else {
			header("Reply-To", msg.ReplyTo)
		}
	}
	header("Subject", msg.Subject)
	header("Date", now.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=UTF-8")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

// stripCRLF prevents header injection through user-supplied values.
func stripCRLF(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
