package contact

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/core"
	"folio/internal/ratelimit"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func (failingLimiter) Close() error { return nil }

const validBody = `{"name":"John Doe","email":"john@example.com","subject":"Hi","message":"Hello","honeypot":""}`

func newTestService(mailer Mailer) *Service {
	limiter := ratelimit.NewMemoryWithClock(ratelimit.Config{Max: 3, Window: time.Minute}, time.Now)
	return NewService(limiter, mailer, "admin@example.com", nil)
}

func TestService_Submit(t *testing.T) {
	mailer := &recordingMailer{}
	svc := newTestService(mailer)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	receipt, err := svc.Submit(context.Background(), []byte(validBody))
	require.NoError(t, err)
	assert.True(t, receipt.Success)
	assert.True(t, strings.HasPrefix(receipt.ID, "contact-"))
	assert.Equal(t, "2024-05-01T12:00:00.000Z", receipt.Timestamp)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "admin@example.com", mailer.sent[0].To)
	assert.Equal(t, "john@example.com", mailer.sent[0].ReplyTo)
	assert.Equal(t, "Contact Form: Hi", mailer.sent[0].Subject)
	assert.Equal(t, "Hello", mailer.sent[0].Body)
}

func TestService_SubmitRejectsHoneypot(t *testing.T) {
	mailer := &recordingMailer{}
	svc := newTestService(mailer)

	_, err := svc.Submit(context.Background(),
		[]byte(`{"name":"John Doe","email":"john@example.com","subject":"Hi","message":"Hello","honeypot":"spam"}`))

	var appErr *core.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatusCode())
	assert.Empty(t, mailer.sent)
}

func TestService_SubmitMailFailure(t *testing.T) {
	svc := newTestService(&recordingMailer{err: ErrMailUnavailable})

	_, err := svc.Submit(context.Background(), []byte(validBody))

	var appErr *core.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatusCode())
	assert.Equal(t, "Failed to send message", appErr.Message)
	assert.ErrorIs(t, err, ErrMailUnavailable)
}

func TestService_Admit(t *testing.T) {
	svc := newTestService(&recordingMailer{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Admit(ctx, "1.2.3.4"))
	}

	err := svc.Admit(ctx, "1.2.3.4")
	var appErr *core.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusTooManyRequests, appErr.HTTPStatusCode())
	assert.Equal(t, "Too many requests. Please try again later.", appErr.Message)

	assert.NoError(t, svc.Admit(ctx, "5.6.7.8"))
}

func TestService_AdmitFailsOpen(t *testing.T) {
	svc := NewService(failingLimiter{}, &recordingMailer{}, "admin@example.com", nil)
	assert.NoError(t, svc.Admit(context.Background(), "1.2.3.4"))
}

func TestRateLimitKey(t *testing.T) {
	assert.Equal(t, "contact:1.2.3.4", RateLimitKey("1.2.3.4"))
	assert.Equal(t, "contact:unknown", RateLimitKey(""))
}
