package contact

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"folio/internal/core"
	"folio/internal/ratelimit"
)

const msgRateLimited = "Too many requests. Please try again later."

// Service accepts contact submissions on the server.
type Service struct {
	limiter   ratelimit.Limiter
	mailer    Mailer
	recipient string
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a Service. A nil logger uses slog.Default().
func NewService(limiter ratelimit.Limiter, mailer Mailer, recipient string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		limiter:   limiter,
		mailer:    mailer,
		recipient: recipient,
		logger:    logger,
		now:       time.Now,
	}
}

// RateLimitKey builds the limiter key for a caller address.
func RateLimitKey(clientIP string) string {
	if clientIP == "" {
		clientIP = "unknown"
	}
	return "contact:" + clientIP
}

// Admit counts one submission attempt from clientIP and rejects it with a 429
// *core.AppError once the window is full. Limiter failures let the request through.
func (s *Service) Admit(ctx context.Context, clientIP string) error {
	ok, err := s.limiter.Allow(ctx, RateLimitKey(clientIP))
	if err != nil {
		s.logger.Warn("rate limiter unavailable, admitting request",
			"error", err,
			"request_id", core.GetRequestID(ctx),
		)
		return nil
	}
	if !ok {
		return core.NewRateLimitError(msgRateLimited)
	}
	return nil
}

// Submit parses body, delivers the message and returns a receipt.
func (s *Service) Submit(ctx context.Context, body []byte) (*core.ContactReceipt, error) {
	form, err := ParseSubmission(body)
	if err != nil {
		return nil, err
	}

	if err := s.mailer.Send(ctx, NewMessage(s.recipient, form)); err != nil {
		s.logger.Error("failed to send contact message",
			"error", err,
			"request_id", core.GetRequestID(ctx),
		)
		return nil, core.NewInternalError("Failed to send message", err)
	}

	return &core.ContactReceipt{
		ID:        "contact-" + uuid.NewString(),
		Timestamp: s.now().UTC().Format(core.TimestampLayout),
		Success:   true,
	}, nil
}
