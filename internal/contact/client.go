package contact

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"folio/internal/apiclient"
	"folio/internal/core"
)

const (
	// SubmitTimeout is the per-attempt timeout for sending a message.
	SubmitTimeout = 15 * time.Second
	// Cooldown is the minimum gap SubmitWithCooldown enforces between successful sends.
	Cooldown = 60 * time.Second
)

// CooldownMessage is the text to show a user who hit ErrCooldown.
const CooldownMessage = "Please wait before sending another message"

// ErrCooldown is returned by SubmitWithCooldown inside the cooldown period.
var ErrCooldown = errors.New("contact: cooldown in effect")

// SubmitError wraps a failed send.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string {
	return "Failed to send message: " + e.Err.Error()
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// Client submits contact forms to a folio API.
type Client struct {
	api *apiclient.Client

	mu       sync.Mutex
	lastSent time.Time
	now      func() time.Time
}

// NewClient creates a contact client on api.
func NewClient(api *apiclient.Client) *Client {
	return &Client{api: api, now: time.Now}
}

// Submit validates, sanitizes and posts form. Validation failures are returned
// as *ValidationError without contacting the server.
func (c *Client) Submit(ctx context.Context, form core.ContactForm) (*core.ContactReceipt, error) {
	if err := Validate(form); err != nil {
		return nil, err
	}

	receipt, err := apiclient.PostJSON[core.ContactReceipt](ctx, c.api, "/api/contact", Sanitize(form),
		apiclient.WithTimeout(SubmitTimeout))
	if err != nil {
		if apiclient.StatusOf(err) == http.StatusTooManyRequests {
			err = &apiclient.Error{
				Kind:    apiclient.KindHTTPStatus,
				Status:  http.StatusTooManyRequests,
				Code:    "HTTP_429",
				Message: msgRateLimited,
				Err:     err,
			}
		}
		return nil, &SubmitError{Err: err}
	}
	return &receipt, nil
}

// SubmitWithCooldown is Submit with a client-side pause between successful sends.
func (c *Client) SubmitWithCooldown(ctx context.Context, form core.ContactForm) (*core.ContactReceipt, error) {
	c.mu.Lock()
	last := c.lastSent
	c.mu.Unlock()

	if !last.IsZero() && c.now().Sub(last) < Cooldown {
		return nil, ErrCooldown
	}

	receipt, err := c.Submit(ctx, form)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.lastSent = c.now()
	c.mu.Unlock()
	return receipt, nil
}
