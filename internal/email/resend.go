package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// ResendTransport sends mail through the Resend HTTP API.
type ResendTransport struct {
	client *resend.Client
	logger zerolog.Logger
}

func NewResendTransport(apiKey string, logger zerolog.Logger) *ResendTransport {
	return &ResendTransport{client: resend.NewClient(apiKey), logger: logger}
}

// Send handles rate limit errors without retrying.
func (t *ResendTransport) Send(ctx context.Context, from string, msg Message) error {
	if t.client == nil {
		return fmt.Errorf("resend client not initialized")
	}

	params := &resend.SendEmailRequest{
		From:    from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}

	sent, err := t.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		var rateLimitErr *resend.RateLimitError
		if errors.As(err, &rateLimitErr) {
			t.logger.Warn().
				Str("limit", rateLimitErr.Limit).
				Str("remaining", rateLimitErr.Remaining).
				Str("reset", rateLimitErr.Reset).
				Msg("resend rate limit exceeded")
			return fmt.Errorf("email rate limit exceeded (limit: %s, resets in: %s seconds): %w",
				rateLimitErr.Limit, rateLimitErr.Reset, err)
		}
		if recipientRejected(err) {
			return fmt.Errorf("resend API error: %w", errors.Join(ErrNoRecipient, err))
		}
		return fmt.Errorf("resend API error: %w", err)
	}

	t.logger.Debug().Str("email_id", sent.Id).Msg("email accepted by Resend")
	return nil
}

// recipientRejected reports whether a Resend validation error is about the
// recipient. The client only exposes the API message, e.g.
// "[ERROR]: Invalid `to` field. The email address needs to follow ...".
func recipientRejected(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "`to`") ||
		strings.Contains(msg, "to field") ||
		strings.Contains(msg, "recipient")
}
