package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/sp-hack/server/internal/api/problem"
	"github.com/sp-hack/server/internal/config"
	"github.com/sp-hack/server/internal/metrics"
	"github.com/sp-hack/server/internal/sanitize"
)

const (
	ProviderSMTP   = "smtp"
	ProviderResend = "resend"
	ProviderLog    = "log"
)

// ErrNoRecipient marks failures caused by the recipient address: bad
// syntax or a server refusing the envelope.
var ErrNoRecipient = errors.New("recipient rejected")

// Status is the outcome of a single send.
type Status int

const (
	StatusOK Status = iota
	StatusNoRecipient
	StatusTransportError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoRecipient:
		return "no_recipient"
	default:
		return "transport_error"
	}
}

type Message struct {
	To      string
	Subject string
	HTML    string
}

// Transport delivers one message. Errors wrapping ErrNoRecipient are
// reported as StatusNoRecipient.
type Transport interface {
	Send(ctx context.Context, from string, msg Message) error
}

// Gateway is the best-effort outbound mail path. It never retries.
type Gateway struct {
	transport Transport
	from      string
	limiter   *rate.Limiter
	logger    zerolog.Logger
}

func NewGateway(cfg config.EmailConfig, logger zerolog.Logger) (*Gateway, error) {
	logger = logger.With().Str("component", "email").Str("provider", cfg.Provider).Logger()

	var transport Transport
	switch cfg.Provider {
	case ProviderSMTP:
		transport = NewSMTPTransport(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	case ProviderResend:
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("resend provider requires an API key")
		}
		transport = NewResendTransport(cfg.ResendAPIKey, logger)
	case ProviderLog, "":
		transport = &LogTransport{logger: logger}
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}

	if cfg.Provider != ProviderLog && cfg.Provider != "" {
		if err := validateEmailAddress(cfg.User); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
	}
	return NewGatewayWithTransport(transport, cfg.User, cfg.SendPerSecond, logger), nil
}

// NewGatewayWithTransport builds a Gateway around an explicit transport.
// perSecond <= 0 disables pacing.
func NewGatewayWithTransport(transport Transport, from string, perSecond float64, logger zerolog.Logger) *Gateway {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Gateway{
		transport: transport,
		from:      from,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
	}
}

// Send delivers msg and classifies the outcome. Failures are logged, not
// returned.
func (g *Gateway) Send(ctx context.Context, msg Message) Status {
	status := g.send(ctx, msg)
	metrics.MailSent.WithLabelValues(status.String()).Inc()
	return status
}

func (g *Gateway) send(ctx context.Context, msg Message) Status {
	log := g.logger.With().Str("to", msg.To).Str("subject", msg.Subject).Logger()

	if err := validateEmailAddress(msg.To); err != nil {
		log.Info().Err(err).Msg("mail recipient rejected before send")
		return StatusNoRecipient
	}
	if err := g.limiter.Wait(ctx); err != nil {
		log.Warn().Err(err).Msg("mail send aborted while waiting for pacing")
		return StatusTransportError
	}

	msg.HTML = sanitize.HTML(msg.HTML)
	if err := g.transport.Send(ctx, g.from, msg); err != nil {
		if errors.Is(err, ErrNoRecipient) {
			log.Info().Err(err).Msg("mail recipient rejected")
			return StatusNoRecipient
		}
		log.Error().Err(err).Msg("mail transport failed")
		return StatusTransportError
	}

	log.Info().Msg("mail sent")
	return StatusOK
}

// SendOrReject sends msg and converts a failure into a BadInput problem.
func (g *Gateway) SendOrReject(ctx context.Context, msg Message) error {
	switch g.Send(ctx, msg) {
	case StatusOK:
		return nil
	case StatusNoRecipient:
		return problem.BadInput("Неверный адрес почты!")
	default:
		return problem.BadInput("Неизвестная ошибка отправки!")
	}
}

// LogTransport only logs outgoing mail. Used in development.
type LogTransport struct {
	logger zerolog.Logger
}

func (t *LogTransport) Send(_ context.Context, from string, msg Message) error {
	t.logger.Info().
		Str("from", from).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("html_bytes", len(msg.HTML)).
		Msg("mail delivery disabled, message logged")
	return nil
}

// validateEmailAddress validates an email address for format and header injection attempts
func validateEmailAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}

	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}

	return nil
}
