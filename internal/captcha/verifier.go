package captcha

import (
	"context"
	"fmt"
	"time"

	"github.com/sp-hack/server/internal/api/problem"
	"github.com/sp-hack/server/internal/metrics"
)

const DefaultTTL = time.Hour

// DevAnswer is accepted for any challenge when the bypass is enabled.
const DevAnswer = "ok"

type Challenge struct {
	RandomString string `json:"randomString"`
	ImageURL     string `json:"imageUrl"`
	AudioURL     string `json:"audioUrl"`
}

// Provider creates challenges and checks answers for them.
type Provider interface {
	NewChallenge() (Challenge, error)
	Matches(random, answer string) bool
}

type Result int

const (
	ResultOK Result = iota
	ResultExpired
	ResultWrong
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultExpired:
		return "expired"
	case ResultWrong:
		return "wrong"
	default:
		return "unknown"
	}
}

type Verifier struct {
	provider  Provider
	store     ChallengeStore
	ttl       time.Duration
	devBypass bool
	now       func() time.Time
}

// NewVerifier builds a Verifier. devBypass enables DevAnswer and must only
// be set in development.
func NewVerifier(provider Provider, store ChallengeStore, ttl time.Duration, devBypass bool) *Verifier {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Verifier{
		provider:  provider,
		store:     store,
		ttl:       ttl,
		devBypass: devBypass,
		now:       time.Now,
	}
}

func (v *Verifier) Issue(ctx context.Context) (Challenge, error) {
	c, err := v.provider.NewChallenge()
	if err != nil {
		return Challenge{}, fmt.Errorf("new captcha challenge: %w", err)
	}
	if err := v.store.Put(ctx, c.RandomString, v.now().Add(v.ttl)); err != nil {
		return Challenge{}, fmt.Errorf("store captcha challenge: %w", err)
	}
	return c, nil
}

// Verify checks answer against the challenge identified by random. The
// challenge is consumed whatever the outcome.
func (v *Verifier) Verify(ctx context.Context, random, answer string) (Result, error) {
	if v.devBypass && answer == DevAnswer {
		metrics.CaptchaVerifications.WithLabelValues(ResultOK.String()).Inc()
		return ResultOK, nil
	}

	valid, err := v.store.Consume(ctx, random, v.now())
	if err != nil {
		return ResultExpired, fmt.Errorf("consume captcha challenge: %w", err)
	}

	result := ResultOK
	switch {
	case !valid:
		result = ResultExpired
	case !v.provider.Matches(random, answer):
		result = ResultWrong
	}
	metrics.CaptchaVerifications.WithLabelValues(result.String()).Inc()
	return result, nil
}

// VerifyOrReject returns nil for a correct answer and a BadInput problem
// otherwise.
func (v *Verifier) VerifyOrReject(ctx context.Context, random, answer string) error {
	result, err := v.Verify(ctx, random, answer)
	if err != nil {
		return problem.Internal(err)
	}
	switch result {
	case ResultExpired:
		return problem.BadInput("Капча устарела или уже была использована!")
	case ResultWrong:
		return problem.BadInput("Неправильная капча!")
	}
	return nil
}
