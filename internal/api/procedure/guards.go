package procedure

import (
	"context"
	"net/http"

	"github.com/sp-hack/server/internal/api/problem"
	"github.com/sp-hack/server/internal/auth"
	"github.com/sp-hack/server/internal/metrics"
)

// Guard inspects a call and either rejects it or returns the context the
// next step sees.
type Guard func(ctx context.Context, pc Context) (Context, error)

// Limiter is the per-fingerprint request counter behind the rate guard.
type Limiter interface {
	Exceeded(fingerprint string) bool
}

// SessionReader extracts the admin session from a request.
type SessionReader interface {
	FromRequest(r *http.Request, allowDevHeader bool) (auth.Session, bool)
}

// OriginGuard hides procedures from callers that are not the first-party
// frontend. Outside production every caller passes.
func OriginGuard(production bool) Guard {
	return func(_ context.Context, pc Context) (Context, error) {
		if !pc.IsClient && production {
			return pc, problem.NotFound("")
		}
		pc.IsClient = true
		return pc, nil
	}
}

func RateGuard(limiter Limiter) Guard {
	return func(_ context.Context, pc Context) (Context, error) {
		if limiter.Exceeded(pc.Fingerprint) {
			metrics.RateLimitRejections.Inc()
			return pc, problem.TooManyRequests("Слишком много запросов!")
		}
		return pc, nil
	}
}

// AdminGuard requires a valid session. The dev header is honoured only when
// allowDevHeader is set.
func AdminGuard(sessions SessionReader, allowDevHeader bool) Guard {
	return func(_ context.Context, pc Context) (Context, error) {
		session, ok := sessions.FromRequest(pc.Request, allowDevHeader)
		if !ok {
			return pc, problem.Unauthorized(unauthorizedMessage).AsAdminUnauthorized()
		}
		pc.AdminID = session.SubjectID
		pc.AdminCSRF = session.CSRFSecret
		pc.Logger = pc.Logger.With().Str("admin_id", session.SubjectID).Logger()
		return pc, nil
	}
}

// FeatureGateGuard keeps operations unreachable unless allow is set.
func FeatureGateGuard(allow bool) Guard {
	return func(_ context.Context, pc Context) (Context, error) {
		if !allow {
			return pc, problem.NotFound("")
		}
		return pc, nil
	}
}
