package procedure

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sp-hack/server/internal/api/middleware"
	"github.com/sp-hack/server/internal/api/problem"
	"github.com/sp-hack/server/internal/auth"
	"github.com/sp-hack/server/internal/storage"
)

const unauthorizedMessage = "Нет авторизации!"

// Context is the per-call state handed to guards and handlers. Guards
// return an extended copy; they never mutate the one they received.
type Context struct {
	RequestID   string
	Fingerprint string
	IsClient    bool
	Store       storage.Repository
	Logger      zerolog.Logger

	Request *http.Request
	Writer  http.ResponseWriter

	// Set by the admin guard.
	AdminID   string
	AdminCSRF string
}

func newContext(w http.ResponseWriter, r *http.Request, store storage.Repository, path string) Context {
	logger := middleware.LoggerFromContext(r.Context()).With().Str("procedure", path).Logger()
	return Context{
		RequestID:   middleware.GetRequestID(r.Context()),
		Fingerprint: middleware.FingerprintFromContext(r.Context()),
		IsClient:    middleware.IsClient(r),
		Store:       store,
		Logger:      logger,
		Request:     r,
		Writer:      w,
	}
}

// CheckCSRF compares the token echoed in a mutating admin request with the
// one embedded in the session.
func (pc Context) CheckCSRF(supplied *string) error {
	var token string
	if supplied != nil {
		token = *supplied
	}
	if err := auth.CheckCSRF(pc.AdminCSRF, token); err != nil {
		if errors.Is(err, auth.ErrCSRFMismatch) {
			return problem.Unauthorized(unauthorizedMessage).WithCause(err)
		}
		return err
	}
	return nil
}
