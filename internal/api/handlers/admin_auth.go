package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sp-hack/server/internal/api/problem"
	"github.com/sp-hack/server/internal/api/procedure"
	"github.com/sp-hack/server/internal/auth"
	"github.com/sp-hack/server/internal/storage"
)

const invalidCredentialsMessage = "Неверный пользователь или пароль!"

// TokenIssuer signs admin session tokens.
type TokenIssuer interface {
	Issue(subjectID, csrfSecret string, ttl time.Duration) (string, error)
}

// AdminAuthHandler creates admins and opens and closes admin sessions.
type AdminAuthHandler struct {
	tokens      TokenIssuer
	captcha     CaptchaVerifier
	ttl         time.Duration
	development bool
	now         func() time.Time
	verify      func(encoded, password string) (bool, error)
}

// NewAdminAuthHandler builds the handler. In development the login
// response also carries the raw token for use with the dev header.
func NewAdminAuthHandler(tokens TokenIssuer, verifier CaptchaVerifier, ttl time.Duration, development bool) *AdminAuthHandler {
	return &AdminAuthHandler{
		tokens:      tokens,
		captcha:     verifier,
		ttl:         ttl,
		development: development,
		now:         time.Now,
		verify:      auth.VerifyPassword,
	}
}

// Create stores a new admin with generated credentials and returns them in
// clear. Only reachable when the feature gate is open.
func (h *AdminAuthHandler) Create(ctx context.Context, pc procedure.Context, _ struct{}) (auth.Credentials, error) {
	creds, hash, err := auth.NewCredentials()
	if err != nil {
		return auth.Credentials{}, fmt.Errorf("generate admin credentials: %w", err)
	}
	admin, err := pc.Store.Admins().Create(ctx, creds.Login, hash)
	if err != nil {
		return auth.Credentials{}, fmt.Errorf("create admin: %w", err)
	}
	pc.Logger.Info().Int64("admin_id", admin.ID).Msg("admin created")
	return creds, nil
}

type LoginInput struct {
	Login        string `json:"login" validate:"required"`
	Password     string `json:"password" validate:"required"`
	CaptchaText  string `json:"captchaText" validate:"required"`
	RandomString string `json:"randomString" validate:"required"`
}

func (LoginInput) ValidationMessages() map[string]string {
	return merge(captchaMessages(), map[string]string{
		"password.required": "Пароль не указан!",
		"password.type":     "Пароль не является строкой!",
		"login.required":    "Логин не указан!",
		"login.type":        "Логин не является строкой!",
	})
}

type LoginOutput struct {
	CsrfToken string `json:"csrfToken"`
	Token     string `json:"token,omitempty"`
}

func (h *AdminAuthHandler) Login(ctx context.Context, pc procedure.Context, in LoginInput) (LoginOutput, error) {
	if err := h.captcha.VerifyOrReject(ctx, in.RandomString, in.CaptchaText); err != nil {
		return LoginOutput{}, err
	}

	admin, err := pc.Store.Admins().GetByLogin(ctx, in.Login)
	if errors.Is(err, storage.ErrNotFound) {
		// Unknown logins pay the same argon2id cost as known ones.
		_, _ = h.verify(auth.DummyHash, in.Password)
		return LoginOutput{}, problem.BadInput(invalidCredentialsMessage)
	}
	if err != nil {
		return LoginOutput{}, fmt.Errorf("load admin: %w", err)
	}

	ok, err := h.verify(admin.PasswordHash, in.Password)
	if err != nil {
		return LoginOutput{}, fmt.Errorf("verify admin password: %w", err)
	}
	if !ok {
		pc.Logger.Info().Str("login", in.Login).Msg("admin login rejected")
		return LoginOutput{}, problem.BadInput(invalidCredentialsMessage)
	}

	csrf := uuid.NewString()
	token, err := h.tokens.Issue(strconv.FormatInt(admin.ID, 10), csrf, h.ttl)
	if err != nil {
		return LoginOutput{}, fmt.Errorf("issue session token: %w", err)
	}
	http.SetCookie(pc.Writer, auth.SessionCookie(token, h.now()))

	out := LoginOutput{CsrfToken: csrf}
	if h.development {
		out.Token = token
	}
	return out, nil
}

func (h *AdminAuthHandler) Logout(_ context.Context, pc procedure.Context, in CSRFOnly) (procedure.Void, error) {
	if err := pc.CheckCSRF(in.CsrfToken); err != nil {
		return nil, err
	}
	http.SetCookie(pc.Writer, auth.ClearSessionCookie())
	return nil, nil
}
