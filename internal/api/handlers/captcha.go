package handlers

import (
	"context"
	"fmt"

	"github.com/sp-hack/server/internal/api/procedure"
	"github.com/sp-hack/server/internal/captcha"
)

type CaptchaHandler struct {
	captcha CaptchaVerifier
}

func NewCaptchaHandler(verifier CaptchaVerifier) *CaptchaHandler {
	return &CaptchaHandler{captcha: verifier}
}

// Get issues a fresh challenge for the next form submission.
func (h *CaptchaHandler) Get(ctx context.Context, _ procedure.Context) (captcha.Challenge, error) {
	challenge, err := h.captcha.Issue(ctx)
	if err != nil {
		return captcha.Challenge{}, fmt.Errorf("issue captcha: %w", err)
	}
	return challenge, nil
}
