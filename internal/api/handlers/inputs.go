package handlers

import (
	"context"

	"github.com/sp-hack/server/internal/captcha"
	"github.com/sp-hack/server/internal/email"
)

// CaptchaVerifier issues and checks captcha challenges.
type CaptchaVerifier interface {
	Issue(ctx context.Context) (captcha.Challenge, error)
	VerifyOrReject(ctx context.Context, random, answer string) error
}

// Mailer delivers notification mail.
type Mailer interface {
	Send(ctx context.Context, msg email.Message) email.Status
	SendOrReject(ctx context.Context, msg email.Message) error
}

func captchaMessages() map[string]string {
	return map[string]string{
		"captchaText.required":  "Текст капчи не введен!",
		"captchaText.type":      "Текст капчи не является текстом!",
		"randomString.required": "Секрет капчи не найден!",
		"randomString.type":     "Секрет капчи не является текстом!",
	}
}

func consentMessages() map[string]string {
	return map[string]string{
		"consentProcessingOfPersonalData.eq":   "Не дано согласие на обработку данных!",
		"consentProcessingOfPersonalData.type": "Не дано согласие на обработку данных!",
	}
}

func emailMessages() map[string]string {
	return map[string]string{
		"email.required": "Email не указан!",
		"email.email":    "Неверный email!",
		"email.type":     "Email не является строкой!",
	}
}

// ByID addresses one stored submission in admin mutations.
type ByID struct {
	ID        *int64  `json:"id" validate:"required,min=0"`
	CsrfToken *string `json:"csrfToken"`
}

func (ByID) ValidationMessages() map[string]string {
	return idMessages()
}

func idMessages() map[string]string {
	return map[string]string{
		"id.required": "Id не введен!",
		"id.min":      "Число должно быть позитивным!",
		"id.type":     "Неверное число!",
	}
}

// Reply is the admin answer to a feedback item or application.
type Reply struct {
	ID        *int64  `json:"id" validate:"required,min=0"`
	Text      *string `json:"text" validate:"required"`
	CsrfToken *string `json:"csrfToken"`
}

func (Reply) ValidationMessages() map[string]string {
	return merge(idMessages(), map[string]string{
		"text.required": "Не введен текст!",
		"text.type":     "Текст не является строкой!",
	})
}

// CSRFOnly is the input of admin mutations without payload.
type CSRFOnly struct {
	CsrfToken *string `json:"csrfToken"`
}

func merge(sets ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, set := range sets {
		for k, v := range set {
			out[k] = v
		}
	}
	return out
}
