package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/sp-hack/server/internal/api/problem"
	"github.com/sp-hack/server/internal/api/procedure"
	"github.com/sp-hack/server/internal/email"
	"github.com/sp-hack/server/internal/metrics"
	"github.com/sp-hack/server/internal/storage"
)

// FeedbackHandler takes questions from visitors and lets admins answer them.
type FeedbackHandler struct {
	captcha CaptchaVerifier
	mail    Mailer
}

func NewFeedbackHandler(verifier CaptchaVerifier, mail Mailer) *FeedbackHandler {
	return &FeedbackHandler{captcha: verifier, mail: mail}
}

type FeedbackInput struct {
	Name         string  `json:"name" validate:"required,min=3,max=40"`
	CommandName  *string `json:"commandName" validate:"omitnil,min=3,max=70"`
	Message      *string `json:"message" validate:"required,max=2015"`
	Email        string  `json:"email" validate:"required,email"`
	CaptchaText  string  `json:"captchaText" validate:"required"`
	RandomString string  `json:"randomString" validate:"required"`
	Consent      bool    `json:"consentProcessingOfPersonalData" validate:"eq=true"`
}

func (FeedbackInput) ValidationMessages() map[string]string {
	return merge(captchaMessages(), consentMessages(), emailMessages(), map[string]string{
		"name.required":    "Имя не указано!",
		"name.min":         "Имя слишком короткое!",
		"name.max":         "Имя слишком длинное!",
		"name.type":        "Имя не является строкой!",
		"commandName.min":  "Название слишком короткое!",
		"commandName.max":  "Название слишком длинное!",
		"commandName.type": "Название не является строкой!",
		"message.required": "Сообщение не указано!",
		"message.max":      "Сообщение слишком длинное!",
		"message.type":     "Сообщение не является строкой!",
	})
}

func (h *FeedbackHandler) Create(ctx context.Context, pc procedure.Context, in FeedbackInput) (procedure.Void, error) {
	if err := h.captcha.VerifyOrReject(ctx, in.RandomString, in.CaptchaText); err != nil {
		return nil, err
	}

	item, err := pc.Store.Feedback().Create(ctx, storage.FeedbackCreateParams{
		Fingerprint: pc.Fingerprint,
		Name:        in.Name,
		Email:       in.Email,
		CommandName: in.CommandName,
		Message:     *in.Message,
	})
	if err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}
	metrics.Submissions.WithLabelValues("feedback").Inc()
	pc.Logger.Info().Int64("feedback_id", item.ID).Msg("feedback received")
	return nil, nil
}

type FeedbackList struct {
	Feedback []storage.Feedback `json:"feedback"`
	Count    int                `json:"count"`
}

func (h *FeedbackHandler) List(ctx context.Context, pc procedure.Context) (FeedbackList, error) {
	items, err := pc.Store.Feedback().List(ctx)
	if err != nil {
		return FeedbackList{}, fmt.Errorf("list feedback: %w", err)
	}
	if items == nil {
		items = []storage.Feedback{}
	}
	return FeedbackList{Feedback: items, Count: len(items)}, nil
}

func (h *FeedbackHandler) DeleteByID(ctx context.Context, pc procedure.Context, in ByID) (procedure.Void, error) {
	if err := pc.CheckCSRF(in.CsrfToken); err != nil {
		return nil, err
	}
	err := pc.Store.Feedback().Delete(ctx, *in.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, problem.NotFound("Вопрос не найден!").WithCause(err)
	}
	if err != nil {
		return nil, fmt.Errorf("delete feedback: %w", err)
	}
	return nil, nil
}

// Reply mails text to the author of the feedback item and marks it
// answered. Nothing is marked when delivery fails.
func (h *FeedbackHandler) Reply(ctx context.Context, pc procedure.Context, in Reply) (procedure.Void, error) {
	if err := pc.CheckCSRF(in.CsrfToken); err != nil {
		return nil, err
	}

	item, err := pc.Store.Feedback().GetByID(ctx, *in.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, problem.NotFound("Вопрос не найден!").WithCause(err)
	}
	if err != nil {
		return nil, fmt.Errorf("load feedback: %w", err)
	}

	if err := h.mail.SendOrReject(ctx, email.Message{
		To:      item.Email,
		Subject: "Ответ на вопрос",
		HTML:    *in.Text,
	}); err != nil {
		return nil, err
	}

	if err := pc.Store.Feedback().MarkAnswered(ctx, item.ID); err != nil {
		return nil, fmt.Errorf("mark feedback answered: %w", err)
	}
	return nil, nil
}
