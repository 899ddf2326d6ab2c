package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sp-hack/server/internal/api/problem"
	"github.com/sp-hack/server/internal/api/procedure"
	"github.com/sp-hack/server/internal/email"
	"github.com/sp-hack/server/internal/metrics"
	"github.com/sp-hack/server/internal/storage"
)

// ApplicationsHandler accepts team registrations for the hackathon.
type ApplicationsHandler struct {
	captcha CaptchaVerifier
	mail    Mailer
}

func NewApplicationsHandler(verifier CaptchaVerifier, mail Mailer) *ApplicationsHandler {
	return &ApplicationsHandler{captcha: verifier, mail: mail}
}

type ApplicationInput struct {
	CommandName  string             `json:"commandName" validate:"required,min=3,max=70"`
	Format       string             `json:"format" validate:"required,oneof=online offline онлайн оффлайн"`
	Participants []ParticipantInput `json:"participants" validate:"required,min=2,max=6,dive"`
	CaptchaText  string             `json:"captchaText" validate:"required"`
	RandomString string             `json:"randomString" validate:"required"`
	Consent      bool               `json:"consentProcessingOfPersonalData" validate:"eq=true"`
}

type ParticipantInput struct {
	FirstName      string    `json:"firstName" validate:"required,min=3,max=30"`
	LastName       string    `json:"lastName" validate:"required,min=3,max=30"`
	MiddleName     *string   `json:"middleName" validate:"omitnil,min=3,max=30"`
	Organization   string    `json:"organization" validate:"required,min=3,max=200"`
	DateOfBirth    time.Time `json:"dateOfBirth" validate:"required,minage=12,maxage=35"`
	Email          string    `json:"email" validate:"required,email"`
	PhoneNumber    string    `json:"phoneNumber" validate:"required,min=4,max=25"`
	Specialization string    `json:"specialization" validate:"required,oneof=frontend backend devops techlead uxui"`
	Stack          string    `json:"stack" validate:"required,min=3,max=2015"`
}

func (ApplicationInput) ValidationMessages() map[string]string {
	const formatMessage = `Ожидалось "онлайн" или "оффлайн"!`
	const specializationMessage = `Ожидалось "frontend", "backend", "devops", "techlead" или "uxui"!`
	return merge(captchaMessages(), consentMessages(), emailMessages(), map[string]string{
		"commandName.required":    "Название не указано!",
		"commandName.min":         "Название слишком короткое!",
		"commandName.max":         "Название слишком длинное!",
		"commandName.type":        "Название не является строкой!",
		"format.required":         formatMessage,
		"format.oneof":            formatMessage,
		"format.type":             formatMessage,
		"participants.required":   "Список не указан!",
		"participants.min":        "Слишком мало участников!",
		"participants.max":        "Слишком много участников!",
		"participants.type":       "Неверный список!",
		"firstName.required":      "Имя не указано!",
		"firstName.min":           "Имя слишком короткое!",
		"firstName.max":           "Имя слишком длинное!",
		"firstName.type":          "Имя не является строкой!",
		"lastName.required":       "Фамилия не указана!",
		"lastName.min":            "Фамилия слишком короткая!",
		"lastName.max":            "Фамилия слишком длинная!",
		"lastName.type":           "Фамилия не является строкой!",
		"middleName.min":          "Отчество слишком короткое!",
		"middleName.max":          "Отчество слишком длинное!",
		"middleName.type":         "Отчество не является строкой!",
		"organization.required":   "организация не указана!",
		"organization.min":        "Название организации слишком короткое!",
		"organization.max":        "Название организации слишком длинное!",
		"organization.type":       "Организация не является строкой!",
		"dateOfBirth.required":    "Дата не указана!",
		"dateOfBirth.minage":      "Возраст слишком большой!",
		"dateOfBirth.maxage":      "Возраст слишком маленький!",
		"dateOfBirth.type":        "Неверная дата!",
		"phoneNumber.required":    "Телефон не указан!",
		"phoneNumber.min":         "Телефон слишком короткий!",
		"phoneNumber.max":         "Телефон слишком длинный!",
		"phoneNumber.type":        "Неверный телефон!",
		"specialization.required": specializationMessage,
		"specialization.oneof":    specializationMessage,
		"specialization.type":     specializationMessage,
		"stack.required":          "Стек не указан!",
		"stack.min":               "Описание стека слишком короткое!",
		"stack.max":               "Описание стека слишком длинное!",
		"stack.type":              "Стек не является строкой!",
	})
}

// normalizeFormat maps the Russian spellings onto the stored values.
func normalizeFormat(format string) string {
	if format == storage.FormatOnline || format == "онлайн" {
		return storage.FormatOnline
	}
	return storage.FormatOffline
}

func (h *ApplicationsHandler) Create(ctx context.Context, pc procedure.Context, in ApplicationInput) (procedure.Void, error) {
	if err := h.captcha.VerifyOrReject(ctx, in.RandomString, in.CaptchaText); err != nil {
		return nil, err
	}

	participants := make([]storage.Participant, 0, len(in.Participants))
	for _, p := range in.Participants {
		participants = append(participants, storage.Participant{
			FirstName:      p.FirstName,
			LastName:       p.LastName,
			MiddleName:     p.MiddleName,
			Organization:   p.Organization,
			DateOfBirth:    p.DateOfBirth,
			Email:          p.Email,
			PhoneNumber:    p.PhoneNumber,
			Specialization: p.Specialization,
			Stack:          p.Stack,
		})
	}

	register, err := pc.Store.Applications().Create(ctx, storage.RegisterCreateParams{
		Fingerprint:  pc.Fingerprint,
		CommandName:  in.CommandName,
		Format:       normalizeFormat(in.Format),
		Participants: participants,
	})
	if err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}
	metrics.Submissions.WithLabelValues("application").Inc()
	pc.Logger.Info().
		Int64("register_id", register.ID).
		Int("participants", len(participants)).
		Msg("application received")
	return nil, nil
}

type ApplicationList struct {
	Registered []storage.Register `json:"registered"`
	Count      int                `json:"count"`
}

func (h *ApplicationsHandler) List(ctx context.Context, pc procedure.Context) (ApplicationList, error) {
	registers, err := pc.Store.Applications().List(ctx)
	if err != nil {
		return ApplicationList{}, fmt.Errorf("list applications: %w", err)
	}
	if registers == nil {
		registers = []storage.Register{}
	}
	return ApplicationList{Registered: registers, Count: len(registers)}, nil
}

func (h *ApplicationsHandler) DeleteByID(ctx context.Context, pc procedure.Context, in ByID) (procedure.Void, error) {
	if err := pc.CheckCSRF(in.CsrfToken); err != nil {
		return nil, err
	}
	err := pc.Store.Applications().Delete(ctx, *in.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, problem.NotFound("Запись не найдена!").WithCause(err)
	}
	if err != nil {
		return nil, fmt.Errorf("delete application: %w", err)
	}
	return nil, nil
}

type ReplyOutput struct {
	UnsuccessfulEmails []string `json:"unsuccessfulEmails"`
}

// Reply mails text to every participant of the application. It fails only
// when no participant could be reached; partial failures are reported.
func (h *ApplicationsHandler) Reply(ctx context.Context, pc procedure.Context, in Reply) (ReplyOutput, error) {
	if err := pc.CheckCSRF(in.CsrfToken); err != nil {
		return ReplyOutput{}, err
	}

	register, err := pc.Store.Applications().GetByID(ctx, *in.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return ReplyOutput{}, problem.NotFound("Запись не найдена!").WithCause(err)
	}
	if err != nil {
		return ReplyOutput{}, fmt.Errorf("load application: %w", err)
	}

	out := ReplyOutput{UnsuccessfulEmails: []string{}}
	for _, participant := range register.Participants {
		status := h.mail.Send(ctx, email.Message{
			To:      participant.Email,
			Subject: "Участие в хакатоне",
			HTML:    *in.Text,
		})
		if status != email.StatusOK {
			out.UnsuccessfulEmails = append(out.UnsuccessfulEmails, participant.Email)
		}
	}
	if len(out.UnsuccessfulEmails) == len(register.Participants) {
		return ReplyOutput{}, problem.BadInput("Не удалось отправить email ни одному из списка!")
	}

	if err := pc.Store.Applications().MarkAnswered(ctx, register.ID); err != nil {
		return ReplyOutput{}, fmt.Errorf("mark application answered: %w", err)
	}
	return out, nil
}
