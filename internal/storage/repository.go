package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("record not found")

var ErrConflict = errors.New("record conflict")

// Repository groups data access by domain.
type Repository interface {
	Admins() AdminRepository
	Info() InfoRepository
	Feedback() FeedbackRepository
	Applications() ApplicationRepository
	Captcha() CaptchaRepository

	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Ping(ctx context.Context) error
}

type AdminRepository interface {
	Create(ctx context.Context, login, passwordHash string) (Admin, error)
	GetByLogin(ctx context.Context, login string) (Admin, error)
}

// InfoRepository manages the singleton event info row and its schedule.
type InfoRepository interface {
	Get(ctx context.Context) (Info, error)
	Upsert(ctx context.Context, info Info) error
	Update(ctx context.Context, patch InfoPatch) error
	Schedule(ctx context.Context) ([]ScheduleDay, error)
	// ReplaceSchedule drops every existing day and stores days in order.
	ReplaceSchedule(ctx context.Context, days []ScheduleDay) error
}

type FeedbackRepository interface {
	Create(ctx context.Context, params FeedbackCreateParams) (Feedback, error)
	List(ctx context.Context) ([]Feedback, error)
	GetByID(ctx context.Context, id int64) (Feedback, error)
	Delete(ctx context.Context, id int64) error
	MarkAnswered(ctx context.Context, id int64) error
}

type ApplicationRepository interface {
	// Create stores the register and all of its participants atomically.
	Create(ctx context.Context, params RegisterCreateParams) (Register, error)
	List(ctx context.Context) ([]Register, error)
	GetByID(ctx context.Context, id int64) (Register, error)
	Delete(ctx context.Context, id int64) error
	MarkAnswered(ctx context.Context, id int64) error
}

// CaptchaRepository persists issued captcha challenges.
type CaptchaRepository interface {
	Put(ctx context.Context, id string, expiresAt time.Time) error
	// Consume deletes the challenge and reports whether it existed and was
	// still valid at now.
	Consume(ctx context.Context, id string, now time.Time) (bool, error)
	Purge(ctx context.Context, now time.Time) (int64, error)
}
