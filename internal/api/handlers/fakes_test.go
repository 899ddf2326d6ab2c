package handlers

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sp-hack/server/internal/api/problem"
	"github.com/sp-hack/server/internal/api/procedure"
	"github.com/sp-hack/server/internal/captcha"
	"github.com/sp-hack/server/internal/email"
	"github.com/sp-hack/server/internal/storage"
)

const testCSRF = "4f1d7c1e-8a57-4a38-9d0b-2f4f8f0b6c11"

// memoryRepo is an in-memory storage.Repository for handler tests.
type memoryRepo struct {
	mu           sync.Mutex
	admins       map[string]storage.Admin
	info         *storage.Info
	schedule     []storage.ScheduleDay
	feedback     map[int64]storage.Feedback
	registers    map[int64]storage.Register
	nextID       int64
	failSchedule error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		admins:    map[string]storage.Admin{},
		feedback:  map[int64]storage.Feedback{},
		registers: map[int64]storage.Register{},
	}
}

func (m *memoryRepo) Admins() storage.AdminRepository             { return memoryAdmins{m} }
func (m *memoryRepo) Info() storage.InfoRepository                { return memoryInfo{m} }
func (m *memoryRepo) Feedback() storage.FeedbackRepository        { return memoryFeedback{m} }
func (m *memoryRepo) Applications() storage.ApplicationRepository { return memoryApplications{m} }
func (m *memoryRepo) Captcha() storage.CaptchaRepository          { return nil }
func (m *memoryRepo) Ping(context.Context) error                  { return nil }

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, storage.Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) id() int64 {
	m.nextID++
	return m.nextID
}

type memoryAdmins struct{ m *memoryRepo }

func (r memoryAdmins) Create(_ context.Context, login, hash string) (storage.Admin, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.admins[login]; ok {
		return storage.Admin{}, storage.ErrConflict
	}
	admin := storage.Admin{ID: r.m.id(), Login: login, PasswordHash: hash, CreatedAt: time.Now()}
	r.m.admins[login] = admin
	return admin, nil
}

func (r memoryAdmins) GetByLogin(_ context.Context, login string) (storage.Admin, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	admin, ok := r.m.admins[login]
	if !ok {
		return storage.Admin{}, storage.ErrNotFound
	}
	return admin, nil
}

type memoryInfo struct{ m *memoryRepo }

func (r memoryInfo) Get(context.Context) (storage.Info, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.info == nil {
		return storage.Info{}, storage.ErrNotFound
	}
	return *r.m.info, nil
}

func (r memoryInfo) Upsert(_ context.Context, info storage.Info) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.info = &info
	return nil
}

func (r memoryInfo) Update(_ context.Context, patch storage.InfoPatch) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.info == nil {
		return storage.ErrNotFound
	}
	if patch.Address != nil {
		r.m.info.Address = *patch.Address
	}
	if patch.City != nil {
		r.m.info.City = *patch.City
	}
	if patch.Latitude != nil {
		r.m.info.Latitude = *patch.Latitude
	}
	if patch.Longitude != nil {
		r.m.info.Longitude = *patch.Longitude
	}
	if patch.DateStart != nil {
		r.m.info.DateStart = *patch.DateStart
	}
	if patch.DateEnd != nil {
		r.m.info.DateEnd = *patch.DateEnd
	}
	return nil
}

func (r memoryInfo) Schedule(context.Context) ([]storage.ScheduleDay, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.schedule, nil
}

func (r memoryInfo) ReplaceSchedule(_ context.Context, days []storage.ScheduleDay) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failSchedule != nil {
		return r.m.failSchedule
	}
	r.m.schedule = days
	return nil
}

type memoryFeedback struct{ m *memoryRepo }

func (r memoryFeedback) Create(_ context.Context, p storage.FeedbackCreateParams) (storage.Feedback, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	now := time.Now()
	item := storage.Feedback{
		ID: r.m.id(), CreatedAt: now, UpdatedAt: now,
		Fingerprint: p.Fingerprint, Name: p.Name, Email: p.Email,
		CommandName: p.CommandName, Message: p.Message,
	}
	r.m.feedback[item.ID] = item
	return item, nil
}

func (r memoryFeedback) List(context.Context) ([]storage.Feedback, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []storage.Feedback
	for id := int64(1); id <= r.m.nextID; id++ {
		if item, ok := r.m.feedback[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r memoryFeedback) GetByID(_ context.Context, id int64) (storage.Feedback, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	item, ok := r.m.feedback[id]
	if !ok {
		return storage.Feedback{}, storage.ErrNotFound
	}
	return item, nil
}

func (r memoryFeedback) Delete(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.feedback[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.m.feedback, id)
	return nil
}

func (r memoryFeedback) MarkAnswered(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	item, ok := r.m.feedback[id]
	if !ok {
		return storage.ErrNotFound
	}
	item.Answered = true
	r.m.feedback[id] = item
	return nil
}

type memoryApplications struct{ m *memoryRepo }

func (r memoryApplications) Create(_ context.Context, p storage.RegisterCreateParams) (storage.Register, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	now := time.Now()
	reg := storage.Register{
		ID: r.m.id(), CreatedAt: now, UpdatedAt: now,
		Fingerprint: p.Fingerprint, CommandName: p.CommandName, Format: p.Format,
	}
	for _, participant := range p.Participants {
		participant.ID = r.m.id()
		reg.Participants = append(reg.Participants, participant)
	}
	r.m.registers[reg.ID] = reg
	return reg, nil
}

func (r memoryApplications) List(context.Context) ([]storage.Register, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []storage.Register
	for id := int64(1); id <= r.m.nextID; id++ {
		if reg, ok := r.m.registers[id]; ok {
			out = append(out, reg)
		}
	}
	return out, nil
}

func (r memoryApplications) GetByID(_ context.Context, id int64) (storage.Register, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	reg, ok := r.m.registers[id]
	if !ok {
		return storage.Register{}, storage.ErrNotFound
	}
	return reg, nil
}

func (r memoryApplications) Delete(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.registers[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.m.registers, id)
	return nil
}

func (r memoryApplications) MarkAnswered(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	reg, ok := r.m.registers[id]
	if !ok {
		return storage.ErrNotFound
	}
	reg.Answered = true
	r.m.registers[id] = reg
	return nil
}

// stubCaptcha accepts the answer "right" and rejects everything else.
type stubCaptcha struct {
	issued   int
	verified []string
}

func (s *stubCaptcha) Issue(context.Context) (captcha.Challenge, error) {
	s.issued++
	return captcha.Challenge{RandomString: "random", ImageURL: "https://image.example/?random=random"}, nil
}

func (s *stubCaptcha) VerifyOrReject(_ context.Context, random, answer string) error {
	s.verified = append(s.verified, random)
	if answer != "right" {
		return problem.BadInput("Неправильная капча!")
	}
	return nil
}

// recordingMailer returns the configured status per recipient, StatusOK by
// default.
type recordingMailer struct {
	mu       sync.Mutex
	statuses map[string]email.Status
	sent     []email.Message
}

func (r *recordingMailer) Send(_ context.Context, msg email.Message) email.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	if status, ok := r.statuses[msg.To]; ok {
		return status
	}
	return email.StatusOK
}

func (r *recordingMailer) SendOrReject(ctx context.Context, msg email.Message) error {
	switch r.Send(ctx, msg) {
	case email.StatusOK:
		return nil
	case email.StatusNoRecipient:
		return problem.BadInput("Неверный адрес почты!")
	default:
		return problem.BadInput("Неизвестная ошибка отправки!")
	}
}

// adminContext is the context an admin procedure sees after its guards.
func adminContext(repo storage.Repository) (procedure.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return procedure.Context{
		RequestID:   "req-1",
		Fingerprint: "fp",
		IsClient:    true,
		Store:       repo,
		Logger:      zerolog.Nop(),
		Request:     httptest.NewRequest("POST", "/api", nil),
		Writer:      rec,
		AdminID:     "1",
		AdminCSRF:   testCSRF,
	}, rec
}

func publicContext(repo storage.Repository) procedure.Context {
	pc, _ := adminContext(repo)
	pc.AdminID = ""
	pc.AdminCSRF = ""
	return pc
}

func asProblem(err error) *problem.Error {
	var pe *problem.Error
	if errors.As(err, &pe) {
		return pe
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
