package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp-hack/server/internal/storage"
)

func seedInfo(t *testing.T, ctx context.Context, repo *Repository) storage.Info {
	t.Helper()
	info := storage.Info{
		Address:   "Площадь Гагарина, 1 к7",
		City:      "Ростов-на-Дону",
		Latitude:  47.2383,
		Longitude: 39.71168,
		DateStart: time.Date(2023, 9, 3, 6, 0, 0, 0, time.UTC),
		DateEnd:   time.Date(2023, 9, 5, 6, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Info().Upsert(ctx, info))
	return info
}

func TestAdminRepository(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)

	created, err := repo.Admins().Create(ctx, "admin-login", "$argon2id$hash")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	got, err := repo.Admins().GetByLogin(ctx, "admin-login")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "$argon2id$hash", got.PasswordHash)

	_, err = repo.Admins().Create(ctx, "admin-login", "other")
	assert.ErrorIs(t, err, storage.ErrConflict)

	_, err = repo.Admins().GetByLogin(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestInfoRepository_GetAndPatch(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)

	_, err := repo.Info().Get(ctx)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.ErrorIs(t, repo.Info().Update(ctx, storage.InfoPatch{City: strPtr("Москва")}), storage.ErrNotFound)

	seeded := seedInfo(t, ctx, repo)

	lat := 55.75
	require.NoError(t, repo.Info().Update(ctx, storage.InfoPatch{City: strPtr("Москва"), Latitude: &lat}))
	require.NoError(t, repo.Info().Update(ctx, storage.InfoPatch{}))

	got, err := repo.Info().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Москва", got.City)
	assert.Equal(t, 55.75, got.Latitude)
	assert.Equal(t, seeded.Address, got.Address)
	assert.Equal(t, seeded.Longitude, got.Longitude)
	assert.True(t, seeded.DateStart.Equal(got.DateStart))
}

func TestInfoRepository_ReplaceSchedule(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)
	seedInfo(t, ctx, repo)

	day := func(d int, hours ...int) storage.ScheduleDay {
		out := storage.ScheduleDay{ID: ulid.Make().String(), Day: time.Date(2023, 9, d, 0, 0, 0, 0, time.UTC)}
		for _, h := range hours {
			out.Sections = append(out.Sections, storage.ScheduleSection{
				ID:   ulid.Make().String(),
				Name: "section",
				Time: time.Date(2023, 9, d, h, 0, 0, 0, time.UTC),
			})
		}
		return out
	}

	require.NoError(t, repo.Info().ReplaceSchedule(ctx, []storage.ScheduleDay{day(3, 9, 10), day(4, 9, 12, 13)}))
	require.NoError(t, repo.Info().ReplaceSchedule(ctx, []storage.ScheduleDay{day(5, 9, 11)}))

	days, err := repo.Info().Schedule(ctx)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, 5, days[0].Day.UTC().Day())
	require.Len(t, days[0].Sections, 2)
	assert.Equal(t, 9, days[0].Sections[0].Time.UTC().Hour())
	assert.Equal(t, 11, days[0].Sections[1].Time.UTC().Hour())
}

func TestInfoRepository_ReplaceScheduleRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)
	seedInfo(t, ctx, repo)

	first := storage.ScheduleDay{
		ID:  ulid.Make().String(),
		Day: time.Date(2023, 9, 3, 0, 0, 0, 0, time.UTC),
		Sections: []storage.ScheduleSection{
			{ID: "dup", Name: "a", Time: time.Date(2023, 9, 3, 9, 0, 0, 0, time.UTC)},
		},
	}
	require.NoError(t, repo.Info().ReplaceSchedule(ctx, []storage.ScheduleDay{first}))

	broken := storage.ScheduleDay{
		ID:  ulid.Make().String(),
		Day: time.Date(2023, 9, 4, 0, 0, 0, 0, time.UTC),
		Sections: []storage.ScheduleSection{
			{ID: "same", Name: "a", Time: time.Date(2023, 9, 4, 9, 0, 0, 0, time.UTC)},
			{ID: "same", Name: "b", Time: time.Date(2023, 9, 4, 10, 0, 0, 0, time.UTC)},
		},
	}
	require.Error(t, repo.Info().ReplaceSchedule(ctx, []storage.ScheduleDay{broken}))

	days, err := repo.Info().Schedule(ctx)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, first.ID, days[0].ID)
}

func TestFeedbackRepository(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)

	created, err := repo.Feedback().Create(ctx, storage.FeedbackCreateParams{
		Fingerprint: "fp",
		Name:        "Анна",
		Email:       "anna@example.com",
		Message:     "Когда начало?",
	})
	require.NoError(t, err)
	assert.False(t, created.Answered)
	assert.Nil(t, created.CommandName)

	_, err = repo.Feedback().Create(ctx, storage.FeedbackCreateParams{
		Fingerprint: "fp",
		Name:        "Иван",
		Email:       "ivan@example.com",
		CommandName: strPtr("Ракета"),
		Message:     "",
	})
	require.NoError(t, err)

	list, err := repo.Feedback().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ракета", *list[1].CommandName)

	require.NoError(t, repo.Feedback().MarkAnswered(ctx, created.ID))
	got, err := repo.Feedback().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Answered)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	require.NoError(t, repo.Feedback().Delete(ctx, created.ID))
	assert.ErrorIs(t, repo.Feedback().Delete(ctx, created.ID), storage.ErrNotFound)
	_, err = repo.Feedback().GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, repo.Feedback().MarkAnswered(ctx, 999), storage.ErrNotFound)
}

func participant(email string) storage.Participant {
	return storage.Participant{
		FirstName:      "Иван",
		LastName:       "Иванов",
		Organization:   "ДГТУ",
		DateOfBirth:    time.Date(2001, 2, 3, 0, 0, 0, 0, time.UTC),
		Email:          email,
		PhoneNumber:    "+79990000000",
		Specialization: "backend",
		Stack:          "Go, PostgreSQL",
	}
}

func TestApplicationRepository(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)

	created, err := repo.Applications().Create(ctx, storage.RegisterCreateParams{
		Fingerprint:  "fp",
		CommandName:  "Ракета",
		Format:       storage.FormatOnline,
		Participants: []storage.Participant{participant("a@example.com"), participant("b@example.com")},
	})
	require.NoError(t, err)
	require.Len(t, created.Participants, 2)
	assert.NotZero(t, created.Participants[0].ID)

	_, err = repo.Applications().Create(ctx, storage.RegisterCreateParams{
		Fingerprint:  "fp",
		CommandName:  "Комета",
		Format:       storage.FormatOffline,
		Participants: []storage.Participant{participant("c@example.com"), participant("d@example.com"), participant("e@example.com")},
	})
	require.NoError(t, err)

	list, err := repo.Applications().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Len(t, list[0].Participants, 2)
	assert.Len(t, list[1].Participants, 3)
	assert.Equal(t, "c@example.com", list[1].Participants[0].Email)

	require.NoError(t, repo.Applications().MarkAnswered(ctx, created.ID))
	got, err := repo.Applications().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Answered)
	assert.Len(t, got.Participants, 2)

	require.NoError(t, repo.Applications().Delete(ctx, created.ID))
	_, err = repo.Applications().GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestApplicationRepository_CreateIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)

	bad := participant("b@example.com")
	bad.Specialization = "manager"

	_, err := repo.Applications().Create(ctx, storage.RegisterCreateParams{
		Fingerprint:  "fp",
		CommandName:  "Ракета",
		Format:       storage.FormatOnline,
		Participants: []storage.Participant{participant("a@example.com"), bad},
	})
	require.Error(t, err)

	list, err := repo.Applications().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)
	sentinel := errors.New("stop")

	err := repo.WithTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		if _, err := tx.Admins().Create(ctx, "tx-admin", "hash"); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = repo.Admins().GetByLogin(ctx, "tx-admin")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCaptchaRepository_ConsumeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)
	now := time.Now()

	require.NoError(t, repo.Captcha().Put(ctx, "challenge", now.Add(time.Hour)))
	require.NoError(t, repo.Captcha().Put(ctx, "stale", now.Add(-time.Minute)))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Captcha().Consume(ctx, "challenge", now)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, success)

	ok, err := repo.Captcha().Consume(ctx, "stale", now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Captcha().Consume(ctx, "unknown", now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCaptchaRepository_Purge(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)
	now := time.Now()

	require.NoError(t, repo.Captcha().Put(ctx, "old", now.Add(-time.Minute)))
	require.NoError(t, repo.Captcha().Put(ctx, "fresh", now.Add(time.Hour)))

	n, err := repo.Captcha().Purge(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ok, err := repo.Captcha().Consume(ctx, "fresh", now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRepository_PingAndSchemaVersion(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)

	require.NoError(t, repo.Ping(ctx))

	version, dirty, err := repo.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, version, int64(1))
	assert.False(t, dirty)
}
