// Package seed fills an empty database with the event of the 2023 edition
// and a first admin account.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sp-hack/server/internal/auth"
	"github.com/sp-hack/server/internal/storage"
)

type section struct {
	hour, minute int
	name         string
}

var program = map[int][]section{
	3: {
		{9, 0, "Регистрация участников"},
		{10, 0, "Открытие хакатона, приветствие организаторов"},
		{10, 30, "Представление технических заданий и правил хакатона"},
		{11, 0, "Командообразование и начало работы"},
		{13, 0, "Обед"},
		{14, 0, "Менторская поддержка и консультации"},
	},
	4: {
		{9, 0, "Завтрак и продолжение работы"},
		{10, 0, "Мастер-классы и технические лекции"},
		{12, 0, "Обед"},
		{13, 0, "Продолжение работы и менторская поддержка"},
		{19, 0, "Ужин и неформальное общение"},
	},
	5: {
		{9, 0, "Завтрак и продолжение работы"},
		{11, 0, "Подготовка презентаций и финальных проектов"},
		{13, 0, "Обед"},
		{15, 0, "Подготовка к питч-сессии и оформление презентаций"},
		{16, 0, "Питч-сессия технических кейсов"},
		{17, 30, "Заключительное слово и награждение победителей"},
		{18, 0, "Фотографирование и торжественное закрытие хакатона"},
	},
}

// Info returns the event location and dates.
func Info(loc *time.Location) storage.Info {
	return storage.Info{
		Address:   "Площадь Гагарина, 1 к7",
		City:      "Ростов-на-Дону",
		Latitude:  47.2383,
		Longitude: 39.71168,
		DateStart: time.Date(2023, time.September, 3, 0, 0, 0, 0, loc),
		DateEnd:   time.Date(2023, time.September, 5, 0, 0, 0, 0, loc),
	}
}

// Schedule returns the three event days with their sections.
func Schedule(loc *time.Location) []storage.ScheduleDay {
	days := make([]storage.ScheduleDay, 0, len(program))
	for _, date := range []int{3, 4, 5} {
		day := time.Date(2023, time.September, date, 0, 0, 0, 0, loc)
		sd := storage.ScheduleDay{ID: ulid.Make().String(), Day: day}
		for _, s := range program[date] {
			sd.Sections = append(sd.Sections, storage.ScheduleSection{
				ID:   ulid.Make().String(),
				Name: s.name,
				Time: time.Date(2023, time.September, date, s.hour, s.minute, 0, 0, loc),
			})
		}
		days = append(days, sd)
	}
	return days
}

// Run writes the info, the schedule and a new admin in one transaction and
// returns the admin's credentials.
func Run(ctx context.Context, repo storage.Repository, loc *time.Location) (auth.Credentials, error) {
	creds, hash, err := auth.NewCredentials()
	if err != nil {
		return auth.Credentials{}, err
	}

	err = repo.WithTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		if err := tx.Info().Upsert(ctx, Info(loc)); err != nil {
			return fmt.Errorf("seed info: %w", err)
		}
		if err := tx.Info().ReplaceSchedule(ctx, Schedule(loc)); err != nil {
			return fmt.Errorf("seed schedule: %w", err)
		}
		if _, err := tx.Admins().Create(ctx, creds.Login, hash); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		return nil
	})
	if err != nil {
		return auth.Credentials{}, err
	}
	return creds, nil
}
