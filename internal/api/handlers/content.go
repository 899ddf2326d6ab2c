package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sp-hack/server/internal/api/problem"
	"github.com/sp-hack/server/internal/api/procedure"
	"github.com/sp-hack/server/internal/storage"
)

// ContentHandler edits the event info and schedule from the admin panel.
type ContentHandler struct {
	location *time.Location
}

func NewContentHandler(location *time.Location) *ContentHandler {
	if location == nil {
		location = time.UTC
	}
	return &ContentHandler{location: location}
}

type ChangeCommonInput struct {
	Address   *string    `json:"address" validate:"omitnil,min=5,max=50"`
	City      *string    `json:"city" validate:"omitnil,min=3,max=50"`
	DateStart *time.Time `json:"dateStart"`
	DateEnd   *time.Time `json:"dateEnd"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	CsrfToken *string    `json:"csrfToken"`
}

func (ChangeCommonInput) ValidationMessages() map[string]string {
	return map[string]string{
		"address.min":    "Адрес слишком короткий!",
		"address.max":    "Адрес слишком длинный!",
		"address.type":   "Адрес не является строкой!",
		"city.min":       "Город слишком короткий!",
		"city.max":       "Город слишком длинный!",
		"city.type":      "Город не является строкой!",
		"dateStart.type": "Неверная дата!",
		"dateEnd.type":   "Неверная дата!",
		"latitude.type":  "Неверная широта!",
		"longitude.type": "Неверная долгота!",
	}
}

// ChangeCommon applies a partial update to the event info.
func (h *ContentHandler) ChangeCommon(ctx context.Context, pc procedure.Context, in ChangeCommonInput) (procedure.Void, error) {
	if err := pc.CheckCSRF(in.CsrfToken); err != nil {
		return nil, err
	}
	patch := storage.InfoPatch{
		Address:   in.Address,
		City:      in.City,
		DateStart: in.DateStart,
		DateEnd:   in.DateEnd,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
	}
	if patch.Empty() {
		return nil, nil
	}
	if err := pc.Store.Info().Update(ctx, patch); err != nil {
		return nil, fmt.Errorf("update info: %w", err)
	}
	return nil, nil
}

type ChangeScheduleInput struct {
	Days      []ScheduleDayInput `json:"days" validate:"required,min=1,max=20,dive"`
	CsrfToken *string            `json:"csrfToken"`
}

type ScheduleDayInput struct {
	Sections []ScheduleSectionInput `json:"sections" validate:"required,min=2,max=65,dive"`
}

type ScheduleSectionInput struct {
	Time time.Time `json:"time" validate:"required"`
	Name *string   `json:"name" validate:"required"`
}

func (ChangeScheduleInput) ValidationMessages() map[string]string {
	return map[string]string{
		"days.required":     "Дни не введены!",
		"days.type":         "Дни сформированы неверно!",
		"days.min":          "Должен быть хотя бы один день!",
		"days.max":          "Слишком много дней!",
		"sections.required": "Секции дня не введены!",
		"sections.type":     "Секции дня сформированы неверно!",
		"sections.min":      "Должно быть хотя бы 2 секции!",
		"sections.max":      "Слишком много секций!",
		"time.required":     "Время не введено!",
		"time.type":         "Неверное время!",
		"name.required":     "Описание не введено!",
		"name.type":         "Описание должно быть строкой!",
	}
}

// ChangeSchedule replaces the whole schedule. Section times must increase
// strictly across all days, and every section of a day must fall on the
// calendar date of its first section in the event timezone.
func (h *ContentHandler) ChangeSchedule(ctx context.Context, pc procedure.Context, in ChangeScheduleInput) (procedure.Void, error) {
	if err := pc.CheckCSRF(in.CsrfToken); err != nil {
		return nil, err
	}

	var prev time.Time
	for i, day := range in.Days {
		for j, section := range day.Sections {
			if (i > 0 || j > 0) && !section.Time.After(prev) {
				return nil, problem.BadInput("Дни идут не по порядку!")
			}
			prev = section.Time
		}
	}

	days := make([]storage.ScheduleDay, 0, len(in.Days))
	for _, day := range in.Days {
		first := day.Sections[0].Time.In(h.location)
		y, m, d := first.Date()
		dayStart := time.Date(y, m, d, 0, 0, 0, 0, h.location)

		sections := make([]storage.ScheduleSection, 0, len(day.Sections))
		for _, section := range day.Sections {
			sy, sm, sd := section.Time.In(h.location).Date()
			if sy != y || sm != m || sd != d {
				return nil, problem.BadInput("Неправильные дни в секции!")
			}
			sections = append(sections, storage.ScheduleSection{
				ID:   ulid.Make().String(),
				Name: *section.Name,
				Time: section.Time,
			})
		}
		days = append(days, storage.ScheduleDay{
			ID:       ulid.Make().String(),
			Day:      dayStart,
			Sections: sections,
		})
	}

	if err := pc.Store.Info().ReplaceSchedule(ctx, days); err != nil {
		return nil, fmt.Errorf("replace schedule: %w", err)
	}
	pc.Logger.Info().Int("days", len(days)).Msg("schedule replaced")
	return nil, nil
}
