package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/sp-hack/server/internal/api/problem"
	"github.com/sp-hack/server/internal/api/procedure"
	"github.com/sp-hack/server/internal/storage"
)

// InfoHandler serves the public event info: dates, place and schedule.
type InfoHandler struct {
	location *time.Location
	now      func() time.Time
}

func NewInfoHandler(location *time.Location) *InfoHandler {
	if location == nil {
		location = time.UTC
	}
	return &InfoHandler{location: location, now: time.Now}
}

type TimeLeft struct {
	Months          int    `json:"months"`
	Days            int    `json:"days"`
	Hours           int    `json:"hours"`
	Minutes         int    `json:"minutes"`
	Seconds         int    `json:"seconds"`
	MonthsAsString  string `json:"monthsAsString"`
	DaysAsString    string `json:"daysAsString"`
	HoursAsString   string `json:"hoursAsString"`
	MinutesAsString string `json:"minutesAsString"`
	SecondsAsString string `json:"secondsAsString"`
}

type EventDate struct {
	Start                time.Time `json:"start"`
	End                  time.Time `json:"end"`
	StartAsString        string    `json:"startAsString"`
	EndAsString          string    `json:"endAsString"`
	RangeAsString        string    `json:"rangeAsString"`
	TimeLeft             TimeLeft  `json:"timeLeft"`
	TimeLeftAsFullString string    `json:"timeLeftAsFullString"`
}

type EventPlace struct {
	Address           string  `json:"address"`
	City              string  `json:"city"`
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	LatitudeAsString  string  `json:"latitudeAsString"`
	LongitudeAsString string  `json:"longitudeAsString"`
}

type ScheduleDay struct {
	Day         time.Time         `json:"day"`
	DayNumber   int               `json:"dayNumber"`
	DayAsString string            `json:"dayAsString"`
	Sections    []ScheduleSection `json:"sections"`
}

type ScheduleSection struct {
	Time              time.Time `json:"time"`
	TimeAsString      string    `json:"timeAsString"`
	TimeRangeAsString string    `json:"timeRangeAsString"`
	Name              string    `json:"name"`
}

func (h *InfoHandler) info(ctx context.Context, store storage.Repository) (storage.Info, error) {
	info, err := store.Info().Get(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Info{}, problem.NotFound("Информация о мероприятии не найдена!").WithCause(err)
	}
	return info, err
}

func (h *InfoHandler) EventDate(ctx context.Context, pc procedure.Context) (EventDate, error) {
	info, err := h.info(ctx, pc.Store)
	if err != nil {
		return EventDate{}, err
	}

	start := info.DateStart.In(h.location)
	end := info.DateEnd.In(h.location)
	left := durationBetween(h.now().In(h.location), start)

	return EventDate{
		Start:         start,
		End:           end,
		StartAsString: formatDate(start),
		EndAsString:   formatDate(end),
		RangeAsString: formatDateRange(start, end),
		TimeLeft: TimeLeft{
			Months:          left.Months,
			Days:            left.Days,
			Hours:           left.Hours,
			Minutes:         left.Minutes,
			Seconds:         left.Seconds,
			MonthsAsString:  strconv.Itoa(left.Months),
			DaysAsString:    strconv.Itoa(left.Days),
			HoursAsString:   twoDigits(left.Hours),
			MinutesAsString: twoDigits(left.Minutes),
			SecondsAsString: twoDigits(left.Seconds),
		},
		TimeLeftAsFullString: left.String(),
	}, nil
}

func (h *InfoHandler) EventPlace(ctx context.Context, pc procedure.Context) (EventPlace, error) {
	info, err := h.info(ctx, pc.Store)
	if err != nil {
		return EventPlace{}, err
	}
	return EventPlace{
		Address:           info.Address,
		City:              info.City,
		Latitude:          info.Latitude,
		Longitude:         info.Longitude,
		LatitudeAsString:  strconv.FormatFloat(info.Latitude, 'f', -1, 64),
		LongitudeAsString: strconv.FormatFloat(info.Longitude, 'f', -1, 64),
	}, nil
}

func (h *InfoHandler) Schedule(ctx context.Context, pc procedure.Context) ([]ScheduleDay, error) {
	days, err := pc.Store.Info().Schedule(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ScheduleDay, 0, len(days))
	for i, day := range days {
		date := day.Day.In(h.location)
		sections := make([]ScheduleSection, 0, len(day.Sections))
		for j, section := range day.Sections {
			at := section.Time.In(h.location)
			timeRange := formatClock(at)
			if j+1 < len(day.Sections) {
				timeRange += " - " + formatClock(day.Sections[j+1].Time.In(h.location))
			}
			sections = append(sections, ScheduleSection{
				Time:              at,
				TimeAsString:      formatDateTime(at),
				TimeRangeAsString: timeRange,
				Name:              section.Name,
			})
		}
		out = append(out, ScheduleDay{
			Day:         date,
			DayNumber:   i + 1,
			DayAsString: formatDate(date),
			Sections:    sections,
		})
	}
	return out, nil
}
