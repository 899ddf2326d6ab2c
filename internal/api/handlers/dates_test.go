package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func moscow(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	return loc
}

func TestFormatDate(t *testing.T) {
	loc := moscow(t)
	assert.Equal(t, "3 сентября 2023г", formatDate(time.Date(2023, 9, 3, 9, 0, 0, 0, loc)))
	assert.Equal(t, "31 декабря 2024г", formatDate(time.Date(2024, 12, 31, 23, 59, 0, 0, loc)))
	assert.Equal(t, "1 мая 2025г 07:05", formatDateTime(time.Date(2025, 5, 1, 7, 5, 0, 0, loc)))
}

func TestFormatDateRange(t *testing.T) {
	loc := moscow(t)
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 10, 0, 0, 0, loc) }

	assert.Equal(t, "3 сентября 2023г", formatDateRange(day(2023, 9, 3), day(2023, 9, 3)))
	assert.Equal(t, "3 - 5 сентября 2023г", formatDateRange(day(2023, 9, 3), day(2023, 9, 5)))
	assert.Equal(t, "", formatDateRange(day(2023, 9, 30), day(2023, 10, 1)))
	assert.Equal(t, "", formatDateRange(day(2023, 9, 3), day(2024, 9, 5)))
}

func TestDurationBetween(t *testing.T) {
	loc := moscow(t)
	from := time.Date(2023, 6, 1, 10, 0, 0, 0, loc)

	d := durationBetween(from, time.Date(2023, 9, 3, 9, 0, 0, 0, loc))
	assert.Equal(t, calendarDuration{Months: 3, Days: 1, Hours: 23}, d)

	d = durationBetween(from, from.Add(time.Hour+time.Minute+5*time.Second))
	assert.Equal(t, calendarDuration{Hours: 1, Minutes: 1, Seconds: 5}, d)

	d = durationBetween(from, from.AddDate(2, 1, 0))
	assert.Equal(t, calendarDuration{Years: 2, Months: 1}, d)
}

func TestDurationBetween_PastIsZero(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, calendarDuration{}, durationBetween(now, now.Add(-time.Hour)))
	assert.Equal(t, calendarDuration{}, durationBetween(now, now))
	assert.Equal(t, "", calendarDuration{}.String())
}

func TestCalendarDurationString_RussianPlurals(t *testing.T) {
	cases := map[calendarDuration]string{
		{Months: 3, Days: 1, Hours: 23}:     "3 месяца 1 день 23 часа",
		{Hours: 1, Minutes: 1, Seconds: 5}:  "1 час 1 минута 5 секунд",
		{Years: 5, Days: 11}:                "5 лет 11 дней",
		{Years: 21, Months: 12, Minutes: 2}: "21 год 12 месяцев 2 минуты",
		{Days: 22, Seconds: 14}:             "22 дня 14 секунд",
	}
	for in, want := range cases {
		assert.Equal(t, want, in.String())
	}
}

func TestTwoDigits(t *testing.T) {
	assert.Equal(t, "00", twoDigits(0))
	assert.Equal(t, "07", twoDigits(7))
	assert.Equal(t, "23", twoDigits(23))
}
