package handlers

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var monthsGenitive = [12]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// formatDate renders t as "3 сентября 2023г".
func formatDate(t time.Time) string {
	return fmt.Sprintf("%d %s", t.Day(), formatMonthYear(t))
}

func formatMonthYear(t time.Time) string {
	return fmt.Sprintf("%s %dг", monthsGenitive[t.Month()-1], t.Year())
}

func formatClock(t time.Time) string {
	return t.Format("15:04")
}

// formatDateTime renders t as "3 сентября 2023г 09:00".
func formatDateTime(t time.Time) string {
	return formatDate(t) + " " + formatClock(t)
}

// formatDateRange collapses a range within one month. Ranges spanning
// months have no short form and render as "".
func formatDateRange(start, end time.Time) string {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	switch {
	case sy == ey && sm == em && sd == ed:
		return formatDate(start)
	case sy == ey && sm == em:
		return fmt.Sprintf("%d - %d %s", sd, ed, formatMonthYear(start))
	default:
		return ""
	}
}

func twoDigits(n int) string {
	return fmt.Sprintf("%02d", n)
}

// calendarDuration is a calendar-aware breakdown of an interval.
type calendarDuration struct {
	Years   int
	Months  int
	Days    int
	Hours   int
	Minutes int
	Seconds int
}

// durationBetween breaks the interval from..to into calendar units. A
// non-positive interval yields the zero duration.
func durationBetween(from, to time.Time) calendarDuration {
	to = to.In(from.Location())
	var d calendarDuration
	if !to.After(from) {
		return d
	}

	for !from.AddDate(d.Years+1, 0, 0).After(to) {
		d.Years++
	}
	anchor := from.AddDate(d.Years, 0, 0)
	for !anchor.AddDate(0, d.Months+1, 0).After(to) {
		d.Months++
	}
	anchor = anchor.AddDate(0, d.Months, 0)
	for !anchor.AddDate(0, 0, d.Days+1).After(to) {
		d.Days++
	}
	anchor = anchor.AddDate(0, 0, d.Days)

	rest := to.Sub(anchor)
	d.Hours = int(rest / time.Hour)
	rest -= time.Duration(d.Hours) * time.Hour
	d.Minutes = int(rest / time.Minute)
	rest -= time.Duration(d.Minutes) * time.Minute
	d.Seconds = int(rest / time.Second)
	return d
}

const (
	keyYears   = "%d years"
	keyMonths  = "%d months"
	keyDays    = "%d days"
	keyHours   = "%d hours"
	keyMinutes = "%d minutes"
	keySeconds = "%d seconds"
)

var russian = newRussianPrinter()

func newRussianPrinter() *message.Printer {
	b := catalog.NewBuilder(catalog.Fallback(language.Russian))
	forms := map[string][3]string{
		keyYears:   {"год", "года", "лет"},
		keyMonths:  {"месяц", "месяца", "месяцев"},
		keyDays:    {"день", "дня", "дней"},
		keyHours:   {"час", "часа", "часов"},
		keyMinutes: {"минута", "минуты", "минут"},
		keySeconds: {"секунда", "секунды", "секунд"},
	}
	for key, f := range forms {
		_ = b.Set(language.Russian, key, plural.Selectf(1, "%d",
			plural.One, "%[1]d "+f[0],
			plural.Few, "%[1]d "+f[1],
			plural.Many, "%[1]d "+f[2],
			plural.Other, "%[1]d "+f[2],
		))
	}
	return message.NewPrinter(language.Russian, message.Catalog(b))
}

// String renders the non-zero units in Russian, largest first, e.g.
// "2 месяца 1 день 5 часов".
func (d calendarDuration) String() string {
	units := []struct {
		key string
		n   int
	}{
		{keyYears, d.Years},
		{keyMonths, d.Months},
		{keyDays, d.Days},
		{keyHours, d.Hours},
		{keyMinutes, d.Minutes},
		{keySeconds, d.Seconds},
	}
	parts := make([]string, 0, len(units))
	for _, u := range units {
		if u.n > 0 {
			parts = append(parts, russian.Sprintf(u.key, u.n))
		}
	}
	return strings.Join(parts, " ")
}
