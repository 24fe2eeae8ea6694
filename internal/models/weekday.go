package models

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is a day of the school week. Values are the English day names used as schedule keys.
type Weekday string

const (
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
)

// WeekKeyLayout formats week-start dates used as attendance keys.
const WeekKeyLayout = "2006-01-02"

// Weekdays lists the week in school order, starting on Saturday.
var Weekdays = []Weekday{Saturday, Sunday, Monday, Tuesday, Wednesday, Thursday, Friday}

var weekdayAliases = map[string]Weekday{
	"السبت":    Saturday,
	"الاحد":    Sunday,
	"الأحد":    Sunday,
	"الاثنين":  Monday,
	"الإثنين":  Monday,
	"الثلاثاء": Tuesday,
	"الاربعاء": Wednesday,
	"الأربعاء": Wednesday,
	"الخميس":   Thursday,
	"الجمعة":   Friday,
}

// ParseWeekday accepts an English day name in any case or an Arabic day name.
func ParseWeekday(raw string) (Weekday, error) {
	trimmed := strings.TrimSpace(raw)
	if day, ok := weekdayAliases[trimmed]; ok {
		return day, nil
	}
	for _, day := range Weekdays {
		if strings.EqualFold(trimmed, string(day)) {
			return day, nil
		}
	}
	return "", fmt.Errorf("unknown weekday %q", raw)
}

// Valid reports whether d is one of the seven weekdays.
func (d Weekday) Valid() bool {
	return d.Index() >= 0
}

// Index is the zero-based offset of d from Saturday, or -1.
func (d Weekday) Index() int {
	for i, day := range Weekdays {
		if day == d {
			return i
		}
	}
	return -1
}

// On returns the calendar date of d within the week starting at weekStart.
func (d Weekday) On(weekStart time.Time) time.Time {
	return weekStart.AddDate(0, 0, d.Index())
}

// WeekStart returns midnight of the Saturday on or before t.
func WeekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 1) % 7
	return day.AddDate(0, 0, -offset)
}

// WeekKey formats the week containing t as its Saturday date.
func WeekKey(t time.Time) string {
	return WeekStart(t).Format(WeekKeyLayout)
}

// ParseWeekKey parses yyyy-MM-dd and normalises it to the start of its week.
func ParseWeekKey(raw string) (time.Time, error) {
	t, err := time.Parse(WeekKeyLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("week start must be yyyy-MM-dd: %w", err)
	}
	return WeekStart(t), nil
}
