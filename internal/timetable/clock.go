package timetable

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Clock is a time of day in minutes since midnight.
type Clock int

var (
	rangePattern   = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*-\s*(\d{1,2}):(\d{2})\s*$`)
	displayPattern = regexp.MustCompile(`^\s*(\d{1,2})(?::(\d{2}))?\s*([AaPp][Mm])\s*$`)
	clock24Pattern = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*$`)
)

// At builds a Clock from a 24-hour hour and minute.
func At(hour, minute int) (Clock, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid time %d:%02d", hour, minute)
	}
	return Clock(hour*60 + minute), nil
}

// Hour returns the 24-hour hour.
func (c Clock) Hour() int { return int(c) / 60 }

// Minute returns the minute within the hour.
func (c Clock) Minute() int { return int(c) % 60 }

// Display renders the 12-hour form used throughout schedules, e.g. "2:00 PM".
func (c Clock) Display() string {
	h, suffix := c.Hour(), "AM"
	if h >= 12 {
		suffix = "PM"
	}
	switch {
	case h == 0:
		h = 12
	case h > 12:
		h -= 12
	}
	return fmt.Sprintf("%d:%02d %s", h, c.Minute(), suffix)
}

// PM interprets a roster hour as afternoon: hours below 12 get 12 added.
func PM(hour, minute int) (Clock, error) {
	if hour < 12 {
		hour += 12
	}
	return At(hour, minute)
}

// ParseRange parses a roster time range "H:MM-H:MM" with every hour read as PM.
func ParseRange(raw string) (start, end Clock, err error) {
	m := rangePattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, 0, fmt.Errorf("time range %q is not H:MM-H:MM", raw)
	}
	start, err = PM(atoi(m[1]), atoi(m[2]))
	if err != nil {
		return 0, 0, err
	}
	end, err = PM(atoi(m[3]), atoi(m[4]))
	if err != nil {
		return 0, 0, err
	}
	if end <= start {
		return 0, 0, fmt.Errorf("time range %q ends before it starts", raw)
	}
	return start, end, nil
}

// ParseDisplay parses the 12-hour display form back into a Clock.
// "12 AM" is midnight and "12 PM" is noon.
func ParseDisplay(raw string) (Clock, error) {
	m := displayPattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, fmt.Errorf("time %q is not h:MM AM|PM", raw)
	}
	hour, minute := atoi(m[1]), 0
	if m[2] != "" {
		minute = atoi(m[2])
	}
	if hour < 1 || hour > 12 {
		return 0, fmt.Errorf("hour %d out of range in %q", hour, raw)
	}
	pm := strings.EqualFold(m[3], "PM")
	switch {
	case pm && hour != 12:
		hour += 12
	case !pm && hour == 12:
		hour = 0
	}
	return At(hour, minute)
}

// ParseDisplayHour returns the 24-hour hour of a display time.
func ParseDisplayHour(raw string) (int, error) {
	c, err := ParseDisplay(raw)
	if err != nil {
		return 0, err
	}
	return c.Hour(), nil
}

// ParseClock accepts either the display form or a 24-hour "HH:MM".
func ParseClock(raw string) (Clock, error) {
	if m := clock24Pattern.FindStringSubmatch(raw); m != nil {
		return At(atoi(m[1]), atoi(m[2]))
	}
	return ParseDisplay(raw)
}

// DurationHours is the fractional hour span between start and end.
func DurationHours(start, end Clock) float64 {
	return float64(end-start) / 60
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
