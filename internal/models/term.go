package models

import "time"

// SessionType distinguishes instrument practice from theory classes.
type SessionType string

const (
	SessionPractical SessionType = "practical"
	SessionTheory    SessionType = "theory"
)

// Valid reports whether t is a known session type.
func (t SessionType) Valid() bool {
	return t == SessionPractical || t == SessionTheory
}

// SessionStudent is a student's seat in a session.
type SessionStudent struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Attendance     *AttendanceStatus `json:"attendance"`
	Note           string            `json:"note,omitempty"`
	PendingRemoval bool              `json:"pendingRemoval,omitempty"`
}

// Session is one recurring weekly class slot.
type Session struct {
	ID             string           `json:"id"`
	Time           string           `json:"time"`
	EndTime        string           `json:"endTime"`
	Duration       float64          `json:"duration"`
	Students       []SessionStudent `json:"students"`
	Specialization string           `json:"specialization"`
	Type           SessionType      `json:"type"`
	Note           string           `json:"note,omitempty"`
}

// StudentIndex returns the position of studentID in the session, or -1.
func (s *Session) StudentIndex(studentID string) int {
	for i := range s.Students {
		if s.Students[i].ID == studentID {
			return i
		}
	}
	return -1
}

// DaySchedule maps a weekday to its sessions in insertion order.
type DaySchedule map[Weekday][]Session

// MasterSchedule maps teacher name to that teacher's week.
type MasterSchedule map[string]DaySchedule

// FindSession locates a session for teacher on day. An empty day searches the whole week.
func (m MasterSchedule) FindSession(teacher string, day Weekday, sessionID string) (Weekday, int, bool) {
	days, ok := m[teacher]
	if !ok {
		return "", -1, false
	}
	if day != "" {
		for i := range days[day] {
			if days[day][i].ID == sessionID {
				return day, i, true
			}
		}
		return "", -1, false
	}
	for _, d := range Weekdays {
		for i := range days[d] {
			if days[d][i].ID == sessionID {
				return d, i, true
			}
		}
	}
	return "", -1, false
}

// Term is a bounded academic period with its own schedule and attendance overlay.
type Term struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	StartDate        time.Time        `json:"startDate"`
	EndDate          time.Time        `json:"endDate"`
	Teachers         []string         `json:"teachers"`
	MasterSchedule   MasterSchedule   `json:"masterSchedule"`
	WeeklyAttendance WeeklyAttendance `json:"weeklyAttendance"`
	Exclusions       []Exclusion      `json:"exclusions,omitempty"`
}

// Contains reports whether t falls inside the term's date range (inclusive).
func (t *Term) Contains(at time.Time) bool {
	day := at.UTC().Truncate(24 * time.Hour)
	return !day.Before(t.StartDate.UTC().Truncate(24*time.Hour)) && !day.After(t.EndDate.UTC().Truncate(24*time.Hour))
}

// HasTeacher reports whether name is listed on the term.
func (t *Term) HasTeacher(name string) bool {
	for _, teacher := range t.Teachers {
		if teacher == name {
			return true
		}
	}
	return false
}

// TermSummary is the list view of a term.
type TermSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	Teachers     []string  `json:"teachers"`
	SessionCount int       `json:"sessionCount"`
}
