package models

import "time"

// PlacedSession is a session positioned on the weekly grid.
type PlacedSession struct {
	Session  Session `json:"session"`
	Day      Weekday `json:"day"`
	StartRow int     `json:"startRow"`
	Hour     int     `json:"hour"`
}

// WeekStudent is a student entry with its effective attendance for the week.
type WeekStudent struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	PendingRemoval bool                `json:"pendingRemoval"`
	Attendance     EffectiveAttendance `json:"attendance"`
}

// WeekSession is a placed session together with per-student attendance.
type WeekSession struct {
	PlacedSession
	Date     time.Time     `json:"date"`
	Students []WeekStudent `json:"students"`
}

// WeekView is one teacher's render-ready week.
type WeekView struct {
	TermID         string        `json:"termId"`
	Teacher        string        `json:"teacher"`
	WeekStart      string        `json:"weekStart"`
	TeacherOnLeave bool          `json:"teacherOnLeave"`
	Sessions       []WeekSession `json:"sessions"`
}
