package models

import "time"

// LeaveType says whose leave a record is.
type LeaveType string

const (
	LeaveStudent LeaveType = "student"
	LeaveTeacher LeaveType = "teacher"
)

// LeaveStatus is the approval state of a leave.
type LeaveStatus string

const (
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveDenied   LeaveStatus = "denied"
)

// Leave is an absence window for a student or teacher.
type Leave struct {
	ID         string      `json:"id"`
	Type       LeaveType   `json:"type"`
	PersonID   string      `json:"personId"`
	PersonName string      `json:"personName"`
	StartDate  time.Time   `json:"startDate"`
	EndDate    time.Time   `json:"endDate"`
	Reason     string      `json:"reason"`
	Status     LeaveStatus `json:"status"`
}

// CoversWeek reports whether any day of the week starting at weekStart lies within the leave.
func (l *Leave) CoversWeek(weekStart time.Time) bool {
	weekEnd := weekStart.AddDate(0, 0, 6)
	start := dateOnly(l.StartDate)
	end := dateOnly(l.EndDate)
	return !start.After(dateOnly(weekEnd)) && !end.Before(dateOnly(weekStart))
}

// LeaveFilter narrows leave listings.
type LeaveFilter struct {
	Type     LeaveType
	PersonID string
	Status   LeaveStatus
}

// Matches reports whether l passes the filter.
func (f LeaveFilter) Matches(l *Leave) bool {
	if f.Type != "" && f.Type != l.Type {
		return false
	}
	if f.PersonID != "" && f.PersonID != l.PersonID {
		return false
	}
	if f.Status != "" && f.Status != l.Status {
		return false
	}
	return true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
