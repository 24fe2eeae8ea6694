package models

// AttendanceStatus is the recorded outcome for one student in one weekly session.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceExcused AttendanceStatus = "excused"
)

// Valid reports whether s is a known status.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	}
	return false
}

// AttendanceRecord is one stored overlay entry.
type AttendanceRecord struct {
	Status AttendanceStatus `json:"status"`
	Note   string           `json:"note,omitempty"`
}

// AttendanceSource tells where an effective status came from.
type AttendanceSource string

const (
	AttendanceFromRecord   AttendanceSource = "record"
	AttendanceFromLeave    AttendanceSource = "leave"
	AttendanceFromUnmarked AttendanceSource = "unmarked"
)

// EffectiveAttendance is the read-time status shown for a student.
type EffectiveAttendance struct {
	Status *AttendanceStatus `json:"status"`
	Note   string            `json:"note,omitempty"`
	Source AttendanceSource  `json:"source"`
}

// SessionAttendance maps student id to record.
type SessionAttendance map[string]AttendanceRecord

// WeeklyAttendance is keyed week start (yyyy-MM-dd), teacher, session id, then student id.
type WeeklyAttendance map[string]map[string]map[string]SessionAttendance

// Lookup returns the stored record for the given path.
func (w WeeklyAttendance) Lookup(week, teacher, sessionID, studentID string) (AttendanceRecord, bool) {
	record, ok := w[week][teacher][sessionID][studentID]
	return record, ok
}
