package dto

// AttendanceTarget addresses one student in one weekly session.
type AttendanceTarget struct {
	WeekStart string `json:"weekStart" validate:"required"`
	Teacher   string `json:"teacher" validate:"required"`
	SessionID string `json:"sessionId" validate:"required"`
	StudentID string `json:"studentId" validate:"required"`
}

// MarkAttendanceRequest records a status for a student.
type MarkAttendanceRequest struct {
	AttendanceTarget
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=500"`
}
