package dto

// SessionTarget identifies a seat inside a term. Day accepts English or Arabic day names and may be
// omitted when the session id alone is unambiguous.
type SessionTarget struct {
	StudentID string `json:"studentId" validate:"required"`
	Teacher   string `json:"teacher" validate:"required"`
	Day       string `json:"day"`
	SessionID string `json:"sessionId" validate:"required"`
	Reason    string `json:"reason" validate:"max=500"`
}

// ChangeTimeRequest moves a student to another start time on the same day.
type ChangeTimeRequest struct {
	SessionTarget
	NewTime string `json:"newTime" validate:"required"`
}

// CreateSessionRequest describes a manually added session.
type CreateSessionRequest struct {
	Teacher        string  `json:"teacher" validate:"required"`
	Day            string  `json:"day" validate:"required"`
	StartTime      string  `json:"startTime" validate:"required"`
	EndTime        string  `json:"endTime"`
	Duration       float64 `json:"duration" validate:"omitempty,gt=0,lte=12"`
	Specialization string  `json:"specialization"`
	Type           string  `json:"type" validate:"omitempty,oneof=practical theory"`
	Note           string  `json:"note" validate:"max=500"`
}

// DeleteStudentRequest carries the reason recorded with a soft delete.
type DeleteStudentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}
