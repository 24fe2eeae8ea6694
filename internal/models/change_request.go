package models

import "time"

// RequestType is the kind of change a teacher proposes.
type RequestType string

const (
	RequestRemoveStudent RequestType = "remove-student"
	RequestAddStudent    RequestType = "add-student"
	RequestChangeTime    RequestType = "change-time"
)

// Valid reports whether t is a known request type.
func (t RequestType) Valid() bool {
	switch t {
	case RequestRemoveStudent, RequestAddStudent, RequestChangeTime:
		return true
	}
	return false
}

// RequestStatus is the review state of a change request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestDenied   RequestStatus = "denied"
)

// RequestDetails names the student, session and term a request targets.
type RequestDetails struct {
	StudentID   string  `json:"studentId"`
	StudentName string  `json:"studentName"`
	TermID      string  `json:"termId"`
	Teacher     string  `json:"teacher"`
	Day         Weekday `json:"day"`
	SessionID   string  `json:"sessionId"`
	SessionTime string  `json:"sessionTime"`
	NewTime     string  `json:"newTime,omitempty"`
	Reason      string  `json:"reason"`
}

// ChangeRequest is a teacher-originated proposal awaiting admin review.
type ChangeRequest struct {
	ID          string         `json:"id"`
	Type        RequestType    `json:"type"`
	Status      RequestStatus  `json:"status"`
	Date        time.Time      `json:"date"`
	TeacherID   string         `json:"teacherId"`
	TeacherName string         `json:"teacherName"`
	Details     RequestDetails `json:"details"`
	ReviewedBy  string         `json:"reviewedBy,omitempty"`
	ReviewedAt  *time.Time     `json:"reviewedAt,omitempty"`
	ReviewNote  string         `json:"reviewNote,omitempty"`
}

// RequestFilter narrows request listings.
type RequestFilter struct {
	Status    []RequestStatus
	Type      RequestType
	TeacherID string
	TermID    string
}

// Matches reports whether r passes the filter.
func (f RequestFilter) Matches(r *ChangeRequest) bool {
	if len(f.Status) > 0 {
		found := false
		for _, s := range f.Status {
			if s == r.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Type != "" && f.Type != r.Type {
		return false
	}
	if f.TeacherID != "" && f.TeacherID != r.TeacherID {
		return false
	}
	if f.TermID != "" && f.TermID != r.Details.TermID {
		return false
	}
	return true
}
