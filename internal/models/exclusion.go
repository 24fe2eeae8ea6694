package models

import "time"

// ExclusionKind says which pair of people an exclusion separates.
type ExclusionKind string

const (
	ExclusionTeacherStudent ExclusionKind = "teacher-student"
	ExclusionStudentStudent ExclusionKind = "student-student"
)

// MinExclusionReason is the shortest accepted reason text.
const MinExclusionReason = 10

// Exclusion is an advisory "keep apart" rule scoped to a term.
type Exclusion struct {
	ID          string        `json:"id"`
	Kind        ExclusionKind `json:"kind"`
	Person1ID   string        `json:"person1Id"`
	Person1Name string        `json:"person1Name"`
	Person2ID   string        `json:"person2Id"`
	Person2Name string        `json:"person2Name"`
	Reason      string        `json:"reason"`
	TermID      string        `json:"termId"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Involves reports whether id is one of the two people.
func (e *Exclusion) Involves(id string) bool {
	return e.Person1ID == id || e.Person2ID == id
}

// Other returns the counterpart of id.
func (e *Exclusion) Other(id string) string {
	if e.Person1ID == id {
		return e.Person2ID
	}
	return e.Person1ID
}
