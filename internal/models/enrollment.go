package models

// Outcome distinguishes applied changes from benign no-ops and queued requests.
type Outcome string

const (
	OutcomeApplied         Outcome = "applied"
	OutcomeUnchanged       Outcome = "unchanged"
	OutcomeAlreadyEnrolled Outcome = "already-enrolled"
	OutcomeRequested       Outcome = "requested"
)

// ExclusionWarning is an advisory raised when an enrollment matches an exclusion rule.
type ExclusionWarning struct {
	ExclusionID string        `json:"exclusionId"`
	Kind        ExclusionKind `json:"kind"`
	Person1Name string        `json:"person1Name"`
	Person2Name string        `json:"person2Name"`
	Reason      string        `json:"reason"`
}

// EnrollmentResult is returned by enroll, remove and change-time operations.
type EnrollmentResult struct {
	Outcome  Outcome            `json:"outcome"`
	Request  *ChangeRequest     `json:"request,omitempty"`
	Warnings []ExclusionWarning `json:"warnings,omitempty"`
}
