package models

import "time"

// StudentStatus is the lifecycle state of a roster entry.
type StudentStatus string

const (
	StudentActive   StudentStatus = "active"
	StudentInactive StudentStatus = "inactive"
	StudentDeleted  StudentStatus = "deleted"
)

// PaymentPlan is the billing cadence of a student.
type PaymentPlan string

const (
	PaymentMonthly   PaymentPlan = "monthly"
	PaymentQuarterly PaymentPlan = "quarterly"
	PaymentYearly    PaymentPlan = "yearly"
	PaymentNone      PaymentPlan = "none"
)

// DefaultLevel is assigned to students created without one.
const DefaultLevel = "Beginner"

// EnrollmentRef is the roster-side back-reference to a session.
type EnrollmentRef struct {
	TermID    string `json:"termId"`
	Teacher   string `json:"teacherName"`
	SessionID string `json:"sessionId"`
}

// LevelChange records a level transition.
type LevelChange struct {
	Date   time.Time `json:"date"`
	Level  string    `json:"level"`
	Review string    `json:"review,omitempty"`
}

// Evaluation is a free-form teacher assessment.
type Evaluation struct {
	ID      string    `json:"id"`
	Date    time.Time `json:"date"`
	Teacher string    `json:"teacher"`
	Summary string    `json:"summary"`
}

// InstallmentStatus is the payment state of an installment.
type InstallmentStatus string

const (
	InstallmentPaid    InstallmentStatus = "paid"
	InstallmentUnpaid  InstallmentStatus = "unpaid"
	InstallmentOverdue InstallmentStatus = "overdue"
)

// PaymentMethod is how an installment was settled.
type PaymentMethod string

const (
	PaymentVisa     PaymentMethod = "visa"
	PaymentMada     PaymentMethod = "mada"
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
)

// Installment is one scheduled payment.
type Installment struct {
	ID               string            `json:"id"`
	DueDate          time.Time         `json:"dueDate"`
	Amount           float64           `json:"amount"`
	Status           InstallmentStatus `json:"status"`
	PaymentDate      *time.Time        `json:"paymentDate,omitempty"`
	GracePeriodUntil *time.Time        `json:"gracePeriodUntil,omitempty"`
	InvoiceNumber    string            `json:"invoiceNumber,omitempty"`
	PaymentMethod    PaymentMethod     `json:"paymentMethod,omitempty"`
}

// EffectiveStatus reports unpaid installments past due as overdue.
func (i Installment) EffectiveStatus(today time.Time) InstallmentStatus {
	if i.Status == InstallmentUnpaid && i.DueDate.Before(today) {
		if i.GracePeriodUntil == nil || i.GracePeriodUntil.Before(today) {
			return InstallmentOverdue
		}
	}
	return i.Status
}

// DeletionInfo explains a soft delete.
type DeletionInfo struct {
	Date   time.Time `json:"date"`
	Reason string    `json:"reason"`
}

// Student is a person on the school roster.
type Student struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Gender             string          `json:"gender,omitempty"`
	DateOfBirth        *time.Time      `json:"dob,omitempty"`
	Nationality        string          `json:"nationality,omitempty"`
	InstrumentInterest string          `json:"instrumentInterest,omitempty"`
	Phone              string          `json:"phone,omitempty"`
	Email              string          `json:"email,omitempty"`
	Level              string          `json:"level"`
	LevelHistory       []LevelChange   `json:"levelHistory,omitempty"`
	Evaluations        []Evaluation    `json:"evaluations,omitempty"`
	EnrollmentDate     time.Time       `json:"enrollmentDate"`
	PaymentPlan        PaymentPlan     `json:"paymentPlan"`
	Installments       []Installment   `json:"installments,omitempty"`
	PreferredPayDay    int             `json:"preferredPayDay,omitempty"`
	EnrolledIn         []EnrollmentRef `json:"enrolledIn"`
	Status             StudentStatus   `json:"status"`
	DeletionInfo       *DeletionInfo   `json:"deletionInfo,omitempty"`
}

// EnrollmentIndex returns the position of the ref matching term and session, or -1.
func (s *Student) EnrollmentIndex(termID, sessionID string) int {
	for i, ref := range s.EnrolledIn {
		if ref.TermID == termID && ref.SessionID == sessionID {
			return i
		}
	}
	return -1
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search   string
	Status   StudentStatus
	TermID   string
	Page     int
	PageSize int
}
