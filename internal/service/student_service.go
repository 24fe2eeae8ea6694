package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/store"
	"github.com/noah-isme/music-school-api/internal/timetable"
	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
)

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	Name               string             `json:"name" validate:"required"`
	Gender             string             `json:"gender" validate:"omitempty,oneof=male female"`
	DateOfBirth        *time.Time         `json:"dob"`
	Nationality        string             `json:"nationality"`
	InstrumentInterest string             `json:"instrumentInterest"`
	Phone              string             `json:"phone"`
	Email              string             `json:"email" validate:"omitempty,email"`
	Level              string             `json:"level"`
	PaymentPlan        models.PaymentPlan `json:"paymentPlan" validate:"omitempty,oneof=monthly quarterly yearly none"`
	PreferredPayDay    int                `json:"preferredPayDay" validate:"omitempty,min=1,max=31"`
}

// UpdateStudentRequest holds a partial profile update. Nil fields are left untouched.
type UpdateStudentRequest struct {
	Name               *string               `json:"name" validate:"omitempty,min=1"`
	Gender             *string               `json:"gender" validate:"omitempty,oneof=male female"`
	DateOfBirth        *time.Time            `json:"dob"`
	Nationality        *string               `json:"nationality"`
	InstrumentInterest *string               `json:"instrumentInterest"`
	Phone              *string               `json:"phone"`
	Email              *string               `json:"email" validate:"omitempty,email"`
	PaymentPlan        *models.PaymentPlan   `json:"paymentPlan" validate:"omitempty,oneof=monthly quarterly yearly none"`
	PreferredPayDay    *int                  `json:"preferredPayDay" validate:"omitempty,min=1,max=31"`
	Status             *models.StudentStatus `json:"status" validate:"omitempty,oneof=active inactive"`
}

// ChangeLevelRequest moves a student to a new level.
type ChangeLevelRequest struct {
	Level  string `json:"level" validate:"required"`
	Review string `json:"review"`
}

// AddInstallmentRequest schedules a payment.
type AddInstallmentRequest struct {
	DueDate          time.Time  `json:"dueDate" validate:"required"`
	Amount           float64    `json:"amount" validate:"gt=0"`
	GracePeriodUntil *time.Time `json:"gracePeriodUntil"`
}

// PayInstallmentRequest settles an installment.
type PayInstallmentRequest struct {
	Method        models.PaymentMethod `json:"paymentMethod" validate:"required,oneof=visa mada cash transfer"`
	InvoiceNumber string               `json:"invoiceNumber"`
	PaidAt        *time.Time           `json:"paidAt"`
}

// LevelResult reports whether a level change did anything.
type LevelResult struct {
	Outcome models.Outcome  `json:"outcome"`
	Student *models.Student `json:"student"`
}

// StudentService handles roster use-cases.
type StudentService struct {
	store      schoolStore
	enrollment *EnrollmentService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(st schoolStore, enrollment *EnrollmentService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{store: st, enrollment: enrollment, validator: validate, logger: logger}
}

// List returns students matching the filter and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]models.Student, 0)
	for _, student := range s.store.Students() {
		if filter.Status == "" && student.Status == models.StudentDeleted {
			continue
		}
		if filter.Status != "" && student.Status != filter.Status {
			continue
		}
		if filter.TermID != "" && !hasTermRef(student, filter.TermID) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(student.Name), search) &&
			!strings.Contains(strings.ToLower(student.ID), search) && !strings.Contains(student.Phone, search) {
			continue
		}
		matched = append(matched, *student)
	}
	start, end, pagination := models.Paginate(filter.Page, filter.PageSize, len(matched))
	return matched[start:end], &pagination, nil
}

// Get returns a student by id, including soft-deleted ones.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, ok := s.store.Student(id)
	if !ok {
		return nil, profileNotFound(id)
	}
	clone := *student
	return &clone, nil
}

// Create registers a new student with the next roster id.
func (s *StudentService) Create(ctx context.Context, actor *models.Actor, req CreateStudentRequest) (*models.Student, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	name := strings.TrimSpace(req.Name)
	level := strings.TrimSpace(req.Level)
	if level == "" {
		level = models.DefaultLevel
	}
	plan := req.PaymentPlan
	if plan == "" {
		plan = models.PaymentMonthly
	}

	var created models.Student
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		if _, exists := tx.StudentByName(name); exists {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("student %q already exists", name))
		}
		now := utcNow()
		created = models.Student{
			ID:                 timetable.FormatStudentID(tx.LastStudentSeq() + 1),
			Name:               name,
			Gender:             req.Gender,
			DateOfBirth:        req.DateOfBirth,
			Nationality:        req.Nationality,
			InstrumentInterest: req.InstrumentInterest,
			Phone:              req.Phone,
			Email:              req.Email,
			Level:              level,
			LevelHistory:       []models.LevelChange{{Date: now, Level: level}},
			EnrollmentDate:     now.Truncate(24 * time.Hour),
			PaymentPlan:        plan,
			PreferredPayDay:    req.PreferredPayDay,
			EnrolledIn:         []models.EnrollmentRef{},
			Status:             models.StudentActive,
		}
		stored := created
		tx.PutStudent(&stored)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("student created", zap.String("student_id", created.ID))
	return &created, nil
}

// Update changes profile fields. Renames propagate to session seats.
func (s *StudentService) Update(ctx context.Context, actor *models.Actor, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	var updated models.Student
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		student, err := tx.MutableStudent(id)
		if err != nil {
			return err
		}
		if student.Status == models.StudentDeleted {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "deleted students cannot be edited")
		}
		if req.Name != nil && strings.TrimSpace(*req.Name) != student.Name {
			student.Name = strings.TrimSpace(*req.Name)
			renameSeats(tx, student)
		}
		if req.Gender != nil {
			student.Gender = *req.Gender
		}
		if req.DateOfBirth != nil {
			student.DateOfBirth = req.DateOfBirth
		}
		if req.Nationality != nil {
			student.Nationality = *req.Nationality
		}
		if req.InstrumentInterest != nil {
			student.InstrumentInterest = *req.InstrumentInterest
		}
		if req.Phone != nil {
			student.Phone = *req.Phone
		}
		if req.Email != nil {
			student.Email = *req.Email
		}
		if req.PaymentPlan != nil {
			student.PaymentPlan = *req.PaymentPlan
		}
		if req.PreferredPayDay != nil {
			student.PreferredPayDay = *req.PreferredPayDay
		}
		if req.Status != nil {
			student.Status = *req.Status
		}
		updated = *student
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// renameSeats refreshes the cached student name on every seat the student holds.
func renameSeats(tx *store.Tx, student *models.Student) {
	for _, ref := range student.EnrolledIn {
		session, _, err := tx.MutableSession(ref.TermID, ref.Teacher, "", ref.SessionID)
		if err != nil {
			continue
		}
		if idx := session.StudentIndex(student.ID); idx >= 0 {
			session.Students[idx].Name = student.Name
		}
	}
}

// ChangeLevel records a level transition. Setting the current level is a no-op.
func (s *StudentService) ChangeLevel(ctx context.Context, actor *models.Actor, id string, req ChangeLevelRequest) (*LevelResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.CanEditDirectly() && !actor.CanRequestChanges() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can change levels")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid level payload")
	}
	level := strings.TrimSpace(req.Level)
	result := &LevelResult{Outcome: models.OutcomeApplied}
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		current, ok := tx.Student(id)
		if !ok {
			return profileNotFound(id)
		}
		if current.Level == level {
			result.Outcome = models.OutcomeUnchanged
			clone := *current
			result.Student = &clone
			return nil
		}
		student, err := tx.MutableStudent(id)
		if err != nil {
			return err
		}
		student.Level = level
		student.LevelHistory = append(student.LevelHistory, models.LevelChange{Date: utcNow(), Level: level, Review: req.Review})
		clone := *student
		result.Student = &clone
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AddInstallment schedules a new unpaid installment.
func (s *StudentService) AddInstallment(ctx context.Context, actor *models.Actor, id string, req AddInstallmentRequest) (*models.Installment, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid installment payload")
	}
	installment := models.Installment{
		ID:               newID("INST"),
		DueDate:          req.DueDate.UTC(),
		Amount:           req.Amount,
		Status:           models.InstallmentUnpaid,
		GracePeriodUntil: req.GracePeriodUntil,
	}
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		student, err := tx.MutableStudent(id)
		if err != nil {
			return err
		}
		student.Installments = append(student.Installments, installment)
		sort.SliceStable(student.Installments, func(i, j int) bool {
			return student.Installments[i].DueDate.Before(student.Installments[j].DueDate)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &installment, nil
}

// MarkInstallmentPaid settles an installment. Paying twice is a conflict.
func (s *StudentService) MarkInstallmentPaid(ctx context.Context, actor *models.Actor, id, installmentID string, req PayInstallmentRequest) (*models.Installment, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid payment payload")
	}
	paidAt := utcNow()
	if req.PaidAt != nil {
		paidAt = req.PaidAt.UTC()
	}
	var paid models.Installment
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		student, err := tx.MutableStudent(id)
		if err != nil {
			return err
		}
		for i := range student.Installments {
			if student.Installments[i].ID != installmentID {
				continue
			}
			if student.Installments[i].Status == models.InstallmentPaid {
				return appErrors.Clone(appErrors.ErrConflict, "installment already paid")
			}
			student.Installments[i].Status = models.InstallmentPaid
			student.Installments[i].PaymentDate = &paidAt
			student.Installments[i].PaymentMethod = req.Method
			student.Installments[i].InvoiceNumber = req.InvoiceNumber
			paid = student.Installments[i]
			return nil
		}
		return appErrors.WithResource(appErrors.Clone(appErrors.ErrNotFound, "installment not found"), "installment", installmentID)
	})
	if err != nil {
		return nil, err
	}
	return &paid, nil
}

// Delete soft-deletes the student and drops every seat they hold.
func (s *StudentService) Delete(ctx context.Context, actor *models.Actor, id, reason string) (*models.Student, error) {
	if s.enrollment == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "enrollment engine not configured")
	}
	return s.enrollment.SoftDeleteStudent(ctx, actor, id, reason)
}
