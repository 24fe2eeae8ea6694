package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/store"
	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
)

// SubmitLeaveRequest asks for an absence window.
type SubmitLeaveRequest struct {
	Type      models.LeaveType `json:"type" validate:"required,oneof=student teacher"`
	PersonID  string           `json:"personId" validate:"required"`
	StartDate time.Time        `json:"startDate" validate:"required"`
	EndDate   time.Time        `json:"endDate" validate:"required"`
	Reason    string           `json:"reason"`
}

// ReviewLeaveRequest approves or denies a pending leave.
type ReviewLeaveRequest struct {
	Status models.LeaveStatus `json:"status" validate:"required,oneof=approved denied"`
}

// LeaveService handles student and teacher leaves.
type LeaveService struct {
	store     schoolStore
	notifier  Notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLeaveService constructs the service.
func NewLeaveService(st schoolStore, notifier Notifier, validate *validator.Validate, logger *zap.Logger) *LeaveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaveService{store: st, notifier: notifier, validator: validate, logger: logger}
}

// List returns leaves matching the filter, earliest first.
func (s *LeaveService) List(ctx context.Context, actor *models.Actor, filter models.LeaveFilter) ([]models.Leave, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	leaves := s.store.Leaves(filter)
	out := make([]models.Leave, 0, len(leaves))
	for _, leave := range leaves {
		out = append(out, *leave)
	}
	return out, nil
}

// ApprovedOverlapping returns approved leaves of a person that touch the week starting at weekStart.
func (s *LeaveService) ApprovedOverlapping(personID string, leaveType models.LeaveType, weekStart time.Time) []models.Leave {
	var out []models.Leave
	for _, leave := range s.store.Leaves(models.LeaveFilter{Type: leaveType, PersonID: personID, Status: models.LeaveApproved}) {
		if leave.CoversWeek(weekStart) {
			out = append(out, *leave)
		}
	}
	return out
}

// Submit records a pending leave. Teachers may file their own leave and leaves for students.
func (s *LeaveService) Submit(ctx context.Context, actor *models.Actor, req SubmitLeaveRequest) (*models.Leave, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.CanEditDirectly() && !actor.CanRequestChanges() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can submit leaves")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid leave payload")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must not be before startDate")
	}

	var leave models.Leave
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		personID, name, err := resolveLeavePerson(tx, req.Type, req.PersonID)
		if err != nil {
			return err
		}
		if req.Type == models.LeaveTeacher && !actor.CanEditDirectly() && personID != actor.ID {
			return appErrors.Clone(appErrors.ErrForbidden, "teachers can only file their own leave")
		}
		leave = models.Leave{
			ID:         newID("LV"),
			Type:       req.Type,
			PersonID:   personID,
			PersonName: name,
			StartDate:  req.StartDate.UTC(),
			EndDate:    req.EndDate.UTC(),
			Reason:     strings.TrimSpace(req.Reason),
			Status:     models.LeavePending,
		}
		stored := leave
		tx.PutLeave(&stored)
		return nil
	})
	if err != nil {
		return nil, err
	}
	notify(ctx, s.notifier, "Leave requested",
		fmt.Sprintf("%s leave for %s from %s to %s", leave.Type, leave.PersonName,
			leave.StartDate.Format(models.WeekKeyLayout), leave.EndDate.Format(models.WeekKeyLayout)), SeverityInfo)
	return &leave, nil
}

func resolveLeavePerson(tx *store.Tx, leaveType models.LeaveType, personID string) (string, string, error) {
	if leaveType == models.LeaveTeacher {
		teacher, ok := tx.TeacherByName(personID)
		if !ok {
			return "", "", appErrors.WithResource(appErrors.Clone(appErrors.ErrTeacherNotFound, fmt.Sprintf("teacher %s not found", personID)), "teacher", personID)
		}
		return teacher.ID, teacher.Name, nil
	}
	student, ok := tx.Student(personID)
	if !ok || student.Status == models.StudentDeleted {
		return "", "", profileNotFound(personID)
	}
	return student.ID, student.Name, nil
}

// Review settles a pending leave.
func (s *LeaveService) Review(ctx context.Context, actor *models.Actor, id string, req ReviewLeaveRequest) (*models.Leave, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid review payload")
	}
	var reviewed models.Leave
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		leave, err := tx.MutableLeave(id)
		if err != nil {
			return err
		}
		if leave.Status != models.LeavePending {
			return appErrors.Clone(appErrors.ErrConflict, "leave already reviewed")
		}
		leave.Status = req.Status
		reviewed = *leave
		return nil
	})
	if err != nil {
		return nil, err
	}
	severity := SeveritySuccess
	if reviewed.Status == models.LeaveDenied {
		severity = SeverityWarning
	}
	notify(ctx, s.notifier, "Leave "+string(reviewed.Status), fmt.Sprintf("%s leave for %s", reviewed.Type, reviewed.PersonName), severity)
	return &reviewed, nil
}
