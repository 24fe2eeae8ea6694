package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/store"
	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
)

// AttendanceRef addresses one overlay entry.
type AttendanceRef struct {
	TermID    string
	WeekStart string
	Teacher   string
	SessionID string
	StudentID string
}

// MarkInput records a status for one student in one weekly session.
type MarkInput struct {
	AttendanceRef
	Status models.AttendanceStatus
	Note   string
}

// AttendanceService maintains the weekly attendance overlay.
type AttendanceService struct {
	store  schoolStore
	logger *zap.Logger
}

// NewAttendanceService constructs the service.
func NewAttendanceService(st schoolStore, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{store: st, logger: logger}
}

// Mark writes weeklyAttendance[week][teacher][session][student]. The week start is
// normalised to its Saturday.
func (s *AttendanceService) Mark(ctx context.Context, actor *models.Actor, input MarkInput) (*models.EffectiveAttendance, error) {
	if !input.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be present, absent, late or excused")
	}
	week, err := s.authorize(actor, input.AttendanceRef)
	if err != nil {
		return nil, err
	}
	record := &models.AttendanceRecord{Status: input.Status, Note: strings.TrimSpace(input.Note)}
	err = s.store.Update(ctx, func(tx *store.Tx) error {
		return tx.SetAttendance(input.TermID, week, input.Teacher, input.SessionID, input.StudentID, record)
	})
	if err != nil {
		return nil, err
	}
	status := record.Status
	return &models.EffectiveAttendance{Status: &status, Note: record.Note, Source: models.AttendanceFromRecord}, nil
}

// Clear removes an entry so the student reads as unmarked again.
func (s *AttendanceService) Clear(ctx context.Context, actor *models.Actor, ref AttendanceRef) error {
	week, err := s.authorize(actor, ref)
	if err != nil {
		return err
	}
	return s.store.Update(ctx, func(tx *store.Tx) error {
		return tx.SetAttendance(ref.TermID, week, ref.Teacher, ref.SessionID, ref.StudentID, nil)
	})
}

func (s *AttendanceService) authorize(actor *models.Actor, ref AttendanceRef) (string, error) {
	if err := requireActor(actor); err != nil {
		return "", err
	}
	if !actor.CanEditDirectly() && !actor.CanRequestChanges() {
		return "", appErrors.Clone(appErrors.ErrForbidden, "this role cannot record attendance")
	}
	if !ownsSchedule(s.store, actor, ref.Teacher) {
		return "", appErrors.Clone(appErrors.ErrForbidden, "teachers can only mark their own sessions")
	}
	weekStart, err := models.ParseWeekKey(ref.WeekStart)
	if err != nil {
		return "", validationError(err, "weekStart must be yyyy-MM-dd")
	}
	term, ok := s.store.Term(ref.TermID)
	if !ok {
		return "", termNotFound(ref.TermID)
	}
	day, idx, ok := term.MasterSchedule.FindSession(ref.Teacher, "", ref.SessionID)
	if !ok {
		return "", sessionNotFound(ref.SessionID)
	}
	if term.MasterSchedule[ref.Teacher][day][idx].StudentIndex(ref.StudentID) < 0 {
		return "", appErrors.WithResource(appErrors.Clone(appErrors.ErrProfileNotFound, fmt.Sprintf("student %s is not in session %s", ref.StudentID, ref.SessionID)), "student", ref.StudentID)
	}
	return weekStart.Format(models.WeekKeyLayout), nil
}

// EffectiveAttendance resolves the status shown for a student in a week.
// A stored record wins; otherwise an approved student leave overlapping the
// week reads as excused; otherwise the student is unmarked. Leave-derived
// statuses are never written back.
func EffectiveAttendance(term *models.Term, weekStart time.Time, teacher, sessionID, studentID string, leaves []*models.Leave) models.EffectiveAttendance {
	week := weekStart.Format(models.WeekKeyLayout)
	if record, ok := term.WeeklyAttendance.Lookup(week, teacher, sessionID, studentID); ok {
		status := record.Status
		return models.EffectiveAttendance{Status: &status, Note: record.Note, Source: models.AttendanceFromRecord}
	}
	for _, leave := range leaves {
		if leave.Type == models.LeaveStudent && leave.Status == models.LeaveApproved && leave.PersonID == studentID && leave.CoversWeek(weekStart) {
			status := models.AttendanceExcused
			return models.EffectiveAttendance{Status: &status, Note: leave.Reason, Source: models.AttendanceFromLeave}
		}
	}
	return models.EffectiveAttendance{Source: models.AttendanceFromUnmarked}
}

// Effective is EffectiveAttendance against the current store state.
func (s *AttendanceService) Effective(termID string, weekStart time.Time, teacher, sessionID, studentID string) (models.EffectiveAttendance, error) {
	term, ok := s.store.Term(termID)
	if !ok {
		return models.EffectiveAttendance{}, termNotFound(termID)
	}
	leaves := s.store.Leaves(models.LeaveFilter{Type: models.LeaveStudent, PersonID: studentID, Status: models.LeaveApproved})
	return EffectiveAttendance(term, models.WeekStart(weekStart), teacher, sessionID, studentID, leaves), nil
}
