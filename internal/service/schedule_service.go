package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/timetable"
	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
)

// ScheduleService builds render-ready teacher weeks.
type ScheduleService struct {
	store         schoolStore
	gridStartHour int
	logger        *zap.Logger
}

// NewScheduleService constructs the service. A non-positive grid start uses the default.
func NewScheduleService(st schoolStore, gridStartHour int, logger *zap.Logger) *ScheduleService {
	if gridStartHour <= 0 {
		gridStartHour = timetable.DefaultGridStartHour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{store: st, gridStartHour: gridStartHour, logger: logger}
}

// TeacherWeek lays out a teacher's sessions for the week containing date, with
// each student's effective attendance.
func (s *ScheduleService) TeacherWeek(ctx context.Context, actor *models.Actor, termID, teacher string, date time.Time) (*models.WeekView, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.CanRequestChanges() && !ownsSchedule(s.store, actor, teacher) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teachers can only view their own schedule")
	}
	term, ok := s.store.Term(termID)
	if !ok {
		return nil, termNotFound(termID)
	}
	if _, listed := term.MasterSchedule[teacher]; !listed && !term.HasTeacher(teacher) {
		return nil, appErrors.WithResource(appErrors.Clone(appErrors.ErrTeacherNotFound, "teacher has no schedule in this term"), "teacher", teacher)
	}
	return s.weekView(term, teacher, date), nil
}

func (s *ScheduleService) weekView(term *models.Term, teacher string, date time.Time) *models.WeekView {
	weekStart := models.WeekStart(date)
	studentLeaves := s.store.Leaves(models.LeaveFilter{Type: models.LeaveStudent, Status: models.LeaveApproved})

	view := &models.WeekView{
		TermID:    term.ID,
		Teacher:   teacher,
		WeekStart: weekStart.Format(models.WeekKeyLayout),
		Sessions:  []models.WeekSession{},
	}
	if entry, ok := s.store.TeacherByName(teacher); ok {
		for _, leave := range s.store.Leaves(models.LeaveFilter{Type: models.LeaveTeacher, Status: models.LeaveApproved}) {
			if (leave.PersonID == entry.ID || leave.PersonID == entry.Name) && leave.CoversWeek(weekStart) {
				view.TeacherOnLeave = true
				break
			}
		}
	}

	for _, placed := range timetable.Layout(term.MasterSchedule[teacher], s.gridStartHour) {
		session := models.WeekSession{
			PlacedSession: placed,
			Date:          placed.Day.On(weekStart),
			Students:      make([]models.WeekStudent, 0, len(placed.Session.Students)),
		}
		for _, seat := range placed.Session.Students {
			session.Students = append(session.Students, models.WeekStudent{
				ID:             seat.ID,
				Name:           seat.Name,
				PendingRemoval: seat.PendingRemoval,
				Attendance:     EffectiveAttendance(term, weekStart, teacher, placed.Session.ID, seat.ID, studentLeaves),
			})
		}
		view.Sessions = append(view.Sessions, session)
	}
	return view
}

// ActiveTerm returns the term whose date range contains now, else the earliest term.
func (s *ScheduleService) ActiveTerm(now time.Time) (*models.Term, error) {
	terms := s.store.Terms()
	if len(terms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrTermNotFound, "no terms configured")
	}
	for _, term := range terms {
		if term.Contains(now) {
			return term, nil
		}
	}
	return terms[0], nil
}
