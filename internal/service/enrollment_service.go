package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/store"
	"github.com/noah-isme/music-school-api/internal/timetable"
	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
)

type enrollmentMetrics interface {
	RecordEnrollment(operation string, outcome models.Outcome)
}

// Operation is a schedule change routed through RequestOrApply.
type Operation interface {
	RequestType() models.RequestType
	target() SessionRef
}

// SessionRef locates a student's seat. Day may be empty when only the session id is known.
type SessionRef struct {
	StudentID string         `json:"studentId" validate:"required"`
	TermID    string         `json:"termId" validate:"required"`
	Teacher   string         `json:"teacher" validate:"required"`
	Day       models.Weekday `json:"day"`
	SessionID string         `json:"sessionId" validate:"required"`
}

// EnrollOp adds a student to a session.
type EnrollOp struct {
	SessionRef
	Reason string
}

// RemoveOp removes a student from a session.
type RemoveOp struct {
	SessionRef
	Reason string
}

// ChangeTimeOp moves a student to another start time on the same day.
type ChangeTimeOp struct {
	SessionRef
	NewTime string
	Reason  string
}

func (EnrollOp) RequestType() models.RequestType     { return models.RequestAddStudent }
func (RemoveOp) RequestType() models.RequestType     { return models.RequestRemoveStudent }
func (ChangeTimeOp) RequestType() models.RequestType { return models.RequestChangeTime }

func (o EnrollOp) target() SessionRef     { return o.SessionRef }
func (o RemoveOp) target() SessionRef     { return o.SessionRef }
func (o ChangeTimeOp) target() SessionRef { return o.SessionRef }

// CreateSessionInput describes a manually created session.
type CreateSessionInput struct {
	TermID         string
	Teacher        string
	Day            models.Weekday
	StartTime      string
	EndTime        string
	Duration       float64
	Specialization string
	Type           models.SessionType
	Note           string
}

// EnrollmentService is the only component that mutates schedules and the roster together.
type EnrollmentService struct {
	store    schoolStore
	notifier Notifier
	metrics  enrollmentMetrics
	logger   *zap.Logger

	defaultSpecialization string
}

// EnrollmentOption configures the service.
type EnrollmentOption func(*EnrollmentService)

// WithDefaultSpecialization sets the label used for sessions created without one.
func WithDefaultSpecialization(label string) EnrollmentOption {
	return func(s *EnrollmentService) {
		if strings.TrimSpace(label) != "" {
			s.defaultSpecialization = label
		}
	}
}

// NewEnrollmentService constructs the enrollment engine.
func NewEnrollmentService(st schoolStore, notifier Notifier, metrics enrollmentMetrics, logger *zap.Logger, opts ...EnrollmentOption) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &EnrollmentService{
		store:                 st,
		notifier:              notifier,
		metrics:               metrics,
		logger:                logger,
		defaultSpecialization: timetable.DefaultSpecialization,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// RequestOrApply applies op directly for administrators and queues a change request for teachers.
func (s *EnrollmentService) RequestOrApply(ctx context.Context, actor *models.Actor, op Operation) (*models.EnrollmentResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if op == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "operation is required")
	}
	switch {
	case actor.CanEditDirectly():
		return s.apply(ctx, actor, op)
	case actor.CanRequestChanges():
		return s.request(ctx, actor, op)
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "this role cannot change schedules")
	}
}

func (s *EnrollmentService) apply(ctx context.Context, actor *models.Actor, op Operation) (*models.EnrollmentResult, error) {
	switch o := op.(type) {
	case EnrollOp:
		return s.DirectEnroll(ctx, actor, o.SessionRef)
	case RemoveOp:
		return s.DirectRemove(ctx, actor, o.SessionRef)
	case ChangeTimeOp:
		return s.DirectChangeTime(ctx, actor, o.SessionRef, o.NewTime)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported operation %T", op))
	}
}

// DirectEnroll seats a student in a session and records the back-reference in one commit.
func (s *EnrollmentService) DirectEnroll(ctx context.Context, actor *models.Actor, ref SessionRef) (*models.EnrollmentResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	result := &models.EnrollmentResult{}
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		outcome, warnings, err := s.enrollTx(tx, ref)
		result.Outcome, result.Warnings = outcome, warnings
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record("enroll", result.Outcome)
	if len(result.Warnings) > 0 {
		notify(ctx, s.notifier, "Exclusion warning",
			fmt.Sprintf("%s enrolled in %s despite %d exclusion rule(s)", ref.StudentID, ref.SessionID, len(result.Warnings)), SeverityWarning)
	}
	return result, nil
}

// DirectRemove takes a student out of a session and drops the matching back-reference in one commit.
func (s *EnrollmentService) DirectRemove(ctx context.Context, actor *models.Actor, ref SessionRef) (*models.EnrollmentResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	result := &models.EnrollmentResult{}
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		outcome, err := s.removeTx(tx, ref)
		result.Outcome = outcome
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record("remove", result.Outcome)
	return result, nil
}

// DirectChangeTime moves a student to the session starting at newTime on the same day,
// creating that session when it does not exist yet.
func (s *EnrollmentService) DirectChangeTime(ctx context.Context, actor *models.Actor, ref SessionRef, newTime string) (*models.EnrollmentResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	result := &models.EnrollmentResult{}
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		outcome, warnings, err := s.changeTimeTx(tx, ref, newTime)
		result.Outcome, result.Warnings = outcome, warnings
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record("change-time", result.Outcome)
	return result, nil
}

// CreateSession inserts an empty session whose id matches what the roster parser would derive.
func (s *EnrollmentService) CreateSession(ctx context.Context, actor *models.Actor, input CreateSessionInput) (*models.Session, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !input.Day.Valid() {
		day, err := models.ParseWeekday(string(input.Day))
		if err != nil {
			return nil, validationError(err, "day must be a weekday name")
		}
		input.Day = day
	}
	session, err := s.buildSession(input)
	if err != nil {
		return nil, err
	}
	err = s.store.Update(ctx, func(tx *store.Tx) error {
		return tx.InsertSession(input.TermID, input.Teacher, input.Day, *session)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("session created", zap.String("term_id", input.TermID), zap.String("session_id", session.ID))
	return session, nil
}

func (s *EnrollmentService) buildSession(input CreateSessionInput) (*models.Session, error) {
	teacher := strings.TrimSpace(input.Teacher)
	if teacher == "" || strings.TrimSpace(input.TermID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term and teacher are required")
	}
	start, err := parseSessionStart(input.StartTime)
	if err != nil {
		return nil, err
	}
	var end timetable.Clock
	switch {
	case strings.TrimSpace(input.EndTime) != "":
		end, err = parseSessionStart(input.EndTime)
		if err != nil {
			return nil, err
		}
	case input.Duration > 0:
		end = start + timetable.Clock(input.Duration*60)
	default:
		end = start + 60
	}
	if end <= start || end >= 24*60 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session must end after it starts and before midnight")
	}
	sessionType := input.Type
	if sessionType == "" {
		sessionType = models.SessionPractical
	}
	if !sessionType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "type must be practical or theory")
	}
	specialization := strings.TrimSpace(input.Specialization)
	if specialization == "" {
		specialization = s.defaultSpecialization
	}
	return &models.Session{
		ID:             timetable.SessionID(input.Day, teacher, start),
		Time:           start.Display(),
		EndTime:        end.Display(),
		Duration:       timetable.DurationHours(start, end),
		Students:       []models.SessionStudent{},
		Specialization: specialization,
		Type:           sessionType,
		Note:           input.Note,
	}, nil
}

// parseSessionStart reads a manual start time. Bare "H:MM" values follow the roster PM rule.
func parseSessionStart(raw string) (timetable.Clock, error) {
	trimmed := strings.TrimSpace(raw)
	upper := strings.ToUpper(trimmed)
	if strings.HasSuffix(upper, "AM") || strings.HasSuffix(upper, "PM") {
		c, err := timetable.ParseDisplay(trimmed)
		if err != nil {
			return 0, validationError(err, "invalid time")
		}
		return c, nil
	}
	c, err := timetable.ParseClock(trimmed)
	if err != nil {
		return 0, validationError(err, "invalid time")
	}
	if c.Hour() < 12 {
		return timetable.PM(c.Hour(), c.Minute())
	}
	return c, nil
}

// SoftDeleteStudent un-enrolls a student everywhere and marks the profile deleted.
func (s *EnrollmentService) SoftDeleteStudent(ctx context.Context, actor *models.Actor, studentID, reason string) (*models.Student, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var deleted *models.Student
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		student, err := tx.MutableStudent(studentID)
		if err != nil {
			return err
		}
		for _, term := range tx.Terms() {
			for teacher, days := range term.MasterSchedule {
				for day, sessions := range days {
					for _, session := range sessions {
						if session.StudentIndex(studentID) < 0 {
							continue
						}
						mutable, _, err := tx.MutableSession(term.ID, teacher, day, session.ID)
						if err != nil {
							return err
						}
						mutable.Students = removeSeat(mutable.Students, studentID)
					}
				}
			}
		}
		for _, request := range s.store.Requests(models.RequestFilter{Status: []models.RequestStatus{models.RequestPending}}) {
			if request.Details.StudentID != studentID {
				continue
			}
			staged, err := tx.MutableRequest(request.ID)
			if err != nil {
				return err
			}
			now := utcNow()
			staged.Status = models.RequestDenied
			staged.ReviewedBy = actor.ID
			staged.ReviewedAt = &now
			staged.ReviewNote = "student deleted"
		}
		student.EnrolledIn = []models.EnrollmentRef{}
		student.Status = models.StudentDeleted
		student.DeletionInfo = &models.DeletionInfo{Date: utcNow(), Reason: reason}
		deleted = student
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record("soft-delete", models.OutcomeApplied)
	notify(ctx, s.notifier, "Student deleted", fmt.Sprintf("%s (%s) was removed from every session", deleted.Name, deleted.ID), SeverityInfo)
	return deleted, nil
}

// CheckExclusions lists advisory warnings for seating studentID in a session. It never blocks.
func (s *EnrollmentService) CheckExclusions(termID, teacher string, day models.Weekday, sessionID, studentID string) ([]models.ExclusionWarning, error) {
	term, ok := s.store.Term(termID)
	if !ok {
		return nil, termNotFound(termID)
	}
	found, idx, ok := term.MasterSchedule.FindSession(teacher, day, sessionID)
	if !ok {
		return nil, sessionNotFound(sessionID)
	}
	directory, _ := s.store.TeacherByName(teacher)
	return exclusionWarnings(term, directory, teacher, &term.MasterSchedule[teacher][found][idx], studentID), nil
}

func exclusionWarnings(term *models.Term, directory models.Teacher, teacher string, session *models.Session, studentID string) []models.ExclusionWarning {
	var warnings []models.ExclusionWarning
	for i := range term.Exclusions {
		rule := &term.Exclusions[i]
		if !rule.Involves(studentID) {
			continue
		}
		other := rule.Other(studentID)
		hit := false
		switch rule.Kind {
		case models.ExclusionTeacherStudent:
			hit = other == teacher || (directory.ID != "" && other == directory.ID)
		case models.ExclusionStudentStudent:
			hit = session.StudentIndex(other) >= 0
		}
		if hit {
			warnings = append(warnings, models.ExclusionWarning{
				ExclusionID: rule.ID,
				Kind:        rule.Kind,
				Person1Name: rule.Person1Name,
				Person2Name: rule.Person2Name,
				Reason:      rule.Reason,
			})
		}
	}
	return warnings
}

func (s *EnrollmentService) enrollTx(tx *store.Tx, ref SessionRef) (models.Outcome, []models.ExclusionWarning, error) {
	term, ok := tx.Term(ref.TermID)
	if !ok {
		return "", nil, termNotFound(ref.TermID)
	}
	student, ok := tx.Student(ref.StudentID)
	if !ok {
		return "", nil, profileNotFound(ref.StudentID)
	}
	if student.Status == models.StudentDeleted {
		return "", nil, appErrors.WithResource(appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("student %s is deleted", student.ID)), "student", student.ID)
	}
	day, idx, ok := term.MasterSchedule.FindSession(ref.Teacher, ref.Day, ref.SessionID)
	if !ok {
		return "", nil, sessionNotFound(ref.SessionID)
	}
	current := &term.MasterSchedule[ref.Teacher][day][idx]
	directory, _ := tx.TeacherByName(ref.Teacher)
	warnings := exclusionWarnings(term, directory, ref.Teacher, current, student.ID)

	seated := current.StudentIndex(student.ID) >= 0
	linked := student.EnrollmentIndex(ref.TermID, ref.SessionID) >= 0
	if seated && linked {
		return models.OutcomeAlreadyEnrolled, warnings, nil
	}
	if !seated {
		session, _, err := tx.MutableSession(ref.TermID, ref.Teacher, day, ref.SessionID)
		if err != nil {
			return "", nil, err
		}
		session.Students = append(session.Students, models.SessionStudent{ID: student.ID, Name: student.Name})
	}
	if !linked {
		mutable, err := tx.MutableStudent(student.ID)
		if err != nil {
			return "", nil, err
		}
		mutable.EnrolledIn = append(mutable.EnrolledIn, models.EnrollmentRef{TermID: ref.TermID, Teacher: ref.Teacher, SessionID: ref.SessionID})
	}
	if seated {
		return models.OutcomeAlreadyEnrolled, warnings, nil
	}
	return models.OutcomeApplied, warnings, nil
}

func (s *EnrollmentService) removeTx(tx *store.Tx, ref SessionRef) (models.Outcome, error) {
	term, ok := tx.Term(ref.TermID)
	if !ok {
		return "", termNotFound(ref.TermID)
	}
	day, _, ok := term.MasterSchedule.FindSession(ref.Teacher, ref.Day, ref.SessionID)
	if !ok {
		return "", sessionNotFound(ref.SessionID)
	}
	student, ok := tx.Student(ref.StudentID)
	if !ok {
		return "", profileNotFound(ref.StudentID)
	}

	changed := false
	session, _, err := tx.MutableSession(ref.TermID, ref.Teacher, day, ref.SessionID)
	if err != nil {
		return "", err
	}
	if session.StudentIndex(student.ID) >= 0 {
		session.Students = removeSeat(session.Students, student.ID)
		changed = true
	}
	if student.EnrollmentIndex(ref.TermID, ref.SessionID) >= 0 {
		mutable, err := tx.MutableStudent(student.ID)
		if err != nil {
			return "", err
		}
		mutable.EnrolledIn = removeRef(mutable.EnrolledIn, ref.TermID, ref.SessionID)
		changed = true
	}
	if !changed {
		return models.OutcomeUnchanged, nil
	}
	return models.OutcomeApplied, nil
}

func (s *EnrollmentService) changeTimeTx(tx *store.Tx, ref SessionRef, newTime string) (models.Outcome, []models.ExclusionWarning, error) {
	term, ok := tx.Term(ref.TermID)
	if !ok {
		return "", nil, termNotFound(ref.TermID)
	}
	day, idx, ok := term.MasterSchedule.FindSession(ref.Teacher, ref.Day, ref.SessionID)
	if !ok {
		return "", nil, sessionNotFound(ref.SessionID)
	}
	if _, ok := tx.Student(ref.StudentID); !ok {
		return "", nil, profileNotFound(ref.StudentID)
	}
	source := term.MasterSchedule[ref.Teacher][day][idx]
	if source.StudentIndex(ref.StudentID) < 0 {
		return "", nil, notSeated(ref.StudentID, source.ID)
	}
	start, err := parseSessionStart(newTime)
	if err != nil {
		return "", nil, err
	}
	targetID := timetable.SessionID(day, ref.Teacher, start)
	if targetID == ref.SessionID {
		return models.OutcomeUnchanged, nil, nil
	}
	if _, _, exists := term.MasterSchedule.FindSession(ref.Teacher, day, targetID); !exists {
		target, err := s.buildSession(CreateSessionInput{
			TermID:         ref.TermID,
			Teacher:        ref.Teacher,
			Day:            day,
			StartTime:      start.Display(),
			Duration:       source.Duration,
			Specialization: source.Specialization,
			Type:           source.Type,
		})
		if err != nil {
			return "", nil, err
		}
		if err := tx.InsertSession(ref.TermID, ref.Teacher, day, *target); err != nil {
			return "", nil, err
		}
	}
	from := ref
	from.Day = day
	if _, err := s.removeTx(tx, from); err != nil {
		return "", nil, err
	}
	to := from
	to.SessionID = targetID
	_, warnings, err := s.enrollTx(tx, to)
	if err != nil {
		return "", nil, err
	}
	return models.OutcomeApplied, warnings, nil
}

func (s *EnrollmentService) request(ctx context.Context, actor *models.Actor, op Operation) (*models.EnrollmentResult, error) {
	ref := op.target()
	if !s.ownsSchedule(actor, ref.Teacher) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teachers can only request changes to their own sessions")
	}
	var created *models.ChangeRequest
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		term, ok := tx.Term(ref.TermID)
		if !ok {
			return termNotFound(ref.TermID)
		}
		day, idx, ok := term.MasterSchedule.FindSession(ref.Teacher, ref.Day, ref.SessionID)
		if !ok {
			return sessionNotFound(ref.SessionID)
		}
		student, ok := tx.Student(ref.StudentID)
		if !ok {
			return profileNotFound(ref.StudentID)
		}
		session := term.MasterSchedule[ref.Teacher][day][idx]
		details := models.RequestDetails{
			StudentID:   student.ID,
			StudentName: student.Name,
			TermID:      ref.TermID,
			Teacher:     ref.Teacher,
			Day:         day,
			SessionID:   session.ID,
			SessionTime: session.Time,
		}

		switch o := op.(type) {
		case EnrollOp:
			details.Reason = o.Reason
		case RemoveOp:
			details.Reason = o.Reason
			seat := session.StudentIndex(student.ID)
			if seat < 0 {
				return notSeated(student.ID, session.ID)
			}
			if session.Students[seat].PendingRemoval {
				return appErrors.Clone(appErrors.ErrConflict, "removal already requested")
			}
			mutable, _, err := tx.MutableSession(ref.TermID, ref.Teacher, day, session.ID)
			if err != nil {
				return err
			}
			mutable.Students[mutable.StudentIndex(student.ID)].PendingRemoval = true
		case ChangeTimeOp:
			if session.StudentIndex(student.ID) < 0 {
				return notSeated(student.ID, session.ID)
			}
			start, err := parseSessionStart(o.NewTime)
			if err != nil {
				return err
			}
			details.Reason = o.Reason
			details.NewTime = start.Display()
		}

		created = stageChangeRequest(tx, actor, op.RequestType(), details)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(string(op.RequestType()), models.OutcomeRequested)
	notify(ctx, s.notifier, "New change request",
		fmt.Sprintf("%s requested %s for %s in %s", actor.Name, created.Type, created.Details.StudentName, created.Details.SessionID), SeverityInfo)
	return &models.EnrollmentResult{Outcome: models.OutcomeRequested, Request: created}, nil
}

// ownsSchedule reports whether a teacher actor is the teacher named in a schedule.
func (s *EnrollmentService) ownsSchedule(actor *models.Actor, teacher string) bool {
	return ownsSchedule(s.store, actor, teacher)
}

func ownsSchedule(st schoolStore, actor *models.Actor, teacher string) bool {
	if actor == nil {
		return false
	}
	if actor.CanEditDirectly() {
		return true
	}
	if strings.EqualFold(actor.Name, teacher) {
		return true
	}
	entry, ok := st.TeacherByName(teacher)
	return ok && entry.ID == actor.ID
}

func (s *EnrollmentService) record(operation string, outcome models.Outcome) {
	if s.metrics != nil {
		s.metrics.RecordEnrollment(operation, outcome)
	}
}

func notSeated(studentID, sessionID string) error {
	return appErrors.WithResource(appErrors.Clone(appErrors.ErrProfileNotFound, fmt.Sprintf("student %s is not in session %s", studentID, sessionID)), "student", studentID)
}

func removeSeat(students []models.SessionStudent, studentID string) []models.SessionStudent {
	out := students[:0]
	for _, student := range students {
		if student.ID != studentID {
			out = append(out, student)
		}
	}
	return out
}

func removeRef(refs []models.EnrollmentRef, termID, sessionID string) []models.EnrollmentRef {
	out := refs[:0]
	for _, ref := range refs {
		if ref.TermID != termID || ref.SessionID != sessionID {
			out = append(out, ref)
		}
	}
	return out
}
