package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/store"
	"github.com/noah-isme/music-school-api/internal/timetable"
	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
)

// ImportMode decides how parsed sessions meet the existing schedule.
type ImportMode string

const (
	// ImportMerge adds parsed seats to the existing schedule.
	ImportMerge ImportMode = "merge"
	// ImportReplace swaps the term's master schedule for the parsed one.
	ImportReplace ImportMode = "replace"
)

// MaxRosterBytes bounds roster text whether it arrives inline or from the object store.
const MaxRosterBytes = 4 << 20

type objectReader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

type importMetrics interface {
	RecordImport(imported, skipped int)
}

// ImportInput carries roster text inline or as an object key.
type ImportInput struct {
	TermID    string
	Text      string
	ObjectKey string
	Mode      ImportMode
}

// ImportResult summarises an import.
type ImportResult struct {
	TermID      string                  `json:"termId"`
	Mode        ImportMode              `json:"mode"`
	Lines       int                     `json:"lines"`
	Imported    int                     `json:"imported"`
	Students    int                     `json:"students"`
	NewStudents int                     `json:"newStudents"`
	Sessions    int                     `json:"sessions"`
	Teachers    []string                `json:"teachers"`
	Skipped     []timetable.SkippedLine `json:"skipped"`
	Denied      int                     `json:"deniedRequests,omitempty"`
}

// ImportService loads roster text into a term.
type ImportService struct {
	store                 schoolStore
	objects               objectReader
	metrics               importMetrics
	notifier              Notifier
	defaultSpecialization string
	logger                *zap.Logger
}

// NewImportService constructs the service. objects may be nil when uploads are disabled.
func NewImportService(st schoolStore, objects objectReader, metrics importMetrics, notifier Notifier, defaultSpecialization string, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultSpecialization == "" {
		defaultSpecialization = timetable.DefaultSpecialization
	}
	return &ImportService{
		store:                 st,
		objects:               objects,
		metrics:               metrics,
		notifier:              notifier,
		defaultSpecialization: defaultSpecialization,
		logger:                logger,
	}
}

// Import parses the roster and applies it to the term in a single commit.
func (s *ImportService) Import(ctx context.Context, actor *models.Actor, input ImportInput) (*ImportResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if input.Mode == "" {
		input.Mode = ImportMerge
	}
	if input.Mode != ImportMerge && input.Mode != ImportReplace {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mode must be merge or replace")
	}
	text, err := s.text(ctx, input)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{TermID: input.TermID, Mode: input.Mode}
	err = s.store.Update(ctx, func(tx *store.Tx) error {
		term, err := tx.MutableTerm(input.TermID)
		if err != nil {
			return err
		}
		ids := &rosterIDs{tx: tx, last: tx.LastStudentSeq()}
		parsed := timetable.Parse(text, timetable.Options{
			Teachers:              tx.Teachers(),
			TermID:                term.ID,
			IDs:                   ids,
			DefaultSpecialization: s.defaultSpecialization,
			EnrollmentDate:        utcNow().Truncate(24 * time.Hour),
			Logger:                s.logger,
		})

		if input.Mode == ImportReplace {
			denied, err := s.replace(tx, actor, term, parsed)
			if err != nil {
				return err
			}
			result.Denied = denied
		} else if err := s.merge(tx, term.ID, parsed); err != nil {
			return err
		}
		for i := range parsed.Students {
			created, err := upsertParsedStudent(tx, &parsed.Students[i])
			if err != nil {
				return err
			}
			if created {
				result.NewStudents++
			}
		}

		result.Lines = parsed.Lines
		result.Skipped = parsed.Skipped
		result.Imported = parsed.Lines - len(parsed.Skipped)
		result.Students = len(parsed.Students)
		result.Teachers = parsed.Teachers
		for _, days := range parsed.Schedule {
			for _, sessions := range days {
				result.Sessions += len(sessions)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordImport(result.Imported, len(result.Skipped))
	}
	severity := SeveritySuccess
	if len(result.Skipped) > 0 {
		severity = SeverityWarning
	}
	notify(ctx, s.notifier, "Roster imported",
		fmt.Sprintf("%d line(s) imported into %s, %d skipped", result.Imported, result.TermID, len(result.Skipped)), severity)
	return result, nil
}

func (s *ImportService) text(ctx context.Context, input ImportInput) (string, error) {
	if len(input.Text) > MaxRosterBytes {
		return "", rosterTooLarge()
	}
	if strings.TrimSpace(input.Text) != "" {
		return input.Text, nil
	}
	if input.ObjectKey == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "text or objectKey is required")
	}
	if s.objects == nil {
		return "", appErrors.Clone(appErrors.ErrPreconditionFailed, "roster uploads are not configured")
	}
	reader, err := s.objects.Get(ctx, input.ObjectKey)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "roster object not found")
	}
	defer reader.Close()
	data, err := io.ReadAll(io.LimitReader(reader, MaxRosterBytes+1))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read roster object")
	}
	if len(data) > MaxRosterBytes {
		return "", rosterTooLarge()
	}
	return string(data), nil
}

func rosterTooLarge() error {
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("roster exceeds %d bytes", MaxRosterBytes))
}

// replace drops every back-reference to the term and installs the parsed schedule. Attendance
// for sessions that did not survive is pruned and their pending requests are denied.
func (s *ImportService) replace(tx *store.Tx, actor *models.Actor, term *models.Term, parsed timetable.Result) (int, error) {
	for _, student := range tx.Students() {
		if !hasTermRef(student, term.ID) {
			continue
		}
		mutable, err := tx.MutableStudent(student.ID)
		if err != nil {
			return 0, err
		}
		kept := mutable.EnrolledIn[:0]
		for _, ref := range mutable.EnrolledIn {
			if ref.TermID != term.ID {
				kept = append(kept, ref)
			}
		}
		mutable.EnrolledIn = kept
	}
	term.MasterSchedule = parsed.Schedule
	term.Teachers = append([]string{}, parsed.Teachers...)
	term.WeeklyAttendance = survivingAttendance(term.WeeklyAttendance, parsed.Schedule)

	denied := 0
	for _, request := range s.store.Requests(models.RequestFilter{TermID: term.ID, Status: []models.RequestStatus{models.RequestPending}}) {
		if _, _, ok := parsed.Schedule.FindSession(request.Details.Teacher, request.Details.Day, request.Details.SessionID); ok {
			continue
		}
		staged, err := tx.MutableRequest(request.ID)
		if err != nil {
			return 0, err
		}
		now := utcNow()
		staged.Status = models.RequestDenied
		staged.ReviewedBy = actor.ID
		staged.ReviewedAt = &now
		staged.ReviewNote = "session removed by roster import"
		denied++
	}
	return denied, nil
}

// survivingAttendance rebuilds the overlay without sessions missing from schedule.
func survivingAttendance(attendance models.WeeklyAttendance, schedule models.MasterSchedule) models.WeeklyAttendance {
	kept := make(models.WeeklyAttendance, len(attendance))
	for week, teachers := range attendance {
		byTeacher := make(map[string]map[string]models.SessionAttendance, len(teachers))
		for teacher, sessions := range teachers {
			bySession := make(map[string]models.SessionAttendance, len(sessions))
			for sessionID, students := range sessions {
				if _, _, ok := schedule.FindSession(teacher, "", sessionID); ok {
					bySession[sessionID] = students
				}
			}
			if len(bySession) > 0 {
				byTeacher[teacher] = bySession
			}
		}
		if len(byTeacher) > 0 {
			kept[week] = byTeacher
		}
	}
	return kept
}

func (s *ImportService) merge(tx *store.Tx, termID string, parsed timetable.Result) error {
	for _, teacher := range parsed.Teachers {
		for _, day := range models.Weekdays {
			for _, incoming := range parsed.Schedule[teacher][day] {
				term, _ := tx.Term(termID)
				if _, _, exists := term.MasterSchedule.FindSession(teacher, day, incoming.ID); !exists {
					if err := tx.InsertSession(termID, teacher, day, incoming); err != nil {
						return err
					}
					continue
				}
				session, _, err := tx.MutableSession(termID, teacher, day, incoming.ID)
				if err != nil {
					return err
				}
				for _, seat := range incoming.Students {
					if session.StudentIndex(seat.ID) < 0 {
						session.Students = append(session.Students, seat)
					}
				}
			}
		}
	}
	return nil
}

// upsertParsedStudent stages a new student or adds parsed back-references to an existing one.
func upsertParsedStudent(tx *store.Tx, parsed *models.Student) (bool, error) {
	if _, ok := tx.Student(parsed.ID); !ok {
		created := *parsed
		created.EnrolledIn = append([]models.EnrollmentRef{}, parsed.EnrolledIn...)
		tx.PutStudent(&created)
		return true, nil
	}
	existing, err := tx.MutableStudent(parsed.ID)
	if err != nil {
		return false, err
	}
	if existing.Phone == "" {
		existing.Phone = parsed.Phone
	}
	for _, ref := range parsed.EnrolledIn {
		if existing.EnrollmentIndex(ref.TermID, ref.SessionID) < 0 {
			existing.EnrolledIn = append(existing.EnrolledIn, ref)
		}
	}
	return false, nil
}

func hasTermRef(student *models.Student, termID string) bool {
	for _, ref := range student.EnrolledIn {
		if ref.TermID == termID {
			return true
		}
	}
	return false
}

// rosterIDs reuses ids of existing students by exact name and continues the STUnnn sequence.
type rosterIDs struct {
	tx   *store.Tx
	last int
}

func (r *rosterIDs) StudentID(name string) string {
	if existing, ok := r.tx.StudentByName(name); ok {
		return existing.ID
	}
	r.last++
	return timetable.FormatStudentID(r.last)
}
