package timetable

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/music-school-api/internal/models"
)

// DefaultSpecialization labels sessions whose roster line names no instrument.
const DefaultSpecialization = "Oud"

// SkipReason classifies a dropped roster line.
type SkipReason string

const (
	SkipMissingField   SkipReason = "missing-field"
	SkipUnknownTeacher SkipReason = "unknown-teacher"
	SkipBadDay         SkipReason = "bad-day"
	SkipBadTime        SkipReason = "bad-time"
)

// SkippedLine reports an input line that was not imported.
type SkippedLine struct {
	Line   int        `json:"line"`
	Raw    string     `json:"raw"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

// IDSource hands out student ids by name.
type IDSource interface {
	StudentID(name string) string
}

// SequentialIDs allocates STU001, STU002, ... starting after `after`.
type SequentialIDs struct {
	last int
}

// NewSequentialIDs starts numbering at after+1.
func NewSequentialIDs(after int) *SequentialIDs {
	return &SequentialIDs{last: after}
}

// StudentID returns the next id. The parser calls it once per distinct name.
func (s *SequentialIDs) StudentID(string) string {
	s.last++
	return FormatStudentID(s.last)
}

// FormatStudentID renders the roster id for sequence number n.
func FormatStudentID(n int) string {
	return fmt.Sprintf("STU%03d", n)
}

// Options configures a parse.
type Options struct {
	Teachers              []models.Teacher
	TermID                string
	IDs                   IDSource
	DefaultSpecialization string
	EnrollmentDate        time.Time
	Logger                *zap.Logger
}

// Result is the canonical structure derived from a roster.
type Result struct {
	Students []models.Student      `json:"students"`
	Schedule models.MasterSchedule `json:"masterSchedule"`
	Teachers []string              `json:"teachers"`
	Skipped  []SkippedLine         `json:"skipped"`
	Lines    int                   `json:"lines"`
}

var (
	honorificPattern = regexp.MustCompile(`(?i)^(استاذة?|أستاذة?|teacher)\s*`)
	subLabelPattern  = regexp.MustCompile(`"([^"]+)"`)
)

// Parse converts roster text into students and a master schedule.
// The first line is a header. Bad lines are skipped and reported, never fatal.
func Parse(text string, opts Options) Result {
	p := newParser(opts)
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}
		p.line(i+1, strings.TrimRight(line, "\r"))
	}
	return p.result()
}

type parser struct {
	opts      Options
	directory map[string]models.Teacher
	logger    *zap.Logger

	order    []string
	students map[string]*models.Student
	schedule models.MasterSchedule
	teachers []string
	skipped  []SkippedLine
	lines    int
}

func newParser(opts Options) *parser {
	if opts.IDs == nil {
		opts.IDs = NewSequentialIDs(0)
	}
	if opts.DefaultSpecialization == "" {
		opts.DefaultSpecialization = DefaultSpecialization
	}
	if opts.EnrollmentDate.IsZero() {
		opts.EnrollmentDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	directory := make(map[string]models.Teacher, len(opts.Teachers)*2)
	for _, t := range opts.Teachers {
		if t.Username != "" {
			directory[t.Username] = t
		}
		if t.Name != "" {
			directory[t.Name] = t
		}
	}
	return &parser{
		opts:      opts,
		directory: directory,
		logger:    logger,
		students:  make(map[string]*models.Student),
		schedule:  make(models.MasterSchedule),
	}
}

func (p *parser) line(n int, raw string) {
	p.lines++
	fields := strings.Split(raw, ",")
	if len(fields) < 5 {
		p.skip(n, raw, SkipMissingField, "expected 5 comma separated fields")
		return
	}
	name := strings.TrimSpace(fields[0])
	phone := strings.TrimSpace(fields[1])
	dayRaw := strings.TrimSpace(fields[2])
	label := strings.TrimSpace(fields[3])
	timeRaw := strings.TrimSpace(fields[4])
	var fieldLabel string
	if quoted, ok := quotedField(timeRaw); ok && len(fields) > 5 {
		fieldLabel = quoted
		timeRaw = strings.TrimSpace(fields[5])
	}
	if name == "" || dayRaw == "" || label == "" || timeRaw == "" {
		p.skip(n, raw, SkipMissingField, "student, day, teacher and time are required")
		return
	}

	short, specialization := cleanTeacherLabel(label)
	if specialization == "" {
		specialization = fieldLabel
	}
	teacher, ok := p.directory[short]
	if !ok {
		p.skip(n, raw, SkipUnknownTeacher, short)
		return
	}
	day, err := models.ParseWeekday(dayRaw)
	if err != nil {
		p.skip(n, raw, SkipBadDay, err.Error())
		return
	}
	start, end, err := ParseRange(timeRaw)
	if err != nil {
		p.skip(n, raw, SkipBadTime, err.Error())
		return
	}
	if specialization == "" {
		specialization = p.opts.DefaultSpecialization
	}

	student := p.student(name, phone)
	sessionID := SessionID(day, teacher.Name, start)
	p.seat(teacher.Name, day, sessionID, start, end, specialization, student)

	ref := models.EnrollmentRef{TermID: p.opts.TermID, Teacher: teacher.Name, SessionID: sessionID}
	if student.EnrollmentIndex(ref.TermID, ref.SessionID) < 0 {
		student.EnrolledIn = append(student.EnrolledIn, ref)
	}
}

func (p *parser) student(name, phone string) *models.Student {
	if existing, ok := p.students[name]; ok {
		if existing.Phone == "" {
			existing.Phone = phone
		}
		return existing
	}
	student := &models.Student{
		ID:             p.opts.IDs.StudentID(name),
		Name:           name,
		Phone:          phone,
		Level:          models.DefaultLevel,
		EnrollmentDate: p.opts.EnrollmentDate,
		PaymentPlan:    models.PaymentNone,
		Status:         models.StudentActive,
		EnrolledIn:     []models.EnrollmentRef{},
	}
	p.students[name] = student
	p.order = append(p.order, name)
	return student
}

func (p *parser) seat(teacher string, day models.Weekday, sessionID string, start, end Clock, specialization string, student *models.Student) {
	days, ok := p.schedule[teacher]
	if !ok {
		days = make(models.DaySchedule)
		p.schedule[teacher] = days
		p.teachers = append(p.teachers, teacher)
	}
	sessions := days[day]
	for i := range sessions {
		if sessions[i].ID != sessionID {
			continue
		}
		if sessions[i].StudentIndex(student.ID) < 0 {
			sessions[i].Students = append(sessions[i].Students, models.SessionStudent{ID: student.ID, Name: student.Name})
		}
		return
	}
	days[day] = append(sessions, models.Session{
		ID:             sessionID,
		Time:           start.Display(),
		EndTime:        end.Display(),
		Duration:       DurationHours(start, end),
		Students:       []models.SessionStudent{{ID: student.ID, Name: student.Name}},
		Specialization: specialization,
		Type:           models.SessionPractical,
	})
}

func (p *parser) skip(n int, raw string, reason SkipReason, detail string) {
	p.skipped = append(p.skipped, SkippedLine{Line: n, Raw: raw, Reason: reason, Detail: detail})
	p.logger.Warn("roster line skipped",
		zap.Int("line", n),
		zap.String("reason", string(reason)),
		zap.String("detail", detail),
	)
}

func (p *parser) result() Result {
	students := make([]models.Student, 0, len(p.order))
	for _, name := range p.order {
		students = append(students, *p.students[name])
	}
	return Result{
		Students: students,
		Schedule: p.schedule,
		Teachers: p.teachers,
		Skipped:  p.skipped,
		Lines:    p.lines,
	}
}

// cleanTeacherLabel returns the matchable short name and any quoted sub-label.
func cleanTeacherLabel(label string) (short, subLabel string) {
	// A quoted segment is a sub-label only after unquoted teacher text.
	if quote := strings.Index(label, `"`); quote > 0 && strings.TrimSpace(label[:quote]) != "" {
		if m := subLabelPattern.FindStringSubmatch(label[quote:]); m != nil {
			subLabel = strings.TrimSpace(m[1])
		}
	}
	cleaned := strings.ReplaceAll(label, `"`, "")
	cleaned = honorificPattern.ReplaceAllString(strings.TrimSpace(cleaned), "")
	if tokens := strings.Fields(cleaned); len(tokens) > 0 {
		short = tokens[0]
	}
	return short, subLabel
}

// quotedField unwraps a field written as "label". Empty quotes yield ok with no label.
func quotedField(field string) (string, bool) {
	if len(field) < 2 || !strings.HasPrefix(field, `"`) || !strings.HasSuffix(field, `"`) {
		return "", false
	}
	return strings.TrimSpace(field[1 : len(field)-1]), true
}
