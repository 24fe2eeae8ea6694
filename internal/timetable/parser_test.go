package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/music-school-api/internal/models"
)

const header = "الاسم,الجوال,اليوم,الاستاذ,الوقت\n"

var directory = []models.Teacher{
	{ID: "7", Name: "Hazem", Username: "حازم"},
	{ID: "11", Name: "Bassam", Username: "بسام"},
	{ID: "12", Name: "Naji", Username: "ناجي"},
	{ID: "15", Name: "Nancy", Username: "nancy"},
}

func parse(t *testing.T, body string) Result {
	t.Helper()
	return Parse(header+body, Options{
		Teachers:       directory,
		TermID:         "fall-2024",
		EnrollmentDate: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
	})
}

func TestParseSingleLine(t *testing.T) {
	res := parse(t, "سهل التجريبي,0500000011,السبت,استاذ حازم,2:00-3:00")

	require.Empty(t, res.Skipped)
	require.Len(t, res.Students, 1)
	sessions := res.Schedule["Hazem"][models.Saturday]
	require.Len(t, sessions, 1)

	session := sessions[0]
	assert.Equal(t, "Saturday-Hazem-200PM", session.ID)
	assert.Equal(t, "2:00 PM", session.Time)
	assert.Equal(t, "3:00 PM", session.EndTime)
	assert.Equal(t, 1.0, session.Duration)
	assert.Equal(t, DefaultSpecialization, session.Specialization)
	assert.Equal(t, models.SessionPractical, session.Type)
	require.Len(t, session.Students, 1)
	assert.Equal(t, "STU001", session.Students[0].ID)

	student := res.Students[0]
	assert.Equal(t, "STU001", student.ID)
	assert.Equal(t, models.DefaultLevel, student.Level)
	assert.Equal(t, models.PaymentNone, student.PaymentPlan)
	assert.Equal(t, []models.EnrollmentRef{{TermID: "fall-2024", Teacher: "Hazem", SessionID: "Saturday-Hazem-200PM"}}, student.EnrolledIn)
	assert.Equal(t, []string{"Hazem"}, res.Teachers)
}

func TestParseMergesSharedSlot(t *testing.T) {
	res := parse(t, "طالب أ,,الاحد,استاذ ناجي,6:00-7:00\n"+
		"طالب ب,500000000,الاحد,استاذ ناجي,6:00-7:00\n")

	sessions := res.Schedule["Naji"][models.Sunday]
	require.Len(t, sessions, 1)
	require.Len(t, sessions[0].Students, 2)
	assert.Equal(t, "طالب أ", sessions[0].Students[0].Name)
	assert.Equal(t, "طالب ب", sessions[0].Students[1].Name)
	assert.Equal(t, "STU002", sessions[0].Students[1].ID)
}

func TestParseDuplicateLinesAreIdempotent(t *testing.T) {
	line := "طالب أ,,الاحد,استاذ ناجي,6:00-7:00\n"
	res := parse(t, line+line+line)

	require.Len(t, res.Students, 1)
	sessions := res.Schedule["Naji"][models.Sunday]
	require.Len(t, sessions, 1)
	require.Len(t, sessions[0].Students, 1)
	require.Len(t, res.Students[0].EnrolledIn, 1)
}

func TestParseReusesIDAcrossSessions(t *testing.T) {
	res := parse(t, "طالب أ,,الاحد,استاذ ناجي,6:00-7:00\n"+
		"طالب ب,,الاحد,استاذ ناجي,7:00-8:00\n"+
		"طالب أ,,الاثنين,استاذ حازم,4:00-5:00\n")

	require.Len(t, res.Students, 2)
	first := res.Students[0]
	assert.Equal(t, "STU001", first.ID)
	require.Len(t, first.EnrolledIn, 2)
	assert.Equal(t, "Monday-Hazem-400PM", first.EnrolledIn[1].SessionID)
	assert.Equal(t, "STU001", res.Schedule["Hazem"][models.Monday][0].Students[0].ID)
}

func TestParseQuotedSubLabel(t *testing.T) {
	res := parse(t, `طالب,,السبت,استاذ بسام "قانون",2:00-3:00`)

	require.Empty(t, res.Skipped)
	session := res.Schedule["Bassam"][models.Saturday][0]
	assert.Equal(t, "Saturday-Bassam-200PM", session.ID)
	assert.Equal(t, "قانون", session.Specialization)
}

func TestParseSubLabelAsOwnField(t *testing.T) {
	res := parse(t, `طالبة,0500000012,السبت,استاذ بسام,"قانون",2:00-3:00`+"\n"+
		`طالب,,الاحد,استاذ بسام,"",6:00-7:00`)

	require.Empty(t, res.Skipped)
	sat := res.Schedule["Bassam"][models.Saturday]
	require.Len(t, sat, 1)
	assert.Equal(t, "Saturday-Bassam-200PM", sat[0].ID)
	assert.Equal(t, "قانون", sat[0].Specialization)
	assert.Equal(t, "3:00 PM", sat[0].EndTime)

	sun := res.Schedule["Bassam"][models.Sunday]
	require.Len(t, sun, 1)
	assert.Equal(t, DefaultSpecialization, sun[0].Specialization)
}

func TestParseFullyQuotedTeacherLabel(t *testing.T) {
	res := parse(t, `طالب,,السبت,"استاذ بسام",2:00-3:00`)

	require.Empty(t, res.Skipped)
	session := res.Schedule["Bassam"][models.Saturday][0]
	assert.Equal(t, DefaultSpecialization, session.Specialization)
}

func TestParseSkipsBadLinesWithWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	body := "طالب,,السبت,استاذ مجهول,2:00-3:00\n" +
		"طالب,,السبت\n" +
		",,السبت,استاذ حازم,2:00-3:00\n" +
		"طالب,,يوم,استاذ حازم,2:00-3:00\n" +
		"طالب,,السبت,استاذ حازم,two-three\n" +
		"طالب ناجح,,السبت,استاذة nancy,5:00-6:00\n"
	res := Parse(header+body, Options{Teachers: directory, TermID: "t1", Logger: zap.New(core)})

	require.Len(t, res.Skipped, 5)
	reasons := []SkipReason{res.Skipped[0].Reason, res.Skipped[1].Reason, res.Skipped[2].Reason, res.Skipped[3].Reason, res.Skipped[4].Reason}
	assert.Equal(t, []SkipReason{SkipUnknownTeacher, SkipMissingField, SkipMissingField, SkipBadDay, SkipBadTime}, reasons)
	assert.Equal(t, 2, res.Skipped[0].Line)
	assert.Equal(t, 5, logs.Len())

	require.Len(t, res.Students, 1)
	assert.Equal(t, "Saturday-Nancy-500PM", res.Schedule["Nancy"][models.Saturday][0].ID)
	assert.Equal(t, 6, res.Lines)
}

func TestParseHeaderOnly(t *testing.T) {
	res := Parse(header, Options{Teachers: directory})
	assert.Empty(t, res.Students)
	assert.Empty(t, res.Schedule)
	assert.Zero(t, res.Lines)
}

type fixedIDs map[string]string

func (f fixedIDs) StudentID(name string) string { return f[name] }

func TestParseUsesIDSource(t *testing.T) {
	res := Parse(header+"قديم,,السبت,استاذ حازم,2:00-3:00\n", Options{
		Teachers: directory,
		IDs:      fixedIDs{"قديم": "STU042"},
	})
	require.Len(t, res.Students, 1)
	assert.Equal(t, "STU042", res.Students[0].ID)
}

func TestCleanTeacherLabel(t *testing.T) {
	short, sub := cleanTeacherLabel(`استاذ بسام "قانون"`)
	assert.Equal(t, "بسام", short)
	assert.Equal(t, "قانون", sub)

	short, sub = cleanTeacherLabel("استاذة نانسي")
	assert.Equal(t, "نانسي", short)
	assert.Empty(t, sub)

	short, _ = cleanTeacherLabel("Teacher Hazem")
	assert.Equal(t, "Hazem", short)

	short, sub = cleanTeacherLabel(`"استاذ بسام"`)
	assert.Equal(t, "بسام", short)
	assert.Empty(t, sub)
}
