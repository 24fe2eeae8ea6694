package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/store"
	"github.com/noah-isme/music-school-api/internal/timetable"
	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
)

const rosterHeader = "الاسم,الجوال,اليوم,الاستاذ,الوقت\n"

type mapObjects map[string]string

func (m mapObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := m[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type importCounter struct {
	imported, skipped int
}

func (c *importCounter) RecordImport(imported, skipped int) {
	c.imported += imported
	c.skipped += skipped
}

func TestImportMergeReusesIDsAndReportsSkips(t *testing.T) {
	st := newSchoolStore(t)
	notifier := &recordingNotifier{}
	metrics := &importCounter{}
	svc := NewImportService(st, nil, metrics, notifier, "", nil)

	result, err := svc.Import(context.Background(), adminActor, ImportInput{
		TermID: fallTerm,
		Text: rosterHeader +
			"Sahl,0500000001,السبت,استاذ حازم,2:00-3:00\n" +
			"Omar,0500000002,السبت,استاذ حازم,2:00-3:00\n" +
			"Omar,,الاحد,استاذ ناجي,6:00-7:00\n" +
			"Huda,,الاحد,استاذ مجهول,6:00-7:00\n",
	})
	require.NoError(t, err)
	assert.Equal(t, ImportMerge, result.Mode)
	assert.Equal(t, 4, result.Lines)
	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, 2, result.Students)
	assert.Equal(t, 1, result.NewStudents)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, timetable.SkipUnknownTeacher, result.Skipped[0].Reason)

	sat := session(t, st, "Hazem", models.Saturday, satSession)
	require.Len(t, sat.Students, 2)
	assert.Equal(t, "STU001", sat.Students[0].ID)
	assert.Equal(t, "STU003", sat.Students[1].ID)

	sun := session(t, st, "Naji", models.Sunday, "Sunday-Naji-600PM")
	assert.Equal(t, "6:00 PM", sun.Time)
	term, _ := st.Term(fallTerm)
	assert.Equal(t, []string{"Hazem", "Naji"}, term.Teachers)

	sahl := student(t, st, "STU001")
	assert.Len(t, sahl.EnrolledIn, 1)
	assert.Equal(t, models.PaymentMonthly, sahl.PaymentPlan, "existing profile fields survive")
	omar := student(t, st, "STU003")
	assert.Len(t, omar.EnrolledIn, 2)

	assert.Equal(t, 3, metrics.imported)
	assert.Equal(t, 1, metrics.skipped)
	assert.Equal(t, 1, notifier.count(SeverityWarning))
}

func TestImportReplaceSwapsSchedule(t *testing.T) {
	st := newSchoolStore(t)
	svc := NewImportService(st, nil, nil, nil, "Piano", nil)

	result, err := svc.Import(context.Background(), adminActor, ImportInput{
		TermID: fallTerm,
		Mode:   ImportReplace,
		Text:   rosterHeader + "Lina,,الاثنين,استاذ ناجي,5:30-6:30\n",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sessions)
	assert.Equal(t, 0, result.NewStudents)

	term, _ := st.Term(fallTerm)
	assert.Equal(t, []string{"Naji"}, term.Teachers)
	_, ok := term.MasterSchedule["Hazem"]
	assert.False(t, ok)
	mon := session(t, st, "Naji", models.Monday, "Monday-Naji-530PM")
	assert.Equal(t, "Piano", mon.Specialization)

	assert.Empty(t, student(t, st, "STU001").EnrolledIn)
	assert.Equal(t, []models.EnrollmentRef{{TermID: fallTerm, Teacher: "Naji", SessionID: "Monday-Naji-530PM"}}, student(t, st, "STU002").EnrolledIn)
}

func TestImportReplaceDropsVanishedSessionState(t *testing.T) {
	st := newSchoolStore(t)
	ctx := context.Background()
	enrollment, requests := newEngines(st, nil)
	svc := NewImportService(st, nil, nil, nil, "", nil)

	present := &models.AttendanceRecord{Status: models.AttendancePresent}
	require.NoError(t, st.Update(ctx, func(tx *store.Tx) error {
		if err := tx.SetAttendance(fallTerm, "2024-10-05", "Hazem", satSession, "STU001", present); err != nil {
			return err
		}
		return tx.SetAttendance(fallTerm, "2024-10-05", "Hazem", monSession, "STU001", present)
	}))
	pending, err := enrollment.RequestOrApply(ctx, hazemActor, RemoveOp{
		SessionRef: SessionRef{StudentID: "STU001", TermID: fallTerm, Teacher: "Hazem", SessionID: satSession},
	})
	require.NoError(t, err)

	result, err := svc.Import(ctx, adminActor, ImportInput{
		TermID: fallTerm,
		Mode:   ImportReplace,
		Text:   rosterHeader + "Sahl,,الاثنين,استاذ حازم,4:00-5:00\n",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Denied)

	term, _ := st.Term(fallTerm)
	_, ok := term.WeeklyAttendance.Lookup("2024-10-05", "Hazem", satSession, "STU001")
	assert.False(t, ok)
	_, ok = term.WeeklyAttendance.Lookup("2024-10-05", "Hazem", monSession, "STU001")
	assert.True(t, ok)

	stored, ok := st.Request(pending.Request.ID)
	require.True(t, ok)
	assert.Equal(t, models.RequestDenied, stored.Status)
	assert.Equal(t, adminActor.ID, stored.ReviewedBy)

	_, err = requests.Review(ctx, adminActor, pending.Request.ID, ReviewInput{Status: models.RequestApproved})
	require.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestImportReadsObjectStore(t *testing.T) {
	st := newSchoolStore(t)
	objects := mapObjects{"uploads/roster.csv": rosterHeader + "Lina,,الاثنين,استاذ حازم,4:00-5:00\n"}
	svc := NewImportService(st, objects, nil, nil, "", nil)

	_, err := svc.Import(context.Background(), adminActor, ImportInput{TermID: fallTerm, ObjectKey: "uploads/roster.csv"})
	require.NoError(t, err)
	assert.Len(t, session(t, st, "Hazem", models.Monday, monSession).Students, 1)

	_, err = svc.Import(context.Background(), adminActor, ImportInput{TermID: fallTerm, ObjectKey: "missing.csv"})
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestImportGuards(t *testing.T) {
	st := newSchoolStore(t)
	svc := NewImportService(st, nil, nil, nil, "", nil)
	ctx := context.Background()

	_, err := svc.Import(ctx, hazemActor, ImportInput{TermID: fallTerm, Text: rosterHeader})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Import(ctx, adminActor, ImportInput{TermID: fallTerm, Text: rosterHeader, Mode: "append"})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Import(ctx, adminActor, ImportInput{TermID: fallTerm})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Import(ctx, adminActor, ImportInput{TermID: fallTerm, ObjectKey: "roster.csv"})
	require.ErrorIs(t, err, appErrors.ErrPreconditionFailed)

	_, err = svc.Import(ctx, adminActor, ImportInput{TermID: "spring-2025", Text: rosterHeader + "Lina,,السبت,استاذ حازم,2:00-3:00\n"})
	require.ErrorIs(t, err, appErrors.ErrTermNotFound)
}

func TestImportRejectsOversizedRoster(t *testing.T) {
	st := newSchoolStore(t)
	big := rosterHeader + strings.Repeat("#", MaxRosterBytes)
	svc := NewImportService(st, mapObjects{"uploads/big.csv": big}, nil, nil, "", nil)
	ctx := context.Background()

	_, err := svc.Import(ctx, adminActor, ImportInput{TermID: fallTerm, Text: big})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Import(ctx, adminActor, ImportInput{TermID: fallTerm, ObjectKey: "uploads/big.csv"})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	assert.Empty(t, session(t, st, "Hazem", models.Monday, monSession).Students)
}
