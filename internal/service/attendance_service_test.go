package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/music-school-api/internal/models"
	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
)

func satRef(week string) AttendanceRef {
	return AttendanceRef{TermID: fallTerm, WeekStart: week, Teacher: "Hazem", SessionID: satSession, StudentID: "STU001"}
}

func TestEffectiveAttendancePrecedence(t *testing.T) {
	st := newSchoolStore(t)
	leaves := NewLeaveService(st, nil, nil, nil)
	attendance := NewAttendanceService(st, nil)
	ctx := context.Background()
	week := time.Date(2024, 9, 7, 0, 0, 0, 0, time.UTC)

	effective, err := attendance.Effective(fallTerm, week, "Hazem", satSession, "STU001")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceFromUnmarked, effective.Source)
	assert.Nil(t, effective.Status)

	leave, err := leaves.Submit(ctx, hazemActor, SubmitLeaveRequest{
		Type:      models.LeaveStudent,
		PersonID:  "STU001",
		StartDate: time.Date(2024, 9, 8, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 9, 9, 0, 0, 0, 0, time.UTC),
		Reason:    "travel",
	})
	require.NoError(t, err)

	effective, err = attendance.Effective(fallTerm, week, "Hazem", satSession, "STU001")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceFromUnmarked, effective.Source, "pending leave does not excuse")

	_, err = leaves.Review(ctx, adminActor, leave.ID, ReviewLeaveRequest{Status: models.LeaveApproved})
	require.NoError(t, err)

	effective, err = attendance.Effective(fallTerm, week, "Hazem", satSession, "STU001")
	require.NoError(t, err)
	require.NotNil(t, effective.Status)
	assert.Equal(t, models.AttendanceExcused, *effective.Status)
	assert.Equal(t, models.AttendanceFromLeave, effective.Source)
	term, _ := st.Term(fallTerm)
	assert.Empty(t, term.WeeklyAttendance, "leave-derived status is never stored")

	_, err = attendance.Mark(ctx, hazemActor, MarkInput{AttendanceRef: satRef("2024-09-07"), Status: models.AttendanceAbsent})
	require.NoError(t, err)
	effective, err = attendance.Effective(fallTerm, week, "Hazem", satSession, "STU001")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceAbsent, *effective.Status)
	assert.Equal(t, models.AttendanceFromRecord, effective.Source)

	require.NoError(t, attendance.Clear(ctx, hazemActor, satRef("2024-09-07")))
	effective, err = attendance.Effective(fallTerm, week, "Hazem", satSession, "STU001")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceExcused, *effective.Status)

	other, err := attendance.Effective(fallTerm, week.AddDate(0, 0, 7), "Hazem", satSession, "STU001")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceFromUnmarked, other.Source)
}

func TestMarkNormalisesWeekStart(t *testing.T) {
	st := newSchoolStore(t)
	attendance := NewAttendanceService(st, nil)

	result, err := attendance.Mark(context.Background(), adminActor, MarkInput{
		AttendanceRef: satRef("2024-09-10"),
		Status:        models.AttendanceLate,
		Note:          " traffic ",
	})
	require.NoError(t, err)
	assert.Equal(t, "traffic", result.Note)

	term, _ := st.Term(fallTerm)
	record, ok := term.WeeklyAttendance.Lookup("2024-09-07", "Hazem", satSession, "STU001")
	require.True(t, ok)
	assert.Equal(t, models.AttendanceLate, record.Status)
}

func TestMarkRejectsInvalidInput(t *testing.T) {
	st := newSchoolStore(t)
	attendance := NewAttendanceService(st, nil)
	ctx := context.Background()

	_, err := attendance.Mark(ctx, najiActor, MarkInput{AttendanceRef: satRef("2024-09-07"), Status: models.AttendancePresent})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = attendance.Mark(ctx, managerActor, MarkInput{AttendanceRef: satRef("2024-09-07"), Status: models.AttendancePresent})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = attendance.Mark(ctx, adminActor, MarkInput{AttendanceRef: satRef("2024-09-07"), Status: "sleeping"})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = attendance.Mark(ctx, adminActor, MarkInput{AttendanceRef: satRef("07/09/2024"), Status: models.AttendancePresent})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	ref := satRef("2024-09-07")
	ref.StudentID = "STU002"
	_, err = attendance.Mark(ctx, adminActor, MarkInput{AttendanceRef: ref, Status: models.AttendancePresent})
	require.ErrorIs(t, err, appErrors.ErrProfileNotFound)

	ref = satRef("2024-09-07")
	ref.SessionID = "Friday-Hazem-900PM"
	_, err = attendance.Mark(ctx, adminActor, MarkInput{AttendanceRef: ref, Status: models.AttendancePresent})
	require.ErrorIs(t, err, appErrors.ErrSessionNotFound)
}

func TestLeaveSubmitRules(t *testing.T) {
	st := newSchoolStore(t)
	notifier := &recordingNotifier{}
	leaves := NewLeaveService(st, notifier, nil, nil)
	ctx := context.Background()
	start := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

	_, err := leaves.Submit(ctx, managerActor, SubmitLeaveRequest{Type: models.LeaveStudent, PersonID: "STU001", StartDate: start, EndDate: start})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = leaves.Submit(ctx, adminActor, SubmitLeaveRequest{Type: models.LeaveStudent, PersonID: "STU001", StartDate: start, EndDate: start.AddDate(0, 0, -1)})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = leaves.Submit(ctx, hazemActor, SubmitLeaveRequest{Type: models.LeaveTeacher, PersonID: "Naji", StartDate: start, EndDate: start})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	own, err := leaves.Submit(ctx, hazemActor, SubmitLeaveRequest{Type: models.LeaveTeacher, PersonID: "حازم", StartDate: start, EndDate: start})
	require.NoError(t, err)
	assert.Equal(t, "7", own.PersonID)
	assert.Equal(t, "Hazem", own.PersonName)
	assert.Equal(t, models.LeavePending, own.Status)

	denied, err := leaves.Review(ctx, adminActor, own.ID, ReviewLeaveRequest{Status: models.LeaveDenied})
	require.NoError(t, err)
	assert.Equal(t, models.LeaveDenied, denied.Status)
	_, err = leaves.Review(ctx, adminActor, own.ID, ReviewLeaveRequest{Status: models.LeaveApproved})
	require.ErrorIs(t, err, appErrors.ErrConflict)

	assert.Equal(t, 1, notifier.count(SeverityInfo))
	assert.Equal(t, 1, notifier.count(SeverityWarning))
	assert.Empty(t, leaves.ApprovedOverlapping("7", models.LeaveTeacher, models.WeekStart(start)))
}
