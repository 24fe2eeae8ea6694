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

func TestTeacherWeekPlacesSessions(t *testing.T) {
	st := newSchoolStore(t)
	svc := NewScheduleService(st, 0, nil)

	view, err := svc.TeacherWeek(context.Background(), hazemActor, fallTerm, "Hazem", time.Date(2024, 9, 12, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-09-07", view.WeekStart)
	assert.False(t, view.TeacherOnLeave)
	require.Len(t, view.Sessions, 2)

	sat := view.Sessions[0]
	assert.Equal(t, models.Saturday, sat.Day)
	assert.Equal(t, 4, sat.StartRow)
	assert.Equal(t, time.Date(2024, 9, 7, 0, 0, 0, 0, time.UTC), sat.Date)
	require.Len(t, sat.Students, 1)
	assert.Equal(t, models.AttendanceFromUnmarked, sat.Students[0].Attendance.Source)

	mon := view.Sessions[1]
	assert.Equal(t, models.Monday, mon.Day)
	assert.Equal(t, 6, mon.StartRow)
	assert.Equal(t, time.Date(2024, 9, 9, 0, 0, 0, 0, time.UTC), mon.Date)
}

func TestTeacherWeekFlagsTeacherLeave(t *testing.T) {
	st := newSchoolStore(t)
	leaves := NewLeaveService(st, nil, nil, nil)
	ctx := context.Background()
	leave, err := leaves.Submit(ctx, hazemActor, SubmitLeaveRequest{
		Type:      models.LeaveTeacher,
		PersonID:  "7",
		StartDate: time.Date(2024, 9, 9, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 9, 9, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = leaves.Review(ctx, adminActor, leave.ID, ReviewLeaveRequest{Status: models.LeaveApproved})
	require.NoError(t, err)

	view, err := NewScheduleService(st, 0, nil).TeacherWeek(ctx, managerActor, fallTerm, "Hazem", time.Date(2024, 9, 7, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, view.TeacherOnLeave)
}

func TestTeacherWeekScopesTeachers(t *testing.T) {
	svc := NewScheduleService(newSchoolStore(t), 0, nil)
	date := time.Date(2024, 9, 7, 0, 0, 0, 0, time.UTC)

	_, err := svc.TeacherWeek(context.Background(), najiActor, fallTerm, "Hazem", date)
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.TeacherWeek(context.Background(), adminActor, "spring", "Hazem", date)
	require.ErrorIs(t, err, appErrors.ErrTermNotFound)
}

func TestActiveTermFallsBackToEarliest(t *testing.T) {
	svc := NewScheduleService(newSchoolStore(t), 0, nil)

	term, err := svc.ActiveTerm(time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, fallTerm, term.ID)

	term, err = svc.ActiveTerm(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, fallTerm, term.ID)
}
