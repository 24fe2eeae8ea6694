package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/music-school-api/internal/models"
)

func TestAttendanceShowsInTeacherWeek(t *testing.T) {
	f := newAPIFixture(t)
	mark := map[string]string{
		"weekStart": "2024-09-10",
		"teacher":   "Hazem",
		"sessionId": satSession,
		"studentId": "STU001",
		"status":    "late",
	}

	rec := f.do(t, &hazemActor, http.MethodPut, "/api/v1/terms/fall-2024/attendance", mark)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, &hazemActor, http.MethodGet, "/api/v1/terms/fall-2024/schedule/Hazem?date=2024-09-12", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view models.WeekView
	decode(t, rec, &view)
	assert.Equal(t, "2024-09-07", view.WeekStart)
	require.Len(t, view.Sessions, 2)

	var sat models.WeekSession
	for _, s := range view.Sessions {
		if s.Day == models.Saturday {
			sat = s
		}
	}
	require.Len(t, sat.Students, 1)
	require.NotNil(t, sat.Students[0].Attendance.Status)
	assert.Equal(t, models.AttendanceLate, *sat.Students[0].Attendance.Status)

	clear := map[string]string{"weekStart": "2024-09-07", "teacher": "Hazem", "sessionId": satSession, "studentId": "STU001"}
	rec = f.do(t, &adminActor, http.MethodDelete, "/api/v1/terms/fall-2024/attendance", clear)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, &hazemActor, http.MethodGet, "/api/v1/terms/fall-2024/schedule/Hazem?date=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportDownloadFlow(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, &adminActor, http.MethodGet, "/api/v1/terms/fall-2024/exports/Hazem?date=2024-09-07&download=true", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "schedule-Hazem-2024-09-07.csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), `"Day","Time","Specialization","Type","Student Name","Attendance"`))

	rec = f.do(t, &adminActor, http.MethodGet, "/api/v1/terms/fall-2024/exports/Hazem?date=2024-09-07&format=pdf", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var result struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
	}
	decode(t, rec, &result)
	assert.Equal(t, "schedule-Hazem-2024-09-07.pdf", result.Filename)

	rec = f.do(t, nil, http.MethodGet, result.URL, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	rec = f.do(t, nil, http.MethodGet, "/api/v1/exports/forged", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReportsRequireTermAndCarryMeta(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, &managerActor, http.MethodGet, "/api/v1/reports/workload", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, &managerActor, http.MethodGet, "/api/v1/reports/workload?termId=fall-2024", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decode(t, rec, nil)
	assert.Equal(t, "fall-2024", env.Meta["termId"])
	assert.Contains(t, env.Meta, "processing_time_ms")

	rec = f.do(t, &hazemActor, http.MethodGet, "/api/v1/reports/enrollment", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
