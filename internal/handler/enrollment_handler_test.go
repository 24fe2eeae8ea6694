package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/music-school-api/internal/models"
)

func TestEnrollDispatchesByRole(t *testing.T) {
	f := newAPIFixture(t)
	body := map[string]string{"studentId": "STU002", "teacher": "Hazem", "day": "الاثنين", "sessionId": monSession}

	rec := f.do(t, nil, http.MethodPost, "/api/v1/terms/fall-2024/enrollments", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, &managerActor, http.MethodPost, "/api/v1/terms/fall-2024/enrollments", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, &hazemActor, http.MethodPost, "/api/v1/terms/fall-2024/enrollments", body)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var requested models.EnrollmentResult
	decode(t, rec, &requested)
	assert.Equal(t, models.OutcomeRequested, requested.Outcome)
	require.NotNil(t, requested.Request)
	assert.Equal(t, models.RequestPending, requested.Request.Status)

	rec = f.do(t, &adminActor, http.MethodPost, "/api/v1/terms/fall-2024/enrollments", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var applied models.EnrollmentResult
	decode(t, rec, &applied)
	assert.Equal(t, models.OutcomeApplied, applied.Outcome)

	rec = f.do(t, &adminActor, http.MethodPost, "/api/v1/terms/fall-2024/enrollments", body)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &applied)
	assert.Equal(t, models.OutcomeAlreadyEnrolled, applied.Outcome)
}

func TestEnrollRejectsBadPayloads(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, &adminActor, http.MethodPost, "/api/v1/terms/fall-2024/enrollments", map[string]string{"teacher": "Hazem"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := map[string]string{"studentId": "STU002", "teacher": "Hazem", "day": "Someday", "sessionId": monSession}
	rec = f.do(t, &adminActor, http.MethodPost, "/api/v1/terms/fall-2024/enrollments", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body = map[string]string{"studentId": "STU002", "teacher": "Hazem", "sessionId": "Friday-Hazem-900PM"}
	rec = f.do(t, &adminActor, http.MethodPost, "/api/v1/terms/fall-2024/enrollments", body)
	require.Equal(t, http.StatusNotFound, rec.Code)
	env := decode(t, rec, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, "SESSION_NOT_FOUND", env.Error.Code)
}

func TestRemoveAndChangeTime(t *testing.T) {
	f := newAPIFixture(t)

	move := map[string]string{"studentId": "STU001", "teacher": "Hazem", "sessionId": satSession, "newTime": "5:00"}
	rec := f.do(t, &adminActor, http.MethodPost, "/api/v1/terms/fall-2024/change-time", move)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	term, ok := f.store.Term(fallTerm)
	require.True(t, ok)
	_, _, found := term.MasterSchedule.FindSession("Hazem", models.Saturday, "Saturday-Hazem-500PM")
	assert.True(t, found)

	remove := map[string]string{"studentId": "STU001", "teacher": "Hazem", "sessionId": "Saturday-Hazem-500PM"}
	rec = f.do(t, &adminActor, http.MethodDelete, "/api/v1/terms/fall-2024/enrollments", remove)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result models.EnrollmentResult
	decode(t, rec, &result)
	assert.Equal(t, models.OutcomeApplied, result.Outcome)

	rec = f.do(t, &adminActor, http.MethodDelete, "/api/v1/terms/fall-2024/enrollments", remove)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &result)
	assert.Equal(t, models.OutcomeUnchanged, result.Outcome)
}

func TestCreateSessionAndReviewRequest(t *testing.T) {
	f := newAPIFixture(t)

	session := map[string]interface{}{"teacher": "Naji", "day": "Sunday", "startTime": "6:00", "duration": 1.5}
	rec := f.do(t, &adminActor, http.MethodPost, "/api/v1/terms/fall-2024/sessions", session)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.Session
	decode(t, rec, &created)
	assert.Equal(t, "Sunday-Naji-600PM", created.ID)
	assert.Equal(t, "7:30 PM", created.EndTime)

	rec = f.do(t, &adminActor, http.MethodPost, "/api/v1/terms/fall-2024/sessions", session)
	assert.Equal(t, http.StatusConflict, rec.Code)

	body := map[string]string{"studentId": "STU001", "teacher": "Hazem", "sessionId": satSession, "reason": "moving away"}
	rec = f.do(t, &hazemActor, http.MethodDelete, "/api/v1/terms/fall-2024/enrollments", body)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var pending models.EnrollmentResult
	decode(t, rec, &pending)
	requestID := pending.Request.ID

	rec = f.do(t, &hazemActor, http.MethodGet, "/api/v1/requests?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []models.ChangeRequest
	decode(t, rec, &listed)
	require.Len(t, listed, 1)

	review := map[string]string{"status": "approved"}
	rec = f.do(t, &hazemActor, http.MethodPost, "/api/v1/requests/"+requestID+"/review", review)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, &adminActor, http.MethodPost, "/api/v1/requests/"+requestID+"/review", review)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var reviewed models.ChangeRequest
	decode(t, rec, &reviewed)
	assert.Equal(t, models.RequestApproved, reviewed.Status)

	stu, ok := f.store.Student("STU001")
	require.True(t, ok)
	assert.Empty(t, stu.EnrolledIn)

	rec = f.do(t, &adminActor, http.MethodPost, "/api/v1/requests/"+requestID+"/review", review)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
