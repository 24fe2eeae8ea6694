package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/music-school-api/internal/dto"
	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/service"
	"github.com/noah-isme/music-school-api/pkg/response"
)

type enrollmentEngine interface {
	RequestOrApply(ctx context.Context, actor *models.Actor, op service.Operation) (*models.EnrollmentResult, error)
	CreateSession(ctx context.Context, actor *models.Actor, input service.CreateSessionInput) (*models.Session, error)
}

// EnrollmentHandler exposes schedule mutation endpoints. Administrators change schedules
// directly; teachers get a pending change request back.
type EnrollmentHandler struct {
	enrollments enrollmentEngine
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Enroll godoc
// @Summary Add a student to a session
// @Description Applied immediately for administrators, queued as a change request for teachers.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Term ID"
// @Param payload body dto.SessionTarget true "Seat"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /terms/{id}/enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req dto.SessionTarget
	if err := bindPayload(c, &req, "invalid enrollment payload"); err != nil {
		response.Error(c, err)
		return
	}
	ref, err := sessionRef(c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.enrollments.RequestOrApply(c.Request.Context(), actorFromContext(c), service.EnrollOp{SessionRef: ref, Reason: req.Reason})
	respondResult(c, result, err)
}

// Remove godoc
// @Summary Remove a student from a session
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Term ID"
// @Param payload body dto.SessionTarget true "Seat"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /terms/{id}/enrollments [delete]
func (h *EnrollmentHandler) Remove(c *gin.Context) {
	var req dto.SessionTarget
	if err := bindPayload(c, &req, "invalid removal payload"); err != nil {
		response.Error(c, err)
		return
	}
	ref, err := sessionRef(c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.enrollments.RequestOrApply(c.Request.Context(), actorFromContext(c), service.RemoveOp{SessionRef: ref, Reason: req.Reason})
	respondResult(c, result, err)
}

// ChangeTime godoc
// @Summary Move a student to another start time on the same day
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Term ID"
// @Param payload body dto.ChangeTimeRequest true "Seat and new time"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /terms/{id}/change-time [post]
func (h *EnrollmentHandler) ChangeTime(c *gin.Context) {
	var req dto.ChangeTimeRequest
	if err := bindPayload(c, &req, "invalid change-time payload"); err != nil {
		response.Error(c, err)
		return
	}
	ref, err := sessionRef(c.Param("id"), req.SessionTarget)
	if err != nil {
		response.Error(c, err)
		return
	}
	op := service.ChangeTimeOp{SessionRef: ref, NewTime: req.NewTime, Reason: req.Reason}
	result, err := h.enrollments.RequestOrApply(c.Request.Context(), actorFromContext(c), op)
	respondResult(c, result, err)
}

// CreateSession godoc
// @Summary Create an empty session
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Term ID"
// @Param payload body dto.CreateSessionRequest true "Session"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /terms/{id}/sessions [post]
func (h *EnrollmentHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := bindPayload(c, &req, "invalid session payload"); err != nil {
		response.Error(c, err)
		return
	}
	day, err := weekdayValue(req.Day)
	if err != nil {
		response.Error(c, err)
		return
	}
	session, err := h.enrollments.CreateSession(c.Request.Context(), actorFromContext(c), service.CreateSessionInput{
		TermID:         c.Param("id"),
		Teacher:        req.Teacher,
		Day:            day,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Duration:       req.Duration,
		Specialization: req.Specialization,
		Type:           models.SessionType(req.Type),
		Note:           req.Note,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

func sessionRef(termID string, req dto.SessionTarget) (service.SessionRef, error) {
	day, err := weekdayValue(req.Day)
	if err != nil {
		return service.SessionRef{}, err
	}
	return service.SessionRef{
		StudentID: req.StudentID,
		TermID:    termID,
		Teacher:   req.Teacher,
		Day:       day,
		SessionID: req.SessionID,
	}, nil
}

func respondResult(c *gin.Context, result *models.EnrollmentResult, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Outcome == models.OutcomeRequested {
		response.Accepted(c, result)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
