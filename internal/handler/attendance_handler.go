package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/music-school-api/internal/dto"
	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/service"
	"github.com/noah-isme/music-school-api/pkg/response"
)

// AttendanceHandler exposes the weekly attendance overlay.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Mark godoc
// @Summary Record attendance for a student in a weekly session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Term ID"
// @Param payload body dto.MarkAttendanceRequest true "Attendance"
// @Success 200 {object} response.Envelope
// @Router /terms/{id}/attendance [put]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req dto.MarkAttendanceRequest
	if err := bindPayload(c, &req, "invalid attendance payload"); err != nil {
		response.Error(c, err)
		return
	}
	effective, err := h.attendance.Mark(c.Request.Context(), actorFromContext(c), service.MarkInput{
		AttendanceRef: attendanceRef(c.Param("id"), req.AttendanceTarget),
		Status:        models.AttendanceStatus(req.Status),
		Note:          req.Note,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, effective, nil)
}

// Clear godoc
// @Summary Clear a recorded attendance entry
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Term ID"
// @Param payload body dto.AttendanceTarget true "Entry"
// @Success 204
// @Router /terms/{id}/attendance [delete]
func (h *AttendanceHandler) Clear(c *gin.Context) {
	var req dto.AttendanceTarget
	if err := bindPayload(c, &req, "invalid attendance payload"); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.attendance.Clear(c.Request.Context(), actorFromContext(c), attendanceRef(c.Param("id"), req)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func attendanceRef(termID string, req dto.AttendanceTarget) service.AttendanceRef {
	return service.AttendanceRef{
		TermID:    termID,
		WeekStart: req.WeekStart,
		Teacher:   req.Teacher,
		SessionID: req.SessionID,
		StudentID: req.StudentID,
	}
}
