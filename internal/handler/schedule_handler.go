package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/music-school-api/internal/service"
	"github.com/noah-isme/music-school-api/pkg/response"
)

// ScheduleHandler serves the weekly teacher timetable.
type ScheduleHandler struct {
	schedule *service.ScheduleService
}

// NewScheduleHandler constructs ScheduleHandler.
func NewScheduleHandler(schedule *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedule: schedule}
}

// TeacherWeek godoc
// @Summary Teacher week view
// @Description Sessions placed on the grid for the week containing date, with dated cells and effective attendance.
// @Tags Schedule
// @Produce json
// @Param id path string true "Term ID"
// @Param teacher path string true "Teacher name"
// @Param date query string false "Any day of the week (yyyy-MM-dd), defaults to today"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /terms/{id}/schedule/{teacher} [get]
func (h *ScheduleHandler) TeacherWeek(c *gin.Context) {
	date, err := dateQuery(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.schedule.TeacherWeek(c.Request.Context(), actorFromContext(c), c.Param("id"), c.Param("teacher"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
