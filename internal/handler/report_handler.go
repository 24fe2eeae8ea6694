package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/music-school-api/internal/middleware"
	"github.com/noah-isme/music-school-api/internal/service"
	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
	"github.com/noah-isme/music-school-api/pkg/response"
)

// ReportHandler exposes school-wide aggregates.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Enrollment godoc
// @Summary Monthly enrollment trend
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/enrollment [get]
func (h *ReportHandler) Enrollment(c *gin.Context) {
	report, err := h.reports.EnrollmentTrend(c.Request.Context(), actorFromContext(c))
	h.respond(c, report, err)
}

// Financial godoc
// @Summary Installments by status
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/financial [get]
func (h *ReportHandler) Financial(c *gin.Context) {
	report, err := h.reports.Financial(c.Request.Context(), actorFromContext(c))
	h.respond(c, report, err)
}

// Revenue godoc
// @Summary Expected against collected revenue
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/revenue [get]
func (h *ReportHandler) Revenue(c *gin.Context) {
	report, err := h.reports.Revenue(c.Request.Context(), actorFromContext(c))
	h.respond(c, report, err)
}

// Demographics godoc
// @Summary Gender and age bands of active students
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/demographics [get]
func (h *ReportHandler) Demographics(c *gin.Context) {
	report, err := h.reports.Demographics(c.Request.Context(), actorFromContext(c))
	h.respond(c, report, err)
}

// Workload godoc
// @Summary Sessions, students and hours per teacher
// @Tags Reports
// @Produce json
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /reports/workload [get]
func (h *ReportHandler) Workload(c *gin.Context) {
	termID, ok := requiredTerm(c)
	if !ok {
		return
	}
	report, err := h.reports.Workload(c.Request.Context(), actorFromContext(c), termID)
	h.respond(c, report, err)
}

// Attendance godoc
// @Summary Effective attendance counts for a week
// @Tags Reports
// @Produce json
// @Param termId query string true "Term ID"
// @Param date query string false "Any day of the week (yyyy-MM-dd)"
// @Success 200 {object} response.Envelope
// @Router /reports/attendance [get]
func (h *ReportHandler) Attendance(c *gin.Context) {
	termID, ok := requiredTerm(c)
	if !ok {
		return
	}
	date, err := dateQuery(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.reports.Attendance(c.Request.Context(), actorFromContext(c), termID, date)
	h.respond(c, report, err)
}

func (h *ReportHandler) respond(c *gin.Context, report interface{}, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil, middleware.ExtractMeta(c))
}

func requiredTerm(c *gin.Context) (string, bool) {
	termID := strings.TrimSpace(c.Query("termId"))
	if termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "termId is required"))
		return "", false
	}
	middleware.SetMeta(c, "termId", termID)
	return termID, true
}
