package handler

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/service"
	"github.com/noah-isme/music-school-api/pkg/response"
)

// ExportHandler renders teacher weeks to CSV or PDF and serves signed downloads.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Generate godoc
// @Summary Export a teacher week
// @Description Stores the rendered file and returns a signed download link. Pass download=true to stream the file instead.
// @Tags Exports
// @Produce json
// @Param id path string true "Term ID"
// @Param teacher path string true "Teacher name"
// @Param format query string false "csv (default) or pdf"
// @Param date query string false "Any day of the week (yyyy-MM-dd)"
// @Param download query bool false "Stream the file directly"
// @Success 201 {object} response.Envelope
// @Router /terms/{id}/exports/{teacher} [get]
func (h *ExportHandler) Generate(c *gin.Context) {
	date, err := dateQuery(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(service.ExportCSV))))
	actor := actorFromContext(c)

	if c.Query("download") == "true" {
		var (
			payload     []byte
			view        *models.WeekView
			contentType string
		)
		switch format {
		case service.ExportPDF:
			payload, view, err = h.exports.TeacherWeekPDF(c.Request.Context(), actor, c.Param("id"), c.Param("teacher"), date)
			contentType = "application/pdf"
		default:
			format = service.ExportCSV
			payload, view, err = h.exports.TeacherWeekCSV(c.Request.Context(), actor, c.Param("id"), c.Param("teacher"), date)
			contentType = "text/csv; charset=utf-8"
		}
		if err != nil {
			response.Error(c, err)
			return
		}
		filename := fmt.Sprintf("schedule-%s-%s.%s", view.Teacher, view.WeekStart, format)
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, contentType, payload)
		return
	}

	result, err := h.exports.Generate(c.Request.Context(), actor, c.Param("id"), c.Param("teacher"), date, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download a generated export
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	download, err := h.exports.Open(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.Body.Close()

	c.Header("Content-Type", download.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, download.Body); err != nil {
		_ = c.Error(err)
	}
}
