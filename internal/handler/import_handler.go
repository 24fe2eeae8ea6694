package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/music-school-api/internal/dto"
	"github.com/noah-isme/music-school-api/internal/service"
	"github.com/noah-isme/music-school-api/pkg/response"
)

// ImportHandler loads roster text into a term.
type ImportHandler struct {
	imports *service.ImportService
}

// NewImportHandler constructs ImportHandler.
func NewImportHandler(imports *service.ImportService) *ImportHandler {
	return &ImportHandler{imports: imports}
}

// Import godoc
// @Summary Import roster text
// @Description Lines that cannot be parsed are skipped and reported; the rest is committed at once.
// @Tags Import
// @Accept json
// @Produce json
// @Param id path string true "Term ID"
// @Param payload body dto.ImportRosterRequest true "Roster"
// @Success 200 {object} response.Envelope
// @Router /terms/{id}/import [post]
func (h *ImportHandler) Import(c *gin.Context) {
	// JSON escaping can triple the roster's size on the wire.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 3*service.MaxRosterBytes)
	var req dto.ImportRosterRequest
	if err := bindPayload(c, &req, "invalid import payload"); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.imports.Import(c.Request.Context(), actorFromContext(c), service.ImportInput{
		TermID:    c.Param("id"),
		Text:      req.Text,
		ObjectKey: req.ObjectKey,
		Mode:      service.ImportMode(req.Mode),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
