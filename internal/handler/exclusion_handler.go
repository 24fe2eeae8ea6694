package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/music-school-api/internal/service"
	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
	"github.com/noah-isme/music-school-api/pkg/response"
)

// ExclusionHandler manages keep-apart rules for a term.
type ExclusionHandler struct {
	exclusions *service.ExclusionService
}

// NewExclusionHandler constructs ExclusionHandler.
func NewExclusionHandler(exclusions *service.ExclusionService) *ExclusionHandler {
	return &ExclusionHandler{exclusions: exclusions}
}

// List godoc
// @Summary List exclusions for a term
// @Tags Exclusions
// @Produce json
// @Param id path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /terms/{id}/exclusions [get]
func (h *ExclusionHandler) List(c *gin.Context) {
	items, err := h.exclusions.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Add an exclusion
// @Tags Exclusions
// @Accept json
// @Produce json
// @Param id path string true "Term ID"
// @Param payload body service.AddExclusionRequest true "Exclusion"
// @Success 201 {object} response.Envelope
// @Router /terms/{id}/exclusions [post]
func (h *ExclusionHandler) Create(c *gin.Context) {
	var req service.AddExclusionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	exclusion, err := h.exclusions.Add(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exclusion)
}

// Delete godoc
// @Summary Remove an exclusion
// @Tags Exclusions
// @Param id path string true "Term ID"
// @Param exclusionId path string true "Exclusion ID"
// @Success 204
// @Router /terms/{id}/exclusions/{exclusionId} [delete]
func (h *ExclusionHandler) Delete(c *gin.Context) {
	if err := h.exclusions.Delete(c.Request.Context(), actorFromContext(c), c.Param("id"), c.Param("exclusionId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
