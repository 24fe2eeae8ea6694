package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/music-school-api/internal/models"
	"github.com/noah-isme/music-school-api/internal/service"
	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
	"github.com/noah-isme/music-school-api/pkg/response"
)

// RequestHandler exposes the change request queue.
type RequestHandler struct {
	requests *service.ChangeRequestService
}

// NewRequestHandler constructs RequestHandler.
func NewRequestHandler(requests *service.ChangeRequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

// List godoc
// @Summary List change requests
// @Description Teachers only see their own requests.
// @Tags Requests
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param type query string false "Request type"
// @Param termId query string false "Term"
// @Param teacherId query string false "Requesting teacher"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	filter := models.RequestFilter{
		Type:      models.RequestType(c.Query("type")),
		TeacherID: c.Query("teacherId"),
		TermID:    c.Query("termId"),
	}
	for _, raw := range strings.Split(c.Query("status"), ",") {
		if status := strings.TrimSpace(strings.ToLower(raw)); status != "" {
			filter.Status = append(filter.Status, models.RequestStatus(status))
		}
	}
	requests, err := h.requests.List(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Get change request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	request, err := h.requests.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Review godoc
// @Summary Approve or deny a pending change request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body service.ReviewInput true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/review [post]
func (h *RequestHandler) Review(c *gin.Context) {
	var req service.ReviewInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.requests.Review(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
