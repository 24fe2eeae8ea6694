package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/music-school-api/internal/middleware"
	"github.com/noah-isme/music-school-api/internal/models"
	appErrors "github.com/noah-isme/music-school-api/pkg/errors"
)

const dateLayout = "2006-01-02"

var payloadValidator = validator.New()

func actorFromContext(c *gin.Context) *models.Actor {
	return middleware.CurrentActor(c)
}

// bindPayload decodes the JSON body into dst and runs its validate tags.
func bindPayload(c *gin.Context, dst interface{}, message string) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
	}
	if err := payloadValidator.Struct(dst); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error())
	}
	return nil
}

// dateQuery reads a yyyy-MM-dd query parameter, defaulting to today.
func dateQuery(c *gin.Context, key string) (time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return time.Now().UTC(), nil
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, key+" must be yyyy-MM-dd")
	}
	return parsed, nil
}

// weekdayValue parses an optional English or Arabic day name.
func weekdayValue(raw string) (models.Weekday, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	day, err := models.ParseWeekday(raw)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error())
	}
	return day, nil
}
