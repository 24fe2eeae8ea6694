package timetable

import (
	"strings"

	"github.com/noah-isme/music-school-api/internal/models"
)

var idStripper = strings.NewReplacer(" ", "", ":", "")

// SessionID builds the deterministic identifier of a weekly slot.
// The same day, teacher and start time always give the same id.
func SessionID(day models.Weekday, teacher string, start Clock) string {
	return string(day) + "-" + teacher + "-" + idStripper.Replace(start.Display())
}
