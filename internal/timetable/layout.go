package timetable

import (
	"sort"

	"github.com/noah-isme/music-school-api/internal/models"
)

// DefaultGridStartHour is the first hour row of the weekly grid.
const DefaultGridStartHour = 10

// Layout places a teacher's sessions on the weekly grid.
// StartRow is the 24-hour start hour minus gridStartHour; sessions before the grid are dropped.
func Layout(days models.DaySchedule, gridStartHour int) []models.PlacedSession {
	placed := make([]models.PlacedSession, 0)
	for _, day := range models.Weekdays {
		for _, session := range days[day] {
			hour, err := ParseDisplayHour(session.Time)
			if err != nil {
				continue
			}
			row := hour - gridStartHour
			if row < 0 {
				continue
			}
			placed = append(placed, models.PlacedSession{Session: session, Day: day, StartRow: row, Hour: hour})
		}
	}
	sort.SliceStable(placed, func(i, j int) bool {
		if placed[i].Day != placed[j].Day {
			return placed[i].Day.Index() < placed[j].Day.Index()
		}
		return placed[i].StartRow < placed[j].StartRow
	})
	return placed
}
