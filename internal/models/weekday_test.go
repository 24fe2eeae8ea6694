package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekday(t *testing.T) {
	cases := map[string]Weekday{
		"السبت":     Saturday,
		"الاحد":     Sunday,
		"الأربعاء":  Wednesday,
		"thursday":  Thursday,
		" Friday ":  Friday,
		"الاثنين":   Monday,
		"الثلاثاء":  Tuesday,
	}
	for raw, want := range cases {
		got, err := ParseWeekday(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseWeekday("someday")
	require.Error(t, err)
}

func TestWeekStartIsSaturday(t *testing.T) {
	// 2024-09-07 is a Saturday.
	sat := time.Date(2024, 9, 7, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		day := sat.AddDate(0, 0, i).Add(15 * time.Hour)
		assert.Equal(t, "2024-09-07", WeekKey(day), day.Weekday().String())
	}
	assert.Equal(t, "2024-09-14", WeekKey(sat.AddDate(0, 0, 7)))
}

func TestParseWeekKeyNormalises(t *testing.T) {
	start, err := ParseWeekKey("2024-09-10")
	require.NoError(t, err)
	require.Equal(t, "2024-09-07", start.Format(WeekKeyLayout))

	_, err = ParseWeekKey("10/09/2024")
	require.Error(t, err)
}

func TestWeekdayOn(t *testing.T) {
	sat := time.Date(2024, 9, 7, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Tuesday, Tuesday.On(sat).Weekday())
	require.Equal(t, 6, Friday.Index())
	require.False(t, Weekday("Funday").Valid())
}

func TestLeaveCoversWeek(t *testing.T) {
	sat := time.Date(2024, 9, 7, 0, 0, 0, 0, time.UTC)
	leave := Leave{StartDate: sat.AddDate(0, 0, 6), EndDate: sat.AddDate(0, 0, 20)}
	require.True(t, leave.CoversWeek(sat))
	require.False(t, leave.CoversWeek(sat.AddDate(0, 0, -7)))
	require.True(t, leave.CoversWeek(sat.AddDate(0, 0, 14)))
	require.False(t, leave.CoversWeek(sat.AddDate(0, 0, 21)))
}

func TestInstallmentEffectiveStatus(t *testing.T) {
	today := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	due := Installment{DueDate: today.AddDate(0, 0, -1), Status: InstallmentUnpaid}
	require.Equal(t, InstallmentOverdue, due.EffectiveStatus(today))

	grace := today.AddDate(0, 0, 3)
	due.GracePeriodUntil = &grace
	require.Equal(t, InstallmentUnpaid, due.EffectiveStatus(today))

	paid := Installment{DueDate: today.AddDate(0, 0, -10), Status: InstallmentPaid}
	require.Equal(t, InstallmentPaid, paid.EffectiveStatus(today))
}
