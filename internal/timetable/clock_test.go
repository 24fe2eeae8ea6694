package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRangeNormalisesToPM(t *testing.T) {
	start, end, err := ParseRange("2:00-3:00")
	require.NoError(t, err)
	assert.Equal(t, "2:00 PM", start.Display())
	assert.Equal(t, "3:00 PM", end.Display())
	assert.Equal(t, 1.0, DurationHours(start, end))

	start, end, err = ParseRange("1:30-2:30")
	require.NoError(t, err)
	assert.Equal(t, 13, start.Hour())
	assert.Equal(t, "2:30 PM", end.Display())

	start, end, err = ParseRange("12:00-1:30")
	require.NoError(t, err)
	assert.Equal(t, "12:00 PM", start.Display())
	assert.Equal(t, 1.5, DurationHours(start, end))
}

func TestParseRangeRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "2-3", "2:00", "25:00-26:00", "2:00-1:00", "3:00-3:00", "2:75-3:00"} {
		_, _, err := ParseRange(raw)
		assert.Error(t, err, raw)
	}
}

func TestDisplayRoundTripRecoversHour(t *testing.T) {
	for hour := 12; hour <= 23; hour++ {
		for _, minute := range []int{0, 30} {
			c, err := At(hour, minute)
			require.NoError(t, err)
			got, err := ParseDisplayHour(c.Display())
			require.NoError(t, err)
			assert.Equal(t, hour, got, c.Display())
		}
	}
	for raw := 1; raw < 12; raw++ {
		c, err := PM(raw, 0)
		require.NoError(t, err)
		got, err := ParseDisplayHour(c.Display())
		require.NoError(t, err)
		assert.Equal(t, raw+12, got)
	}
}

func TestParseDisplayEdges(t *testing.T) {
	cases := map[string]int{
		"12:00 AM": 0,
		"12:00 PM": 12,
		"9:15 am":  9,
		"2 PM":     14,
		"11:59 PM": 23,
	}
	for raw, hour := range cases {
		got, err := ParseDisplayHour(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, hour, got, raw)
	}
	_, err := ParseDisplay("13:00 PM")
	require.Error(t, err)
	_, err = ParseDisplay("noon")
	require.Error(t, err)
}

func TestParseClockAcceptsBothForms(t *testing.T) {
	c, err := ParseClock("14:30")
	require.NoError(t, err)
	assert.Equal(t, "2:30 PM", c.Display())

	c, err = ParseClock("4:00 PM")
	require.NoError(t, err)
	assert.Equal(t, 16, c.Hour())

	c, err = ParseClock("09:00")
	require.NoError(t, err)
	assert.Equal(t, "9:00 AM", c.Display())
}

func TestSessionIDIsDeterministic(t *testing.T) {
	start, err := At(14, 0)
	require.NoError(t, err)
	assert.Equal(t, "Saturday-Hazem-200PM", SessionID("Saturday", "Hazem", start))

	half, err := At(13, 30)
	require.NoError(t, err)
	assert.Equal(t, "Sunday-Naji-130PM", SessionID("Sunday", "Naji", half))
}
