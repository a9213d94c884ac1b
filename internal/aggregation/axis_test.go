package aggregation

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAxisHourly(t *testing.T) {
	axis, err := BuildAxis(Hourly, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, 24, axis.Len())

	for h, slot := range axis.Slots {
		i, err := axis.IndexOf(slot.Key)
		require.NoError(t, err)
		assert.Equal(t, h, i)
	}
	assert.Equal(t, "0", axis.Slots[0].Key)
	assert.Equal(t, "00h", axis.Slots[0].Label)
	assert.Equal(t, "23h", axis.Slots[23].Label)

	_, err = axis.IndexOf("24")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBuildAxisWeekly(t *testing.T) {
	axis, err := BuildAxis(Weekly, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, 7, axis.Len())
	assert.Equal(t, "sunday", axis.Slots[0].Label)
	assert.Equal(t, "saturday", axis.Slots[6].Label)

	for d := time.Sunday; d <= time.Saturday; d++ {
		idx, err := axis.IndexOf(strconv.Itoa(WeekdayKey(d)))
		require.NoError(t, err)
		assert.Equal(t, int(d), idx)
	}

	_, err = axis.IndexOf("0")
	assert.Error(t, err)
	_, err = axis.IndexOf("8")
	assert.Error(t, err)
}

func TestWeekdayKey(t *testing.T) {
	assert.Equal(t, 1, WeekdayKey(time.Sunday))
	assert.Equal(t, 7, WeekdayKey(time.Saturday))
}

func TestBuildAxisDaily(t *testing.T) {
	loc := time.UTC
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, loc)
	end := time.Date(2024, 1, 3, 23, 59, 59, 0, loc)

	axis, err := BuildAxis(Daily, start, end)
	require.NoError(t, err)
	require.Equal(t, 3, axis.Len())
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"},
		[]string{axis.Slots[0].Label, axis.Slots[1].Label, axis.Slots[2].Label})

	// month and leap-day boundaries
	axis, err = BuildAxis(Daily, time.Date(2024, 2, 27, 0, 0, 0, 0, loc), time.Date(2024, 3, 2, 0, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.Equal(t, 5, axis.Len())
	assert.Equal(t, "2024-02-29", axis.Slots[2].Key)

	_, err = BuildAxis(Daily, end, start.AddDate(0, 0, -1))
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestBuildAxisUnknown(t *testing.T) {
	_, err := BuildAxis("monthly", time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGranularityKey(t *testing.T) {
	assert.Equal(t, KeyHourOfDay, Hourly.Key())
	assert.Equal(t, KeyDayOfWeek, Weekly.Key())
	assert.Equal(t, KeyCalendarDate, Daily.Key())
}
