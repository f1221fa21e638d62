package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Offset(1, 10))
	assert.Equal(t, 20, Offset(3, 10))
	assert.Equal(t, 0, Offset(0, 10))
}

func TestNewPaginationInfo(t *testing.T) {
	info := NewPaginationInfo(25, 9, 10)
	assert.Equal(t, 3, info.TotalPages)
	assert.Equal(t, 3, info.CurrentPage)

	empty := NewPaginationInfo(0, 1, 0)
	assert.Equal(t, 1, empty.TotalPages)
	assert.Equal(t, DefaultPageSize, empty.PageSize)
}

func TestWeekdaysSkipsWeekend(t *testing.T) {
	from := time.Date(2024, 9, 6, 0, 0, 0, 0, time.UTC) // Friday
	to := time.Date(2024, 9, 10, 0, 0, 0, 0, time.UTC)  // Tuesday

	days := Weekdays(from, to)
	assert.Len(t, days, 3)
	for _, d := range days {
		assert.NotEqual(t, time.Saturday, d.Weekday())
		assert.NotEqual(t, time.Sunday, d.Weekday())
	}
}

func TestWeekdaysTruncatesToDays(t *testing.T) {
	from := time.Date(2024, 9, 9, 15, 30, 0, 0, time.UTC) // Monday afternoon
	to := time.Date(2024, 9, 10, 8, 0, 0, 0, time.UTC)    // Tuesday morning

	days := Weekdays(from, to)
	require.Len(t, days, 2)
	assert.Equal(t, time.Date(2024, 9, 9, 0, 0, 0, 0, time.UTC), days[0])
	assert.Equal(t, time.Date(2024, 9, 10, 0, 0, 0, 0, time.UTC), days[1])
}

func TestParseDurationFallsBack(t *testing.T) {
	assert.Equal(t, 2*time.Second, ParseDuration("2s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("soon", time.Minute))
}
