package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2025-03-10", "2025-03-13")
	require.NoError(t, err)
	assert.Equal(t, 3, r.NumDays())
	assert.Equal(t, []time.Time{
		time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
	}, r.Days(), "the end day is excluded")
}

func TestParseDateRangeRejectsBadInput(t *testing.T) {
	for _, tc := range []struct{ from, to string }{
		{"2025-03-13", "2025-03-10"}, // inverted
		{"2025-03-10", "2025-03-10"}, // empty
		{"10/03/2025", "2025-03-13"}, // wrong layout
		{"2025-03-10", "soon"},
	} {
		_, err := ParseDateRange(tc.from, tc.to)
		assert.ErrorIs(t, err, ErrInvalidRange, "%s..%s", tc.from, tc.to)
	}
}

func TestDayNormalizesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	in := time.Date(2025, 3, 10, 2, 30, 0, 0, loc) // 2025-03-09T21:30Z
	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), Day(in))
}

func TestContains(t *testing.T) {
	r, err := ParseDateRange("2025-03-10", "2025-03-13")
	require.NoError(t, err)
	assert.True(t, r.Contains(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, r.Contains(time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)), "any instant inside the day counts")
	assert.False(t, r.Contains(time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)))
}

func TestMonthRange(t *testing.T) {
	r := MonthRange(time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), r.End)
	assert.Equal(t, 28, r.NumDays())
}
