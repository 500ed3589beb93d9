package timeframe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	now := time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		label RangeLabel
		from  time.Time
		to    time.Time
	}{
		{RangeToday, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), now},
		{RangeYesterday, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 14, 23, 59, 59, 999999999, time.UTC)},
		{RangeLast7Days, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), now},
		{RangeLast30Days, time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC), now},
		{RangeMonthToDate, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), now},
		{RangeLastMonth, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 23, 59, 59, 999999999, time.UTC)},
		{RangeYearToDate, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), now},
		{RangeLast12Months, time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), now},
	}

	for _, tt := range tests {
		t.Run(string(tt.label), func(t *testing.T) {
			r, err := Resolve(tt.label, now)
			require.NoError(t, err)
			assert.Equal(t, tt.from, r.From)
			assert.Equal(t, tt.to, r.To)
			assert.Equal(t, tt.label, r.Label)
		})
	}

	t.Run("all time is unbounded", func(t *testing.T) {
		r, err := Resolve(RangeAllTime, now)
		require.NoError(t, err)
		assert.True(t, r.From.IsZero())
		assert.True(t, r.To.IsZero())
		assert.True(t, r.Contains(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("unknown label", func(t *testing.T) {
		_, err := Resolve("fortnight", now)
		assert.Error(t, err)
	})
}

func TestRangeContainsIsInclusive(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	r := Range{From: from, To: to}

	assert.True(t, r.Contains(from))
	assert.True(t, r.Contains(to))
	assert.False(t, r.Contains(from.Add(-time.Second)))
	assert.False(t, r.Contains(to.Add(time.Second)))

	openEnded := Range{From: from}
	assert.True(t, openEnded.Contains(to.AddDate(10, 0, 0)))
}

func TestParser(t *testing.T) {
	clock := &FixedTimeProvider{At: time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC)}
	parser := NewParser(RangeLast30Days, clock)

	t.Run("fallback label", func(t *testing.T) {
		r, err := parser.Parse(ParserParams{})
		require.NoError(t, err)
		assert.Equal(t, RangeLast30Days, r.Label)
		assert.Equal(t, time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC), r.From)
	})

	t.Run("custom dates are inclusive days", func(t *testing.T) {
		r, err := parser.Parse(ParserParams{FromDate: "2024-01-01", ToDate: "2024-01-31"})
		require.NoError(t, err)
		assert.Equal(t, RangeCustom, r.Label)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), r.From)
		assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC), r.To)
	})

	t.Run("timezone shifts boundaries", func(t *testing.T) {
		r, err := parser.Parse(ParserParams{FromDate: "2024-01-01", Tz: "America/New_York"})
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC), r.From)
		assert.True(t, r.To.IsZero())
	})

	t.Run("reversed dates", func(t *testing.T) {
		_, err := parser.Parse(ParserParams{FromDate: "2024-02-01", ToDate: "2024-01-01"})
		assert.Error(t, err)
	})

	t.Run("bad inputs", func(t *testing.T) {
		_, err := parser.Parse(ParserParams{FromDate: "01/02/2024"})
		assert.Error(t, err)
		_, err = parser.Parse(ParserParams{Tz: "Mars/Base"})
		assert.Error(t, err)
		_, err = parser.Parse(ParserParams{Range: "forever"})
		assert.Error(t, err)
	})
}
