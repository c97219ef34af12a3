package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextWake(t *testing.T) {
	loc, err := time.LoadLocation("UTC")
	require.NoError(t, err)

	day := func(hour, min, sec int) time.Time {
		return time.Date(2026, 3, 14, hour, min, sec, 0, loc)
	}
	targets := []string{"21:00:00", "09:00:00"} // deliberately unsorted
	interval := 3 * time.Minute

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before the first target",
			now:  day(8, 0, 0),
			want: day(9, 3, 5),
		},
		{
			name: "started mid-candle trades that candle",
			now:  day(9, 1, 30),
			want: day(9, 3, 5),
		},
		{
			name: "candle already closed, next target today",
			now:  day(9, 10, 0),
			want: day(21, 3, 5),
		},
		{
			name: "past the last target rolls to tomorrow",
			now:  day(22, 0, 0),
			want: day(9, 3, 5).AddDate(0, 0, 1),
		},
		{
			name: "exactly at a target",
			now:  day(21, 0, 0),
			want: day(21, 3, 5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextWake(tt.now, targets, loc, interval)
			assert.True(t, got.Equal(tt.want), "NextWake(%s) = %s, want %s", tt.now, got, tt.want)
		})
	}
}

func TestNextWakeSkipsMalformedHours(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 14, 8, 0, 0, 0, loc)

	got := NextWake(now, []string{"bogus", "09:00:00"}, loc, 3*time.Minute)
	want := time.Date(2026, 3, 14, 9, 3, 5, 0, loc)
	assert.True(t, got.Equal(want), "got %s, want %s", got, want)
}
