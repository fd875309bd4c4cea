package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanTitle(t *testing.T) {
	t.Run("strips parenthetical annotations", func(t *testing.T) {
		assert.Equal(t, "Movie B", CleanTitle("Movie B (4DX)"))
		assert.Equal(t, "Movie B", CleanTitle("Movie B (IMAX)"))
		assert.Equal(t, "어느 멋진 아침", CleanTitle("어느 멋진 아침 (디지털)"))
	})

	t.Run("trims whitespace", func(t *testing.T) {
		assert.Equal(t, "Movie A", CleanTitle("  Movie A  "))
	})

	t.Run("multiple groups", func(t *testing.T) {
		assert.Equal(t, "Movie", CleanTitle("Movie (IMAX) (재개봉)"))
	})

	t.Run("idempotent", func(t *testing.T) {
		for _, title := range []string{"Movie B (4DX)", "Plain Title", "  padded  ", ""} {
			once := CleanTitle(title)
			assert.Equal(t, once, CleanTitle(once))
		}
	})
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		name    string
		tok     string
		hour    int
		minute  int
		wantErr bool
	}{
		{name: "HHMM", tok: "1930", hour: 19, minute: 30},
		{name: "HH:MM", tok: "19:30", hour: 19, minute: 30},
		{name: "H:MM", tok: "9:05", hour: 9, minute: 5},
		{name: "midnight", tok: "0000", hour: 0, minute: 0},
		{name: "padded token", tok: " 1015 ", hour: 10, minute: 15},
		{name: "hour out of range", tok: "2530", wantErr: true},
		{name: "minute out of range", tok: "1299", wantErr: true},
		{name: "garbage", tok: "soon", wantErr: true},
		{name: "empty", tok: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hour, minute, err := ParseClock(tt.tok)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, hour)
			assert.Equal(t, tt.minute, minute)
		})
	}
}

func TestClockOn(t *testing.T) {
	date := time.Date(2025, 9, 15, 23, 59, 0, 0, time.Local)
	got := ClockOn(date, 14, 30)

	assert.Equal(t, 2025, got.Year())
	assert.Equal(t, time.September, got.Month())
	assert.Equal(t, 15, got.Day())
	assert.Equal(t, 14, got.Hour())
	assert.Equal(t, 30, got.Minute())
}

func TestSortScreenings(t *testing.T) {
	date := time.Date(2025, 9, 15, 0, 0, 0, 0, time.Local)

	t.Run("ascending by showtime", func(t *testing.T) {
		s := []Screening{
			{Title: "c", Showtime: ClockOn(date, 20, 0)},
			{Title: "a", Showtime: ClockOn(date, 10, 0)},
			{Title: "b", Showtime: ClockOn(date, 14, 30)},
		}
		SortScreenings(s)

		for i := 1; i < len(s); i++ {
			assert.False(t, s[i].Showtime.Before(s[i-1].Showtime))
		}
		assert.Equal(t, "a", s[0].Title)
		assert.Equal(t, "c", s[2].Title)
	})

	t.Run("stable for equal showtimes", func(t *testing.T) {
		s := []Screening{
			{Title: "theater first", Source: SourceTheater, Showtime: ClockOn(date, 19, 0)},
			{Title: "archive second", Source: SourceArchive, Showtime: ClockOn(date, 19, 0)},
		}
		SortScreenings(s)

		assert.Equal(t, "theater first", s[0].Title)
		assert.Equal(t, "archive second", s[1].Title)
	})

	t.Run("empty input", func(t *testing.T) {
		s := []Screening{}
		SortScreenings(s)
		assert.Empty(t, s)
	})
}
