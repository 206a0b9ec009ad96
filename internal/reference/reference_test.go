package reference

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerate_Format(t *testing.T) {
	for i := 0; i < 200; i++ {
		ref := Generate("APP")
		assert.Regexp(t, `^APP-\d{4}-\d{4}$`, ref)
		assert.True(t, Valid(ref))
	}
}

func TestGenerator_ZeroPadsSuffix(t *testing.T) {
	g := NewGenerator(
		WithClock(func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }),
		WithSuffix(func() int { return 7 }),
	)
	assert.Equal(t, "APP-2024-0007", g.Generate("APP"))
}

func TestSLADueDate(t *testing.T) {
	tests := []struct {
		name      string
		submitted time.Time
		days      int
		want      string
	}{
		{"simple", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), 5, "2024-01-15"},
		{"time of day dropped", time.Date(2024, 3, 1, 16, 45, 0, 0, time.UTC), 7, "2024-03-08"},
		{"crosses leap day", time.Date(2024, 2, 27, 0, 0, 0, 0, time.UTC), 3, "2024-03-01"},
		{"crosses year", time.Date(2023, 12, 30, 0, 0, 0, 0, time.UTC), 5, "2024-01-04"},
		{"zero days", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 0, "2024-06-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SLADueDate(tt.submitted, tt.days).Format("2006-01-02"))
		})
	}
}

func TestDaysBetween(t *testing.T) {
	today := time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, DaysBetween(today, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 30, DaysBetween(today, time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, DaysBetween(today, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)))
}

func TestDaysBetween_LocalTodayAgainstScannedDate(t *testing.T) {
	newYork := time.FixedZone("EST", -5*3600)
	manila := time.FixedZone("PHT", 8*3600)

	tests := []struct {
		name   string
		now    time.Time
		expiry time.Time
		want   int
	}{
		{"negative offset expires today", time.Date(2024, 3, 1, 9, 0, 0, 0, newYork), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 0},
		{"negative offset in ten days", time.Date(2024, 3, 1, 9, 0, 0, 0, newYork), time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), 10},
		{"negative offset late evening", time.Date(2024, 3, 1, 23, 30, 0, 0, newYork), time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), 1},
		{"positive offset early morning", time.Date(2024, 3, 1, 1, 0, 0, 0, manila), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 0},
		{"positive offset window end", time.Date(2024, 3, 1, 1, 0, 0, 0, manila), time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysBetween(tt.now, tt.expiry))
		})
	}
}

func TestCalendarDate_KeepsLocalDate(t *testing.T) {
	manila := time.FixedZone("PHT", 8*3600)
	// 07:30 in Manila is still the previous day in UTC.
	now := time.Date(2024, 3, 1, 7, 30, 0, 0, manila)

	d := CalendarDate(now)
	assert.Equal(t, time.UTC, d.Location())
	assert.Equal(t, "2024-03-01", DateParam(d))
	assert.Equal(t, "2024-03-31", DateParam(d.AddDate(0, 0, 30)))
	assert.Equal(t, "2024-03-08", DateParam(SLADueDate(now, 7)))

	newYork := time.FixedZone("EST", -5*3600)
	assert.Equal(t, "2024-03-01", DateParam(CalendarDate(time.Date(2024, 3, 1, 22, 0, 0, 0, newYork))))
}
