package matcher_test

import (
	"testing"
	"time"

	"github.com/ubi-africa/dispatch-sim/internal/matcher"
	"github.com/ubi-africa/dispatch-sim/internal/testutil"
)

func TestHourRule(t *testing.T) {
	assert := testutil.NewAssert(t)

	tests := []struct {
		name     string
		driver   time.Time
		passenger time.Time
		want     int
	}{
		{
			name:      "same day, passenger hour later",
			driver:    time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
			passenger: time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC),
			want:      14,
		},
		{
			name:      "same day, driver hour later",
			driver:    time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC),
			passenger: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
			want:      20,
		},
		{
			// S7: driver signs on 23:30 the night before; passenger requests
			// 00:15 the next day. The later day's party (the passenger)
			// governs, so the expected hour is 0, not 23.
			name:      "hour-boundary crossing midnight",
			driver:    time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC),
			passenger: time.Date(2024, 3, 11, 0, 15, 0, 0, time.UTC),
			want:      0,
		},
		{
			name:      "driver signs on a day after the passenger request timestamp",
			driver:    time.Date(2024, 3, 11, 1, 0, 0, 0, time.UTC),
			passenger: time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC),
			want:      1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := matcher.HourRule(tc.driver, tc.passenger)
			assert.Equal(tc.want, got)
		})
	}
}
