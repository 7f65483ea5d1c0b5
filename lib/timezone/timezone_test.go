package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextClockTime(t *testing.T) {
	cases := []struct {
		now    time.Time
		expect time.Time
	}{
		{
			now:    time.Date(2025, time.September, 1, 12, 0, 0, 0, Location),
			expect: time.Date(2025, time.September, 1, 17, 50, 0, 0, Location),
		},
		{
			now:    time.Date(2025, time.September, 1, 17, 50, 0, 0, Location),
			expect: time.Date(2025, time.September, 2, 17, 50, 0, 0, Location),
		},
		{
			now:    time.Date(2025, time.September, 1, 23, 59, 0, 0, Location),
			expect: time.Date(2025, time.September, 2, 17, 50, 0, 0, Location),
		},
		{
			now:    time.Date(2025, time.December, 31, 18, 0, 0, 0, Location),
			expect: time.Date(2026, time.January, 1, 17, 50, 0, 0, Location),
		},
	}

	for _, test := range cases {
		require.Equal(t, test.expect, NextClockTime(test.now, 17, 50))
	}
}

func TestStartOfDay(t *testing.T) {
	in := time.Date(2025, time.September, 28, 13, 45, 12, 0, Location)
	require.Equal(
		t,
		time.Date(2025, time.September, 28, 0, 0, 0, 0, Location),
		StartOfDay(in),
	)
}
