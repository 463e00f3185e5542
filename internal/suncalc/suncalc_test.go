package suncalc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldIlluminate(t *testing.T) {
	sunrise := time.Date(2025, 4, 19, 5, 0, 0, 0, time.UTC)
	sunset := time.Date(2025, 4, 19, 18, 0, 0, 0, time.UTC)
	buffer := 30 * time.Minute

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"well before dawn", sunrise.Add(-3 * time.Hour), true},
		{"31min before sunrise", sunrise.Add(-31 * time.Minute), true},
		{"29min before sunrise", sunrise.Add(-29 * time.Minute), false},
		{"midday", sunrise.Add(6 * time.Hour), false},
		{"29min after sunset", sunset.Add(29 * time.Minute), false},
		{"31min after sunset", sunset.Add(31 * time.Minute), true},
		{"middle of night", sunset.Add(5 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldIlluminate(tt.now, sunrise, sunset, buffer))
		})
	}
}

func TestSunTimes(t *testing.T) {
	// Cape Town
	sc := New(-33.9249, 18.4241)
	date := time.Date(2025, 4, 19, 0, 0, 0, 0, time.UTC)

	times, err := sc.SunTimes(date)
	require.NoError(t, err)
	require.False(t, times.Sunrise.IsZero())
	require.False(t, times.Sunset.IsZero())
	assert.True(t, times.Sunrise.Before(times.Sunset))

	// Second call hits the cache and must agree.
	again, err := sc.SunTimes(date)
	require.NoError(t, err)
	assert.True(t, times.Sunrise.Equal(again.Sunrise))
	assert.True(t, times.Sunset.Equal(again.Sunset))
}
