package scheduler

import (
	"testing"
	"time"

	"github.com/linkdive/linkdive/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func londonWindow(t *testing.T) *Window {
	t.Helper()
	w, err := NewWindow(&config.WindowConfig{
		Timezone:  "Europe/London",
		StartHour: 7,
		EndHour:   19,
		Weekdays:  []int{1, 2, 3, 4, 5},
	})
	require.NoError(t, err)
	return w
}

func TestWindowContains(t *testing.T) {
	w := londonWindow(t)
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"weekday mid-morning", time.Date(2026, 8, 19, 10, 0, 0, 0, london), true}, // Wednesday
		{"weekday window opens", time.Date(2026, 8, 19, 7, 0, 0, 0, london), true},
		{"weekday before window", time.Date(2026, 8, 19, 6, 59, 0, 0, london), false},
		{"weekday window closes", time.Date(2026, 8, 19, 19, 0, 0, 0, london), false},
		{"saturday", time.Date(2026, 8, 22, 10, 0, 0, 0, london), false},
		{"sunday", time.Date(2026, 8, 23, 10, 0, 0, 0, london), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Contains(tt.at))
		})
	}
}

func TestWindowConvertsTimezone(t *testing.T) {
	w := londonWindow(t)

	// 06:30 UTC on a summer Wednesday is 07:30 in London.
	utcMorning := time.Date(2026, 8, 19, 6, 30, 0, 0, time.UTC)
	assert.True(t, w.Contains(utcMorning))

	// 18:30 UTC is 19:30 in London, past the close.
	utcEvening := time.Date(2026, 8, 19, 18, 30, 0, 0, time.UTC)
	assert.False(t, w.Contains(utcEvening))
}

func TestWindowRejectsBadConfig(t *testing.T) {
	_, err := NewWindow(&config.WindowConfig{Timezone: "Not/AZone", Weekdays: []int{1}})
	assert.Error(t, err)

	_, err = NewWindow(&config.WindowConfig{Timezone: "UTC", Weekdays: []int{9}})
	assert.Error(t, err)
}
