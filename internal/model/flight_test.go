package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollectionTypeValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ct   CollectionType
		want string
	}{
		{CollectionRealtime, "realtime_departures"},
		{CollectionPast, "past_departures"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.ct))
		})
	}
}

func TestIsCodeshare(t *testing.T) {
	t.Parallel()

	operated := Flight{FlightNumber: "AF123", OperatedBy: "Delta Air Lines"}
	physical := Flight{FlightNumber: "AF123"}

	assert.True(t, operated.IsCodeshare())
	assert.False(t, physical.IsCodeshare())
}

func TestAirlineCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		number string
		want   string
	}{
		{"standard", "AF123", "AF"},
		{"long carrier number", "U24567", "U2"},
		{"too short", "A", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := Flight{FlightNumber: tt.number}
			assert.Equal(t, tt.want, f.AirlineCode())
		})
	}
}

func TestArrivalDelayMinutes(t *testing.T) {
	t.Parallel()

	sched := time.Date(2025, 7, 21, 2, 0, 0, 0, time.UTC)
	late := sched.Add(42 * time.Minute)
	early := sched.Add(-10 * time.Minute)
	feedDelay := 7

	tests := []struct {
		name   string
		flight Flight
		want   *int
	}{
		{
			name:   "feed-supplied delay wins",
			flight: Flight{Arrival: FlightTimes{ScheduledUTC: &sched, ActualUTC: &late, DelayMinutes: &feedDelay}},
			want:   &feedDelay,
		},
		{
			name:   "derived from schedule",
			flight: Flight{Arrival: FlightTimes{ScheduledUTC: &sched, ActualUTC: &late}},
			want:   intPtr(42),
		},
		{
			name:   "early arrival clamps to zero",
			flight: Flight{Arrival: FlightTimes{ScheduledUTC: &sched, ActualUTC: &early}},
			want:   intPtr(0),
		},
		{
			name:   "missing actual",
			flight: Flight{Arrival: FlightTimes{ScheduledUTC: &sched}},
			want:   nil,
		},
		{
			name:   "missing schedule",
			flight: Flight{Arrival: FlightTimes{ActualUTC: &late}},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.flight.ArrivalDelayMinutes()
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			if assert.NotNil(t, got) {
				assert.Equal(t, *tt.want, *got)
			}
		})
	}
}

func intPtr(n int) *int { return &n }
