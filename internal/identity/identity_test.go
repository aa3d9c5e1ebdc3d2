package identity

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyward-data/flightwx-cli/internal/model"
)

func flightAt(sched time.Time) model.Flight {
	return model.Flight{
		FlightNumber: "AF123",
		FromCode:     "CDG",
		ToCode:       "JFK",
		Departure:    model.FlightTimes{ScheduledUTC: &sched},
	}
}

func TestFlightIdentityDeterministic(t *testing.T) {
	t.Parallel()

	sched := time.Date(2025, 7, 20, 18, 5, 0, 0, time.UTC)
	a := flightAt(sched)
	b := flightAt(sched)

	idA, err := Flight(&a)
	require.NoError(t, err)
	idB, err := Flight(&b)
	require.NoError(t, err)

	assert.Equal(t, "AF123_CDG_JFK_20250720_18", idA)
	assert.Equal(t, idA, idB)
}

func TestFlightIdentityHourBucket(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		sched time.Time
		want  string
	}{
		{"top of hour", time.Date(2025, 7, 20, 18, 0, 0, 0, time.UTC), "AF123_CDG_JFK_20250720_18"},
		{"sub-hour jitter collapses", time.Date(2025, 7, 20, 18, 59, 59, 0, time.UTC), "AF123_CDG_JFK_20250720_18"},
		{"next hour is a new identity", time.Date(2025, 7, 20, 19, 0, 0, 0, time.UTC), "AF123_CDG_JFK_20250720_19"},
		{"non-UTC input normalizes", time.Date(2025, 7, 20, 20, 5, 0, 0, time.FixedZone("CEST", 2*3600)), "AF123_CDG_JFK_20250720_18"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := flightAt(tt.sched)
			id, err := Flight(&f)
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestFlightIdentityMissingFields(t *testing.T) {
	t.Parallel()

	sched := time.Date(2025, 7, 20, 18, 5, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(*model.Flight)
	}{
		{"no flight number", func(f *model.Flight) { f.FlightNumber = "" }},
		{"no origin", func(f *model.Flight) { f.FromCode = "" }},
		{"no destination", func(f *model.Flight) { f.ToCode = "" }},
		{"no scheduled departure", func(f *model.Flight) { f.Departure.ScheduledUTC = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := flightAt(sched)
			tt.mutate(&f)
			_, err := Flight(&f)
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrMissingField))
		})
	}
}

func TestMetarIdentity(t *testing.T) {
	t.Parallel()

	m := model.Metar{
		StationID:       "LFPG",
		ObservationTime: time.Date(2025, 7, 20, 17, 30, 0, 0, time.UTC),
	}
	id, err := Metar(&m)
	require.NoError(t, err)
	assert.Equal(t, "LFPG_2025-07-20T17:30:00Z", id)

	m.StationID = ""
	_, err = Metar(&m)
	assert.True(t, eris.Is(err, ErrMissingField))

	m.StationID = "LFPG"
	m.ObservationTime = time.Time{}
	_, err = Metar(&m)
	assert.True(t, eris.Is(err, ErrMissingField))
}

func TestTafIdentity(t *testing.T) {
	t.Parallel()

	issue := time.Date(2025, 7, 20, 11, 0, 0, 0, time.UTC)
	from := time.Date(2025, 7, 21, 1, 0, 0, 0, time.UTC)
	to := time.Date(2025, 7, 21, 3, 0, 0, 0, time.UTC)

	bounded := model.TafSegment{
		StationID:     "KJFK",
		IssueTime:     issue,
		ForecastFrom:  from,
		ForecastTo:    &to,
		ForecastIndex: 1,
	}
	id, err := Taf(&bounded)
	require.NoError(t, err)
	assert.Equal(t, "KJFK_2025-07-20T11:00:00Z_2025-07-21T01:00:00Z_2025-07-21T03:00:00Z_f1", id)

	// An open-ended window drops the upper bound from the identity.
	open := bounded
	open.ForecastTo = nil
	open.ForecastIndex = 0
	id, err = Taf(&open)
	require.NoError(t, err)
	assert.Equal(t, "KJFK_2025-07-20T11:00:00Z_2025-07-21T01:00:00Z_f0", id)

	missing := bounded
	missing.ForecastFrom = time.Time{}
	_, err = Taf(&missing)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMissingField))
}
