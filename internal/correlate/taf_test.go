package correlate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyward-data/flightwx-cli/internal/model"
)

func seg(id string, from time.Time, to *time.Time, change model.ChangeIndicator) model.TafSegment {
	return model.TafSegment{
		ID:              id,
		StationID:       "KJFK",
		ForecastFrom:    from,
		ForecastTo:      to,
		ChangeIndicator: change,
	}
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func atp(s string) *time.Time {
	t := at(s)
	return &t
}

func TestBestSegmentTempoBeatsUnboundedBase(t *testing.T) {
	t.Parallel()

	// AF123 CDG->JFK arriving 2025-07-21T02:00Z: the TEMPO covering
	// [01:00,03:00) must beat the open-ended base segment.
	arrival := at("2025-07-21T02:00:00Z")
	segments := []model.TafSegment{
		seg("base", at("2025-07-20T18:00:00Z"), nil, model.ChangeBase),
		seg("tempo", at("2025-07-21T01:00:00Z"), atp("2025-07-21T03:00:00Z"), model.ChangeTemporary),
	}

	best := BestSegment(segments, arrival)
	require.NotNil(t, best)
	assert.Equal(t, "tempo", best.ID)
}

func TestBestSegmentContainmentBounds(t *testing.T) {
	t.Parallel()

	segments := []model.TafSegment{
		seg("s", at("2025-07-21T01:00:00Z"), atp("2025-07-21T03:00:00Z"), model.ChangeBase),
	}

	// Window start is inclusive, end is exclusive.
	require.NotNil(t, BestSegment(segments, at("2025-07-21T01:00:00Z")))
	require.NotNil(t, BestSegment(segments, at("2025-07-21T02:59:59Z")))
	assert.Nil(t, BestSegment(segments, at("2025-07-21T03:00:00Z")))
	assert.Nil(t, BestSegment(segments, at("2025-07-21T00:59:59Z")))
}

func TestBestSegmentChangePriorityWins(t *testing.T) {
	t.Parallel()

	arrival := at("2025-07-21T02:00:00Z")
	from := at("2025-07-21T00:00:00Z")
	to := atp("2025-07-21T06:00:00Z")

	segments := []model.TafSegment{
		seg("base", from, to, model.ChangeBase),
		seg("prob", from, to, model.ChangeProbable),
		seg("tempo", from, to, model.ChangeTemporary),
		seg("becmg", from, to, model.ChangeBecoming),
		seg("fm", from, to, model.ChangeFrom),
	}

	best := BestSegment(segments, arrival)
	require.NotNil(t, best)
	assert.Equal(t, "fm", best.ID)
}

func TestBestSegmentShorterWindowBreaksTie(t *testing.T) {
	t.Parallel()

	arrival := at("2025-07-21T02:00:00Z")
	segments := []model.TafSegment{
		seg("long", at("2025-07-20T20:00:00Z"), atp("2025-07-21T08:00:00Z"), model.ChangeBecoming),
		seg("short", at("2025-07-21T01:00:00Z"), atp("2025-07-21T04:00:00Z"), model.ChangeBecoming),
	}

	best := BestSegment(segments, arrival)
	require.NotNil(t, best)
	assert.Equal(t, "short", best.ID)
}

func TestBestSegmentMidpointBreaksFinalTie(t *testing.T) {
	t.Parallel()

	arrival := at("2025-07-21T02:00:00Z")
	// Same priority, same 4h length; midpoints 01:00 vs 02:30.
	segments := []model.TafSegment{
		seg("offcenter", at("2025-07-20T23:00:00Z"), atp("2025-07-21T03:00:00Z"), model.ChangeBase),
		seg("centered", at("2025-07-21T00:30:00Z"), atp("2025-07-21T04:30:00Z"), model.ChangeBase),
	}

	best := BestSegment(segments, arrival)
	require.NotNil(t, best)
	assert.Equal(t, "centered", best.ID)
}

func TestBestSegmentDeterministic(t *testing.T) {
	t.Parallel()

	arrival := at("2025-07-21T02:00:00Z")
	segments := []model.TafSegment{
		seg("a", at("2025-07-21T00:00:00Z"), atp("2025-07-21T04:00:00Z"), model.ChangeTemporary),
		seg("b", at("2025-07-21T01:00:00Z"), atp("2025-07-21T03:00:00Z"), model.ChangeTemporary),
		seg("c", at("2025-07-20T22:00:00Z"), nil, model.ChangeBase),
	}

	first := BestSegment(segments, arrival)
	require.NotNil(t, first)
	for range 10 {
		again := BestSegment(segments, arrival)
		require.NotNil(t, again)
		assert.Equal(t, first.ID, again.ID)
	}
}

func TestTafEngineAssociates(t *testing.T) {
	t.Parallel()

	f := flight("AF123_CDG_JFK_20250720_18", "CDG", "JFK")
	f.Arrival.ScheduledUTC = atp("2025-07-21T02:00:00Z")

	store := newFakeStore()
	store.flights = []model.Flight{f}
	store.candidates["KJFK"] = []model.TafSegment{
		seg("base", at("2025-07-20T18:00:00Z"), nil, model.ChangeBase),
		seg("tempo", at("2025-07-21T01:00:00Z"), atp("2025-07-21T03:00:00Z"), model.ChangeTemporary),
	}

	engine := NewTafEngine(store, resolver)
	res, err := engine.Associate(context.Background(), "s1", at("2025-07-20T20:00:00Z"))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Associated)
	assert.Equal(t, "tempo", store.tafWrites[f.ID])
}

func TestTafEngineSkips(t *testing.T) {
	t.Parallel()

	noArrival := flight("AF1_CDG_JFK_20250720_18", "CDG", "JFK")

	unmapped := flight("XX1_CDG_ZZZ_20250720_18", "CDG", "ZZZ")
	unmapped.Arrival.ScheduledUTC = atp("2025-07-21T02:00:00Z")

	noCandidate := flight("AF2_CDG_LHR_20250720_18", "CDG", "LHR")
	noCandidate.Arrival.ScheduledUTC = atp("2025-07-21T02:00:00Z")

	store := newFakeStore()
	store.flights = []model.Flight{noArrival, unmapped, noCandidate}

	engine := NewTafEngine(store, resolver)
	res, err := engine.Associate(context.Background(), "s1", at("2025-07-20T20:00:00Z"))
	require.NoError(t, err)

	assert.Zero(t, res.Associated)
	assert.Equal(t, 3, res.Skipped)
	assert.Empty(t, store.tafWrites)
}
