package correlate

import (
	"context"
	"time"

	"github.com/skyward-data/flightwx-cli/internal/model"
)

// fakeStore implements MetarStore and TafStore in memory.
type fakeStore struct {
	flights    []model.Flight
	latest     map[string]model.Metar
	candidates map[string][]model.TafSegment

	flightsErr error
	writeErr   error

	metarWrites map[string]string
	tafWrites   map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		latest:      map[string]model.Metar{},
		candidates:  map[string][]model.TafSegment{},
		metarWrites: map[string]string{},
		tafWrites:   map[string]string{},
	}
}

func (s *fakeStore) FlightsForAssociation(_ context.Context, _ string) ([]model.Flight, error) {
	if s.flightsErr != nil {
		return nil, s.flightsErr
	}
	return s.flights, nil
}

func (s *fakeStore) LatestMetars(_ context.Context) (map[string]model.Metar, error) {
	return s.latest, nil
}

func (s *fakeStore) SetMetarAssociation(_ context.Context, flightID, metarID string, _ time.Time) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.metarWrites[flightID] = metarID
	return nil
}

func (s *fakeStore) TafCandidates(_ context.Context, station string, _ time.Time) ([]model.TafSegment, error) {
	return s.candidates[station], nil
}

func (s *fakeStore) SetTafAssociation(_ context.Context, flightID, tafID string, _ time.Time) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.tafWrites[flightID] = tafID
	return nil
}

// tableResolver resolves from a fixed map.
type tableResolver map[string]string

func (r tableResolver) ICAO(iata string) (string, bool) {
	icao, ok := r[iata]
	return icao, ok
}
