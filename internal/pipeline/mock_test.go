package pipeline

import (
	"context"
	"time"

	"github.com/skyward-data/flightwx-cli/internal/correlate"
	"github.com/skyward-data/flightwx-cli/internal/docstore"
	"github.com/skyward-data/flightwx-cli/internal/model"
	"github.com/skyward-data/flightwx-cli/internal/source"
	"github.com/skyward-data/flightwx-cli/internal/store"
	"github.com/skyward-data/flightwx-cli/internal/warehouse"
)

// fakeSessions records session bookkeeping calls in memory.
type fakeSessions struct {
	created  []string
	stages   map[string][]model.StageResult
	finished map[string]model.SessionStatus
	summary  map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		stages:   make(map[string][]model.StageResult),
		finished: make(map[string]model.SessionStatus),
		summary:  make(map[string]string),
	}
}

func (s *fakeSessions) CreateSession(_ context.Context, session *model.CollectionSession) error {
	s.created = append(s.created, session.ID)
	return nil
}

func (s *fakeSessions) RecordStage(_ context.Context, sessionID string, stage model.StageResult) error {
	s.stages[sessionID] = append(s.stages[sessionID], stage)
	return nil
}

func (s *fakeSessions) FinishSession(_ context.Context, sessionID string, status model.SessionStatus, summary string) error {
	s.finished[sessionID] = status
	s.summary[sessionID] = summary
	return nil
}

func (s *fakeSessions) GetSession(_ context.Context, _ string) (*store.Session, error) {
	return nil, nil
}

func (s *fakeSessions) ListSessions(_ context.Context, _ store.SessionFilter) ([]store.Session, error) {
	return nil, nil
}

func (s *fakeSessions) GetFeedState(_ context.Context, _ string) (*store.FeedState, error) {
	return nil, nil
}

func (s *fakeSessions) SetFeedState(_ context.Context, _, _ string) error { return nil }
func (s *fakeSessions) Migrate(_ context.Context) error                   { return nil }
func (s *fakeSessions) Close() error                                      { return nil }

// fakeDocs captures document-store writes.
type fakeDocs struct {
	flights []model.Flight
	metars  []model.Metar
	tafs    []model.TafSegment

	upsertErr error
	upsertRes *docstore.WriteResult
}

func (d *fakeDocs) UpsertFlights(_ context.Context, flights []model.Flight, _ time.Time) (docstore.WriteResult, error) {
	d.flights = append(d.flights, flights...)
	if d.upsertErr != nil {
		return docstore.WriteResult{}, d.upsertErr
	}
	if d.upsertRes != nil {
		return *d.upsertRes, nil
	}
	return docstore.WriteResult{Inserted: len(flights)}, nil
}

func (d *fakeDocs) InsertMetars(_ context.Context, metars []model.Metar) (docstore.WriteResult, error) {
	d.metars = append(d.metars, metars...)
	return docstore.WriteResult{Inserted: len(metars)}, nil
}

func (d *fakeDocs) InsertTafs(_ context.Context, segments []model.TafSegment) (docstore.WriteResult, error) {
	d.tafs = append(d.tafs, segments...)
	return docstore.WriteResult{Inserted: len(segments)}, nil
}

func (d *fakeDocs) FlightsForPropagation(_ context.Context, _ string) ([]model.Flight, error) {
	return nil, nil
}

func (d *fakeDocs) MetarsByIDs(_ context.Context, _ []string) ([]model.Metar, error) {
	return nil, nil
}

func (d *fakeDocs) TafSegmentsByIDs(_ context.Context, _ []string) ([]model.TafSegment, error) {
	return nil, nil
}

func (d *fakeDocs) PastFlights(_ context.Context, _ string) ([]model.Flight, error) {
	return nil, nil
}

// fakeWarehouse returns canned propagation results.
type fakeWarehouse struct {
	propagate    warehouse.PropagateResult
	propagateErr error
	reconcile    warehouse.ReconcileResult
	logged       [][]model.StageResult
}

func (w *fakeWarehouse) Propagate(_ context.Context, _ warehouse.DocReader, _ string) (warehouse.PropagateResult, error) {
	return w.propagate, w.propagateErr
}

func (w *fakeWarehouse) Reconcile(_ context.Context, _ warehouse.PastReader, _ string) (warehouse.ReconcileResult, error) {
	return w.reconcile, nil
}

func (w *fakeWarehouse) LogStage(_ context.Context, _ string, stages []model.StageResult) error {
	w.logged = append(w.logged, stages)
	return nil
}

// fakeCollector returns the same flights for every pass.
type fakeCollector struct {
	flights []model.Flight
	err     error
	queries [][]source.CollectQuery
}

func (c *fakeCollector) CollectAll(_ context.Context, queries []source.CollectQuery) ([]model.Flight, error) {
	c.queries = append(c.queries, queries)
	if c.err != nil {
		return nil, c.err
	}
	out := make([]model.Flight, len(c.flights))
	copy(out, c.flights)
	return out, nil
}

// fakeWeather returns canned weather records.
type fakeWeather struct {
	metars   []model.Metar
	tafs     []model.TafSegment
	metarErr error
	tafErr   error
}

func (w *fakeWeather) Metars(_ context.Context, _ []string) ([]model.Metar, error) {
	return w.metars, w.metarErr
}

func (w *fakeWeather) Tafs(_ context.Context, _ []string) ([]model.TafSegment, error) {
	return w.tafs, w.tafErr
}

// fakeStations maps IATA codes through a fixed table.
type fakeStations struct {
	table map[string]string
}

func (s *fakeStations) Stations(iatas []string) (stations []string, unknown []string) {
	for _, iata := range iatas {
		if icao, ok := s.table[iata]; ok {
			stations = append(stations, icao)
		} else {
			unknown = append(unknown, iata)
		}
	}
	return stations, unknown
}

// fakeAssociator returns a canned association result.
type fakeAssociator struct {
	result correlate.Result
	err    error
}

func (a *fakeAssociator) Associate(_ context.Context, _ string, _ time.Time) (correlate.Result, error) {
	return a.result, a.err
}
