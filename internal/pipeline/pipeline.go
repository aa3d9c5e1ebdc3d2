// Package pipeline orchestrates one collection session end to end: snapshot
// collection, weather collection, weather association, warehouse propagation,
// and past-flight reconciliation.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skyward-data/flightwx-cli/internal/correlate"
	"github.com/skyward-data/flightwx-cli/internal/docstore"
	"github.com/skyward-data/flightwx-cli/internal/identity"
	"github.com/skyward-data/flightwx-cli/internal/model"
	"github.com/skyward-data/flightwx-cli/internal/plan"
	"github.com/skyward-data/flightwx-cli/internal/source"
	"github.com/skyward-data/flightwx-cli/internal/store"
	"github.com/skyward-data/flightwx-cli/internal/warehouse"
)

// Stage names, in run order. Each stage runs only if the previous stage
// succeeded with non-zero output; a closed gate cascades to the end.
const (
	StageCollectFlights = "collect_flights"
	StageCollectMetar   = "collect_metar"
	StageCollectTaf     = "collect_taf"
	StageAssociateMetar = "associate_metar"
	StageAssociateTaf   = "associate_taf"
	StagePropagate      = "propagate"
	StageReconcile      = "reconcile"
)

// FlightCollector runs the per-airport snapshot fetches of one pass.
type FlightCollector interface {
	CollectAll(ctx context.Context, queries []source.CollectQuery) ([]model.Flight, error)
}

// Docstore is the Store A surface the pipeline writes and the downstream
// stages read back.
type Docstore interface {
	UpsertFlights(ctx context.Context, flights []model.Flight, now time.Time) (docstore.WriteResult, error)
	InsertMetars(ctx context.Context, metars []model.Metar) (docstore.WriteResult, error)
	InsertTafs(ctx context.Context, segments []model.TafSegment) (docstore.WriteResult, error)

	warehouse.DocReader
	warehouse.PastReader
}

// Associator annotates a session's flights with one kind of weather reference.
type Associator interface {
	Associate(ctx context.Context, sessionID string, now time.Time) (correlate.Result, error)
}

// Warehouse is the Store B surface of the propagation and reconciliation
// stages.
type Warehouse interface {
	Propagate(ctx context.Context, docs warehouse.DocReader, sessionID string) (warehouse.PropagateResult, error)
	Reconcile(ctx context.Context, docs warehouse.PastReader, sessionID string) (warehouse.ReconcileResult, error)
	LogStage(ctx context.Context, sessionID string, stages []model.StageResult) error
}

// StationResolver maps airport IATA codes to weather station identifiers.
type StationResolver interface {
	Stations(iatas []string) (stations []string, unknown []string)
}

// Pipeline orchestrates the seven stages of a collection session.
type Pipeline struct {
	sessions store.Store
	docs     Docstore
	wh       Warehouse
	flights  FlightCollector
	weather  source.WeatherSource
	airports StationResolver
	metar    Associator
	taf      Associator
}

// New creates a Pipeline with all dependencies.
func New(
	sessions store.Store,
	docs Docstore,
	wh Warehouse,
	flights FlightCollector,
	weather source.WeatherSource,
	airports StationResolver,
	metarEngine Associator,
	tafEngine Associator,
) *Pipeline {
	return &Pipeline{
		sessions: sessions,
		docs:     docs,
		wh:       wh,
		flights:  flights,
		weather:  weather,
		airports: airports,
		metar:    metarEngine,
		taf:      tafEngine,
	}
}

// runState carries data between stages of one run.
type runState struct {
	stations []string
}

// Run executes one full collection session and returns it together with
// the human-readable outcome summary. Stage failures never abort the run;
// they close the gate for the stages behind them.
func (p *Pipeline) Run(ctx context.Context, pl *plan.Plan) (*model.CollectionSession, string, error) {
	session := model.NewCollectionSession(time.Now())
	log := zap.L().With(zap.String("session", session.ID))
	log.Info("pipeline: session starting", zap.Strings("airports", pl.Codes()))

	if err := p.sessions.CreateSession(ctx, session); err != nil {
		return nil, "", eris.Wrap(err, "pipeline: create session")
	}

	// Sources that archive raw payloads name them after the session.
	if src, ok := p.flights.(interface{ SetSession(string) }); ok {
		src.SetSession(session.ID)
	}

	state := &runState{}
	stages := []struct {
		name string
		fn   func(context.Context, *model.CollectionSession, *runState, *model.StageResult) error
	}{
		{StageCollectFlights, func(ctx context.Context, s *model.CollectionSession, st *runState, r *model.StageResult) error {
			return p.collectFlights(ctx, s, pl, st, r)
		}},
		{StageCollectMetar, p.collectMetar},
		{StageCollectTaf, p.collectTaf},
		{StageAssociateMetar, p.associateMetar},
		{StageAssociateTaf, p.associateTaf},
		{StagePropagate, p.propagate},
		{StageReconcile, p.reconcile},
	}

	gateOpen := true
	gatedBy := ""
	for _, stage := range stages {
		if !gateOpen {
			p.skipStage(ctx, session, stage.name, gatedBy)
			continue
		}

		result := p.runStage(ctx, session, stage.name, func(r *model.StageResult) error {
			return stage.fn(ctx, session, state, r)
		})
		if !result.Succeeded() || result.Output() == 0 {
			gateOpen = false
			gatedBy = stage.name
		}
	}

	summary := session.Finish()
	if err := p.sessions.FinishSession(ctx, session.ID, session.Status, summary); err != nil {
		log.Warn("pipeline: failed to persist session outcome", zap.Error(err))
	}
	if err := p.wh.LogStage(ctx, session.ID, session.Stages); err != nil {
		log.Warn("pipeline: failed to log stages to warehouse", zap.Error(err))
	}

	log.Info("pipeline: session finished",
		zap.String("status", string(session.Status)),
		zap.String("summary", summary),
	)
	return session, summary, nil
}

// runStage executes one stage, records its result on the session, and
// persists it to the session store.
func (p *Pipeline) runStage(ctx context.Context, session *model.CollectionSession, name string, fn func(*model.StageResult) error) model.StageResult {
	log := zap.L().With(zap.String("session", session.ID), zap.String("stage", name))

	result := model.StageResult{Name: name, Status: model.StageSuccess}
	start := time.Now()
	if err := fn(&result); err != nil {
		result.Status = model.StageFailed
		result.AddError(err)
		log.Error("pipeline: stage failed", zap.Error(err))
	}
	result.DurationMs = time.Since(start).Milliseconds()

	if result.Status == model.StageSuccess {
		log.Info("pipeline: stage complete",
			zap.Int("collected", result.Collected),
			zap.Int("inserted", result.Inserted),
			zap.Int("updated", result.Updated),
			zap.Int("associated", result.Associated),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed),
			zap.Int64("duration_ms", result.DurationMs),
		)
	}

	session.Record(result)
	if err := p.sessions.RecordStage(ctx, session.ID, result); err != nil {
		log.Warn("pipeline: failed to persist stage result", zap.Error(err))
	}
	return result
}

// skipStage records a stage that never ran because an earlier stage closed
// the gate.
func (p *Pipeline) skipStage(ctx context.Context, session *model.CollectionSession, name, gatedBy string) {
	result := model.StageResult{Name: name, Status: model.StageSkipped}
	result.Errors = append(result.Errors, "gated by "+gatedBy)

	zap.L().Info("pipeline: stage skipped",
		zap.String("session", session.ID),
		zap.String("stage", name),
		zap.String("gated_by", gatedBy),
	)

	session.Record(result)
	if err := p.sessions.RecordStage(ctx, session.ID, result); err != nil {
		zap.L().Warn("pipeline: failed to persist skipped stage",
			zap.String("stage", name), zap.Error(err))
	}
}

// collectFlights fetches the snapshot of every planned airport, stamps
// identities and session provenance, and upserts into the document store.
func (p *Pipeline) collectFlights(ctx context.Context, session *model.CollectionSession, pl *plan.Plan, state *runState, r *model.StageResult) error {
	queries := pl.Queries(session.StartedAt)

	var all []model.Flight
	for _, pass := range []model.CollectionType{model.CollectionRealtime, model.CollectionPast} {
		var passQueries []source.CollectQuery
		for _, q := range queries {
			if q.Type == pass {
				passQueries = append(passQueries, q)
			}
		}
		if len(passQueries) == 0 {
			continue
		}

		flights, err := p.flights.CollectAll(ctx, passQueries)
		if err != nil {
			return eris.Wrapf(err, "pipeline: collect %s flights", pass)
		}
		for i := range flights {
			flights[i].Metadata.CollectionType = pass
		}
		all = append(all, flights...)
	}
	r.Collected = len(all)

	stamped := make([]model.Flight, 0, len(all))
	for _, f := range all {
		id, err := identity.Flight(&f)
		if err != nil {
			r.Skipped++
			zap.L().Debug("pipeline: flight identity incomplete",
				zap.String("flight_number", f.FlightNumber), zap.Error(err))
			continue
		}
		f.ID = id
		f.Metadata.CollectionSessionID = session.ID
		f.Metadata.CollectedAt = session.StartedAt
		stamped = append(stamped, f)
	}

	res, err := p.docs.UpsertFlights(ctx, stamped, session.StartedAt)
	r.Inserted = res.Inserted
	r.Updated = res.Updated
	r.Skipped += res.Skipped
	r.Failed = res.Failed
	if err != nil {
		return eris.Wrap(err, "pipeline: upsert flights")
	}
	if err := writeSucceeded(res); err != nil {
		return eris.Wrap(err, "pipeline: upsert flights")
	}

	state.stations = p.flightStations(stamped)
	return nil
}

// writeSucceeded enforces the zero-success rule for write stages: a batch
// where every record hard-failed fails the stage even though the store
// reported no transport error. Duplicate skips count as success; the
// records are already present downstream.
func writeSucceeded(res docstore.WriteResult) error {
	if res.Failed > 0 && res.Total()+res.Skipped == 0 {
		return eris.Errorf("all %d records failed", res.Failed)
	}
	return nil
}

// flightStations resolves the distinct airports the collected flights touch
// into weather station identifiers.
func (p *Pipeline) flightStations(flights []model.Flight) []string {
	seen := make(map[string]bool)
	var codes []string
	for _, f := range flights {
		for _, code := range []string{f.FromCode, f.ToCode} {
			if code != "" && !seen[code] {
				seen[code] = true
				codes = append(codes, code)
			}
		}
	}
	sort.Strings(codes)

	stations, unknown := p.airports.Stations(codes)
	if len(unknown) > 0 {
		zap.L().Debug("pipeline: airports without station mapping",
			zap.Strings("airports", unknown))
	}
	return stations
}

func (p *Pipeline) collectMetar(ctx context.Context, session *model.CollectionSession, state *runState, r *model.StageResult) error {
	metars, err := p.weather.Metars(ctx, state.stations)
	if err != nil {
		return eris.Wrap(err, "pipeline: fetch metars")
	}
	r.Collected = len(metars)

	stamped := make([]model.Metar, 0, len(metars))
	for _, m := range metars {
		id, err := identity.Metar(&m)
		if err != nil {
			r.Skipped++
			zap.L().Debug("pipeline: metar identity incomplete",
				zap.String("station", m.StationID), zap.Error(err))
			continue
		}
		m.ID = id
		m.Metadata.CollectionSessionID = session.ID
		m.Metadata.CollectedAt = session.StartedAt
		m.Metadata.DataType = "metar"
		stamped = append(stamped, m)
	}

	res, err := p.docs.InsertMetars(ctx, stamped)
	r.Inserted = res.Inserted
	r.Skipped += res.Skipped
	r.Failed = res.Failed
	if err != nil {
		return eris.Wrap(err, "pipeline: insert metars")
	}
	if err := writeSucceeded(res); err != nil {
		return eris.Wrap(err, "pipeline: insert metars")
	}
	return nil
}

func (p *Pipeline) collectTaf(ctx context.Context, session *model.CollectionSession, state *runState, r *model.StageResult) error {
	segments, err := p.weather.Tafs(ctx, state.stations)
	if err != nil {
		return eris.Wrap(err, "pipeline: fetch tafs")
	}
	r.Collected = len(segments)

	stamped := make([]model.TafSegment, 0, len(segments))
	for _, s := range segments {
		id, err := identity.Taf(&s)
		if err != nil {
			r.Skipped++
			zap.L().Debug("pipeline: taf segment identity incomplete",
				zap.String("station", s.StationID), zap.Error(err))
			continue
		}
		s.ID = id
		s.Metadata.CollectionSessionID = session.ID
		s.Metadata.CollectedAt = session.StartedAt
		s.Metadata.DataType = "taf"
		stamped = append(stamped, s)
	}

	res, err := p.docs.InsertTafs(ctx, stamped)
	r.Inserted = res.Inserted
	r.Skipped += res.Skipped
	r.Failed = res.Failed
	if err != nil {
		return eris.Wrap(err, "pipeline: insert taf segments")
	}
	if err := writeSucceeded(res); err != nil {
		return eris.Wrap(err, "pipeline: insert taf segments")
	}
	return nil
}

func (p *Pipeline) associateMetar(ctx context.Context, session *model.CollectionSession, _ *runState, r *model.StageResult) error {
	res, err := p.metar.Associate(ctx, session.ID, time.Now().UTC())
	r.Associated = res.Associated
	r.Skipped = res.Skipped
	r.Failed = res.Failed
	if err != nil {
		return eris.Wrap(err, "pipeline: associate metar")
	}
	return nil
}

func (p *Pipeline) associateTaf(ctx context.Context, session *model.CollectionSession, _ *runState, r *model.StageResult) error {
	res, err := p.taf.Associate(ctx, session.ID, time.Now().UTC())
	r.Associated = res.Associated
	r.Skipped = res.Skipped
	r.Failed = res.Failed
	if err != nil {
		return eris.Wrap(err, "pipeline: associate taf")
	}
	return nil
}

func (p *Pipeline) propagate(ctx context.Context, session *model.CollectionSession, _ *runState, r *model.StageResult) error {
	res, err := p.wh.Propagate(ctx, p.docs, session.ID)
	r.Collected = res.Flights + res.Skipped
	r.Inserted = res.Flights
	r.Skipped = res.Skipped
	if err != nil {
		return eris.Wrap(err, "pipeline: propagate")
	}
	return nil
}

func (p *Pipeline) reconcile(ctx context.Context, session *model.CollectionSession, _ *runState, r *model.StageResult) error {
	res, err := p.wh.Reconcile(ctx, p.docs, session.ID)
	r.Collected = res.Updated + res.Skipped
	r.Updated = res.Updated
	r.Skipped = res.Skipped
	if err != nil {
		return eris.Wrap(err, "pipeline: reconcile")
	}
	return nil
}
