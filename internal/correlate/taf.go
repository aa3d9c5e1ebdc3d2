package correlate

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skyward-data/flightwx-cli/internal/model"
)

// TafStore is the document-store surface the TAF engine needs.
type TafStore interface {
	FlightsForAssociation(ctx context.Context, sessionID string) ([]model.Flight, error)
	TafCandidates(ctx context.Context, station string, now time.Time) ([]model.TafSegment, error)
	SetTafAssociation(ctx context.Context, flightID, tafID string, at time.Time) error
}

// TafEngine associates each near-term flight with the forecast segment
// best covering its arrival instant at the destination station.
type TafEngine struct {
	store    TafStore
	resolver Resolver
}

// NewTafEngine creates a TAF association engine.
func NewTafEngine(store TafStore, resolver Resolver) *TafEngine {
	return &TafEngine{store: store, resolver: resolver}
}

// Associate runs the pass for one session. A flight with no containing
// candidate keeps its reference unset and counts as skipped.
func (e *TafEngine) Associate(ctx context.Context, sessionID string, now time.Time) (Result, error) {
	var res Result

	flights, err := e.store.FlightsForAssociation(ctx, sessionID)
	if err != nil {
		return res, eris.Wrap(err, "correlate: load flights for taf association")
	}

	// Candidate sets are per station; flights into the same destination
	// share one lookup.
	candidates := make(map[string][]model.TafSegment)

	for _, f := range flights {
		station, ok := e.resolver.ICAO(f.ToCode)
		if !ok {
			res.Skipped++
			zap.L().Debug("correlate: destination not in reference table",
				zap.String("flight", f.ID),
				zap.String("destination", f.ToCode),
			)
			continue
		}

		arrival := arrivalInstant(f)
		if arrival == nil {
			res.Skipped++
			zap.L().Debug("correlate: flight has no arrival instant",
				zap.String("flight", f.ID),
			)
			continue
		}

		segs, cached := candidates[station]
		if !cached {
			segs, err = e.store.TafCandidates(ctx, station, now)
			if err != nil {
				return res, eris.Wrapf(err, "correlate: taf candidates for %s", station)
			}
			candidates[station] = segs
		}

		best := BestSegment(segs, *arrival)
		if best == nil {
			res.Skipped++
			zap.L().Debug("correlate: no forecast covers arrival",
				zap.String("flight", f.ID),
				zap.String("station", station),
				zap.Time("arrival", *arrival),
			)
			continue
		}

		if err := e.store.SetTafAssociation(ctx, f.ID, best.ID, now); err != nil {
			res.Failed++
			zap.L().Warn("correlate: taf write-back failed",
				zap.String("flight", f.ID),
				zap.Error(err),
			)
			continue
		}
		res.Associated++
	}

	zap.L().Info("correlate: taf association complete",
		zap.String("session", sessionID),
		zap.Int("associated", res.Associated),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// arrivalInstant prefers the schedule the forecast was built against and
// falls back to the live estimate.
func arrivalInstant(f model.Flight) *time.Time {
	if f.Arrival.ScheduledUTC != nil {
		return f.Arrival.ScheduledUTC
	}
	return f.Arrival.EstimatedUTC
}

// changePriority orders segments by how specifically they describe the
// arrival window. Lower is better.
func changePriority(c model.ChangeIndicator) int {
	switch c {
	case model.ChangeFrom:
		return 1
	case model.ChangeBecoming:
		return 2
	case model.ChangeTemporary:
		return 3
	case model.ChangeProbable:
		return 4
	default:
		return 5
	}
}

// BestSegment picks the forecast segment covering the arrival instant,
// ranked by change-indicator priority, then window length (unbounded
// last), then distance from the arrival to the window midpoint (or to the
// window start for unbounded segments). Equal inputs always produce the
// same choice. Returns nil when no segment contains the arrival.
func BestSegment(segments []model.TafSegment, arrival time.Time) *model.TafSegment {
	var containing []model.TafSegment
	for _, seg := range segments {
		if seg.Contains(arrival) {
			containing = append(containing, seg)
		}
	}
	if len(containing) == 0 {
		return nil
	}

	sort.SliceStable(containing, func(i, j int) bool {
		a, b := containing[i], containing[j]

		pa, pb := changePriority(a.ChangeIndicator), changePriority(b.ChangeIndicator)
		if pa != pb {
			return pa < pb
		}

		da, boundedA := a.Duration()
		db, boundedB := b.Duration()
		if boundedA != boundedB {
			return boundedA // unbounded ranks last
		}
		if boundedA && da != db {
			return da < db
		}

		return segmentDistance(a, arrival) < segmentDistance(b, arrival)
	})

	return &containing[0]
}

// segmentDistance measures how central the arrival sits in the window:
// distance to the midpoint for bounded segments, distance from the start
// for unbounded ones.
func segmentDistance(seg model.TafSegment, arrival time.Time) time.Duration {
	if seg.ForecastTo == nil {
		return absDuration(arrival.Sub(seg.ForecastFrom))
	}
	mid := seg.ForecastFrom.Add(seg.ForecastTo.Sub(seg.ForecastFrom) / 2)
	return absDuration(arrival.Sub(mid))
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
