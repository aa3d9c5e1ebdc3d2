// Package correlate links collected flights to their most relevant weather
// records: the latest origin observation and the best-matching destination
// forecast segment.
package correlate

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skyward-data/flightwx-cli/internal/model"
)

// Resolver maps IATA airport codes to ICAO station identifiers.
type Resolver interface {
	ICAO(iata string) (string, bool)
}

// Result counts the outcome of one association pass.
type Result struct {
	Associated int
	Skipped    int
	Failed     int
}

// MetarStore is the document-store surface the METAR engine needs.
type MetarStore interface {
	FlightsForAssociation(ctx context.Context, sessionID string) ([]model.Flight, error)
	LatestMetars(ctx context.Context) (map[string]model.Metar, error)
	SetMetarAssociation(ctx context.Context, flightID, metarID string, at time.Time) error
}

// MetarEngine associates each near-term flight with the latest observation
// at its origin station.
type MetarEngine struct {
	store    MetarStore
	resolver Resolver
}

// NewMetarEngine creates a METAR association engine.
func NewMetarEngine(store MetarStore, resolver Resolver) *MetarEngine {
	return &MetarEngine{store: store, resolver: resolver}
}

// Associate runs the pass for one session. Unmapped origins and stations
// without observations are per-flight skips, never errors.
func (e *MetarEngine) Associate(ctx context.Context, sessionID string, now time.Time) (Result, error) {
	var res Result

	flights, err := e.store.FlightsForAssociation(ctx, sessionID)
	if err != nil {
		return res, eris.Wrap(err, "correlate: load flights for metar association")
	}
	if len(flights) == 0 {
		return res, nil
	}

	latest, err := e.store.LatestMetars(ctx)
	if err != nil {
		return res, eris.Wrap(err, "correlate: build latest observation index")
	}

	for _, f := range flights {
		station, ok := e.resolver.ICAO(f.FromCode)
		if !ok {
			res.Skipped++
			zap.L().Debug("correlate: origin not in reference table",
				zap.String("flight", f.ID),
				zap.String("origin", f.FromCode),
			)
			continue
		}

		metar, ok := latest[station]
		if !ok {
			res.Skipped++
			zap.L().Debug("correlate: no observation for origin station",
				zap.String("flight", f.ID),
				zap.String("station", station),
			)
			continue
		}

		if err := e.store.SetMetarAssociation(ctx, f.ID, metar.ID, now); err != nil {
			res.Failed++
			zap.L().Warn("correlate: metar write-back failed",
				zap.String("flight", f.ID),
				zap.Error(err),
			)
			continue
		}
		res.Associated++
	}

	zap.L().Info("correlate: metar association complete",
		zap.String("session", sessionID),
		zap.Int("associated", res.Associated),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}
