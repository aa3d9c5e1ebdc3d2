// Package source defines the typed-record boundaries the pipeline collects
// from, plus the bundled snapshot and aviation weather implementations.
// Parsing upstream wire formats stays behind these contracts.
package source

import (
	"context"
	"time"

	"github.com/skyward-data/flightwx-cli/internal/model"
)

// CollectQuery describes one collection pass for one airport.
type CollectQuery struct {
	// Airport is the IATA code of the departure airport.
	Airport string

	// Type tags the pass: near-term departures or the historical re-pass.
	Type model.CollectionType

	// OffsetHours shifts the window reference from Now (near-term default
	// +1, historical default -20).
	OffsetHours int

	// Now anchors the window; zero means time.Now().
	Now time.Time
}

// Reference returns the window reference instant in UTC.
func (q CollectQuery) Reference() time.Time {
	now := q.Now
	if now.IsZero() {
		now = time.Now()
	}
	return now.Add(time.Duration(q.OffsetHours) * time.Hour).UTC()
}

// FlightSource yields flight-schedule records for a collection pass.
type FlightSource interface {
	Collect(ctx context.Context, q CollectQuery) ([]model.Flight, error)
}

// WeatherSource yields aviation weather records for a set of ICAO stations.
type WeatherSource interface {
	Metars(ctx context.Context, stations []string) ([]model.Metar, error)
	Tafs(ctx context.Context, stations []string) ([]model.TafSegment, error)
}
