// Package identity derives stable, deterministic identifiers for collected
// records from their intrinsic fields. Identifiers never include collection
// time, so re-collecting the same real-world record yields the same ID.
package identity

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/skyward-data/flightwx-cli/internal/model"
)

// ErrMissingField is returned when a record lacks a field its identity needs.
// Callers treat it as a per-record data-quality skip, not a stage failure.
var ErrMissingField = eris.New("identity: missing required field")

// Flight builds the flight identifier from flight number, route codes, and
// the scheduled departure truncated to the hour. Truncation tolerates
// sub-hour jitter in the feed; two distinct flights sharing number, route
// and hour collide, and the later write overwrites the earlier.
func Flight(f *model.Flight) (string, error) {
	if f.FlightNumber == "" || f.FromCode == "" || f.ToCode == "" {
		return "", eris.Wrap(ErrMissingField, "flight number or route code")
	}
	if f.Departure.ScheduledUTC == nil {
		return "", eris.Wrap(ErrMissingField, "scheduled departure")
	}

	bucket := f.Departure.ScheduledUTC.UTC().Format("20060102_15")
	return fmt.Sprintf("%s_%s_%s_%s", f.FlightNumber, f.FromCode, f.ToCode, bucket), nil
}

// Metar builds the observation identifier from station and observation
// instant.
func Metar(m *model.Metar) (string, error) {
	if m.StationID == "" {
		return "", eris.Wrap(ErrMissingField, "station")
	}
	if m.ObservationTime.IsZero() {
		return "", eris.Wrap(ErrMissingField, "observation time")
	}

	return fmt.Sprintf("%s_%s", m.StationID, m.ObservationTime.UTC().Format(time.RFC3339)), nil
}

// Taf builds the segment identifier from station, issue instant, the
// segment validity window, and the forecast index within the bulletin. An
// open-ended window omits the upper bound.
func Taf(s *model.TafSegment) (string, error) {
	if s.StationID == "" {
		return "", eris.Wrap(ErrMissingField, "station")
	}
	if s.IssueTime.IsZero() {
		return "", eris.Wrap(ErrMissingField, "issue time")
	}
	if s.ForecastFrom.IsZero() {
		return "", eris.Wrap(ErrMissingField, "segment start")
	}

	issue := s.IssueTime.UTC().Format(time.RFC3339)
	from := s.ForecastFrom.UTC().Format(time.RFC3339)
	if s.ForecastTo == nil {
		return fmt.Sprintf("%s_%s_%s_f%d", s.StationID, issue, from, s.ForecastIndex), nil
	}

	to := s.ForecastTo.UTC().Format(time.RFC3339)
	return fmt.Sprintf("%s_%s_%s_%s_f%d", s.StationID, issue, from, to, s.ForecastIndex), nil
}
