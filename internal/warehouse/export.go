package warehouse

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// FlightRow is one exported warehouse flight.
type FlightRow struct {
	ExternalID         string
	FlightNumber       string
	FromCode           string
	ToCode             string
	DepartureScheduled *time.Time
	DepartureActual    *time.Time
	DepartureFinal     *time.Time
	ArrivalScheduled   *time.Time
	ArrivalActual      *time.Time
	Status             string
	StatusFinal        *string
	DelayMin           *int
	MetarExternalID    *string
	TafExternalID      *string
}

// MetarRow is one exported warehouse observation.
type MetarRow struct {
	ExternalID      string
	StationID       string
	ObservationTime time.Time
	TempC           *float64
	WindDirDegrees  *int
	WindSpeedKt     *int
	VisibilityMi    *float64
	FlightCategory  *string
	RawText         *string
}

// TafRow is one exported warehouse forecast segment.
type TafRow struct {
	ExternalID      string
	StationID       string
	IssueTime       time.Time
	ForecastIndex   int
	ForecastFrom    time.Time
	ForecastTo      *time.Time
	ChangeIndicator *string
	Probability     *int
	WindDirDegrees  *int
	WindSpeedKt     *int
	WxString        *string
}

const exportFlightsSQL = `SELECT
	external_id, flight_number, from_code, to_code,
	departure_scheduled_utc, departure_actual_utc, departure_final_utc,
	arrival_scheduled_utc, arrival_actual_utc,
	status, status_final, delay_min,
	departure_metar_external_id, arrival_taf_external_id
FROM flight
WHERE $1 = '' OR collection_session_id = $1
ORDER BY departure_scheduled_utc, flight_number`

// ExportFlights reads warehouse flights, optionally scoped to a session.
func (w *Warehouse) ExportFlights(ctx context.Context, sessionID string) ([]FlightRow, error) {
	rows, err := w.pool.Query(ctx, exportFlightsSQL, sessionID)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: export flights")
	}
	return scanRows(rows, func(r pgx.Rows) (FlightRow, error) {
		var f FlightRow
		err := r.Scan(&f.ExternalID, &f.FlightNumber, &f.FromCode, &f.ToCode,
			&f.DepartureScheduled, &f.DepartureActual, &f.DepartureFinal,
			&f.ArrivalScheduled, &f.ArrivalActual,
			&f.Status, &f.StatusFinal, &f.DelayMin,
			&f.MetarExternalID, &f.TafExternalID)
		return f, err
	})
}

const exportMetarsSQL = `SELECT DISTINCT
	m.external_id, m.station_id, m.observation_time,
	m.temp_c, m.wind_dir_degrees, m.wind_speed_kt,
	m.visibility_statute_mi, m.flight_category, m.raw_text
FROM metar m
JOIN flight f ON f.departure_metar_external_id = m.external_id
WHERE $1 = '' OR f.collection_session_id = $1
ORDER BY m.station_id, m.observation_time`

// ExportMetars reads the observations referenced by exported flights.
func (w *Warehouse) ExportMetars(ctx context.Context, sessionID string) ([]MetarRow, error) {
	rows, err := w.pool.Query(ctx, exportMetarsSQL, sessionID)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: export metars")
	}
	return scanRows(rows, func(r pgx.Rows) (MetarRow, error) {
		var m MetarRow
		err := r.Scan(&m.ExternalID, &m.StationID, &m.ObservationTime,
			&m.TempC, &m.WindDirDegrees, &m.WindSpeedKt,
			&m.VisibilityMi, &m.FlightCategory, &m.RawText)
		return m, err
	})
}

const exportTafsSQL = `SELECT DISTINCT
	t.external_id, t.station_id, t.issue_time, t.forecast_index,
	t.fcst_time_from, t.fcst_time_to, t.change_indicator, t.probability,
	t.wind_dir_degrees, t.wind_speed_kt, t.wx_string
FROM taf t
JOIN flight f ON f.arrival_taf_external_id = t.external_id
WHERE $1 = '' OR f.collection_session_id = $1
ORDER BY t.station_id, t.issue_time, t.forecast_index`

// ExportTafs reads the forecast segments referenced by exported flights.
func (w *Warehouse) ExportTafs(ctx context.Context, sessionID string) ([]TafRow, error) {
	rows, err := w.pool.Query(ctx, exportTafsSQL, sessionID)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: export tafs")
	}
	return scanRows(rows, func(r pgx.Rows) (TafRow, error) {
		var t TafRow
		err := r.Scan(&t.ExternalID, &t.StationID, &t.IssueTime, &t.ForecastIndex,
			&t.ForecastFrom, &t.ForecastTo, &t.ChangeIndicator, &t.Probability,
			&t.WindDirDegrees, &t.WindSpeedKt, &t.WxString)
		return t, err
	})
}

func scanRows[T any](rows pgx.Rows, scan func(pgx.Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, eris.Wrap(err, "warehouse: scan export row")
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "warehouse: iterate export rows")
	}
	return out, nil
}
