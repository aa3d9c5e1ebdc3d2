package warehouse

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skyward-data/flightwx-cli/internal/db"
	"github.com/skyward-data/flightwx-cli/internal/model"
)

// DocReader is the document-store surface the propagator reads from.
type DocReader interface {
	FlightsForPropagation(ctx context.Context, sessionID string) ([]model.Flight, error)
	MetarsByIDs(ctx context.Context, ids []string) ([]model.Metar, error)
	TafSegmentsByIDs(ctx context.Context, ids []string) ([]model.TafSegment, error)
}

// PropagateResult counts the outcome of one propagation pass.
type PropagateResult struct {
	Flights       int
	Metars        int64
	Tafs          int64
	SkyConditions int
	Skipped       int

	// BackfilledMetarFK / BackfilledTafFK count phase-2 FK updates.
	BackfilledMetarFK int64
	BackfilledTafFK   int64

	// FlightIDs are the warehouse ids of newly inserted flight rows.
	FlightIDs []int64
}

var metarColumns = []string{
	"external_id", "station_id", "observation_time", "raw_text",
	"temp_c", "dewpoint_c", "wind_dir_degrees", "wind_speed_kt",
	"wind_gust_kt", "visibility_statute_mi", "altim_in_hg",
	"sea_level_pressure_mb", "flight_category", "metar_type",
	"wx_string", "collection_session_id",
}

var tafColumns = []string{
	"external_id", "station_id", "issue_time", "forecast_index",
	"fcst_time_from", "fcst_time_to", "change_indicator", "probability",
	"wind_dir_degrees", "wind_speed_kt", "wind_gust_kt",
	"visibility_statute_mi", "wx_string", "raw_text",
	"collection_session_id",
}

// Propagate copies the correlation-complete subset of a session into the
// warehouse. Phase 1 inserts weather rows, their sky-condition children,
// and flight rows carrying external weather references as plain columns;
// phase 2 backfills the true foreign keys. Already-propagated rows are
// skipped via their external_id uniques.
func (w *Warehouse) Propagate(ctx context.Context, docs DocReader, sessionID string) (PropagateResult, error) {
	var res PropagateResult

	flights, err := docs.FlightsForPropagation(ctx, sessionID)
	if err != nil {
		return res, eris.Wrap(err, "warehouse: load propagation subset")
	}
	if len(flights) == 0 {
		zap.L().Info("warehouse: nothing correlation-complete to propagate",
			zap.String("session", sessionID))
		return res, nil
	}

	metarIDs, tafIDs := referencedWeather(flights)

	metars, err := docs.MetarsByIDs(ctx, metarIDs)
	if err != nil {
		return res, eris.Wrap(err, "warehouse: load referenced metars")
	}
	tafs, err := docs.TafSegmentsByIDs(ctx, tafIDs)
	if err != nil {
		return res, eris.Wrap(err, "warehouse: load referenced taf segments")
	}

	if res.Metars, err = w.insertMetars(ctx, metars); err != nil {
		return res, err
	}
	if res.Tafs, err = w.insertTafs(ctx, tafs); err != nil {
		return res, err
	}

	for _, m := range metars {
		n, err := w.insertSkyConditions(ctx, "metar", "metar_fk", m.ID, m.SkyConditions)
		if err != nil {
			return res, err
		}
		res.SkyConditions += n
	}
	for _, s := range tafs {
		n, err := w.insertSkyConditions(ctx, "taf", "taf_fk", s.ID, s.SkyConditions)
		if err != nil {
			return res, err
		}
		res.SkyConditions += n
	}

	for _, f := range flights {
		id, inserted, err := w.insertFlight(ctx, f)
		if err != nil {
			return res, err
		}
		if !inserted {
			res.Skipped++
			continue
		}
		res.Flights++
		res.FlightIDs = append(res.FlightIDs, id)
	}

	res.BackfilledMetarFK, res.BackfilledTafFK, err = w.BackfillForeignKeys(ctx)
	if err != nil {
		return res, err
	}

	zap.L().Info("warehouse: propagation complete",
		zap.String("session", sessionID),
		zap.Int("flights", res.Flights),
		zap.Int("skipped", res.Skipped),
		zap.Int64("metars", res.Metars),
		zap.Int64("tafs", res.Tafs),
		zap.Int("sky_conditions", res.SkyConditions),
		zap.Int64("metar_fks", res.BackfilledMetarFK),
		zap.Int64("taf_fks", res.BackfilledTafFK),
	)
	return res, nil
}

// referencedWeather collects the distinct weather identities the flights
// point at, preserving first-seen order.
func referencedWeather(flights []model.Flight) (metarIDs, tafIDs []string) {
	seenMetar := make(map[string]bool)
	seenTaf := make(map[string]bool)
	for _, f := range flights {
		if f.MetarID != "" && !seenMetar[f.MetarID] {
			seenMetar[f.MetarID] = true
			metarIDs = append(metarIDs, f.MetarID)
		}
		if f.TafID != "" && !seenTaf[f.TafID] {
			seenTaf[f.TafID] = true
			tafIDs = append(tafIDs, f.TafID)
		}
	}
	return metarIDs, tafIDs
}

func (w *Warehouse) insertMetars(ctx context.Context, metars []model.Metar) (int64, error) {
	rows := make([][]any, len(metars))
	for i, m := range metars {
		rows[i] = []any{
			m.ID, m.StationID, m.ObservationTime.UTC(), m.RawText,
			m.TempC, m.DewpointC, m.WindDirDegrees, m.WindSpeedKt,
			m.WindGustKt, m.VisibilityStatuteMi, m.AltimInHg,
			m.SeaLevelPressureMb, m.FlightCategory, m.MetarType,
			m.WxString, m.Metadata.CollectionSessionID,
		}
	}
	n, err := db.InsertIgnore(ctx, w.pool, "metar", metarColumns, []string{"external_id"}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "warehouse: insert metars")
	}
	return n, nil
}

func (w *Warehouse) insertTafs(ctx context.Context, tafs []model.TafSegment) (int64, error) {
	rows := make([][]any, len(tafs))
	for i, s := range tafs {
		var to any
		if s.ForecastTo != nil {
			to = s.ForecastTo.UTC()
		}
		rows[i] = []any{
			s.ID, s.StationID, s.IssueTime.UTC(), s.ForecastIndex,
			s.ForecastFrom.UTC(), to, string(s.ChangeIndicator), s.Probability,
			s.WindDirDegrees, s.WindSpeedKt, s.WindGustKt,
			s.VisibilityStatuteMi, s.WxString, s.RawText,
			s.Metadata.CollectionSessionID,
		}
	}
	n, err := db.InsertIgnore(ctx, w.pool, "taf", tafColumns, []string{"external_id"}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "warehouse: insert taf segments")
	}
	return n, nil
}

// insertSkyConditions writes the cloud layers of one weather row, parent
// resolved by external_id. A parent that already has layers is left
// untouched so re-propagation does not duplicate children.
func (w *Warehouse) insertSkyConditions(ctx context.Context, parentTable, fkColumn, externalID string, layers []model.SkyCondition) (int, error) {
	if len(layers) == 0 {
		return 0, nil
	}

	var exists bool
	checkSQL := `SELECT EXISTS (
		SELECT 1 FROM sky_condition s
		JOIN ` + parentTable + ` p ON s.` + fkColumn + ` = p.id
		WHERE p.external_id = $1)`
	if err := w.pool.QueryRow(ctx, checkSQL, externalID).Scan(&exists); err != nil {
		return 0, eris.Wrapf(err, "warehouse: check sky conditions for %s", externalID)
	}
	if exists {
		return 0, nil
	}

	insertSQL := `INSERT INTO sky_condition (` + fkColumn + `, sky_cover, cloud_base_ft_agl, cloud_type)
		SELECT id, $2, $3, $4 FROM ` + parentTable + ` WHERE external_id = $1`
	inserted := 0
	for _, layer := range layers {
		tag, err := w.pool.Exec(ctx, insertSQL, externalID, layer.SkyCover, layer.CloudBaseFtAGL, layer.CloudType)
		if err != nil {
			return inserted, eris.Wrapf(err, "warehouse: insert sky condition for %s", externalID)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

const insertFlightSQL = `INSERT INTO flight (
	external_id, flight_number, from_code, to_code,
	departure_scheduled_utc, departure_actual_utc,
	arrival_scheduled_utc, status,
	departure_metar_external_id, arrival_taf_external_id,
	collection_session_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (external_id) DO NOTHING
RETURNING id`

// insertFlight writes one flight row. Returns inserted=false when the
// identity already exists in the warehouse.
func (w *Warehouse) insertFlight(ctx context.Context, f model.Flight) (int64, bool, error) {
	// The near-term pass has no actual departure yet; the live estimate
	// stands in until the reconciler writes the realized instants.
	departureActual := f.Departure.ActualUTC
	if departureActual == nil {
		departureActual = f.Departure.EstimatedUTC
	}

	var id int64
	err := w.pool.QueryRow(ctx, insertFlightSQL,
		f.ID, f.FlightNumber, f.FromCode, f.ToCode,
		f.Departure.ScheduledUTC, departureActual,
		f.Arrival.ScheduledUTC, f.Status,
		f.MetarID, f.TafID,
		f.Metadata.CollectionSessionID,
	).Scan(&id)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, eris.Wrapf(err, "warehouse: insert flight %s", f.ID)
	}
	return id, true, nil
}

const backfillMetarSQL = `UPDATE flight SET departure_metar_fk = m.id
FROM metar m
WHERE flight.departure_metar_external_id = m.external_id
  AND flight.departure_metar_fk IS NULL
  AND flight.departure_metar_external_id IS NOT NULL`

const backfillTafSQL = `UPDATE flight SET arrival_taf_fk = t.id
FROM taf t
WHERE flight.arrival_taf_external_id = t.external_id
  AND flight.arrival_taf_fk IS NULL
  AND flight.arrival_taf_external_id IS NOT NULL`

// BackfillForeignKeys resolves the external weather references of flight
// rows into true foreign keys. Idempotent: only rows with a NULL FK and a
// matching weather row are touched, so it is safe to re-run at any time.
func (w *Warehouse) BackfillForeignKeys(ctx context.Context) (metarFKs, tafFKs int64, err error) {
	tag, err := w.pool.Exec(ctx, backfillMetarSQL)
	if err != nil {
		return 0, 0, eris.Wrap(err, "warehouse: backfill metar fks")
	}
	metarFKs = tag.RowsAffected()

	tag, err = w.pool.Exec(ctx, backfillTafSQL)
	if err != nil {
		return metarFKs, 0, eris.Wrap(err, "warehouse: backfill taf fks")
	}
	tafFKs = tag.RowsAffected()

	return metarFKs, tafFKs, nil
}

// LogStage appends stage results to the collection log.
func (w *Warehouse) LogStage(ctx context.Context, sessionID string, stages []model.StageResult) error {
	rows := make([][]any, len(stages))
	for i, st := range stages {
		rows[i] = []any{
			sessionID, st.Name, string(st.Status),
			st.Collected, st.Inserted, st.Updated,
			st.Associated, st.Skipped, st.Failed, st.DurationMs,
		}
	}
	_, err := db.CopyFrom(ctx, w.pool, "collection_log", []string{
		"session_id", "stage", "status",
		"collected", "inserted", "updated",
		"associated", "skipped", "failed", "duration_ms",
	}, rows)
	if err != nil {
		return eris.Wrap(err, "warehouse: log stages")
	}
	return nil
}
