package warehouse

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyward-data/flightwx-cli/internal/model"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestMigrateAppliesPending(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_lock($1)")).
		WithArgs(migrationLock).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT filename FROM schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"filename"}))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS metar").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs("0001_init.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_unlock($1)")).
		WithArgs(migrationLock).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateSkipsApplied(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_lock($1)")).
		WithArgs(migrationLock).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT filename FROM schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"filename"}).AddRow("0001_init.sql"))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_unlock($1)")).
		WithArgs(migrationLock).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackfillForeignKeys(t *testing.T) {
	mock := newMock(t)
	w := New(mock)

	mock.ExpectExec("UPDATE flight SET departure_metar_fk").
		WillReturnResult(pgxmock.NewResult("UPDATE", 7))
	mock.ExpectExec("UPDATE flight SET arrival_taf_fk").
		WillReturnResult(pgxmock.NewResult("UPDATE", 5))

	metarFKs, tafFKs, err := w.BackfillForeignKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), metarFKs)
	assert.Equal(t, int64(5), tafFKs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertFlight(t *testing.T) {
	mock := newMock(t)
	w := New(mock)

	sched := time.Date(2025, 7, 20, 18, 5, 0, 0, time.UTC)
	est := sched.Add(15 * time.Minute)
	f := model.Flight{
		ID:           "AF123_CDG_JFK_20250720_18",
		FlightNumber: "AF123",
		FromCode:     "CDG",
		ToCode:       "JFK",
		Status:       "scheduled",
		Departure:    model.FlightTimes{ScheduledUTC: &sched, EstimatedUTC: &est},
		MetarID:      "LFPG_2025-07-20T17:30:00Z",
		TafID:        "KJFK_2025-07-20T11:00:00Z_2025-07-21T01:00:00Z_2025-07-21T03:00:00Z_f1",
		Metadata:     model.FlightMetadata{CollectionSessionID: "s1"},
	}

	// The live estimate stands in for the actual departure.
	mock.ExpectQuery("INSERT INTO flight").
		WithArgs(f.ID, "AF123", "CDG", "JFK", &sched, &est, (*time.Time)(nil), "scheduled",
			f.MetarID, f.TafID, "s1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, inserted, err := w.insertFlight(context.Background(), f)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertFlightAlreadyPropagated(t *testing.T) {
	mock := newMock(t)
	w := New(mock)

	f := model.Flight{ID: "AF1_CDG_LHR_20250720_10", FlightNumber: "AF1", FromCode: "CDG", ToCode: "LHR"}

	// ON CONFLICT DO NOTHING yields no RETURNING row.
	mock.ExpectQuery("INSERT INTO flight").
		WithArgs(f.ID, "AF1", "CDG", "LHR",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, inserted, err := w.insertFlight(context.Background(), f)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferencedWeatherDedupes(t *testing.T) {
	t.Parallel()

	flights := []model.Flight{
		{MetarID: "m1", TafID: "t1"},
		{MetarID: "m1", TafID: "t2"},
		{MetarID: "m2", TafID: "t1"},
	}
	metarIDs, tafIDs := referencedWeather(flights)
	assert.Equal(t, []string{"m1", "m2"}, metarIDs)
	assert.Equal(t, []string{"t1", "t2"}, tafIDs)
}

type fakePastReader struct {
	flights []model.Flight
	err     error
}

func (r *fakePastReader) PastFlights(_ context.Context, _ string) ([]model.Flight, error) {
	return r.flights, r.err
}

func TestReconcileUpdatesByNaturalKey(t *testing.T) {
	mock := newMock(t)
	w := New(mock)

	sched := time.Date(2025, 7, 20, 18, 5, 0, 0, time.UTC)
	depActual := sched.Add(22 * time.Minute)
	arrSched := time.Date(2025, 7, 21, 2, 0, 0, 0, time.UTC)
	arrActual := arrSched.Add(12 * time.Minute)
	delay := 12

	docs := &fakePastReader{flights: []model.Flight{{
		ID:           "AF123_CDG_JFK_20250720_18",
		FlightNumber: "AF123",
		FromCode:     "CDG",
		ToCode:       "JFK",
		Status:       "landed",
		Departure:    model.FlightTimes{ScheduledUTC: &sched, ActualUTC: &depActual},
		Arrival:      model.FlightTimes{ScheduledUTC: &arrSched, ActualUTC: &arrActual},
		Metadata:     model.FlightMetadata{CollectionType: model.CollectionPast},
	}}}

	mock.ExpectExec("UPDATE flight SET").
		WithArgs(&depActual, &arrActual, "landed", &delay, "AF123", "CDG", "JFK", sched).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	res, err := w.Reconcile(context.Background(), docs, "s2")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Zero(t, res.Skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileSkipsMissingWarehouseRow(t *testing.T) {
	mock := newMock(t)
	w := New(mock)

	sched := time.Date(2025, 7, 20, 9, 0, 0, 0, time.UTC)
	docs := &fakePastReader{flights: []model.Flight{{
		ID:           "AF9_CDG_NCE_20250720_09",
		FlightNumber: "AF9",
		FromCode:     "CDG",
		ToCode:       "NCE",
		Departure:    model.FlightTimes{ScheduledUTC: &sched},
	}}}

	// Flight never passed the completeness gate: zero rows is a skip.
	mock.ExpectExec("UPDATE flight SET").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			"AF9", "CDG", "NCE", sched).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	res, err := w.Reconcile(context.Background(), docs, "s2")
	require.NoError(t, err)
	assert.Zero(t, res.Updated)
	assert.Equal(t, 1, res.Skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileNeverInserts(t *testing.T) {
	mock := newMock(t)
	w := New(mock)

	// A past flight without its scheduled departure cannot be matched and
	// must not touch the database at all.
	docs := &fakePastReader{flights: []model.Flight{{
		ID:           "AF10_CDG_FRA_20250720_11",
		FlightNumber: "AF10",
		FromCode:     "CDG",
		ToCode:       "FRA",
	}}}

	res, err := w.Reconcile(context.Background(), docs, "s2")
	require.NoError(t, err)
	assert.Zero(t, res.Updated)
	assert.Equal(t, 1, res.Skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogStage(t *testing.T) {
	mock := newMock(t)
	w := New(mock)

	mock.ExpectCopyFrom(
		pgx.Identifier{"collection_log"},
		[]string{"session_id", "stage", "status", "collected", "inserted", "updated", "associated", "skipped", "failed", "duration_ms"},
	).WillReturnResult(2)

	stages := []model.StageResult{
		{Name: "collect_flights", Status: model.StageSuccess, Collected: 120},
		{Name: "collect_weather", Status: model.StageSuccess, Collected: 14},
	}
	require.NoError(t, w.LogStage(context.Background(), "s1", stages))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportFlights(t *testing.T) {
	mock := newMock(t)
	w := New(mock)

	sched := time.Date(2025, 7, 20, 18, 5, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{
		"external_id", "flight_number", "from_code", "to_code",
		"departure_scheduled_utc", "departure_actual_utc", "departure_final_utc",
		"arrival_scheduled_utc", "arrival_actual_utc",
		"status", "status_final", "delay_min",
		"departure_metar_external_id", "arrival_taf_external_id",
	}).AddRow(
		"AF123_CDG_JFK_20250720_18", "AF123", "CDG", "JFK",
		&sched, nil, nil, nil, nil,
		"scheduled", nil, nil,
		nil, nil,
	)

	mock.ExpectQuery("SELECT").WithArgs("s1").WillReturnRows(rows)

	flights, err := w.ExportFlights(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, flights, 1)
	assert.Equal(t, "AF123", flights[0].FlightNumber)
	require.NotNil(t, flights[0].DepartureScheduled)
	assert.Equal(t, sched, *flights[0].DepartureScheduled)
	assert.NoError(t, mock.ExpectationsWereMet())
}
