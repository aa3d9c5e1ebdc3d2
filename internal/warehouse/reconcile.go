package warehouse

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skyward-data/flightwx-cli/internal/model"
)

// PastReader is the document-store surface the reconciler reads from.
type PastReader interface {
	PastFlights(ctx context.Context, sessionID string) ([]model.Flight, error)
}

// ReconcileResult counts the outcome of one reconciliation pass.
type ReconcileResult struct {
	Updated int
	Skipped int
}

const reconcileSQL = `UPDATE flight SET
	departure_final_utc = $1,
	arrival_actual_utc  = $2,
	status_final        = $3,
	delay_min           = $4
WHERE flight_number = $5
  AND from_code = $6
  AND to_code = $7
  AND departure_scheduled_utc = $8`

// Reconcile folds realized outcomes from the historical pass into the
// warehouse. Rows are matched strictly by natural key (flight number,
// route, originally scheduled departure): the historical pass is a
// distinct collection of the same real-world flight, so store ids never
// line up. A flight with no warehouse row is silently skipped; it may
// never have passed the completeness gate. Never inserts.
func (w *Warehouse) Reconcile(ctx context.Context, docs PastReader, sessionID string) (ReconcileResult, error) {
	var res ReconcileResult

	flights, err := docs.PastFlights(ctx, sessionID)
	if err != nil {
		return res, eris.Wrap(err, "warehouse: load past flights")
	}

	for _, f := range flights {
		if f.Departure.ScheduledUTC == nil {
			res.Skipped++
			zap.L().Debug("warehouse: past flight missing scheduled departure",
				zap.String("flight", f.ID))
			continue
		}

		tag, err := w.pool.Exec(ctx, reconcileSQL,
			f.Departure.ActualUTC,
			f.Arrival.ActualUTC,
			f.Status,
			f.ArrivalDelayMinutes(),
			f.FlightNumber,
			f.FromCode,
			f.ToCode,
			f.Departure.ScheduledUTC.UTC(),
		)
		if err != nil {
			return res, eris.Wrapf(err, "warehouse: reconcile flight %s", f.ID)
		}

		if tag.RowsAffected() == 0 {
			res.Skipped++
			zap.L().Debug("warehouse: no warehouse row for past flight",
				zap.String("flight", f.ID))
			continue
		}
		res.Updated++
	}

	zap.L().Info("warehouse: reconciliation complete",
		zap.String("session", sessionID),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}
