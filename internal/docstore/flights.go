package docstore

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/skyward-data/flightwx-cli/internal/model"
)

// InsertFlights writes flights in unordered batches. Duplicate identities
// already present count as skipped; the batch continues.
func (s *Store) InsertFlights(ctx context.Context, flights []model.Flight) (WriteResult, error) {
	var res WriteResult
	coll := s.db.Collection(collFlights)

	for _, r := range batches(len(flights), s.batchSize) {
		batch := flights[r[0]:r[1]]
		docs := make([]any, len(batch))
		for i, f := range batch {
			docs[i] = f
		}

		insRes, err := coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
		if insRes != nil {
			res.Inserted += len(insRes.InsertedIDs)
		}
		if err != nil {
			dups, hard, isBulk := duplicateKeys(err)
			if !isBulk {
				return res, eris.Wrap(err, "docstore: insert flights")
			}
			res.Skipped += dups
			res.Failed += hard
		}
	}

	zap.L().Info("docstore: flights inserted",
		zap.Int("inserted", res.Inserted),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
	s.maybeEnsureIndexes(ctx, res)
	return res, nil
}

// UpsertFlights writes flights with read-before-write merge semantics:
// a new identity inserts with fresh metadata; an existing identity merges
// the incoming fields and advances the update lineage.
func (s *Store) UpsertFlights(ctx context.Context, flights []model.Flight, now time.Time) (WriteResult, error) {
	var res WriteResult
	coll := s.db.Collection(collFlights)

	for _, f := range flights {
		var existing model.Flight
		err := coll.FindOne(ctx, bson.M{"_id": f.ID}).Decode(&existing)

		switch {
		case err == mongo.ErrNoDocuments:
			f.Metadata.IsUpdated = false
			f.Metadata.UpdateCount = 0
			f.Metadata.LastUpdatedAt = nil
			f.Metadata.PreviousCollectionSessionID = ""
			if _, insErr := coll.InsertOne(ctx, f); insErr != nil {
				if dups, _, isBulk := duplicateKeys(insErr); isBulk && dups > 0 {
					res.Skipped++
					continue
				}
				res.Failed++
				zap.L().Warn("docstore: flight insert failed",
					zap.String("id", f.ID),
					zap.Error(insErr),
				)
				continue
			}
			res.Inserted++

		case err != nil:
			res.Failed++
			zap.L().Warn("docstore: flight read failed",
				zap.String("id", f.ID),
				zap.Error(err),
			)

		default:
			merged := MergeFlight(existing, f, now)
			if _, repErr := coll.ReplaceOne(ctx, bson.M{"_id": f.ID}, merged); repErr != nil {
				res.Failed++
				zap.L().Warn("docstore: flight update failed",
					zap.String("id", f.ID),
					zap.Error(repErr),
				)
				continue
			}
			res.Updated++
		}
	}

	zap.L().Info("docstore: flights upserted",
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed),
	)
	s.maybeEnsureIndexes(ctx, res)
	return res, nil
}

// MergeFlight merges an incoming re-collection over the stored document.
// Incoming fields win; weather references and association state survive
// when the incoming record has none; the update lineage advances by one.
func MergeFlight(existing, incoming model.Flight, now time.Time) model.Flight {
	merged := incoming

	if merged.Status == "" {
		merged.Status = existing.Status
	}
	if merged.OperatedBy == "" {
		merged.OperatedBy = existing.OperatedBy
	}
	mergeTimes(&merged.Departure, existing.Departure)
	mergeTimes(&merged.Arrival, existing.Arrival)

	// Association state is owned by the engines, not the collector.
	if merged.MetarID == "" {
		merged.MetarID = existing.MetarID
		merged.Metadata.MetarAssociated = existing.Metadata.MetarAssociated
		merged.Metadata.MetarAssociatedAt = existing.Metadata.MetarAssociatedAt
	}
	if merged.TafID == "" {
		merged.TafID = existing.TafID
		merged.Metadata.TafAssociated = existing.Metadata.TafAssociated
		merged.Metadata.TafAssociatedAt = existing.Metadata.TafAssociatedAt
	}

	merged.Metadata.IsUpdated = true
	merged.Metadata.UpdateCount = existing.Metadata.UpdateCount + 1
	t := now.UTC()
	merged.Metadata.LastUpdatedAt = &t
	merged.Metadata.PreviousCollectionSessionID = existing.Metadata.CollectionSessionID

	return merged
}

func mergeTimes(dst *model.FlightTimes, prev model.FlightTimes) {
	if dst.ScheduledUTC == nil {
		dst.ScheduledUTC = prev.ScheduledUTC
	}
	if dst.EstimatedUTC == nil {
		dst.EstimatedUTC = prev.EstimatedUTC
	}
	if dst.ActualUTC == nil {
		dst.ActualUTC = prev.ActualUTC
	}
	if dst.Terminal == "" {
		dst.Terminal = prev.Terminal
	}
	if dst.Gate == "" {
		dst.Gate = prev.Gate
	}
	if dst.DelayMinutes == nil {
		dst.DelayMinutes = prev.DelayMinutes
	}
}
