package docstore

import (
	"context"

	"github.com/rotisserie/eris"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/skyward-data/flightwx-cli/internal/model"
)

// InsertMetars writes observations in unordered batches. An observation
// already present (same station and instant) counts as skipped.
func (s *Store) InsertMetars(ctx context.Context, metars []model.Metar) (WriteResult, error) {
	docs := make([]any, len(metars))
	for i, m := range metars {
		docs[i] = m
	}
	return s.insertWeather(ctx, collMetar, "metars", docs)
}

// InsertTafs writes forecast segments in unordered batches.
func (s *Store) InsertTafs(ctx context.Context, segments []model.TafSegment) (WriteResult, error) {
	docs := make([]any, len(segments))
	for i, seg := range segments {
		docs[i] = seg
	}
	return s.insertWeather(ctx, collTaf, "taf segments", docs)
}

func (s *Store) insertWeather(ctx context.Context, coll, what string, docs []any) (WriteResult, error) {
	var res WriteResult
	c := s.db.Collection(coll)

	for _, r := range batches(len(docs), s.batchSize) {
		batch := docs[r[0]:r[1]]
		insRes, err := c.InsertMany(ctx, batch, options.InsertMany().SetOrdered(false))
		if insRes != nil {
			res.Inserted += len(insRes.InsertedIDs)
		}
		if err != nil {
			dups, hard, isBulk := duplicateKeys(err)
			if !isBulk {
				return res, eris.Wrapf(err, "docstore: insert %s", what)
			}
			res.Skipped += dups
			res.Failed += hard
		}
	}

	zap.L().Info("docstore: weather inserted",
		zap.String("collection", coll),
		zap.Int("inserted", res.Inserted),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
	s.maybeEnsureIndexes(ctx, res)
	return res, nil
}
