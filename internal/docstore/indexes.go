package docstore

import (
	"context"

	"github.com/rotisserie/eris"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureIndexes creates the secondary indexes idempotently. Called after
// the first successful batch of a session; CreateMany is a no-op for
// indexes that already exist.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	flightIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "flight_number", Value: 1}}},
		{Keys: bson.D{{Key: "from_code", Value: 1}, {Key: "to_code", Value: 1}}},
		{Keys: bson.D{{Key: "departure.scheduled_utc", Value: 1}}},
		{Keys: bson.D{{Key: "_metadata.collection_session_id", Value: 1}}},
		{Keys: bson.D{{Key: "_metadata.collection_type", Value: 1}}},
		{Keys: bson.D{{Key: "_metadata.metar_associated", Value: 1}}},
		{Keys: bson.D{{Key: "_metadata.taf_associated", Value: 1}}},
	}
	if _, err := s.db.Collection(collFlights).Indexes().CreateMany(ctx, flightIndexes); err != nil {
		return eris.Wrap(err, "docstore: ensure flight indexes")
	}

	metarIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "station_id", Value: 1}, {Key: "observation_time", Value: -1}}},
		{Keys: bson.D{{Key: "_metadata.collection_session_id", Value: 1}}},
	}
	if _, err := s.db.Collection(collMetar).Indexes().CreateMany(ctx, metarIndexes); err != nil {
		return eris.Wrap(err, "docstore: ensure metar indexes")
	}

	tafIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "station_id", Value: 1}, {Key: "fcst_time_from", Value: 1}}},
		{Keys: bson.D{{Key: "station_id", Value: 1}, {Key: "fcst_time_to", Value: 1}}},
		{Keys: bson.D{{Key: "_metadata.collection_session_id", Value: 1}}},
	}
	if _, err := s.db.Collection(collTaf).Indexes().CreateMany(ctx, tafIndexes); err != nil {
		return eris.Wrap(err, "docstore: ensure taf indexes")
	}

	zap.L().Debug("docstore: secondary indexes ensured")
	return nil
}
