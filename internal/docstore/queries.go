package docstore

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/skyward-data/flightwx-cli/internal/model"
)

// noCodeshare excludes marketing duplicates of another carrier's flight.
var noCodeshare = bson.M{"$in": bson.A{nil, ""}}

// associationFilter selects the near-term, non-codeshare flights of a
// session.
func associationFilter(sessionID string) bson.M {
	return bson.M{
		"_metadata.collection_session_id": sessionID,
		"_metadata.collection_type":       model.CollectionRealtime,
		"operated_by":                     noCodeshare,
	}
}

// propagationFilter narrows the association selection to the
// correlation-complete subset: BOTH weather references must be set.
func propagationFilter(sessionID string) bson.M {
	filter := associationFilter(sessionID)
	filter["metar_id"] = bson.M{"$nin": bson.A{nil, ""}}
	filter["taf_id"] = bson.M{"$nin": bson.A{nil, ""}}
	return filter
}

// FlightsForAssociation returns the near-term flights of a session that
// the association engines should process. Codeshare rows are excluded.
func (s *Store) FlightsForAssociation(ctx context.Context, sessionID string) ([]model.Flight, error) {
	return s.findFlights(ctx, associationFilter(sessionID))
}

// FlightsForPropagation returns the correlation-complete subset of a
// session: near-term, non-codeshare flights holding BOTH weather
// references. Single-reference flights stay behind.
func (s *Store) FlightsForPropagation(ctx context.Context, sessionID string) ([]model.Flight, error) {
	return s.findFlights(ctx, propagationFilter(sessionID))
}

// PastFlights returns the historical-pass flights of a session, used by
// the reconciler.
func (s *Store) PastFlights(ctx context.Context, sessionID string) ([]model.Flight, error) {
	filter := bson.M{
		"_metadata.collection_session_id": sessionID,
		"_metadata.collection_type":       model.CollectionPast,
	}
	return s.findFlights(ctx, filter)
}

func (s *Store) findFlights(ctx context.Context, filter bson.M) ([]model.Flight, error) {
	cur, err := s.db.Collection(collFlights).Find(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "docstore: find flights")
	}
	defer cur.Close(ctx) //nolint:errcheck

	var flights []model.Flight
	if err := cur.All(ctx, &flights); err != nil {
		return nil, eris.Wrap(err, "docstore: decode flights")
	}
	return flights, nil
}

// LatestMetars builds the latest-observation index: for each station, the
// observation with the greatest observation instant.
func (s *Store) LatestMetars(ctx context.Context) (map[string]model.Metar, error) {
	pipeline := bson.A{
		bson.M{"$sort": bson.M{"observation_time": -1}},
		bson.M{"$group": bson.M{
			"_id": "$station_id",
			"doc": bson.M{"$first": "$$ROOT"},
		}},
		bson.M{"$replaceRoot": bson.M{"newRoot": "$doc"}},
	}

	cur, err := s.db.Collection(collMetar).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, eris.Wrap(err, "docstore: latest metars")
	}
	defer cur.Close(ctx) //nolint:errcheck

	var metars []model.Metar
	if err := cur.All(ctx, &metars); err != nil {
		return nil, eris.Wrap(err, "docstore: decode latest metars")
	}

	index := make(map[string]model.Metar, len(metars))
	for _, m := range metars {
		index[m.StationID] = m
	}
	return index, nil
}

// TafCandidates returns the station's forecast segments whose validity end
// lies in the future relative to now, or is unbounded.
func (s *Store) TafCandidates(ctx context.Context, station string, now time.Time) ([]model.TafSegment, error) {
	filter := bson.M{
		"station_id": station,
		"$or": bson.A{
			bson.M{"fcst_time_to": bson.M{"$gt": now.UTC()}},
			bson.M{"fcst_time_to": nil},
		},
	}

	cur, err := s.db.Collection(collTaf).Find(ctx, filter)
	if err != nil {
		return nil, eris.Wrapf(err, "docstore: taf candidates for %s", station)
	}
	defer cur.Close(ctx) //nolint:errcheck

	var segments []model.TafSegment
	if err := cur.All(ctx, &segments); err != nil {
		return nil, eris.Wrap(err, "docstore: decode taf candidates")
	}
	return segments, nil
}

// SetMetarAssociation writes only the association delta on the flight.
func (s *Store) SetMetarAssociation(ctx context.Context, flightID, metarID string, at time.Time) error {
	update := bson.M{"$set": bson.M{
		"metar_id":                      metarID,
		"_metadata.metar_associated":    true,
		"_metadata.metar_associated_at": at.UTC(),
	}}
	if _, err := s.db.Collection(collFlights).UpdateByID(ctx, flightID, update); err != nil {
		return eris.Wrapf(err, "docstore: set metar association on %s", flightID)
	}
	return nil
}

// SetTafAssociation writes only the association delta on the flight.
func (s *Store) SetTafAssociation(ctx context.Context, flightID, tafID string, at time.Time) error {
	update := bson.M{"$set": bson.M{
		"taf_id":                      tafID,
		"_metadata.taf_associated":    true,
		"_metadata.taf_associated_at": at.UTC(),
	}}
	if _, err := s.db.Collection(collFlights).UpdateByID(ctx, flightID, update); err != nil {
		return eris.Wrapf(err, "docstore: set taf association on %s", flightID)
	}
	return nil
}

// MetarsByIDs fetches observations by identity.
func (s *Store) MetarsByIDs(ctx context.Context, ids []string) ([]model.Metar, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.db.Collection(collMetar).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, eris.Wrap(err, "docstore: metars by ids")
	}
	defer cur.Close(ctx) //nolint:errcheck

	var metars []model.Metar
	if err := cur.All(ctx, &metars); err != nil {
		return nil, eris.Wrap(err, "docstore: decode metars")
	}
	return metars, nil
}

// TafSegmentsByIDs fetches forecast segments by identity.
func (s *Store) TafSegmentsByIDs(ctx context.Context, ids []string) ([]model.TafSegment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.db.Collection(collTaf).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, eris.Wrap(err, "docstore: taf segments by ids")
	}
	defer cur.Close(ctx) //nolint:errcheck

	var segments []model.TafSegment
	if err := cur.All(ctx, &segments); err != nil {
		return nil, eris.Wrap(err, "docstore: decode taf segments")
	}
	return segments, nil
}
