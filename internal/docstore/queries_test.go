package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/skyward-data/flightwx-cli/internal/model"
)

func TestAssociationFilter(t *testing.T) {
	t.Parallel()

	filter := associationFilter("s1")

	assert.Equal(t, "s1", filter["_metadata.collection_session_id"])
	assert.Equal(t, model.CollectionRealtime, filter["_metadata.collection_type"])
	// Codeshare rows (operated_by set) must be excluded.
	assert.Equal(t, bson.M{"$in": bson.A{nil, ""}}, filter["operated_by"])

	// Association runs before any weather reference exists.
	_, hasMetar := filter["metar_id"]
	_, hasTaf := filter["taf_id"]
	assert.False(t, hasMetar)
	assert.False(t, hasTaf)
}

func TestPropagationFilterRequiresBothReferences(t *testing.T) {
	t.Parallel()

	filter := propagationFilter("s1")

	// Everything the association selection requires still holds.
	assert.Equal(t, "s1", filter["_metadata.collection_session_id"])
	assert.Equal(t, model.CollectionRealtime, filter["_metadata.collection_type"])
	assert.Equal(t, bson.M{"$in": bson.A{nil, ""}}, filter["operated_by"])

	// The completeness gate: a flight with only one reference (the other
	// nil or empty) never matches, so it is deferred, not half-propagated.
	require.Equal(t, bson.M{"$nin": bson.A{nil, ""}}, filter["metar_id"])
	require.Equal(t, bson.M{"$nin": bson.A{nil, ""}}, filter["taf_id"])
}
