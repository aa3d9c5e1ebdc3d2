package plan

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyward-data/flightwx-cli/internal/config"
	"github.com/skyward-data/flightwx-cli/internal/model"
)

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPlan(t *testing.T) {
	path := writePlan(t, `
plan:
  defaults:
    realtime_offset_hours: 1
    past_offset_hours: -20
  airports:
    - code: cdg
    - code: ORY
      past: false
      realtime_offset_hours: 2
`)

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"CDG", "ORY"}, p.Codes())
	assert.Equal(t, -20, p.Defaults.PastOffsetHrs)
	require.NotNil(t, p.Airports[1].Past)
	assert.False(t, *p.Airports[1].Past)
}

func TestLoadPlanRejectsDuplicates(t *testing.T) {
	path := writePlan(t, `
plan:
  airports:
    - code: CDG
    - code: cdg
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "duplicate airport")
}

func TestLoadPlanRejectsEmpty(t *testing.T) {
	path := writePlan(t, "plan:\n  airports: []\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "no airports")
}

func TestQueriesExpandsPasses(t *testing.T) {
	t.Parallel()

	yes := true
	no := false
	pastOffset := -24
	p := &Plan{
		Defaults: Defaults{RealtimeOffsetHrs: 1, PastOffsetHrs: -20},
		Airports: []AirportPlan{
			{Code: "CDG"},
			{Code: "ORY", Past: &no},
			{Code: "LHR", Realtime: &yes, PastOffsetHrs: &pastOffset},
		},
	}

	now := time.Date(2025, 7, 20, 18, 5, 0, 0, time.UTC)
	queries := p.Queries(now)
	require.Len(t, queries, 5)

	// Realtime pass first, plan order preserved.
	assert.Equal(t, "CDG", queries[0].Airport)
	assert.Equal(t, model.CollectionRealtime, queries[0].Type)
	assert.Equal(t, 1, queries[0].OffsetHours)
	assert.Equal(t, "ORY", queries[1].Airport)
	assert.Equal(t, "LHR", queries[2].Airport)

	// Past pass skips ORY and honors the LHR override.
	assert.Equal(t, "CDG", queries[3].Airport)
	assert.Equal(t, model.CollectionPast, queries[3].Type)
	assert.Equal(t, -20, queries[3].OffsetHours)
	assert.Equal(t, "LHR", queries[4].Airport)
	assert.Equal(t, -24, queries[4].OffsetHours)
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	p := FromConfig(config.CollectConfig{
		Airports:          []string{"cdg", "ory"},
		RealtimeOffsetHrs: 1,
		PastOffsetHrs:     -20,
	})
	assert.Equal(t, []string{"CDG", "ORY"}, p.Codes())

	queries := p.Queries(time.Date(2025, 7, 20, 18, 5, 0, 0, time.UTC))
	assert.Len(t, queries, 4)
}
