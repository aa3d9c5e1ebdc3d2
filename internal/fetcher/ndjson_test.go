package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ndjsonRow struct {
	Flight string `json:"flight"`
	From   string `json:"from"`
}

func TestStreamNDJSONDecodesLines(t *testing.T) {
	t.Parallel()

	input := `{"flight":"AF123","from":"CDG"}
{"flight":"AF456","from":"ORY"}
`
	var rows []ndjsonRow
	for line := range StreamNDJSON[ndjsonRow](context.Background(), strings.NewReader(input)) {
		require.NoError(t, line.Err)
		rows = append(rows, line.Record)
	}

	require.Len(t, rows, 2)
	assert.Equal(t, "AF123", rows[0].Flight)
	assert.Equal(t, "ORY", rows[1].From)
}

func TestStreamNDJSONSkipsBlankAndReportsMalformed(t *testing.T) {
	t.Parallel()

	input := "{\"flight\":\"AF1\"}\n\n   \nnot json\n{\"flight\":\"AF2\"}\n"

	var good, bad int
	for line := range StreamNDJSON[ndjsonRow](context.Background(), strings.NewReader(input)) {
		if line.Err != nil {
			bad++
			continue
		}
		good++
	}

	assert.Equal(t, 2, good)
	assert.Equal(t, 1, bad)
}

func TestStreamNDJSONEmptyInput(t *testing.T) {
	t.Parallel()

	count := 0
	for range StreamNDJSON[ndjsonRow](context.Background(), strings.NewReader("")) {
		count++
	}
	assert.Zero(t, count)
}
