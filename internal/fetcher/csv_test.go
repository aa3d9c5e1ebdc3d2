package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectCSV(t *testing.T, input string, opts CSVOptions) [][]string {
	t.Helper()
	rows, errs := StreamCSV(context.Background(), strings.NewReader(input), opts)
	var out [][]string
	for row := range rows {
		out = append(out, row)
	}
	require.NoError(t, <-errs)
	return out
}

func TestStreamCSVSemicolon(t *testing.T) {
	t.Parallel()

	rows := collectCSV(t, "a;b;c\n1;2;3\n", CSVOptions{Delimiter: ';'})
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"a", "b", "c"}, rows[0])
	assert.Equal(t, []string{"1", "2", "3"}, rows[1])
}

func TestStreamCSVTrimSpace(t *testing.T) {
	t.Parallel()

	rows := collectCSV(t, " a , b \n", CSVOptions{TrimSpace: true})
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"a", "b"}, rows[0])
}

func TestStreamCSVVariableFields(t *testing.T) {
	t.Parallel()

	rows := collectCSV(t, "a,b,c\nd,e\n", CSVOptions{})
	require.Len(t, rows, 2)
	assert.Len(t, rows[1], 2)
}

func TestStreamCSVCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows, errs := StreamCSV(ctx, strings.NewReader("a,b\nc,d\n"), CSVOptions{})
	for range rows {
	}
	assert.Error(t, <-errs)
}
