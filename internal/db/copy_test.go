package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "collection_log", []string{"a", "b"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"collection_log"}, []string{"session_id", "stage"}).WillReturnResult(3)

	rows := [][]any{
		{"20250720_170000_000", "collect_flights"},
		{"20250720_170000_000", "collect_weather"},
		{"20250720_170000_000", "propagate"},
	}
	n, err := CopyFrom(context.Background(), mock, "collection_log", []string{"session_id", "stage"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"collection_log"}, []string{"session_id"}).WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{"20250720_170000_000"}}
	_, err = CopyFrom(context.Background(), mock, "collection_log", []string{"session_id"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO collection_log")
	assert.NoError(t, mock.ExpectationsWereMet())
}
