package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/skyward-data/flightwx-cli/internal/db"
	"github.com/skyward-data/flightwx-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_session": `INSERT INTO sessions (id, session_id, status, started_at) VALUES ($1, $2, $3, $4)`,
	"insert_stage":   `INSERT INTO session_stages (id, session_id, name, status, result, recorded_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"finish_session": `UPDATE sessions SET status = $1, summary = $2, finished_at = $3 WHERE session_id = $4`,
	"get_session":    `SELECT session_id, status, summary, started_at, finished_at FROM sessions WHERE session_id = $1`,
	"get_feed_state": `SELECT feed, etag, fetched_at FROM feed_state WHERE feed = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. The caller owns its lifecycle.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL UNIQUE,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     TEXT,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS session_stages (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES sessions(session_id),
	name        TEXT NOT NULL,
	status      TEXT NOT NULL,
	result      JSONB NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS feed_state (
	id         TEXT PRIMARY KEY,
	feed       TEXT NOT NULL UNIQUE,
	etag       TEXT NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_session_stages_session_id ON session_stages(session_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, session *model.CollectionSession) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, session_id, status, started_at) VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), session.ID, string(model.SessionRunning), session.StartedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: insert session %s", session.ID)
}

func (s *PostgresStore) RecordStage(ctx context.Context, sessionID string, stage model.StageResult) error {
	resultJSON, err := json.Marshal(stage)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stage result")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO session_stages (id, session_id, name, status, result, recorded_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), sessionID, stage.Name, string(stage.Status), resultJSON, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: insert stage %s for session %s", stage.Name, sessionID)
}

func (s *PostgresStore) FinishSession(ctx context.Context, sessionID string, status model.SessionStatus, summary string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET status = $1, summary = $2, finished_at = $3 WHERE session_id = $4`,
		string(status), summary, time.Now().UTC(), sessionID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish session %s", sessionID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("session not found: %s", sessionID)
	}
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var sess Session
	var summary *string

	err := s.pool.QueryRow(ctx,
		`SELECT session_id, status, summary, started_at, finished_at FROM sessions WHERE session_id = $1`,
		sessionID,
	).Scan(&sess.ID, &sess.Status, &summary, &sess.StartedAt, &sess.FinishedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get session %s", sessionID)
	}
	if summary != nil {
		sess.Summary = *summary
	}

	rows, err := s.pool.Query(ctx,
		`SELECT result FROM session_stages WHERE session_id = $1 ORDER BY recorded_at`,
		sessionID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get stages for session %s", sessionID)
	}
	defer rows.Close()

	for rows.Next() {
		var resultJSON []byte
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan stage row")
		}
		var stage model.StageResult
		if err := json.Unmarshal(resultJSON, &stage); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal stage result")
		}
		sess.Stages = append(sess.Stages, stage)
	}
	return &sess, eris.Wrap(rows.Err(), "postgres: iterate stage rows")
}

func (s *PostgresStore) ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error) {
	query := `SELECT session_id, status, summary, started_at, finished_at FROM sessions WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sessions")
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var summary *string
		if err := rows.Scan(&sess.ID, &sess.Status, &summary, &sess.StartedAt, &sess.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan session row")
		}
		if summary != nil {
			sess.Summary = *summary
		}
		sessions = append(sessions, sess)
	}
	return sessions, eris.Wrap(rows.Err(), "postgres: list sessions iterate")
}

func (s *PostgresStore) GetFeedState(ctx context.Context, feed string) (*FeedState, error) {
	var fs FeedState
	err := s.pool.QueryRow(ctx,
		`SELECT feed, etag, fetched_at FROM feed_state WHERE feed = $1`,
		feed,
	).Scan(&fs.Feed, &fs.ETag, &fs.FetchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get feed state %s", feed)
	}
	return &fs, nil
}

func (s *PostgresStore) SetFeedState(ctx context.Context, feed, etag string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO feed_state (id, feed, etag, fetched_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (feed) DO UPDATE SET etag = $3, fetched_at = $4`,
		uuid.New().String(), feed, etag, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: set feed state %s", feed)
}
