package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/skyward-data/flightwx-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL UNIQUE,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     TEXT,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS session_stages (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES sessions(session_id),
	name        TEXT NOT NULL,
	status      TEXT NOT NULL,
	result      TEXT NOT NULL,
	recorded_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS feed_state (
	id         TEXT PRIMARY KEY,
	feed       TEXT NOT NULL UNIQUE,
	etag       TEXT NOT NULL,
	fetched_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);
CREATE INDEX IF NOT EXISTS idx_session_stages_session_id ON session_stages(session_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSession(ctx context.Context, session *model.CollectionSession) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, session_id, status, started_at) VALUES (?, ?, ?, ?)`,
		uuid.New().String(), session.ID, string(model.SessionRunning), session.StartedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert session %s", session.ID)
}

func (s *SQLiteStore) RecordStage(ctx context.Context, sessionID string, stage model.StageResult) error {
	resultJSON, err := json.Marshal(stage)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stage result")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_stages (id, session_id, name, status, result, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), sessionID, stage.Name, string(stage.Status), string(resultJSON), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert stage %s for session %s", stage.Name, sessionID)
}

func (s *SQLiteStore) FinishSession(ctx context.Context, sessionID string, status model.SessionStatus, summary string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, summary = ?, finished_at = ? WHERE session_id = ?`,
		string(status), summary, time.Now().UTC(), sessionID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish session %s", sessionID)
	}
	return checkRowsAffected(res, "session", sessionID)
}

func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var sess Session
	var summary sql.NullString
	var finishedAt sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, status, summary, started_at, finished_at FROM sessions WHERE session_id = ?`,
		sessionID,
	).Scan(&sess.ID, &sess.Status, &summary, &sess.StartedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("session not found: %s", sessionID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get session %s", sessionID)
	}
	if summary.Valid {
		sess.Summary = summary.String
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		sess.FinishedAt = &t
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT result FROM session_stages WHERE session_id = ? ORDER BY recorded_at`,
		sessionID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get stages for session %s", sessionID)
	}
	defer rows.Close()

	for rows.Next() {
		var resultJSON string
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan stage row")
		}
		var stage model.StageResult
		if err := json.Unmarshal([]byte(resultJSON), &stage); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal stage result")
		}
		sess.Stages = append(sess.Stages, stage)
	}
	return &sess, eris.Wrap(rows.Err(), "sqlite: iterate stage rows")
}

func (s *SQLiteStore) ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error) {
	query := `SELECT session_id, status, summary, started_at, finished_at FROM sessions WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sessions")
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var summary sql.NullString
		var finishedAt sql.NullTime
		if err := rows.Scan(&sess.ID, &sess.Status, &summary, &sess.StartedAt, &finishedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan session row")
		}
		if summary.Valid {
			sess.Summary = summary.String
		}
		if finishedAt.Valid {
			t := finishedAt.Time
			sess.FinishedAt = &t
		}
		sessions = append(sessions, sess)
	}
	return sessions, eris.Wrap(rows.Err(), "sqlite: list sessions iterate")
}

func (s *SQLiteStore) GetFeedState(ctx context.Context, feed string) (*FeedState, error) {
	var fs FeedState
	err := s.db.QueryRowContext(ctx,
		`SELECT feed, etag, fetched_at FROM feed_state WHERE feed = ?`,
		feed,
	).Scan(&fs.Feed, &fs.ETag, &fs.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get feed state %s", feed)
	}
	return &fs, nil
}

func (s *SQLiteStore) SetFeedState(ctx context.Context, feed, etag string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feed_state (id, feed, etag, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (feed) DO UPDATE SET etag = excluded.etag, fetched_at = excluded.fetched_at`,
		uuid.New().String(), feed, etag, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: set feed state %s", feed)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
