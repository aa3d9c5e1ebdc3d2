// Package store persists collection sessions and feed state. It backs the
// status command and the read-only HTTP API, and remembers per-feed ETags
// so unchanged snapshots are not re-downloaded.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/skyward-data/flightwx-cli/internal/model"
)

// SessionFilter specifies criteria for listing sessions.
type SessionFilter struct {
	Status model.SessionStatus `json:"status,omitempty"`
	Limit  int                 `json:"limit,omitempty"`
	Offset int                 `json:"offset,omitempty"`
}

// Session is a persisted collection session. The business key is the
// session identifier; row ids are internal.
type Session struct {
	model.CollectionSession

	Summary    string     `json:"summary,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// FeedState remembers the last observed validator for an upstream feed.
type FeedState struct {
	Feed      string    `json:"feed"`
	ETag      string    `json:"etag"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Store defines the persistence interface for session bookkeeping.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, session *model.CollectionSession) error
	RecordStage(ctx context.Context, sessionID string, stage model.StageResult) error
	FinishSession(ctx context.Context, sessionID string, status model.SessionStatus, summary string) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error)

	// Feed state
	GetFeedState(ctx context.Context, feed string) (*FeedState, error)
	SetFeedState(ctx context.Context, feed, etag string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open constructs a Store for the configured driver.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch driver {
	case "postgres":
		return NewPostgres(ctx, dsn, poolCfg)
	case "sqlite":
		return NewSQLite(dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
