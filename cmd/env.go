package main

import (
	"context"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skyward-data/flightwx-cli/internal/airports"
	"github.com/skyward-data/flightwx-cli/internal/config"
	"github.com/skyward-data/flightwx-cli/internal/correlate"
	"github.com/skyward-data/flightwx-cli/internal/docstore"
	"github.com/skyward-data/flightwx-cli/internal/fetcher"
	"github.com/skyward-data/flightwx-cli/internal/pipeline"
	"github.com/skyward-data/flightwx-cli/internal/source"
	"github.com/skyward-data/flightwx-cli/internal/store"
	"github.com/skyward-data/flightwx-cli/internal/warehouse"
	"github.com/skyward-data/flightwx-cli/pkg/awc"
)

// collectEnv holds the stores, sources, and pipeline shared by the collect
// commands. Callers defer env.Close().
type collectEnv struct {
	Sessions  store.Store
	Docs      *docstore.Store
	Pool      *pgxpool.Pool
	Warehouse *warehouse.Warehouse
	Airports  *airports.Resolver
	Pipeline  *pipeline.Pipeline
	Metar     *correlate.MetarEngine
	Taf       *correlate.TafEngine
}

// Close releases resources held by the environment.
func (e *collectEnv) Close(ctx context.Context) {
	if e.Docs != nil {
		if err := e.Docs.Close(ctx); err != nil {
			zap.L().Warn("close docstore", zap.Error(err))
		}
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.Sessions != nil {
		_ = e.Sessions.Close()
	}
}

// initSessions opens and migrates the session store.
func initSessions(ctx context.Context) (store.Store, error) {
	dsn := cfg.Sessions.DatabaseURL
	if cfg.Sessions.Driver == "sqlite" {
		dsn = cfg.Sessions.SQLitePath
	}

	st, err := store.Open(ctx, cfg.Sessions.Driver, dsn, nil)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate session store")
	}
	return st, nil
}

// initWarehouse opens the warehouse pool.
func initWarehouse(ctx context.Context) (*pgxpool.Pool, *warehouse.Warehouse, error) {
	pool, err := warehouse.NewPool(ctx, cfg.Warehouse.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return pool, warehouse.New(pool), nil
}

// ftpArchiver adapts the FTP fetcher to the snapshot Archiver contract.
type ftpArchiver struct {
	ftp *fetcher.FTPFetcher
	url string
}

func (a *ftpArchiver) Archive(ctx context.Context, name string, r io.Reader) error {
	return a.ftp.Upload(ctx, a.url, name, r)
}

// feedState adapts the session store's feed-state table to the snapshot
// source's ETag cache.
type feedState struct {
	sessions store.Store
}

func (f *feedState) GetETag(ctx context.Context, feed string) (string, error) {
	fs, err := f.sessions.GetFeedState(ctx, feed)
	if err != nil || fs == nil {
		return "", err
	}
	return fs.ETag, nil
}

func (f *feedState) SetETag(ctx context.Context, feed, etag string) error {
	return f.sessions.SetFeedState(ctx, feed, etag)
}

// archiveFTP builds the FTP fetcher for the configured archive drop.
func archiveFTP(archive config.ArchiveConfig) *fetcher.FTPFetcher {
	return fetcher.NewFTPFetcher(fetcher.FTPOptions{
		Username: archive.Username,
		Password: archive.Password,
	})
}

// initCollectEnv wires the stores, sources, association engines, and the
// pipeline.
func initCollectEnv(ctx context.Context) (*collectEnv, error) {
	sessions, err := initSessions(ctx)
	if err != nil {
		return nil, err
	}

	docs, err := docstore.Connect(ctx, docstore.Options{
		URI:       cfg.Docstore.URI,
		Database:  cfg.Docstore.Database,
		BatchSize: cfg.Docstore.BatchSize,
		Timeout:   time.Duration(cfg.Docstore.TimeoutSecs) * time.Second,
	})
	if err != nil {
		_ = sessions.Close()
		return nil, err
	}

	pool, wh, err := initWarehouse(ctx)
	if err != nil {
		_ = docs.Close(ctx)
		_ = sessions.Close()
		return nil, err
	}

	resolver, err := airports.Load(ctx, cfg.Airports.File, cfg.Airports.Encoding)
	if err != nil {
		pool.Close()
		_ = docs.Close(ctx)
		_ = sessions.Close()
		return nil, err
	}

	var archiver source.Archiver
	if cfg.Archive.Enabled {
		archiver = &ftpArchiver{ftp: archiveFTP(cfg.Archive), url: cfg.Archive.URL}
		zap.L().Info("snapshot archive enabled", zap.String("url", cfg.Archive.URL))
	}

	flights := source.NewSnapshotSource(source.SnapshotOptions{
		URL:         cfg.Flights.SnapshotURL,
		Delay:       cfg.Fetch.Delay(),
		MaxParallel: cfg.Fetch.MaxParallel,
		HTTP: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  cfg.Fetch.UserAgent,
			Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Fetch.Retries,
		}),
		FTP:      fetcher.NewFTPFetcher(fetcher.FTPOptions{}),
		Archiver: archiver,
		Feeds:    &feedState{sessions: sessions},
	})

	weather := source.NewAWCSource(awc.NewClient(awc.Options{
		BaseURL:    cfg.Weather.BaseURL,
		UserAgent:  cfg.Fetch.UserAgent,
		Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		RatePerSec: cfg.Fetch.RatePerSec,
		Burst:      cfg.Fetch.Burst,
	}))

	metarEngine := correlate.NewMetarEngine(docs, resolver)
	tafEngine := correlate.NewTafEngine(docs, resolver)

	p := pipeline.New(sessions, docs, wh, flights, weather, resolver, metarEngine, tafEngine)

	return &collectEnv{
		Sessions:  sessions,
		Docs:      docs,
		Pool:      pool,
		Warehouse: wh,
		Airports:  resolver,
		Pipeline:  p,
		Metar:     metarEngine,
		Taf:       tafEngine,
	}, nil
}
