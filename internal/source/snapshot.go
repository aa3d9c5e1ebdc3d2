package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skyward-data/flightwx-cli/internal/fetcher"
	"github.com/skyward-data/flightwx-cli/internal/model"
)

// Archiver receives the raw payload of each collected snapshot. Wired to
// the FTP archive when archiving is enabled.
type Archiver interface {
	Archive(ctx context.Context, name string, r io.Reader) error
}

// FeedState caches the last observed ETag per feed so unchanged HTTP
// snapshots are not re-collected. Feeds are keyed snapshot:<airport>.
type FeedState interface {
	GetETag(ctx context.Context, feed string) (string, error)
	SetETag(ctx context.Context, feed, etag string) error
}

// SnapshotOptions configures the NDJSON snapshot source.
type SnapshotOptions struct {
	// URL is the snapshot location template. Placeholders {airport},
	// {date} (YYYYMMDD) and {hour} (HH) expand from the collect query.
	// Supports http(s)://, ftp://, and local file paths.
	URL string

	// Delay is the politeness pause between sequential fetches.
	Delay time.Duration

	// MaxParallel bounds the per-airport fan-out in CollectAll. Values
	// below 2 keep collection sequential.
	MaxParallel int

	HTTP *fetcher.HTTPFetcher
	FTP  *fetcher.FTPFetcher

	// Archiver, when set, receives each raw snapshot payload named
	// raw_<session>_<airport>.ndjson.
	Archiver  Archiver
	SessionID string

	// Feeds, when set, enables conditional HTTP fetches against the
	// cached ETag.
	Feeds FeedState
}

// SnapshotSource collects flights from pre-parsed NDJSON snapshot feeds.
type SnapshotSource struct {
	opts SnapshotOptions

	mu        sync.Mutex
	lastFetch time.Time
}

// NewSnapshotSource creates a snapshot source.
func NewSnapshotSource(opts SnapshotOptions) *SnapshotSource {
	if opts.HTTP == nil {
		opts.HTTP = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{})
	}
	if opts.FTP == nil {
		opts.FTP = fetcher.NewFTPFetcher(fetcher.FTPOptions{})
	}
	return &SnapshotSource{opts: opts}
}

// SetSession names subsequent archive uploads after the active session.
func (s *SnapshotSource) SetSession(id string) {
	s.mu.Lock()
	s.opts.SessionID = id
	s.mu.Unlock()
}

func (s *SnapshotSource) sessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.SessionID
}

func (s *SnapshotSource) expandURL(q CollectQuery) string {
	ref := q.Reference()
	r := strings.NewReplacer(
		"{airport}", q.Airport,
		"{date}", ref.Format("20060102"),
		"{hour}", ref.Format("15"),
	)
	return r.Replace(s.opts.URL)
}

func (s *SnapshotSource) open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(rawURL, "http://"), strings.HasPrefix(rawURL, "https://"):
		return s.opts.HTTP.Download(ctx, rawURL)
	case strings.HasPrefix(rawURL, "ftp://"):
		return s.opts.FTP.Download(ctx, rawURL)
	default:
		f, err := os.Open(rawURL)
		if err != nil {
			return nil, eris.Wrapf(err, "source: open snapshot %s", rawURL)
		}
		return f, nil
	}
}

// politeDelay spaces sequential fetches by the configured delay.
func (s *SnapshotSource) politeDelay(ctx context.Context) {
	if s.opts.Delay <= 0 {
		return
	}

	s.mu.Lock()
	wait := s.opts.Delay - time.Since(s.lastFetch)
	s.lastFetch = time.Now()
	s.mu.Unlock()

	if wait <= 0 {
		return
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// fetch retrieves the raw snapshot payload. HTTP fetches go through the
// ETag cache when one is configured; an unchanged feed returns changed
// false with no payload.
func (s *SnapshotSource) fetch(ctx context.Context, q CollectQuery, rawURL string) (payload []byte, changed bool, err error) {
	isHTTP := strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://")
	if !isHTTP || s.opts.Feeds == nil {
		rc, err := s.open(ctx, rawURL)
		if err != nil {
			return nil, false, err
		}
		defer rc.Close() //nolint:errcheck
		payload, err = io.ReadAll(rc)
		if err != nil {
			return nil, false, err
		}
		return payload, true, nil
	}

	feed := "snapshot:" + q.Airport
	etag, err := s.opts.Feeds.GetETag(ctx, feed)
	if err != nil {
		zap.L().Warn("source: feed state read failed",
			zap.String("feed", feed),
			zap.Error(err),
		)
		etag = ""
	}

	rc, newETag, changed, err := s.opts.HTTP.DownloadIfChanged(ctx, rawURL, etag)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return nil, false, nil
	}
	defer rc.Close() //nolint:errcheck

	payload, err = io.ReadAll(rc)
	if err != nil {
		return nil, false, err
	}

	if newETag != "" && newETag != etag {
		if err := s.opts.Feeds.SetETag(ctx, feed, newETag); err != nil {
			zap.L().Warn("source: feed state write failed",
				zap.String("feed", feed),
				zap.Error(err),
			)
		}
	}
	return payload, true, nil
}

// Collect fetches and decodes one airport's snapshot. Malformed lines are
// skipped and logged; rows for other airports are dropped.
func (s *SnapshotSource) Collect(ctx context.Context, q CollectQuery) ([]model.Flight, error) {
	s.politeDelay(ctx)

	rawURL := s.expandURL(q)
	payload, changed, err := s.fetch(ctx, q, rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "source: fetch snapshot for %s", q.Airport)
	}
	if !changed {
		zap.L().Info("source: snapshot unchanged",
			zap.String("airport", q.Airport),
			zap.String("type", string(q.Type)),
		)
		return nil, nil
	}

	if s.opts.Archiver != nil {
		name := fmt.Sprintf("raw_%s_%s.ndjson", s.sessionID(), q.Airport)
		if err := s.opts.Archiver.Archive(ctx, name, bytes.NewReader(payload)); err != nil {
			// Archiving is best-effort; collection proceeds.
			zap.L().Warn("source: snapshot archive failed",
				zap.String("airport", q.Airport),
				zap.Error(err),
			)
		}
	}

	var flights []model.Flight
	skipped := 0
	for line := range fetcher.StreamNDJSON[model.Flight](ctx, bytes.NewReader(payload)) {
		if line.Err != nil {
			skipped++
			zap.L().Debug("source: malformed snapshot row",
				zap.String("airport", q.Airport),
				zap.Error(line.Err),
			)
			continue
		}
		f := line.Record
		if f.FromCode != "" && !strings.EqualFold(f.FromCode, q.Airport) {
			skipped++
			continue
		}
		flights = append(flights, f)
	}

	zap.L().Info("source: snapshot collected",
		zap.String("airport", q.Airport),
		zap.String("type", string(q.Type)),
		zap.Int("flights", len(flights)),
		zap.Int("skipped", skipped),
	)
	return flights, nil
}

// CollectAll runs Collect for every query. Sequential by default; with
// MaxParallel > 1 the per-airport fetches run in a bounded errgroup. A
// failed airport fails the whole pass.
func (s *SnapshotSource) CollectAll(ctx context.Context, queries []CollectQuery) ([]model.Flight, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	if s.opts.MaxParallel < 2 {
		var all []model.Flight
		for _, q := range queries {
			flights, err := s.Collect(ctx, q)
			if err != nil {
				return nil, err
			}
			all = append(all, flights...)
		}
		return all, nil
	}

	results := make([][]model.Flight, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxParallel)
	for i, q := range queries {
		g.Go(func() error {
			flights, err := s.Collect(gctx, q)
			if err != nil {
				return err
			}
			results[i] = flights
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.Flight
	for _, flights := range results {
		all = append(all, flights...)
	}
	return all, nil
}
