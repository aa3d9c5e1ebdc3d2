// Package docstore is the MongoDB landing zone for collected records.
// Documents are keyed by their assigned identity as _id, so re-collection
// converges instead of duplicating.
package docstore

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/skyward-data/flightwx-cli/internal/resilience"
)

const (
	collFlights = "flights"
	collMetar   = "weather_metar"
	collTaf     = "weather_taf"
)

// Options configures the document store.
type Options struct {
	URI       string
	Database  string
	BatchSize int
	Timeout   time.Duration
}

// Store wraps the MongoDB database holding the collections.
type Store struct {
	client    *mongo.Client
	db        *mongo.Database
	batchSize int
	timeout   time.Duration

	indexOnce     sync.Once
	ensureIndexes func(context.Context) error
}

// WriteResult aggregates the outcome of a batched write.
type WriteResult struct {
	Inserted int
	Updated  int
	Skipped  int
	Failed   int
}

// Total returns the number of records that made it into the store.
func (r WriteResult) Total() int {
	return r.Inserted + r.Updated
}

// Connect dials the document store and verifies the connection with a
// retried ping.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(opts.Timeout))
	if err != nil {
		return nil, eris.Wrap(err, "docstore: connect")
	}

	retry := resilience.DefaultRetryConfig()
	retry.ShouldRetry = func(error) bool { return true }
	retry.OnRetry = resilience.RetryLogger("docstore", "ping")
	if err := resilience.Do(ctx, retry, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
		return client.Ping(pingCtx, nil)
	}); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, eris.Wrap(err, "docstore: ping")
	}

	zap.L().Info("docstore: connected", zap.String("database", opts.Database))

	s := &Store{
		client:    client,
		db:        client.Database(opts.Database),
		batchSize: opts.BatchSize,
		timeout:   opts.Timeout,
	}
	s.ensureIndexes = s.EnsureIndexes
	return s, nil
}

// maybeEnsureIndexes ensures the secondary indexes once per process, after
// the first write that landed records. Index creation is best-effort; the
// write that triggered it already succeeded.
func (s *Store) maybeEnsureIndexes(ctx context.Context, res WriteResult) {
	if res.Total()+res.Skipped == 0 || s.ensureIndexes == nil {
		return
	}
	s.indexOnce.Do(func() {
		if err := s.ensureIndexes(ctx); err != nil {
			zap.L().Warn("docstore: ensure indexes failed", zap.Error(err))
		}
	})
}

// Close disconnects from the store.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return eris.Wrap(err, "docstore: disconnect")
	}
	return nil
}

// batches splits n items into ranges of at most batchSize.
func batches(n, batchSize int) [][2]int {
	if n <= 0 {
		return nil
	}
	var out [][2]int
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// duplicateKeys counts duplicate-key write errors (code 11000) in a bulk
// write error and returns the count plus the remaining hard failures.
func duplicateKeys(err error) (dups, hard int, ok bool) {
	bwe, isBulk := err.(mongo.BulkWriteException)
	if !isBulk {
		return 0, 0, false
	}
	for _, we := range bwe.WriteErrors {
		if we.Code == 11000 {
			dups++
		} else {
			hard++
		}
	}
	return dups, hard, true
}
