package fetcher

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// maxNDJSONLine bounds a single snapshot line. Flight rows are small; this
// leaves generous headroom for embedded raw payloads.
const maxNDJSONLine = 4 * 1024 * 1024

// NDJSONLine carries one decoded record or its per-line decode error.
// Decode errors do not stop the stream; callers count them as skips.
type NDJSONLine[T any] struct {
	Record T
	Err    error
}

// StreamNDJSON reads newline-delimited JSON and sends one NDJSONLine per
// non-blank input line. A read error ends the stream with a final errored
// line. The channel closes when input is exhausted.
func StreamNDJSON[T any](ctx context.Context, r io.Reader) <-chan NDJSONLine[T] {
	out := make(chan NDJSONLine[T], 64)

	go func() {
		defer close(out)

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxNDJSONLine)

		lineNo := 0
		for scanner.Scan() {
			lineNo++
			if ctx.Err() != nil {
				return
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			var rec T
			if err := json.Unmarshal([]byte(line), &rec); err != nil {
				out <- NDJSONLine[T]{Err: eris.Wrapf(err, "ndjson: line %d", lineNo)}
				continue
			}

			select {
			case out <- NDJSONLine[T]{Record: rec}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			out <- NDJSONLine[T]{Err: eris.Wrap(err, "ndjson: read")}
		}
	}()

	return out
}
