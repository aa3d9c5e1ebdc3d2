// Package airports loads the IATA/ICAO airport reference table used to
// translate schedule airport codes into METAR/TAF station identifiers and
// IANA timezones.
package airports

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/skyward-data/flightwx-cli/internal/fetcher"
)

// Airport is one reference row.
type Airport struct {
	IATA     string
	ICAO     string
	Timezone string
}

// Resolver answers IATA code lookups against the loaded reference table.
type Resolver struct {
	byIATA map[string]Airport
}

// fallback covers the majors so collection still works when the reference
// file is missing or unreadable.
var fallback = []Airport{
	{IATA: "CDG", ICAO: "LFPG", Timezone: "Europe/Paris"},
	{IATA: "ORY", ICAO: "LFPO", Timezone: "Europe/Paris"},
	{IATA: "LHR", ICAO: "EGLL", Timezone: "Europe/London"},
	{IATA: "JFK", ICAO: "KJFK", Timezone: "America/New_York"},
	{IATA: "LAX", ICAO: "KLAX", Timezone: "America/Los_Angeles"},
	{IATA: "NRT", ICAO: "RJAA", Timezone: "Asia/Tokyo"},
	{IATA: "DXB", ICAO: "OMDB", Timezone: "Asia/Dubai"},
	{IATA: "SIN", ICAO: "WSSS", Timezone: "Asia/Singapore"},
	{IATA: "FRA", ICAO: "EDDF", Timezone: "Europe/Berlin"},
	{IATA: "AMS", ICAO: "EHAM", Timezone: "Europe/Amsterdam"},
}

// Load reads the reference CSV (semicolon-delimited, columns code_iata,
// icao_code, timezone) in the given encoding. A missing or unreadable file
// degrades to the built-in fallback table with a warning rather than
// failing the run.
func Load(ctx context.Context, path, encoding string) (*Resolver, error) {
	file, err := os.Open(path)
	if err != nil {
		zap.L().Warn("airports: reference file unavailable, using built-in fallback",
			zap.String("path", path),
			zap.Error(err),
		)
		return newFallbackResolver(), nil
	}
	defer file.Close() //nolint:errcheck

	r, err := decodeReader(file, encoding)
	if err != nil {
		return nil, err
	}

	resolver, err := parse(ctx, r)
	if err != nil {
		zap.L().Warn("airports: reference file unparsable, using built-in fallback",
			zap.String("path", path),
			zap.Error(err),
		)
		return newFallbackResolver(), nil
	}

	zap.L().Info("airports: reference table loaded",
		zap.String("path", path),
		zap.Int("airports", len(resolver.byIATA)),
	)
	return resolver, nil
}

func newFallbackResolver() *Resolver {
	r := &Resolver{byIATA: make(map[string]Airport, len(fallback))}
	for _, a := range fallback {
		r.byIATA[a.IATA] = a
	}
	return r
}

func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	if encoding == "" || strings.EqualFold(encoding, "utf-8") {
		return r, nil
	}
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, eris.Wrapf(err, "airports: unknown encoding %q", encoding)
	}
	return enc.NewDecoder().Reader(r), nil
}

func parse(ctx context.Context, r io.Reader) (*Resolver, error) {
	rows, errs := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		Delimiter: ';',
		TrimSpace: true,
	})

	resolver := &Resolver{byIATA: make(map[string]Airport)}
	var iataCol, icaoCol, tzCol = -1, -1, -1

	for row := range rows {
		if iataCol < 0 {
			for i, name := range row {
				switch strings.ToLower(name) {
				case "code_iata":
					iataCol = i
				case "icao_code":
					icaoCol = i
				case "timezone":
					tzCol = i
				}
			}
			if iataCol < 0 || icaoCol < 0 {
				return nil, eris.New("airports: header missing code_iata or icao_code column")
			}
			continue
		}

		if len(row) <= iataCol || len(row) <= icaoCol {
			continue
		}
		a := Airport{
			IATA: strings.ToUpper(row[iataCol]),
			ICAO: strings.ToUpper(row[icaoCol]),
		}
		if tzCol >= 0 && len(row) > tzCol {
			a.Timezone = row[tzCol]
		}
		if a.IATA == "" || a.ICAO == "" {
			continue
		}
		resolver.byIATA[a.IATA] = a
	}
	if err := <-errs; err != nil {
		return nil, err
	}
	if len(resolver.byIATA) == 0 {
		return nil, eris.New("airports: reference file has no usable rows")
	}

	return resolver, nil
}

// ICAO returns the METAR/TAF station identifier for an IATA code.
func (r *Resolver) ICAO(iata string) (string, bool) {
	a, ok := r.byIATA[strings.ToUpper(iata)]
	if !ok {
		return "", false
	}
	return a.ICAO, true
}

// Location returns the airport's IANA timezone, falling back to UTC when
// the airport is unknown or carries no timezone.
func (r *Resolver) Location(iata string) *time.Location {
	a, ok := r.byIATA[strings.ToUpper(iata)]
	if !ok || a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		zap.L().Warn("airports: bad timezone in reference table",
			zap.String("iata", a.IATA),
			zap.String("timezone", a.Timezone),
		)
		return time.UTC
	}
	return loc
}

// Stations maps a list of IATA codes to their ICAO stations, dropping and
// reporting any code the table does not know.
func (r *Resolver) Stations(iatas []string) (stations []string, unknown []string) {
	for _, code := range iatas {
		if icao, ok := r.ICAO(code); ok {
			stations = append(stations, icao)
		} else {
			unknown = append(unknown, code)
		}
	}
	return stations, unknown
}

// Len returns the number of loaded airports.
func (r *Resolver) Len() int {
	return len(r.byIATA)
}
