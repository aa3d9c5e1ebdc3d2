package airports

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRef(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "airports_ref.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesSemicolonCSV(t *testing.T) {
	t.Parallel()

	path := writeRef(t, "code_iata;icao_code;timezone;name\n"+
		"CDG;LFPG;Europe/Paris;Paris Charles de Gaulle\n"+
		"bod;lfbd;Europe/Paris;Bordeaux\n"+
		";XXXX;UTC;no iata\n")

	r, err := Load(context.Background(), path, "utf-8")
	require.NoError(t, err)

	assert.Equal(t, 2, r.Len())

	icao, ok := r.ICAO("cdg")
	assert.True(t, ok)
	assert.Equal(t, "LFPG", icao)

	icao, ok = r.ICAO("BOD")
	assert.True(t, ok)
	assert.Equal(t, "LFBD", icao)

	_, ok = r.ICAO("ZZZ")
	assert.False(t, ok)
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	t.Parallel()

	r, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), "utf-8")
	require.NoError(t, err)

	icao, ok := r.ICAO("CDG")
	assert.True(t, ok)
	assert.Equal(t, "LFPG", icao)

	icao, ok = r.ICAO("JFK")
	assert.True(t, ok)
	assert.Equal(t, "KJFK", icao)
}

func TestLoadBadHeaderFallsBack(t *testing.T) {
	t.Parallel()

	path := writeRef(t, "foo;bar\nCDG;LFPG\n")

	r, err := Load(context.Background(), path, "utf-8")
	require.NoError(t, err)

	// Fallback table still resolves majors.
	_, ok := r.ICAO("LHR")
	assert.True(t, ok)
}

func TestLoadUnknownEncoding(t *testing.T) {
	t.Parallel()

	path := writeRef(t, "code_iata;icao_code;timezone\nCDG;LFPG;Europe/Paris\n")

	_, err := Load(context.Background(), path, "not-a-charset")
	assert.Error(t, err)
}

func TestLocation(t *testing.T) {
	t.Parallel()

	path := writeRef(t, "code_iata;icao_code;timezone\n"+
		"CDG;LFPG;Europe/Paris\n"+
		"XYZ;XXYZ;Mars/Olympus\n"+
		"NTZ;XNTZ;\n")

	r, err := Load(context.Background(), path, "utf-8")
	require.NoError(t, err)

	paris := r.Location("CDG")
	require.NotNil(t, paris)
	assert.Equal(t, "Europe/Paris", paris.String())

	assert.Equal(t, time.UTC, r.Location("XYZ"))
	assert.Equal(t, time.UTC, r.Location("NTZ"))
	assert.Equal(t, time.UTC, r.Location("ZZZ"))
}

func TestStations(t *testing.T) {
	t.Parallel()

	r, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), "utf-8")
	require.NoError(t, err)

	stations, unknown := r.Stations([]string{"CDG", "ORY", "ZZZ"})
	assert.Equal(t, []string{"LFPG", "LFPO"}, stations)
	assert.Equal(t, []string{"ZZZ"}, unknown)
}
