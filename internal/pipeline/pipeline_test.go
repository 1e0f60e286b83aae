package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/school-tracker/internal/config"
	"github.com/sells-group/school-tracker/internal/model"
	"github.com/sells-group/school-tracker/internal/palette"
	"github.com/sells-group/school-tracker/internal/spatial"
	"github.com/sells-group/school-tracker/pkg/geocode"
)

// fixedSearcher answers every query with the same coordinate.
type fixedSearcher struct {
	coord model.Coord
	calls []geocode.Query
}

func (f *fixedSearcher) Search(_ context.Context, q geocode.Query) (*geocode.Result, error) {
	f.calls = append(f.calls, q)
	return &geocode.Result{Address: "addr: " + q.Text, Coord: f.coord, Matched: true}, nil
}

const oneStation = `{"lines": [{"name": "Сокольническая", "stations": [
  {"name": "Охотный Ряд", "lat": 55.757, "lng": 37.615}
]}]}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func testConfig(t *testing.T, dir, stationsJSON string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Region.City = "Москва"
	cfg.Geocode.CacheFile = filepath.Join(dir, "coords.txt")
	cfg.Geocode.RatePerSec = 5
	cfg.Enrich.RadiusKM = 1
	cfg.Stations.Path = writeFile(t, dir, "stations.json", stationsJSON)
	return cfg
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir, oneStation)
	input := writeFile(t, dir, "rating.txt",
		"1\tШкола №179\tМосква\tМосква\t9,5\n"+
			"2\tЛицей №1535\tМосква\tМосква\t7,25\n")

	searcher := &fixedSearcher{coord: model.Coord{Lat: 55.76, Lng: 37.61}}
	resolver := geocode.NewResolver(searcher, cfg.Geocode.CacheFile)
	defer resolver.Close() //nolint:errcheck

	res, err := New(cfg, resolver).Run(context.Background(), Input{Path: input})
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Len(t, searcher.calls, 2)
	for _, r := range res.Records {
		require.NotNil(t, r.School.Station)
		assert.Equal(t, "Охотный Ряд", r.School.Station.Name)
		assert.Equal(t, "Сокольническая", r.School.Station.Group)
		assert.Greater(t, r.School.StationDistanceM, 0.0)
	}
	assert.Equal(t, palette.High.Hex(), res.Records[0].Color)
	assert.Equal(t, palette.Low.Hex(), res.Records[1].Color)
	assert.Equal(t, 2, res.Parsed)
	assert.Zero(t, res.Unresolved)
	assert.NotEmpty(t, res.RunID)
}

func TestRun_SkipsBadLinesAndOtherCities(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir, oneStation)
	input := writeFile(t, dir, "rating.txt",
		"1\tШкола №179\tМосква\tМосква\t9,5\n"+
			"garbage line\n"+
			"2\tГимназия №1\tСанкт-Петербург\tСанкт-Петербург\t8,0\n")

	searcher := &fixedSearcher{coord: model.Coord{Lat: 55.76, Lng: 37.61}}
	resolver := geocode.NewResolver(searcher, cfg.Geocode.CacheFile)
	defer resolver.Close() //nolint:errcheck

	res, err := New(cfg, resolver).Run(context.Background(), Input{Path: input})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Parsed)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Filtered)
	require.Len(t, res.Records, 1)
	// Single school: zero-width range maps to the high end.
	assert.Equal(t, palette.High.Hex(), res.Records[0].Color)
}

func TestRun_CacheOnlyDropsUnresolved(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir, oneStation)
	input := writeFile(t, dir, "rating.txt", "1. Школа №179 (+2)\n")

	resolver := geocode.NewResolver(nil, cfg.Geocode.CacheFile, geocode.WithCacheOnly(true))
	defer resolver.Close() //nolint:errcheck

	res, err := New(cfg, resolver).Run(context.Background(), Input{Path: input})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unresolved)
	assert.Empty(t, res.Records)
}

// blankResolver matches every query but returns no address.
type blankResolver struct{}

func (blankResolver) Resolve(_ context.Context, _ geocode.Query) (*geocode.Result, error) {
	return &geocode.Result{Coord: model.Coord{Lat: 55.76, Lng: 37.61}, Matched: true}, nil
}

func TestRun_MatchWithoutAddressIsUnresolved(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir, oneStation)
	input := writeFile(t, dir, "rating.txt", "Школа №179\t94\n")

	res, err := New(cfg, blankResolver{}).Run(context.Background(), Input{Path: input})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unresolved)
	assert.Empty(t, res.Schools)
	assert.Empty(t, res.Records)
}

func TestRun_EmptyStationsIsFatal(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir, `{"lines": []}`)
	input := writeFile(t, dir, "rating.txt", "1. Школа №179 (+2)\n")

	searcher := &fixedSearcher{coord: model.Coord{Lat: 55.76, Lng: 37.61}}
	resolver := geocode.NewResolver(searcher, cfg.Geocode.CacheFile)
	defer resolver.Close() //nolint:errcheck

	_, err := New(cfg, resolver).Run(context.Background(), Input{Path: input})
	require.Error(t, err)
	assert.True(t, eris.Is(err, spatial.ErrEmptyIndex))
}

func TestRun_MissingInput(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir, oneStation)

	resolver := geocode.NewResolver(nil, cfg.Geocode.CacheFile, geocode.WithCacheOnly(true))
	_, err := New(cfg, resolver).Run(context.Background(), Input{Path: filepath.Join(dir, "missing.txt")})
	assert.Error(t, err)
}

func TestRun_EnrichesHouses(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir, oneStation)
	input := writeFile(t, dir, "rating.txt", "Школа №179\t94\n")

	wb := xlsx.NewFile()
	sh, err := wb.AddSheet("179-дома")
	require.NoError(t, err)
	sh.AddRow().AddCell().SetString("Тверской / ул. Тверская, 7")
	sh.AddRow().AddCell().SetString("no slash here")
	cfg.Enrich.Workbook = filepath.Join(dir, "houses.xlsx")
	require.NoError(t, wb.Save(cfg.Enrich.Workbook))

	searcher := &fixedSearcher{coord: model.Coord{Lat: 55.76, Lng: 37.61}}
	resolver := geocode.NewResolver(searcher, cfg.Geocode.CacheFile)
	defer resolver.Close() //nolint:errcheck

	res, err := New(cfg, resolver).Run(context.Background(), Input{Path: input})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Houses)
	require.Len(t, res.Schools, 1)
	require.Len(t, res.Schools[0].Places, 1)
	assert.Equal(t, "addr: Москва, ул. Тверская, 7", res.Schools[0].Places[0].Address)

	require.Len(t, searcher.calls, 2)
	assert.Equal(t, geocode.KindOrganization, searcher.calls[0].Kind)
	assert.Equal(t, geocode.KindPlace, searcher.calls[1].Kind)
}

func TestRun_ResolverCacheReused(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir, oneStation)
	input := writeFile(t, dir, "rating.txt", "Школа №179\t94\n")

	searcher := &fixedSearcher{coord: model.Coord{Lat: 55.76, Lng: 37.61}}
	resolver := geocode.NewResolver(searcher, cfg.Geocode.CacheFile)
	_, err := New(cfg, resolver).Run(context.Background(), Input{Path: input})
	require.NoError(t, err)
	require.NoError(t, resolver.Close())

	// Second run is served from the flushed cache without a searcher.
	offline := geocode.NewResolver(nil, cfg.Geocode.CacheFile, geocode.WithCacheOnly(true))
	res, err := New(cfg, offline).Run(context.Background(), Input{Path: input})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "addr: Школа №179 Москва", res.Records[0].School.Address)
}
