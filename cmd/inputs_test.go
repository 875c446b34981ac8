package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aoiGeometry = `{"type":"Polygon","coordinates":[[[10,40],[11,40],[11,41],[10,41],[10,40]]]}`

func TestParseAOI_BareGeometry(t *testing.T) {
	poly, err := parseAOI([]byte(aoiGeometry))
	require.NoError(t, err)
	minX, minY := poly.Bounds().Min(0), poly.Bounds().Min(1)
	assert.Equal(t, 10.0, minX)
	assert.Equal(t, 40.0, minY)
}

func TestParseAOI_Feature(t *testing.T) {
	doc := `{"type":"Feature","properties":{},"geometry":` + aoiGeometry + `}`
	poly, err := parseAOI([]byte(doc))
	require.NoError(t, err)
	assert.NotEmpty(t, poly.FlatCoords())
}

func TestParseAOI_FeatureCollection(t *testing.T) {
	doc := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":` + aoiGeometry + `}]}`
	poly, err := parseAOI([]byte(doc))
	require.NoError(t, err)
	assert.NotEmpty(t, poly.FlatCoords())
}

func TestParseAOI_RejectsNonPolygon(t *testing.T) {
	_, err := parseAOI([]byte(`{"type":"Point","coordinates":[10,40]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want polygon")
}

func TestParseAOI_Garbage(t *testing.T) {
	_, err := parseAOI([]byte(`not json`))
	assert.Error(t, err)
}

func TestLoadAOI_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aoi.geojson")
	require.NoError(t, os.WriteFile(path, []byte(aoiGeometry), 0644))

	poly, err := loadAOI(path)
	require.NoError(t, err)
	assert.NotEmpty(t, poly.FlatCoords())

	_, err = loadAOI(filepath.Join(t.TempDir(), "missing.geojson"))
	assert.Error(t, err)
}

func TestLoadParams_Defaults(t *testing.T) {
	params, err := loadParams("")
	require.NoError(t, err)
	assert.InDelta(t, 30_000, params.Coastal.CoastMaxM, 1e-9)
	assert.InDelta(t, 95, params.Extract.TargetPercentile, 1e-9)
}

func TestLoadParams_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	yaml := `
coastal:
  coast_max_m: 15000
extract:
  threshold_method: fixed
  fixed_threshold: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	params, err := loadParams(path)
	require.NoError(t, err)
	assert.InDelta(t, 15_000, params.Coastal.CoastMaxM, 1e-9)
	assert.Equal(t, "fixed", params.Extract.ThresholdMethod)
	assert.InDelta(t, 0.5, params.Extract.FixedThreshold, 1e-9)
	// Untouched groups keep their defaults.
	assert.InDelta(t, 0.45, params.Hardrock.Weights.Lineaments, 1e-9)
}

func TestParseTimeRange(t *testing.T) {
	tr, err := parseTimeRange("2024-01-01", "2024-06-30")
	require.NoError(t, err)
	assert.Equal(t, 2024, tr.Start.Year())
	assert.Equal(t, 6, int(tr.End.Month()))

	_, err = parseTimeRange("2024-06-30", "2024-01-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end must be after start")

	_, err = parseTimeRange("june", "")
	assert.Error(t, err)

	tr, err = parseTimeRange("", "")
	require.NoError(t, err)
	assert.True(t, tr.End.After(tr.Start))
}

func TestLoadGeology_UnsupportedExtension(t *testing.T) {
	_, err := loadGeology("lithology.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported geology format")
}
