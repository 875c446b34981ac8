package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/atlas-cli/internal/cache"
	"github.com/sells-group/atlas-cli/internal/model"
	"github.com/sells-group/atlas-cli/internal/raster"
	"github.com/sells-group/atlas-cli/internal/spectral"
)

func testAOI(t *testing.T) *geom.Polygon {
	t.Helper()
	p, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{{
		{0, 0}, {0.2, 0}, {0.2, 0.2}, {0, 0.2}, {0, 0},
	}})
	require.NoError(t, err)
	return p
}

func TestSyntheticImagery_Deterministic(t *testing.T) {
	src := SyntheticImagery{Width: 32, Height: 32, Seed: DefaultSyntheticSeed}
	aoi := testAOI(t)
	tr := model.DefaultTimeRange(time.Now())

	a, err := src.FetchComposite(context.Background(), aoi, tr)
	require.NoError(t, err)
	b, err := src.FetchComposite(context.Background(), aoi, tr)
	require.NoError(t, err)

	assert.True(t, a.Grid.Equal(b.Grid))
	for _, name := range spectral.RequiredBands {
		assert.Equal(t, a.Bands[name].Data, b.Bands[name].Data, name)
	}
}

func TestSyntheticImagery_GridAndRange(t *testing.T) {
	src := SyntheticImagery{Width: 16, Height: 24, Seed: 7}
	c, err := src.FetchComposite(context.Background(), testAOI(t), model.TimeRange{})
	require.NoError(t, err)

	assert.Equal(t, 16, c.Grid.Width)
	assert.Equal(t, 24, c.Grid.Height)
	minX, minY, maxX, maxY := c.Grid.Bounds()
	assert.InDelta(t, 0, minX, 1e-12)
	assert.InDelta(t, 0, minY, 1e-12)
	assert.InDelta(t, 0.2, maxX, 1e-12)
	assert.InDelta(t, 0.2, maxY, 1e-12)

	for _, name := range spectral.RequiredBands {
		for _, v := range c.Bands[name].Data {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestSyntheticTerrain_EastwardRamp(t *testing.T) {
	ref := raster.GridFromBounds(0, 0, 1, 1, 8, 8, raster.CRSWGS84)
	dem, err := SyntheticTerrain{}.FetchDEM(context.Background(), ref)
	require.NoError(t, err)

	for row := 0; row < 8; row++ {
		for col := 1; col < 8; col++ {
			assert.Greater(t, dem.At(row, col), dem.At(row, col-1))
		}
	}
	// Northward ramp: row 0 is the northern edge.
	assert.Greater(t, dem.At(0, 0), dem.At(7, 0))
}

func TestMatchesLithology(t *testing.T) {
	assert.True(t, MatchesLithology(map[string]any{"LITH": "Carbonatite intrusion"}))
	assert.True(t, MatchesLithology(map[string]any{"desc": "NEPHELINE syenite"}))
	assert.True(t, MatchesLithology(map[string]any{"unit": "monazite-bearing sands"}))
	assert.False(t, MatchesLithology(map[string]any{"LITH": "basalt flow"}))
	assert.False(t, MatchesLithology(nil))
}

func TestRasterizeGeology_MatchBurnsMask(t *testing.T) {
	ref := raster.GridFromBounds(0, 0, 1, 1, 10, 10, raster.CRSWGS84)
	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{{
		{0, 0}, {0.5, 0}, {0.5, 0.5}, {0, 0.5}, {0, 0},
	}})
	require.NoError(t, err)
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{
		{Geometry: poly, Properties: map[string]any{"LITH": "alkaline complex"}},
	}}

	mask, err := RasterizeGeology(fc, ref)
	require.NoError(t, err)
	require.NotNil(t, mask)

	// The polygon covers the lower-left quadrant.
	assert.Equal(t, 1.0, mask.At(9, 0))
	assert.Equal(t, 0.0, mask.At(0, 9))
}

func TestRasterizeGeology_NoMatchIsNil(t *testing.T) {
	ref := raster.GridFromBounds(0, 0, 1, 1, 4, 4, raster.CRSWGS84)
	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{{
		{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0},
	}})
	require.NoError(t, err)
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{
		{Geometry: poly, Properties: map[string]any{"LITH": "shale"}},
	}}

	mask, err := RasterizeGeology(fc, ref)
	require.NoError(t, err)
	assert.Nil(t, mask)
}

func TestOverpass_FetchAndClassify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Contains(t, r.Form.Get("data"), `way["highway"]`)
		_, _ = w.Write([]byte(`{"elements":[
			{"type":"way","tags":{"highway":"primary"},"geometry":[{"lat":0.1,"lon":0.1},{"lat":0.2,"lon":0.2}]},
			{"type":"way","tags":{"waterway":"river"},"geometry":[{"lat":0.3,"lon":0.3},{"lat":0.4,"lon":0.4}]},
			{"type":"way","tags":{"natural":"coastline"},"geometry":[{"lat":0.5,"lon":0.5},{"lat":0.6,"lon":0.6}]},
			{"type":"way","tags":{"waterway":"canal"},"geometry":[{"lat":0.7,"lon":0.7},{"lat":0.8,"lon":0.8}]},
			{"type":"node","tags":{"highway":"bus_stop"}}
		]}`))
	}))
	defer srv.Close()

	o := NewOverpass(OverpassOptions{Endpoint: srv.URL, Rate: 100})
	lines, err := o.FetchLines(context.Background(), 0, 0, 1, 1)
	require.NoError(t, err)

	assert.Len(t, lines.Roads.Geoms, 1)
	assert.Len(t, lines.Rivers.Geoms, 1)
	assert.Len(t, lines.Coast.Geoms, 1)
	assert.Equal(t, raster.CRSWGS84, lines.Roads.CRS)

	road := lines.Roads.Geoms[0].(*geom.LineString)
	assert.Equal(t, []float64{0.1, 0.1, 0.2, 0.2}, road.FlatCoords())
}

type countingInfra struct {
	calls int
	lines InfrastructureLines
}

func (c *countingInfra) FetchLines(context.Context, float64, float64, float64, float64) (InfrastructureLines, error) {
	c.calls++
	return c.lines, nil
}

func TestCachedInfrastructure_RoundTrip(t *testing.T) {
	cc, err := cache.New(t.TempDir())
	require.NoError(t, err)

	inner := &countingInfra{lines: InfrastructureLines{
		Roads: model.FeatureSet{CRS: raster.CRSWGS84, Geoms: []geom.T{
			geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 1}),
		}},
		Rivers: model.FeatureSet{CRS: raster.CRSWGS84},
		Coast:  model.FeatureSet{CRS: raster.CRSWGS84},
	}}
	src := CachedInfrastructure{Inner: inner, Cache: cc}

	a, err := src.FetchLines(context.Background(), 0, 0, 1, 1)
	require.NoError(t, err)
	b, err := src.FetchLines(context.Background(), 0, 0, 1, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	require.Len(t, a.Roads.Geoms, 1)
	assert.Equal(t, []float64{0, 0, 1, 1}, b.Roads.Geoms[0].FlatCoords())
	assert.True(t, b.Rivers.Empty())

	// Different bounds miss the cache.
	_, err = src.FetchLines(context.Background(), 0, 0, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestOverpass_ErrorDegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	o := NewOverpass(OverpassOptions{Endpoint: srv.URL, Rate: 100})
	lines, err := o.FetchLines(context.Background(), 0, 0, 1, 1)
	require.NoError(t, err)
	assert.True(t, lines.Roads.Empty())
	assert.True(t, lines.Rivers.Empty())
	assert.True(t, lines.Coast.Empty())
}
