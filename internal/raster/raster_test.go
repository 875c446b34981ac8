package raster

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGrid(w, h int) Grid {
	return GridFromBounds(77.0, 27.0, 77.0+0.01*float64(w), 27.0+0.01*float64(h), w, h, CRSWGS84)
}

func TestGrid_RoundTrip(t *testing.T) {
	g := testGrid(10, 8)
	x, y := g.PixelToWorld(3.5, 2.5)
	col, row := g.WorldToPixel(x, y)
	assert.InDelta(t, 3.5, col, 1e-9)
	assert.InDelta(t, 2.5, row, 1e-9)
}

func TestGrid_Bounds(t *testing.T) {
	g := testGrid(10, 10)
	minX, minY, maxX, maxY := g.Bounds()
	assert.InDelta(t, 77.0, minX, 1e-9)
	assert.InDelta(t, 27.0, minY, 1e-9)
	assert.InDelta(t, 77.1, maxX, 1e-9)
	assert.InDelta(t, 27.1, maxY, 1e-9)
}

func TestNaNPercentile_Linear(t *testing.T) {
	data := []float64{0, 1, 2, 3}
	assert.Equal(t, 0.0, NaNPercentile(data, 0))
	assert.Equal(t, 3.0, NaNPercentile(data, 100))
	assert.InDelta(t, 1.5, NaNPercentile(data, 50), 1e-12)
	assert.InDelta(t, 2.25, NaNPercentile(data, 75), 1e-12)
}

func TestNaNPercentile_IgnoresNaN(t *testing.T) {
	data := []float64{math.NaN(), 2, math.NaN(), 4}
	assert.InDelta(t, 3.0, NaNPercentile(data, 50), 1e-12)
}

func TestNaNPercentile_AllNaN(t *testing.T) {
	assert.True(t, math.IsNaN(NaNPercentile([]float64{math.NaN()}, 50)))
}

func TestNaNMinMax(t *testing.T) {
	data := []float64{math.NaN(), 3, -1, math.NaN(), 2}
	assert.Equal(t, -1.0, NaNMin(data))
	assert.Equal(t, 3.0, NaNMax(data))
	assert.True(t, math.IsNaN(NaNMin([]float64{math.NaN()})))
	assert.True(t, math.IsNaN(NaNMax(nil)))
}

func TestNormalizePercentile_Bounds(t *testing.T) {
	// Linearly spaced input rescaled at the 0th/100th percentile hits 0 and 1 exactly.
	g := testGrid(2, 2)
	r := Raster{Grid: g, Data: []float64{0, 1, 2, 3}}
	scaled := NormalizePercentile(r, 0, 100)
	assert.Equal(t, 0.0, NaNMin(scaled.Data))
	assert.Equal(t, 1.0, NaNMax(scaled.Data))
	for _, v := range scaled.Data {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestNormalizePercentile_Degenerate(t *testing.T) {
	g := testGrid(2, 2)
	r := NewConst(g, 7.5)
	scaled := NormalizePercentile(r, 2, 98)
	for _, v := range scaled.Data {
		assert.Equal(t, 0.0, v)
	}
}

func TestNormalizePercentile_NaNPropagates(t *testing.T) {
	g := testGrid(2, 2)
	r := Raster{Grid: g, Data: []float64{0, math.NaN(), 2, 4}}
	scaled := NormalizePercentile(r, 0, 100)
	assert.True(t, math.IsNaN(scaled.Data[1]))
	assert.Equal(t, 0.0, scaled.Data[0])
	assert.Equal(t, 1.0, scaled.Data[3])
}

func TestCheckAligned_Mismatch(t *testing.T) {
	a := New(testGrid(4, 4))
	b := New(testGrid(5, 4))
	assert.NoError(t, CheckAligned(a.Grid, a))
	assert.Error(t, CheckAligned(a.Grid, b))
}

func TestSlope_FlatIsZero(t *testing.T) {
	dem := NewConst(testGrid(5, 5), 120)
	slope := Slope(dem)
	for _, v := range slope.Data {
		assert.Equal(t, 0.0, v)
	}
}

func TestSlope_RampPositive(t *testing.T) {
	g := testGrid(5, 5)
	dem := New(g)
	for row := 0; row < 5; row++ {
		for col := 0; col < 5; col++ {
			dem.Set(row, col, float64(col)*10)
		}
	}
	slope := Slope(dem)
	for _, v := range slope.Data {
		assert.Greater(t, v, 0.0)
		assert.Less(t, v, 90.0)
	}
}

func TestHillshade_Range(t *testing.T) {
	g := testGrid(6, 6)
	dem := New(g)
	for row := 0; row < 6; row++ {
		for col := 0; col < 6; col++ {
			dem.Set(row, col, float64(row*col))
		}
	}
	hs := Hillshade(dem, DefaultAzimuthDeg, DefaultAltitudeDeg)
	for _, v := range hs.Data {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestWriteReadFile_RoundTrip(t *testing.T) {
	g := testGrid(3, 2)
	r := Raster{Grid: g, Data: []float64{0, 0.25, 0.5, 0.75, 1, 2}}
	path := filepath.Join(t.TempDir(), "score.ras")

	require.NoError(t, WriteFile(r, path))
	got, err := ReadFile(path)
	require.NoError(t, err)

	assert.True(t, got.Grid.Equal(g))
	for i := range r.Data {
		assert.InDelta(t, r.Data[i], got.Data[i], 1e-6)
	}
}

func TestReadFile_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.ras")
	require.NoError(t, os.WriteFile(path, []byte("not a raster"), 0o644))
	_, err := ReadFile(path)
	assert.Error(t, err)
}
