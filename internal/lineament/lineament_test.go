package lineament

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/atlas-cli/internal/raster"
)

func TestDensity_FlatInputIsZero(t *testing.T) {
	g := raster.GridFromBounds(0, 0, 1, 1, 32, 32, raster.CRSWGS84)
	out := Density(raster.NewConst(g, 0.5), DefaultConfig())
	for _, v := range out.Data {
		assert.Equal(t, 0.0, v)
	}
}

func TestDensity_StepEdgeConcentratesNearEdge(t *testing.T) {
	w, h := 64, 64
	g := raster.GridFromBounds(0, 0, 1, 1, w, h, raster.CRSWGS84)
	data := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x >= w/2 {
				data[y*w+x] = 1
			}
		}
	}
	out := Density(raster.Raster{Grid: g}.WithData(data), DefaultConfig())

	nearEdge, farField := 0.0, 0.0
	for y := 0; y < h; y++ {
		nearEdge += out.At(y, w/2)
		farField += out.At(y, 4)
	}
	assert.Greater(t, nearEdge, farField)
	for _, v := range out.Data {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestDensity_Deterministic(t *testing.T) {
	w, h := 48, 48
	g := raster.GridFromBounds(0, 0, 1, 1, w, h, raster.CRSWGS84)
	data := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			data[y*w+x] = math.Sin(float64(x)*0.3) * math.Cos(float64(y)*0.2)
		}
	}
	r := raster.Raster{Grid: g}.WithData(data)

	a := Density(r, DefaultConfig())
	b := Density(r, DefaultConfig())
	assert.Equal(t, a.Data, b.Data)
}

func TestThin_ThickLineBecomesThin(t *testing.T) {
	w, h := 20, 20
	mask := make([]bool, w*h)
	for y := 8; y <= 11; y++ {
		for x := 2; x < 18; x++ {
			mask[y*w+x] = true
		}
	}
	skel := thin(mask, w, h)

	// Interior columns must be reduced to at most two pixels wide, and
	// the skeleton must survive.
	total := 0
	for x := 4; x < 16; x++ {
		colCount := 0
		for y := 0; y < h; y++ {
			if skel[y*w+x] {
				colCount++
			}
		}
		assert.LessOrEqual(t, colCount, 2)
		total += colCount
	}
	assert.Greater(t, total, 0)
}

func TestReflect(t *testing.T) {
	assert.Equal(t, 1, reflect(-1, 5))
	assert.Equal(t, 0, reflect(0, 5))
	assert.Equal(t, 4, reflect(4, 5))
	assert.Equal(t, 3, reflect(5, 5))
	assert.Equal(t, 0, reflect(7, 3))
}

func TestUniformFilter_ConstantPreserved(t *testing.T) {
	w, h := 10, 10
	data := make([]float64, w*h)
	for i := range data {
		data[i] = 3.5
	}
	out := uniformFilter(data, w, h, 5)
	for _, v := range out {
		assert.InDelta(t, 3.5, v, 1e-12)
	}
}
