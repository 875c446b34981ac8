package geodesy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	geom "github.com/twpayne/go-geom"
)

func TestUTMZone(t *testing.T) {
	assert.Equal(t, 31, UTMZone(3.0))   // Paris
	assert.Equal(t, 43, UTMZone(77.0))  // Delhi
	assert.Equal(t, 1, UTMZone(-179.9)) // far west
	assert.Equal(t, 60, UTMZone(179.9)) // far east
}

func TestUTMEPSG_Hemispheres(t *testing.T) {
	assert.Equal(t, 32643, UTMEPSG(77.0, 28.6))
	assert.Equal(t, 32723, UTMEPSG(-43.2, -22.9))
	assert.Equal(t, 32631, UTMEPSG(3.0, 0.0)) // equator counts as north
}

func TestToUTM_CentralMeridian(t *testing.T) {
	// A point on the central meridian of zone 31 (3 degrees E) has
	// easting exactly 500 km.
	e, n := ToUTM(3.0, 45.0, 31)
	assert.InDelta(t, 500000, e, 1e-3)
	assert.Greater(t, n, 4_900_000.0)
	assert.Less(t, n, 5_100_000.0)
}

func TestToUTM_SouthFalseNorthing(t *testing.T) {
	_, n := ToUTM(3.0, -1.0, 31)
	assert.Greater(t, n, 9_000_000.0)
}

func TestRingAreaM2_OneDegreeSquareAtEquator(t *testing.T) {
	ring := [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}
	got := RingAreaM2(ring) / 1e6
	// ~12,364 km2 for a 1x1 degree cell straddling the equator edge.
	assert.InDelta(t, 12364, got, 150)
}

func TestPolygonAreaKM2_HoleSubtracted(t *testing.T) {
	outer := []float64{0, 0, 1, 0, 1, 1, 0, 1, 0, 0}
	inner := []float64{0.25, 0.25, 0.75, 0.25, 0.75, 0.75, 0.25, 0.75, 0.25, 0.25}
	p := geom.NewPolygonFlat(geom.XY, append(outer, inner...), []int{10, 20})

	full := geom.NewPolygonFlat(geom.XY, outer, []int{10})
	assert.InDelta(t, PolygonAreaKM2(full)*0.75, PolygonAreaKM2(p), PolygonAreaKM2(full)*0.01)
}

func TestCentroid_Square(t *testing.T) {
	p := geom.NewPolygonFlat(geom.XY, []float64{10, 20, 12, 20, 12, 22, 10, 22, 10, 20}, []int{10})
	lon, lat := Centroid(p)
	assert.InDelta(t, 11, lon, 1e-9)
	assert.InDelta(t, 21, lat, 1e-9)
}

func TestPolygonToLinesM_Crossing(t *testing.T) {
	p := geom.NewPolygonFlat(geom.XY, []float64{77, 28, 77.1, 28, 77.1, 28.1, 77, 28.1, 77, 28}, []int{10})
	line := geom.NewLineStringFlat(geom.XY, []float64{76.9, 28.05, 77.2, 28.05})
	assert.Equal(t, 0.0, PolygonToLinesM(p, []geom.T{line}))
}

func TestPolygonToLinesM_Disjoint(t *testing.T) {
	p := geom.NewPolygonFlat(geom.XY, []float64{77, 28, 77.1, 28, 77.1, 28.1, 77, 28.1, 77, 28}, []int{10})
	// A north-south line ~0.1 degrees east of the polygon.
	line := geom.NewLineStringFlat(geom.XY, []float64{77.2, 27.9, 77.2, 28.2})
	d := PolygonToLinesM(p, []geom.T{line})
	// 0.1 degrees of longitude at lat 28 is roughly 9.8 km.
	assert.InDelta(t, 9800, d, 300)
}

func TestPolygonToLinesM_EquatorStraddle(t *testing.T) {
	// Polygon straddling the equator; a parallel line just north of it.
	// Projected coordinates must stay continuous across the equator so
	// the distance is the real ~1.1 km gap, not a false-northing jump.
	p := geom.NewPolygonFlat(geom.XY, []float64{0, -0.01, 0.1, -0.01, 0.1, 0.01, 0, 0.01, 0, -0.01}, []int{10})
	line := geom.NewLineStringFlat(geom.XY, []float64{0, 0.02, 0.1, 0.02})
	d := PolygonToLinesM(p, []geom.T{line})
	assert.InDelta(t, 1105, d, 15)
}

func TestPolygonToLinesM_NoSegments(t *testing.T) {
	p := geom.NewPolygonFlat(geom.XY, []float64{77, 28, 77.1, 28, 77.1, 28.1, 77, 28.1, 77, 28}, []int{10})
	assert.True(t, math.IsInf(PolygonToLinesM(p, nil), 1))
}
