package geodesy

import (
	"math"

	geom "github.com/twpayne/go-geom"
)

// PolygonToLinesM measures the planar distance in meters between a
// longitude/latitude polygon and the union of the given line geometries,
// both projected into the UTM zone of the polygon's centroid. The
// distance is 0 when any line touches or crosses the polygon, and +Inf
// when the geometries contribute no segments.
func PolygonToLinesM(poly *geom.Polygon, lines []geom.T) float64 {
	lon, _ := Centroid(poly)
	zone := UTMZone(lon)

	rings := make([][][2]float64, 0, poly.NumLinearRings())
	for i := 0; i < poly.NumLinearRings(); i++ {
		rings = append(rings, projectRing(ringCoords(poly.LinearRing(i)), zone))
	}

	best := math.Inf(1)
	for _, g := range lines {
		for _, seg := range lineSegments(g) {
			a := projectPoint(seg[0], zone)
			b := projectPoint(seg[1], zone)
			if pointInRings(a, rings) || pointInRings(b, rings) {
				return 0
			}
			for _, ring := range rings {
				for i := 0; i < len(ring)-1; i++ {
					d := segSegDistance(ring[i], ring[i+1], a, b)
					if d < best {
						best = d
					}
					if best == 0 {
						return 0
					}
				}
			}
		}
	}
	return best
}

// lineSegments flattens a LineString or MultiLineString into coordinate
// pair segments. Other geometry types contribute nothing.
func lineSegments(g geom.T) [][2][2]float64 {
	var segs [][2][2]float64
	push := func(flat []float64, stride int) {
		for i := 0; i+stride+1 < len(flat); i += stride {
			segs = append(segs, [2][2]float64{
				{flat[i], flat[i+1]},
				{flat[i+stride], flat[i+stride+1]},
			})
		}
	}
	switch l := g.(type) {
	case *geom.LineString:
		push(l.FlatCoords(), l.Stride())
	case *geom.MultiLineString:
		for i := 0; i < l.NumLineStrings(); i++ {
			ls := l.LineString(i)
			push(ls.FlatCoords(), ls.Stride())
		}
	}
	return segs
}

func projectRing(ring [][2]float64, zone int) [][2]float64 {
	out := make([][2]float64, len(ring))
	for i, c := range ring {
		out[i] = projectPoint(c, zone)
	}
	return out
}

func projectPoint(c [2]float64, zone int) [2]float64 {
	x, y := tmForward(c[0], c[1], zone)
	return [2]float64{x, y}
}

// pointInRings is an even-odd containment test over the polygon rings.
func pointInRings(p [2]float64, rings [][][2]float64) bool {
	inside := false
	for _, ring := range rings {
		for i := 0; i < len(ring)-1; i++ {
			a, b := ring[i], ring[i+1]
			if (a[1] > p[1]) != (b[1] > p[1]) {
				x := a[0] + (p[1]-a[1])/(b[1]-a[1])*(b[0]-a[0])
				if p[0] < x {
					inside = !inside
				}
			}
		}
	}
	return inside
}

// segSegDistance returns the minimum distance between two segments,
// 0 when they intersect.
func segSegDistance(p1, p2, q1, q2 [2]float64) float64 {
	if segmentsIntersect(p1, p2, q1, q2) {
		return 0
	}
	d := pointSegDistance(p1, q1, q2)
	if v := pointSegDistance(p2, q1, q2); v < d {
		d = v
	}
	if v := pointSegDistance(q1, p1, p2); v < d {
		d = v
	}
	if v := pointSegDistance(q2, p1, p2); v < d {
		d = v
	}
	return d
}

func pointSegDistance(p, a, b [2]float64) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l2 := dx*dx + dy*dy
	t := 0.0
	if l2 > 0 {
		t = ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / l2
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}
	cx, cy := a[0]+t*dx, a[1]+t*dy
	return math.Hypot(p[0]-cx, p[1]-cy)
}

func segmentsIntersect(p1, p2, q1, q2 [2]float64) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

func cross(a, b, c [2]float64) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p [2]float64) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}
