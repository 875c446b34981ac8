// Package geodesy provides the small set of geodetic computations the
// engine needs without a projection library: WGS84 polygon areas, UTM
// forward projection for local metric distances, and planar
// geometry-to-geometry distance.
//
// go-geom deliberately carries no CRS machinery, so the transverse
// Mercator forward projection is implemented here with the standard
// Krueger series (sub-millimeter within a UTM zone).
package geodesy

import (
	"math"

	geom "github.com/twpayne/go-geom"
)

// WGS84 constants. RAuthalic is the radius of the sphere with the same
// surface area as the ellipsoid; polygon areas use the spherical excess
// formula on that sphere.
const (
	SemiMajorM = 6378137.0
	Flattening = 1 / 298.257223563
	RAuthalic  = 6371007.1809
)

// UTMZone returns the UTM zone containing the longitude.
func UTMZone(lon float64) int {
	zone := int(math.Floor((lon+180)/6)) + 1
	if zone < 1 {
		zone = 1
	} else if zone > 60 {
		zone = 60
	}
	return zone
}

// UTMEPSG returns the EPSG code of the UTM zone covering the point:
// 326xx north of the equator, 327xx south.
func UTMEPSG(lon, lat float64) int {
	if lat >= 0 {
		return 32600 + UTMZone(lon)
	}
	return 32700 + UTMZone(lon)
}

// ToUTM projects a geographic coordinate into the given UTM zone using
// the Krueger series transverse Mercator. hemisphere follows the
// latitude sign of the coordinate itself.
func ToUTM(lon, lat float64, zone int) (easting, northing float64) {
	x, y := tmForward(lon, lat, zone)
	easting = 500000 + x
	northing = y
	if lat < 0 {
		northing += 10000000
	}
	return easting, northing
}

// tmForward is the transverse Mercator forward projection without the
// UTM false easting and northing. Distance computations project through
// it directly so coordinates stay continuous across the equator.
func tmForward(lon, lat float64, zone int) (x, y float64) {
	const k0 = 0.9996
	lam0 := float64((zone-1)*6-180+3) * math.Pi / 180

	n := Flattening / (2 - Flattening)
	n2 := n * n
	n3 := n2 * n
	bigA := SemiMajorM / (1 + n) * (1 + n2/4 + n2*n2/64)
	a1 := n/2 - 2*n2/3 + 5*n3/16
	a2 := 13*n2/48 - 3*n3/5
	a3 := 61 * n3 / 240

	phi := lat * math.Pi / 180
	dlam := lon*math.Pi/180 - lam0

	sn := 2 * math.Sqrt(n) / (1 + n)
	t := math.Sinh(math.Atanh(math.Sin(phi)) - sn*math.Atanh(sn*math.Sin(phi)))
	xiP := math.Atan2(t, math.Cos(dlam))
	etaP := math.Atanh(math.Sin(dlam) / math.Sqrt(1+t*t))

	xi := xiP
	eta := etaP
	for j, aj := range []float64{a1, a2, a3} {
		k := 2 * float64(j+1)
		xi += aj * math.Sin(k*xiP) * math.Cosh(k*etaP)
		eta += aj * math.Cos(k*xiP) * math.Sinh(k*etaP)
	}

	return k0 * bigA * eta, k0 * bigA * xi
}

// RingAreaM2 returns the absolute geodesic area of a closed
// longitude/latitude ring in square meters, via spherical excess on the
// authalic sphere.
func RingAreaM2(ring [][2]float64) float64 {
	if len(ring) < 3 {
		return 0
	}
	sum := 0.0
	for i := 0; i < len(ring)-1; i++ {
		lon1 := ring[i][0] * math.Pi / 180
		lat1 := ring[i][1] * math.Pi / 180
		lon2 := ring[i+1][0] * math.Pi / 180
		lat2 := ring[i+1][1] * math.Pi / 180
		sum += (lon2 - lon1) * (2 + math.Sin(lat1) + math.Sin(lat2))
	}
	// Close the ring if the caller did not.
	first, last := ring[0], ring[len(ring)-1]
	if first != last {
		lon1 := last[0] * math.Pi / 180
		lat1 := last[1] * math.Pi / 180
		lon2 := first[0] * math.Pi / 180
		lat2 := first[1] * math.Pi / 180
		sum += (lon2 - lon1) * (2 + math.Sin(lat1) + math.Sin(lat2))
	}
	return math.Abs(sum) * RAuthalic * RAuthalic / 2
}

// PolygonAreaKM2 returns the geodesic area of a longitude/latitude
// polygon in square kilometers: exterior ring minus holes.
func PolygonAreaKM2(p *geom.Polygon) float64 {
	if p == nil || p.NumLinearRings() == 0 {
		return 0
	}
	area := RingAreaM2(ringCoords(p.LinearRing(0)))
	for i := 1; i < p.NumLinearRings(); i++ {
		area -= RingAreaM2(ringCoords(p.LinearRing(i)))
	}
	if area < 0 {
		area = 0
	}
	return area / 1e6
}

// Centroid returns the area-weighted centroid of a polygon, holes
// subtracted.
func Centroid(p *geom.Polygon) (lon, lat float64) {
	var aSum, xSum, ySum float64
	for i := 0; i < p.NumLinearRings(); i++ {
		ring := ringCoords(p.LinearRing(i))
		a, cx, cy := ringCentroid(ring)
		if i > 0 {
			a = -a
		}
		aSum += a
		xSum += cx * a
		ySum += cy * a
	}
	if aSum == 0 {
		c := ringCoords(p.LinearRing(0))
		return c[0][0], c[0][1]
	}
	return xSum / aSum, ySum / aSum
}

func ringCentroid(ring [][2]float64) (area, cx, cy float64) {
	var a, x, y float64
	for i := 0; i < len(ring)-1; i++ {
		cross := ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
		a += cross
		x += (ring[i][0] + ring[i+1][0]) * cross
		y += (ring[i][1] + ring[i+1][1]) * cross
	}
	a /= 2
	if a == 0 {
		return 0, 0, 0
	}
	return math.Abs(a), x / (6 * a), y / (6 * a)
}

func ringCoords(r *geom.LinearRing) [][2]float64 {
	flat := r.FlatCoords()
	stride := r.Stride()
	out := make([][2]float64, 0, len(flat)/stride)
	for i := 0; i+1 < len(flat); i += stride {
		out = append(out, [2]float64{flat[i], flat[i+1]})
	}
	return out
}
