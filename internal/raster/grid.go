// Package raster provides the georeferenced raster value type and the
// grid algebra shared by every layer in a prospectivity run: affine
// pixel/world mapping, NaN-aware statistics, percentile rescaling and
// terrain derivatives.
package raster

import "math"

// CRSWGS84 is the geographic CRS every published geometry is expressed in.
const CRSWGS84 = "EPSG:4326"

// Grid describes the georeferencing of a raster: pixel dimensions, an
// affine pixel-to-world transform and a CRS tag. All layers consumed
// together within one run share an identical Grid; the core never
// reprojects mid-computation.
type Grid struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	CRS    string `json:"crs"`

	// Transform holds the affine coefficients [a b c d e f] so that
	// x = a*col + b*row + c and y = d*col + e*row + f, with (col, row)
	// measured from the upper-left pixel corner.
	Transform [6]float64 `json:"transform"`
}

// GridFromBounds builds a north-up grid covering the world-coordinate
// bounds with the given pixel dimensions.
func GridFromBounds(minX, minY, maxX, maxY float64, width, height int, crs string) Grid {
	return Grid{
		Width:  width,
		Height: height,
		CRS:    crs,
		Transform: [6]float64{
			(maxX - minX) / float64(width), 0, minX,
			0, -(maxY - minY) / float64(height), maxY,
		},
	}
}

// XRes returns the pixel width in world units.
func (g Grid) XRes() float64 { return g.Transform[0] }

// YRes returns the pixel height in world units (negative for north-up grids).
func (g Grid) YRes() float64 { return g.Transform[4] }

// Geographic reports whether the grid is referenced to geographic
// (longitude/latitude) coordinates.
func (g Grid) Geographic() bool { return g.CRS == CRSWGS84 }

// PixelToWorld maps fractional pixel coordinates to world coordinates.
func (g Grid) PixelToWorld(col, row float64) (x, y float64) {
	t := g.Transform
	return t[0]*col + t[1]*row + t[2], t[3]*col + t[4]*row + t[5]
}

// WorldToPixel inverts the affine transform, mapping world coordinates to
// fractional pixel coordinates.
func (g Grid) WorldToPixel(x, y float64) (col, row float64) {
	t := g.Transform
	det := t[0]*t[4] - t[1]*t[3]
	dx, dy := x-t[2], y-t[5]
	return (t[4]*dx - t[1]*dy) / det, (t[0]*dy - t[3]*dx) / det
}

// Bounds returns the world-coordinate extent (minX, minY, maxX, maxY).
func (g Grid) Bounds() (minX, minY, maxX, maxY float64) {
	x0, y0 := g.PixelToWorld(0, 0)
	x1, y1 := g.PixelToWorld(float64(g.Width), float64(g.Height))
	return math.Min(x0, x1), math.Min(y0, y1), math.Max(x0, x1), math.Max(y0, y1)
}

// PixelRing returns the closed world-coordinate ring of one pixel cell.
func (g Grid) PixelRing(col, row int) [][2]float64 {
	c, r := float64(col), float64(row)
	ring := make([][2]float64, 0, 5)
	for _, p := range [][2]float64{{c, r}, {c + 1, r}, {c + 1, r + 1}, {c, r + 1}, {c, r}} {
		x, y := g.PixelToWorld(p[0], p[1])
		ring = append(ring, [2]float64{x, y})
	}
	return ring
}

// Equal reports whether two grids describe the identical georeferenced
// shape: same dimensions, same CRS, same transform.
func (g Grid) Equal(o Grid) bool {
	return g.Width == o.Width && g.Height == o.Height && g.CRS == o.CRS && g.Transform == o.Transform
}
