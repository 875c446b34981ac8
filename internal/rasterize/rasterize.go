// Package rasterize burns vector geometries onto raster grids: line
// sets to binary masks for the distance transform, polygon sets to
// binary masks for geology layers and per-target statistics.
//
// Containment follows the pixel-center rule: a pixel belongs to a
// polygon when its center lies inside, and to a line when the line
// passes through the pixel cell.
package rasterize

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"

	"github.com/sells-group/atlas-cli/internal/geodesy"
	"github.com/sells-group/atlas-cli/internal/model"
	"github.com/sells-group/atlas-cli/internal/raster"
)

// Lines burns a line feature set onto the grid, returning a boolean mask
// with true for every pixel cell the lines pass through. Features are
// reprojected into the grid's CRS first.
func Lines(fs model.FeatureSet, g raster.Grid) ([]bool, error) {
	mask := make([]bool, g.Width*g.Height)
	for _, f := range fs.Geoms {
		if f == nil {
			continue
		}
		proj, err := Reproject(f, fs.CRS, g.CRS)
		if err != nil {
			return nil, err
		}
		switch l := proj.(type) {
		case *geom.LineString:
			traceLine(mask, g, l.FlatCoords(), l.Stride())
		case *geom.MultiLineString:
			for i := 0; i < l.NumLineStrings(); i++ {
				ls := l.LineString(i)
				traceLine(mask, g, ls.FlatCoords(), ls.Stride())
			}
		}
	}
	return mask, nil
}

// Polygons burns a polygon feature set onto the grid using the
// pixel-center containment rule.
func Polygons(fs model.FeatureSet, g raster.Grid) ([]bool, error) {
	mask := make([]bool, g.Width*g.Height)
	for _, f := range fs.Geoms {
		if f == nil {
			continue
		}
		proj, err := Reproject(f, fs.CRS, g.CRS)
		if err != nil {
			return nil, err
		}
		switch p := proj.(type) {
		case *geom.Polygon:
			fillPolygon(mask, g, p)
		case *geom.MultiPolygon:
			for i := 0; i < p.NumPolygons(); i++ {
				fillPolygon(mask, g, p.Polygon(i))
			}
		}
	}
	return mask, nil
}

// GeometryMask rasterizes a single polygon onto the grid, the boolean
// mask used to cross-reference raster statistics onto the polygon.
func GeometryMask(p *geom.Polygon, g raster.Grid) []bool {
	mask := make([]bool, g.Width*g.Height)
	fillPolygon(mask, g, p)
	return mask
}

// Reproject transforms a geometry between the CRS pairs this engine
// works in: identity, and EPSG:4326 to a UTM zone. Anything else is a
// computation error; layers are expected to arrive co-registered.
func Reproject(f geom.T, fromCRS, toCRS string) (geom.T, error) {
	if fromCRS == toCRS || fromCRS == "" || toCRS == "" {
		return f, nil
	}
	if fromCRS != raster.CRSWGS84 {
		return nil, eris.Errorf("rasterize: unsupported reprojection %s -> %s", fromCRS, toCRS)
	}
	zone, ok := utmZoneFromCRS(toCRS)
	if !ok {
		return nil, eris.Errorf("rasterize: unsupported target CRS %s", toCRS)
	}

	flat := append([]float64(nil), f.FlatCoords()...)
	stride := f.Stride()
	for i := 0; i+1 < len(flat); i += stride {
		flat[i], flat[i+1] = geodesy.ToUTM(flat[i], flat[i+1], zone)
	}
	switch t := f.(type) {
	case *geom.LineString:
		return geom.NewLineStringFlat(t.Layout(), flat), nil
	case *geom.MultiLineString:
		return geom.NewMultiLineStringFlat(t.Layout(), flat, t.Ends()), nil
	case *geom.Polygon:
		return geom.NewPolygonFlat(t.Layout(), flat, t.Ends()), nil
	case *geom.MultiPolygon:
		return geom.NewMultiPolygonFlat(t.Layout(), flat, t.Endss()), nil
	case *geom.Point:
		return geom.NewPointFlat(t.Layout(), flat), nil
	}
	return nil, eris.Errorf("rasterize: unsupported geometry type %T", f)
}

func utmZoneFromCRS(crs string) (int, bool) {
	code, ok := strings.CutPrefix(crs, "EPSG:")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0, false
	}
	if (n >= 32601 && n <= 32660) || (n >= 32701 && n <= 32760) {
		return n % 100, true
	}
	return 0, false
}

// traceLine marks every pixel cell a polyline passes through, using
// grid traversal (Amanatides-Woo) per segment so that thin diagonal
// crossings are not skipped.
func traceLine(mask []bool, g raster.Grid, flat []float64, stride int) {
	for i := 0; i+stride+1 < len(flat); i += stride {
		x0, y0 := g.WorldToPixel(flat[i], flat[i+1])
		x1, y1 := g.WorldToPixel(flat[i+stride], flat[i+stride+1])
		traceSegment(mask, g.Width, g.Height, x0, y0, x1, y1)
	}
}

func traceSegment(mask []bool, w, h int, x0, y0, x1, y1 float64) {
	mark := func(col, row int) {
		if col >= 0 && col < w && row >= 0 && row < h {
			mask[row*w+col] = true
		}
	}

	col := int(math.Floor(x0))
	row := int(math.Floor(y0))
	colEnd := int(math.Floor(x1))
	rowEnd := int(math.Floor(y1))
	mark(col, row)

	dx, dy := x1-x0, y1-y0
	stepX, stepY := 0, 0
	tMaxX, tMaxY := math.Inf(1), math.Inf(1)
	tDeltaX, tDeltaY := math.Inf(1), math.Inf(1)

	if dx > 0 {
		stepX = 1
		tMaxX = (float64(col+1) - x0) / dx
		tDeltaX = 1 / dx
	} else if dx < 0 {
		stepX = -1
		tMaxX = (float64(col) - x0) / dx
		tDeltaX = -1 / dx
	}
	if dy > 0 {
		stepY = 1
		tMaxY = (float64(row+1) - y0) / dy
		tDeltaY = 1 / dy
	} else if dy < 0 {
		stepY = -1
		tMaxY = (float64(row) - y0) / dy
		tDeltaY = -1 / dy
	}

	for (col != colEnd || row != rowEnd) && (tMaxX <= 1 || tMaxY <= 1) {
		if tMaxX < tMaxY {
			col += stepX
			tMaxX += tDeltaX
		} else {
			row += stepY
			tMaxY += tDeltaY
		}
		mark(col, row)
	}
}

// fillPolygon runs an even-odd scanline fill over pixel centers.
func fillPolygon(mask []bool, g raster.Grid, p *geom.Polygon) {
	type edge struct{ x0, y0, x1, y1 float64 }
	var edges []edge
	minRow, maxRow := g.Height, -1

	for r := 0; r < p.NumLinearRings(); r++ {
		ring := p.LinearRing(r)
		flat := ring.FlatCoords()
		stride := ring.Stride()
		var px, py []float64
		for i := 0; i+1 < len(flat); i += stride {
			cx, cy := g.WorldToPixel(flat[i], flat[i+1])
			px = append(px, cx)
			py = append(py, cy)
		}
		if len(px) < 3 {
			continue
		}
		// Close the ring in pixel space.
		if px[0] != px[len(px)-1] || py[0] != py[len(py)-1] {
			px = append(px, px[0])
			py = append(py, py[0])
		}
		for i := 0; i < len(px)-1; i++ {
			edges = append(edges, edge{px[i], py[i], px[i+1], py[i+1]})
			lo := int(math.Floor(math.Min(py[i], py[i+1])))
			hi := int(math.Ceil(math.Max(py[i], py[i+1])))
			if lo < minRow {
				minRow = lo
			}
			if hi > maxRow {
				maxRow = hi
			}
		}
	}
	if minRow < 0 {
		minRow = 0
	}
	if maxRow >= g.Height {
		maxRow = g.Height - 1
	}

	for row := minRow; row <= maxRow; row++ {
		cy := float64(row) + 0.5
		var xs []float64
		for _, e := range edges {
			if (e.y0 > cy) == (e.y1 > cy) {
				continue
			}
			xs = append(xs, e.x0+(cy-e.y0)/(e.y1-e.y0)*(e.x1-e.x0))
		}
		if len(xs) == 0 {
			continue
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			start := int(math.Ceil(xs[i] - 0.5))
			end := int(math.Floor(xs[i+1] - 0.5))
			if start < 0 {
				start = 0
			}
			if end >= g.Width {
				end = g.Width - 1
			}
			for col := start; col <= end; col++ {
				mask[row*g.Width+col] = true
			}
		}
	}
}
