package targets

import (
	geom "github.com/twpayne/go-geom"

	"github.com/sells-group/atlas-cli/internal/raster"
)

// vectorize traces the boundary of one labeled component into a polygon
// in world coordinates, holes included. Boundary edges are directed so
// the component interior lies on the left; exterior rings then come out
// with positive shoelace area in (col,row) space and holes with
// negative. The trace order is fixed, so output is deterministic.
func vectorize(labels []int, l int, g raster.Grid) *geom.Polygon {
	w, h := g.Width, g.Height
	stride := w + 1
	at := func(x, y int) bool {
		return x >= 0 && x < w && y >= 0 && y < h && labels[y*w+x] == l
	}

	// One directed edge per exposed pixel side, keyed by start corner
	// (corner index: row*stride+col).
	outgoing := make(map[int][]int)
	addEdge := func(from, to int) {
		outgoing[from] = append(outgoing[from], to)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if labels[y*w+x] != l {
				continue
			}
			tl := y*stride + x
			tr := y*stride + x + 1
			br := (y+1)*stride + x + 1
			bl := (y+1)*stride + x
			if !at(x, y-1) {
				addEdge(tl, tr)
			}
			if !at(x+1, y) {
				addEdge(tr, br)
			}
			if !at(x, y+1) {
				addEdge(br, bl)
			}
			if !at(x-1, y) {
				addEdge(bl, tl)
			}
		}
	}

	var exterior []geom.Coord
	extArea := 0.0
	var holes [][]geom.Coord
	collect := func(start int) {
		ring := traceRing(outgoing, start, stride)
		if len(ring) < 4 {
			return
		}
		coords := make([]geom.Coord, len(ring))
		signed := 0.0
		for i, v := range ring {
			col := float64(v % stride)
			row := float64(v / stride)
			x, y := g.PixelToWorld(col, row)
			coords[i] = geom.Coord{x, y}
			next := ring[(i+1)%len(ring)]
			signed += col*float64(next/stride) - float64(next%stride)*row
		}
		coords = append(coords, coords[0])
		if signed > 0 {
			if exterior == nil || signed > extArea {
				exterior = coords
				extArea = signed
			}
		} else {
			holes = append(holes, coords)
		}
	}

	// Start rings at corners with a single outgoing edge so a boundary
	// that pinches through a corner is traversed as one ring; the turn
	// rule resolves the pinch mid-walk. Any leftover edges are swept up
	// in corner order.
	total := stride * (h + 1)
	for start := 0; start < total; start++ {
		if len(outgoing[start]) == 1 {
			collect(start)
		}
	}
	for start := 0; start < total; start++ {
		for len(outgoing[start]) > 0 {
			collect(start)
		}
	}
	if exterior == nil {
		return nil
	}

	rings := append([][]geom.Coord{exterior}, holes...)
	poly, err := geom.NewPolygon(geom.XY).SetCoords(rings)
	if err != nil {
		return nil
	}
	return poly
}

// traceRing walks directed edges from start until the loop closes,
// consuming the edges it uses. At corners where several edges leave (a
// diagonal pinch between two pixels of the component), it takes the
// most counterclockwise turn relative to the incoming direction, which
// keeps the boundary tight against the pixel it is rounding.
func traceRing(outgoing map[int][]int, start, stride int) []int {
	var ring []int
	cur := start
	prev := -1
	for {
		outs := outgoing[cur]
		if len(outs) == 0 {
			return ring
		}
		best := 0
		if len(outs) > 1 && prev >= 0 {
			inDx, inDy := cornerDelta(prev, cur, stride)
			bestRank := -3
			for i, next := range outs {
				outDx, outDy := cornerDelta(cur, next, stride)
				if r := turnRank(inDx, inDy, outDx, outDy); r > bestRank {
					bestRank = r
					best = i
				}
			}
		}
		next := outs[best]
		outs[best] = outs[len(outs)-1]
		outgoing[cur] = outs[:len(outs)-1]

		ring = append(ring, cur)
		prev = cur
		cur = next
		if cur == start {
			return ring
		}
	}
}

func cornerDelta(from, to, stride int) (dx, dy int) {
	return to%stride - from%stride, to/stride - from/stride
}

// turnRank orders candidate directions: left turn, straight, right turn,
// reverse. Cross and dot products of unit axis steps are sufficient.
func turnRank(inDx, inDy, outDx, outDy int) int {
	cross := inDx*outDy - inDy*outDx
	dot := inDx*outDx + inDy*outDy
	switch {
	case cross > 0:
		return 2
	case cross == 0 && dot > 0:
		return 1
	case cross < 0:
		return 0
	default:
		return -1
	}
}
