package targets

import (
	"math"

	"github.com/sells-group/atlas-cli/internal/geodesy"
	"github.com/sells-group/atlas-cli/internal/raster"
)

// label assigns 4-connected component labels to the true cells of mask.
// Labels start at 1; 0 is background. Returns the label raster and the
// number of components.
func label(mask []bool, w, h int) ([]int, int) {
	labels := make([]int, len(mask))
	next := 0
	var queue []int
	for start, m := range mask {
		if !m || labels[start] != 0 {
			continue
		}
		next++
		labels[start] = next
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			i := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := i%w, i/w
			for _, n := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				nx, ny := n[0], n[1]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				j := ny*w + nx
				if mask[j] && labels[j] == 0 {
					labels[j] = next
					queue = append(queue, j)
				}
			}
		}
	}
	return labels, next
}

// removeSmall clears every component with fewer than minSize pixels and
// returns the surviving labels in ascending order.
func removeSmall(labels []int, n, minSize int) []int {
	counts := make([]int, n+1)
	for _, l := range labels {
		counts[l]++
	}
	keep := make([]bool, n+1)
	var kept []int
	for l := 1; l <= n; l++ {
		if counts[l] >= minSize {
			keep[l] = true
			kept = append(kept, l)
		}
	}
	for i, l := range labels {
		if !keep[l] {
			labels[i] = 0
		}
	}
	return kept
}

// pixelAreaKM2 estimates the area of one grid cell. Geographic grids use
// the geodesic area of the upper-left cell; projected grids use the
// planar resolution product.
func pixelAreaKM2(g raster.Grid) float64 {
	if g.Geographic() {
		return math.Abs(geodesy.RingAreaM2(g.PixelRing(0, 0))) / 1e6
	}
	return math.Abs(g.XRes()*g.YRes()) / 1e6
}
