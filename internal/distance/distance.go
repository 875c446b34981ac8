// Package distance computes per-pixel Euclidean distance rasters to
// vector line sets.
package distance

import (
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/atlas-cli/internal/model"
	"github.com/sells-group/atlas-cli/internal/raster"
	"github.com/sells-group/atlas-cli/internal/rasterize"
)

// FarSentinel is the distance value used when no features exist to
// measure against: effectively "infinitely far", but finite so the
// proximity sub-scores degrade to zero instead of poisoning the fusion.
const FarSentinel = 1_000_000.0

// ToLines returns a raster of per-pixel distance in meters to the
// nearest line feature. A grid without a CRS or an empty feature set
// yields a constant FarSentinel raster; that is a documented degenerate
// case, not an error. Distances are non-negative and exactly 0 on
// pixels a feature passes through.
func ToLines(lines model.FeatureSet, g raster.Grid) (raster.Raster, error) {
	if g.CRS == "" || lines.Empty() {
		zap.L().Debug("distance: no CRS or empty feature set, using far sentinel")
		return raster.NewConst(g, FarSentinel), nil
	}

	mask, err := rasterize.Lines(lines, g)
	if err != nil {
		return raster.Raster{}, err
	}
	any := false
	for _, m := range mask {
		if m {
			any = true
			break
		}
	}
	if !any {
		return raster.NewConst(g, FarSentinel), nil
	}

	distPx := TransformEDT(mask, g.Width, g.Height)
	scale := math.Abs(g.XRes())
	out := make([]float64, len(distPx))
	for i, d := range distPx {
		out[i] = d * scale
	}
	return raster.Raster{Grid: g, Data: out}, nil
}

// background is the squared-distance seed for cells off the feature
// mask. Finite so the parabola envelope needs no special casing, small
// enough that integer additions to it stay exact in float64, and far
// larger than any real squared pixel distance.
const background = 1e12

// TransformEDT computes the exact Euclidean distance in pixel units from
// every cell to the nearest true cell, using the two-pass separable
// squared distance transform of Felzenszwalb and Huttenlocher. The
// result is fully deterministic.
func TransformEDT(mask []bool, w, h int) []float64 {
	f := make([]float64, w*h)
	for i, m := range mask {
		if m {
			f[i] = 0
		} else {
			f[i] = background
		}
	}

	// Pass 1: columns.
	col := make([]float64, h)
	out := make([]float64, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = f[y*w+x]
		}
		dt1d(col, out, h)
		for y := 0; y < h; y++ {
			f[y*w+x] = out[y]
		}
	}

	// Pass 2: rows.
	row := make([]float64, w)
	outRow := make([]float64, w)
	for y := 0; y < h; y++ {
		copy(row, f[y*w:(y+1)*w])
		dt1d(row, outRow, w)
		for x := 0; x < w; x++ {
			f[y*w+x] = math.Sqrt(outRow[x])
		}
	}
	return f
}

// dt1d is the 1-D squared distance transform under the lower envelope of
// parabolas rooted at the input samples.
func dt1d(f, d []float64, n int) {
	v := make([]int, n)
	z := make([]float64, n+1)
	k := 0
	v[0] = 0
	z[0] = math.Inf(-1)
	z[1] = math.Inf(1)

	for q := 1; q < n; q++ {
		s := intersect(f, q, v[k])
		for s <= z[k] {
			k--
			s = intersect(f, q, v[k])
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = math.Inf(1)
	}

	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		dq := float64(q - v[k])
		d[q] = dq*dq + f[v[k]]
	}
}

// intersect returns the abscissa where the parabolas rooted at q and p
// cross.
func intersect(f []float64, q, p int) float64 {
	return ((f[q] + float64(q*q)) - (f[p] + float64(p*p))) / (2*float64(q) - 2*float64(p))
}
