package raster

import "github.com/rotisserie/eris"

// Raster is a georeferenced 2-D grid of float64 samples in row-major
// order. Rasters are value types: derived layers are produced by
// WithData, never by mutating a buffer shared with another layer.
type Raster struct {
	Grid Grid
	Data []float64
}

// New allocates a zero-filled raster on the grid.
func New(g Grid) Raster {
	return Raster{Grid: g, Data: make([]float64, g.Width*g.Height)}
}

// NewConst allocates a raster on the grid with every sample set to v.
func NewConst(g Grid, v float64) Raster {
	r := New(g)
	for i := range r.Data {
		r.Data[i] = v
	}
	return r
}

// WithData returns a raster sharing this raster's grid but owning the
// given buffer. The buffer length must match the grid.
func (r Raster) WithData(data []float64) Raster {
	if len(data) != r.Grid.Width*r.Grid.Height {
		panic("raster: data length does not match grid")
	}
	return Raster{Grid: r.Grid, Data: data}
}

// Clone returns a deep copy.
func (r Raster) Clone() Raster {
	data := make([]float64, len(r.Data))
	copy(data, r.Data)
	return Raster{Grid: r.Grid, Data: data}
}

// At returns the sample at (row, col).
func (r Raster) At(row, col int) float64 { return r.Data[row*r.Grid.Width+col] }

// Set stores a sample at (row, col).
func (r *Raster) Set(row, col int, v float64) { r.Data[row*r.Grid.Width+col] = v }

// Map returns a new raster with f applied to every sample.
func (r Raster) Map(f func(float64) float64) Raster {
	out := make([]float64, len(r.Data))
	for i, v := range r.Data {
		out[i] = f(v)
	}
	return r.WithData(out)
}

// Clip01 clamps every sample into [0,1]. NaN samples propagate untouched.
func (r Raster) Clip01() Raster {
	return r.Map(func(v float64) float64 {
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 1
		}
		return v
	})
}

// CheckAligned verifies that every raster shares the reference grid.
// A mismatch is a computation error: layers must be co-registered
// upstream before they reach the core.
func CheckAligned(ref Grid, layers ...Raster) error {
	for _, l := range layers {
		if !l.Grid.Equal(ref) {
			return eris.Errorf("raster: grid mismatch (%dx%d %s vs %dx%d %s)",
				l.Grid.Width, l.Grid.Height, l.Grid.CRS, ref.Width, ref.Height, ref.CRS)
		}
	}
	return nil
}
