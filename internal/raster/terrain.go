package raster

import "math"

// Hillshade illumination defaults (northwest sun at 45 degrees).
const (
	DefaultAzimuthDeg  = 315.0
	DefaultAltitudeDeg = 45.0
)

// Slope derives a slope raster in degrees from an elevation raster using
// central-difference gradients scaled by the pixel resolution.
func Slope(dem Raster) Raster {
	dzdx, dzdy := gradient(dem)
	out := make([]float64, len(dem.Data))
	for i := range out {
		out[i] = math.Atan(math.Hypot(dzdx[i], dzdy[i])) * 180 / math.Pi
	}
	return dem.WithData(out)
}

// Hillshade derives an illumination raster in [0,1] from an elevation
// raster for the given sun azimuth and altitude in degrees.
func Hillshade(dem Raster, azimuthDeg, altitudeDeg float64) Raster {
	az := azimuthDeg * math.Pi / 180
	alt := altitudeDeg * math.Pi / 180
	dzdx, dzdy := gradient(dem)
	out := make([]float64, len(dem.Data))
	for i := range out {
		slope := math.Pi/2 - math.Atan(math.Hypot(dzdx[i], dzdy[i]))
		aspect := math.Atan2(-dzdx[i], dzdy[i])
		shade := math.Sin(alt)*math.Sin(slope) + math.Cos(alt)*math.Cos(slope)*math.Cos(az-aspect)
		if shade < 0 {
			shade = 0
		} else if shade > 1 {
			shade = 1
		}
		out[i] = shade
	}
	return dem.WithData(out)
}

// gradient computes per-pixel partial derivatives along x (columns) and
// y (rows): central differences in the interior, one-sided at the edges,
// scaled by the absolute pixel resolution.
func gradient(r Raster) (dzdx, dzdy []float64) {
	w, h := r.Grid.Width, r.Grid.Height
	xres := math.Abs(r.Grid.XRes())
	yres := math.Abs(r.Grid.YRes())
	dzdx = make([]float64, len(r.Data))
	dzdy = make([]float64, len(r.Data))

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			i := row*w + col
			switch {
			case w == 1:
				dzdx[i] = 0
			case col == 0:
				dzdx[i] = (r.At(row, 1) - r.At(row, 0)) / xres
			case col == w-1:
				dzdx[i] = (r.At(row, w-1) - r.At(row, w-2)) / xres
			default:
				dzdx[i] = (r.At(row, col+1) - r.At(row, col-1)) / (2 * xres)
			}
			switch {
			case h == 1:
				dzdy[i] = 0
			case row == 0:
				dzdy[i] = (r.At(1, col) - r.At(0, col)) / yres
			case row == h-1:
				dzdy[i] = (r.At(h-1, col) - r.At(h-2, col)) / yres
			default:
				dzdy[i] = (r.At(row+1, col) - r.At(row-1, col)) / (2 * yres)
			}
		}
	}
	return dzdx, dzdy
}
