// Package lineament derives a structural-density raster from a
// hillshade: edge detection at a fixed smoothing scale, skeletonization
// to one-pixel-wide lines, then a windowed local density.
package lineament

import (
	"math"

	"github.com/sells-group/atlas-cli/internal/raster"
)

// Config fixes every constant of the lineament chain. The output is
// deterministic for a given configuration.
type Config struct {
	// Sigma is the Gaussian smoothing scale of the edge detector.
	Sigma float64
	// LowRatio and HighRatio set the hysteresis thresholds as fractions
	// of the maximum gradient magnitude.
	LowRatio  float64
	HighRatio float64
	// Window is the side of the square local-density window in pixels.
	Window int
}

// DefaultConfig mirrors the calibrated chain: sigma 2 edges, 10%/20%
// hysteresis, 15-pixel density window.
func DefaultConfig() Config {
	return Config{Sigma: 2, LowRatio: 0.10, HighRatio: 0.20, Window: 15}
}

// Density computes the lineament density raster in [0,1] from a
// hillshade raster.
func Density(hillshade raster.Raster, cfg Config) raster.Raster {
	norm := raster.NormalizeMinMax(hillshade)
	edges := cannyEdges(norm.Data, norm.Grid.Width, norm.Grid.Height, cfg)
	skel := thin(edges, norm.Grid.Width, norm.Grid.Height)

	density := make([]float64, len(skel))
	for i, on := range skel {
		if on {
			density[i] = 1
		}
	}
	density = uniformFilter(density, norm.Grid.Width, norm.Grid.Height, cfg.Window)
	return raster.NormalizeMinMax(norm.WithData(density))
}

// cannyEdges runs Gaussian smoothing, Sobel gradients, non-maximum
// suppression and hysteresis thresholding. NaN samples are treated as 0
// for edge purposes; they never seed an edge.
func cannyEdges(data []float64, w, h int, cfg Config) []bool {
	img := make([]float64, len(data))
	for i, v := range data {
		if math.IsNaN(v) {
			img[i] = 0
		} else {
			img[i] = v
		}
	}
	img = gaussianBlur(img, w, h, cfg.Sigma)

	mag := make([]float64, len(img))
	dir := make([]uint8, len(img)) // quantized gradient direction: 0=E, 1=NE, 2=N, 3=NW
	maxMag := 0.0
	at := func(x, y int) float64 {
		x = reflect(x, w)
		y = reflect(y, h)
		return img[y*w+x]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := -at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1) +
				at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			m := math.Hypot(gx, gy)
			i := y*w + x
			mag[i] = m
			if m > maxMag {
				maxMag = m
			}
			angle := math.Atan2(gy, gx)
			dir[i] = quantizeDirection(angle)
		}
	}
	if maxMag == 0 {
		return make([]bool, len(img))
	}

	// Non-maximum suppression along the gradient direction.
	nms := make([]float64, len(mag))
	magAt := func(x, y int) float64 {
		if x < 0 || x >= w || y < 0 || y >= h {
			return 0
		}
		return mag[y*w+x]
	}
	offsets := [4][2]int{{1, 0}, {1, -1}, {0, -1}, {-1, -1}}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			o := offsets[dir[i]]
			if mag[i] >= magAt(x+o[0], y+o[1]) && mag[i] >= magAt(x-o[0], y-o[1]) {
				nms[i] = mag[i]
			}
		}
	}

	// Hysteresis: strong pixels seed, weak pixels join when 8-connected
	// to an accepted pixel.
	low := cfg.LowRatio * maxMag
	high := cfg.HighRatio * maxMag
	out := make([]bool, len(nms))
	var stack []int
	for i, m := range nms {
		if m >= high {
			out[i] = true
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				j := ny*w + nx
				if !out[j] && nms[j] >= low {
					out[j] = true
					stack = append(stack, j)
				}
			}
		}
	}
	return out
}

// quantizeDirection buckets a gradient angle into one of the four
// suppression axes.
func quantizeDirection(angle float64) uint8 {
	deg := angle * 180 / math.Pi
	if deg < 0 {
		deg += 180
	}
	switch {
	case deg < 22.5 || deg >= 157.5:
		return 0
	case deg < 67.5:
		return 1
	case deg < 112.5:
		return 2
	default:
		return 3
	}
}

// gaussianBlur applies a separable Gaussian with reflected borders.
func gaussianBlur(data []float64, w, h int, sigma float64) []float64 {
	if sigma <= 0 {
		out := make([]float64, len(data))
		copy(out, data)
		return out
	}
	radius := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*radius+1)
	sum := 0.0
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	tmp := make([]float64, len(data))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			acc := 0.0
			for k := -radius; k <= radius; k++ {
				acc += kernel[k+radius] * data[y*w+reflect(x+k, w)]
			}
			tmp[y*w+x] = acc
		}
	}
	out := make([]float64, len(data))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			acc := 0.0
			for k := -radius; k <= radius; k++ {
				acc += kernel[k+radius] * tmp[reflect(y+k, h)*w+x]
			}
			out[y*w+x] = acc
		}
	}
	return out
}

// reflect mirrors an out-of-range index back into [0, n).
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i = ((i % period) + period) % period
	if i >= n {
		i = period - i
	}
	return i
}

// thin reduces a binary mask to one-pixel-wide lines with the Zhang-Suen
// two-subiteration algorithm, iterated to a fixed point.
func thin(mask []bool, w, h int) []bool {
	cur := make([]bool, len(mask))
	copy(cur, mask)

	at := func(m []bool, x, y int) int {
		if x < 0 || x >= w || y < 0 || y >= h || !m[y*w+x] {
			return 0
		}
		return 1
	}

	for {
		changed := false
		for sub := 0; sub < 2; sub++ {
			var deletions []int
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					i := y*w + x
					if !cur[i] {
						continue
					}
					p2 := at(cur, x, y-1)
					p3 := at(cur, x+1, y-1)
					p4 := at(cur, x+1, y)
					p5 := at(cur, x+1, y+1)
					p6 := at(cur, x, y+1)
					p7 := at(cur, x-1, y+1)
					p8 := at(cur, x-1, y)
					p9 := at(cur, x-1, y-1)

					b := p2 + p3 + p4 + p5 + p6 + p7 + p8 + p9
					if b < 2 || b > 6 {
						continue
					}
					seq := []int{p2, p3, p4, p5, p6, p7, p8, p9, p2}
					a := 0
					for k := 0; k < 8; k++ {
						if seq[k] == 0 && seq[k+1] == 1 {
							a++
						}
					}
					if a != 1 {
						continue
					}
					if sub == 0 {
						if p2*p4*p6 != 0 || p4*p6*p8 != 0 {
							continue
						}
					} else {
						if p2*p4*p8 != 0 || p2*p6*p8 != 0 {
							continue
						}
					}
					deletions = append(deletions, i)
				}
			}
			for _, i := range deletions {
				cur[i] = false
			}
			if len(deletions) > 0 {
				changed = true
			}
		}
		if !changed {
			return cur
		}
	}
}

// uniformFilter is a mean filter over a size x size window with
// reflected borders.
func uniformFilter(data []float64, w, h, size int) []float64 {
	if size <= 1 {
		out := make([]float64, len(data))
		copy(out, data)
		return out
	}
	lo := -(size - 1) / 2
	hi := size / 2
	out := make([]float64, len(data))
	n := float64(size * size)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			acc := 0.0
			for dy := lo; dy <= hi; dy++ {
				for dx := lo; dx <= hi; dx++ {
					acc += data[reflect(y+dy, h)*w+reflect(x+dx, w)]
				}
			}
			out[y*w+x] = acc / n
		}
	}
	return out
}
