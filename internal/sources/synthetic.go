package sources

import (
	"context"
	"math"
	"math/rand"

	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/atlas-cli/internal/model"
	"github.com/sells-group/atlas-cli/internal/raster"
	"github.com/sells-group/atlas-cli/internal/spectral"
)

// DefaultSyntheticSeed keeps synthetic runs reproducible across hosts.
const DefaultSyntheticSeed = 42

// SyntheticImagery generates a deterministic multi-band composite over
// the AOI bounds: a smooth trigonometric base pattern plus seeded
// Gaussian noise, scaled per band.
type SyntheticImagery struct {
	Width  int
	Height int
	Seed   int64
}

// NewSyntheticImagery returns a 256x256 synthetic source with the
// default seed.
func NewSyntheticImagery() SyntheticImagery {
	return SyntheticImagery{Width: 256, Height: 256, Seed: DefaultSyntheticSeed}
}

// bandScales holds per-band (scale, bias) applied to the shared base
// pattern, ordered as spectral.RequiredBands.
var bandScales = map[string][2]float64{
	spectral.BandBlue:  {0.6, 0.10},
	spectral.BandGreen: {0.7, 0.10},
	spectral.BandRed:   {0.8, 0.05},
	spectral.BandNIR:   {0.9, 0.02},
	spectral.BandSWIR:  {0.7, 0.08},
}

// FetchComposite builds the synthetic composite. The grid covers the
// AOI's bounding box in EPSG:4326.
func (s SyntheticImagery) FetchComposite(_ context.Context, aoi *geom.Polygon, _ model.TimeRange) (*spectral.Composite, error) {
	b := aoi.Bounds()
	g := raster.GridFromBounds(b.Min(0), b.Min(1), b.Max(0), b.Max(1), s.Width, s.Height, raster.CRSWGS84)

	n := s.Width * s.Height
	base := make([]float64, n)
	for row := 0; row < s.Height; row++ {
		for col := 0; col < s.Width; col++ {
			x, y := g.PixelToWorld(float64(col)+0.5, float64(row)+0.5)
			base[row*s.Width+col] = (math.Sin(x*10)+math.Cos(y*10))*0.5 + 0.5
		}
	}
	// One noise field shared by all bands.
	rng := rand.New(rand.NewSource(s.Seed))
	noise := make([]float64, n)
	for i := range noise {
		noise[i] = rng.NormFloat64() * 0.05
	}

	bands := make(map[string]raster.Raster, len(spectral.RequiredBands))
	for _, name := range spectral.RequiredBands {
		sc := bandScales[name]
		data := make([]float64, n)
		for i := range data {
			v := base[i]*sc[0] + sc[1] + noise[i]
			data[i] = math.Max(0, math.Min(1, v))
		}
		bands[name] = raster.Raster{Grid: g}.WithData(data)
	}
	zap.L().Debug("sources: generated synthetic composite",
		zap.Int("width", s.Width), zap.Int("height", s.Height))
	return &spectral.Composite{Grid: g, Bands: bands}, nil
}

// SyntheticTerrain generates a deterministic tilted-plane DEM on the
// reference grid: elevation grows east at 10 units per degree and north
// at 5, so slope and hillshade have structure without external data.
type SyntheticTerrain struct{}

// FetchDEM builds the synthetic DEM.
func (SyntheticTerrain) FetchDEM(_ context.Context, ref raster.Grid) (raster.Raster, error) {
	minX, minY, _, _ := ref.Bounds()
	data := make([]float64, ref.Width*ref.Height)
	for row := 0; row < ref.Height; row++ {
		for col := 0; col < ref.Width; col++ {
			x, y := ref.PixelToWorld(float64(col)+0.5, float64(row)+0.5)
			data[row*ref.Width+col] = (x-minX)*10 + (y-minY)*5
		}
	}
	return raster.Raster{Grid: ref}.WithData(data), nil
}

// StaticInfrastructure serves fixed feature sets, for offline runs and
// tests.
type StaticInfrastructure struct {
	Lines InfrastructureLines
}

// FetchLines returns the fixed sets.
func (s StaticInfrastructure) FetchLines(context.Context, float64, float64, float64, float64) (InfrastructureLines, error) {
	return s.Lines, nil
}
