// Package spectral derives the normalized-difference indices the scorers
// consume from a co-registered multi-band optical composite.
package spectral

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/atlas-cli/internal/raster"
)

// Sentinel-2 band names the engine consumes.
const (
	BandBlue  = "B2"
	BandGreen = "B3"
	BandRed   = "B4"
	BandNIR   = "B8"
	BandSWIR  = "B11"
)

// RequiredBands lists the bands a composite must carry, in the order
// they are staged.
var RequiredBands = []string{BandBlue, BandGreen, BandRed, BandNIR, BandSWIR}

// Composite is a co-registered multi-band raster.
type Composite struct {
	Grid  raster.Grid
	Bands map[string]raster.Raster
}

// Band returns the named band or an error naming what is missing.
func (c *Composite) Band(name string) (raster.Raster, error) {
	b, ok := c.Bands[name]
	if !ok {
		return raster.Raster{}, eris.Errorf("spectral: composite is missing band %s", name)
	}
	return b, nil
}

// Indices holds the three spectral index layers.
type Indices struct {
	NDVI raster.Raster
	NDWI raster.Raster
	BSI  raster.Raster
}

// ComputeIndices derives NDVI, NDWI and BSI from the composite.
// Division by a zero denominator produces NaN, which propagates through
// scoring as missing data rather than aborting the run.
func ComputeIndices(c *Composite) (Indices, error) {
	var bands [5]raster.Raster
	for i, name := range RequiredBands {
		b, err := c.Band(name)
		if err != nil {
			return Indices{}, err
		}
		if err := raster.CheckAligned(c.Grid, b); err != nil {
			return Indices{}, err
		}
		bands[i] = b
	}
	blue, green, red, nir, swir := bands[0], bands[1], bands[2], bands[3], bands[4]

	n := len(nir.Data)
	ndvi := make([]float64, n)
	ndwi := make([]float64, n)
	bsi := make([]float64, n)
	for i := 0; i < n; i++ {
		ndvi[i] = (nir.Data[i] - red.Data[i]) / (nir.Data[i] + red.Data[i])
		ndwi[i] = (green.Data[i] - nir.Data[i]) / (green.Data[i] + nir.Data[i])
		num := (swir.Data[i] + red.Data[i]) - (nir.Data[i] + blue.Data[i])
		den := (swir.Data[i] + red.Data[i]) + (nir.Data[i] + blue.Data[i])
		bsi[i] = num / den
	}

	ref := raster.Raster{Grid: c.Grid}
	return Indices{
		NDVI: ref.WithData(ndvi),
		NDWI: ref.WithData(ndwi),
		BSI:  ref.WithData(bsi),
	}, nil
}
