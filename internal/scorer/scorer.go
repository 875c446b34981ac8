// Package scorer fuses feature rasters into a single prospectivity score
// in [0,1] per mode.
package scorer

import (
	"github.com/sells-group/atlas-cli/internal/model"
	"github.com/sells-group/atlas-cli/internal/raster"
)

// Metadata records the exact weights and thresholds a score raster was
// produced with, including thresholds resolved from the data itself
// (percentile cut values). It is persisted with the run so a score can
// be audited after the fact.
type Metadata struct {
	Mode       model.Mode         `json:"mode"`
	Weights    map[string]float64 `json:"weights"`
	Thresholds map[string]float64 `json:"thresholds"`
}

// Resolved threshold keys added by the scorers.
const (
	ThresholdBSIValue       = "bsi_threshold_value"
	ThresholdLineamentValue = "lineament_threshold_value"
)

// linearInverse maps 0 to 1 and max to 0, clipped to [0,1]. NaN input
// stays NaN.
func linearInverse(r raster.Raster, max float64) raster.Raster {
	return r.Map(func(v float64) float64 { return 1 - v/max }).Clip01()
}

// applyWaterMask multiplies the score by the binary land mask derived
// from NDWI: 1 where ndwi < waterMax, 0 elsewhere. A NaN NDWI sample
// fails the comparison and masks the pixel; a NaN score stays NaN.
func applyWaterMask(score []float64, ndwi raster.Raster, waterMax float64) {
	for i, v := range ndwi.Data {
		if !(v < waterMax) {
			score[i] *= 0
		}
	}
}
