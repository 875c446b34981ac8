package scorer

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/atlas-cli/internal/model"
	"github.com/sells-group/atlas-cli/internal/raster"
)

// CoastalInputs are the co-registered feature rasters the coastal placer
// model consumes. Distances are in meters, slope in degrees.
type CoastalInputs struct {
	NDVI       raster.Raster
	NDWI       raster.Raster
	BSI        raster.Raster
	Slope      raster.Raster
	DistCoastM raster.Raster
	DistRiverM raster.Raster
}

// Coastal fuses the coastal placer sub-scores into one score raster.
// Five sub-scores are combined linearly, then open water is zeroed via
// the NDWI mask and the result is clipped to [0,1]. The returned
// metadata carries the weights and thresholds actually applied,
// including the BSI cut value resolved from the data.
func Coastal(in CoastalInputs, p model.CoastalParams) (raster.Raster, Metadata, error) {
	layers := []raster.Raster{in.NDWI, in.BSI, in.Slope, in.DistCoastM, in.DistRiverM}
	if err := raster.CheckAligned(in.NDVI.Grid, layers...); err != nil {
		return raster.Raster{}, Metadata{}, eris.Wrap(err, "scorer: coastal inputs misaligned")
	}

	coast := linearInverse(in.DistCoastM, p.CoastMaxM)
	slope := linearInverse(in.Slope, p.SlopeMax)
	bare := linearInverse(in.NDVI, p.NDVIMax)
	sand := raster.NormalizePercentile(in.BSI, p.BSIPercentile, 98)
	river := linearInverse(in.DistRiverM, p.RiverMaxM)

	bsiCut := raster.NaNPercentile(in.BSI.Data, p.BSIPercentile)

	score := make([]float64, len(coast.Data))
	w := p.Weights
	for i := range score {
		score[i] = coast.Data[i]*w.CoastalProximity +
			slope.Data[i]*w.Slope +
			bare.Data[i]*w.BareLand +
			sand.Data[i]*w.Sandiness +
			river.Data[i]*w.RiverProximity
	}
	applyWaterMask(score, in.NDWI, p.NDWIWaterMax)

	out := in.NDVI.WithData(score).Clip01()
	meta := Metadata{
		Mode: model.ModeCoastal,
		Weights: map[string]float64{
			"coastal_proximity": w.CoastalProximity,
			"slope":             w.Slope,
			"bare_land":         w.BareLand,
			"sandiness":         w.Sandiness,
			"river_proximity":   w.RiverProximity,
		},
		Thresholds: map[string]float64{
			"coast_max_m":      p.CoastMaxM,
			"slope_max":        p.SlopeMax,
			"ndvi_max":         p.NDVIMax,
			"bsi_percentile":   p.BSIPercentile,
			"river_max_m":      p.RiverMaxM,
			"ndwi_water_max":   p.NDWIWaterMax,
			ThresholdBSIValue:  bsiCut,
		},
	}
	zap.L().Debug("scorer: coastal score computed",
		zap.Float64(ThresholdBSIValue, bsiCut))
	return out, meta, nil
}
