package scorer

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/atlas-cli/internal/model"
	"github.com/sells-group/atlas-cli/internal/raster"
)

// HardrockInputs are the co-registered feature rasters the hardrock /
// carbonatite model consumes. GeologyMask is nil when no geology layer
// is available; the remaining weights are rescaled to sum to their own
// total so the score range is preserved.
type HardrockInputs struct {
	NDVI        raster.Raster
	NDWI        raster.Raster
	Slope       raster.Raster
	Lineaments  raster.Raster
	GeologyMask *raster.Raster
}

// Hardrock fuses the hardrock sub-scores into one score raster. The
// returned metadata carries the weights actually applied (rescaled when
// geology is missing) and the lineament cut value resolved from the
// data.
func Hardrock(in HardrockInputs, p model.HardrockParams) (raster.Raster, Metadata, error) {
	layers := []raster.Raster{in.NDWI, in.Slope, in.Lineaments}
	if in.GeologyMask != nil {
		layers = append(layers, *in.GeologyMask)
	}
	if err := raster.CheckAligned(in.NDVI.Grid, layers...); err != nil {
		return raster.Raster{}, Metadata{}, eris.Wrap(err, "scorer: hardrock inputs misaligned")
	}

	lineament := raster.NormalizePercentile(in.Lineaments, p.LineamentPercentile, 98)
	lineamentCut := raster.NaNPercentile(in.Lineaments.Data, p.LineamentPercentile)

	relief := in.Slope.Map(func(v float64) float64 {
		if v >= p.SlopeMin && v <= p.SlopeMax {
			return 1
		}
		return 0
	})
	exposure := linearInverse(in.NDVI, p.NDVIMax)

	w := p.Weights
	wLine, wRelief, wExposure, wGeo := w.Lineaments, w.Relief, w.Exposure, w.GeologyBoost
	if in.GeologyMask == nil {
		total := wLine + wRelief + wExposure
		wLine /= total
		wRelief /= total
		wExposure /= total
		wGeo = 0
		zap.L().Debug("scorer: no geology layer, rescaled hardrock weights",
			zap.Float64("lineaments", wLine),
			zap.Float64("relief", wRelief),
			zap.Float64("exposure", wExposure))
	}

	score := make([]float64, len(lineament.Data))
	for i := range score {
		score[i] = lineament.Data[i]*wLine + relief.Data[i]*wRelief + exposure.Data[i]*wExposure
		if in.GeologyMask != nil {
			score[i] += in.GeologyMask.Data[i] * wGeo
		}
	}
	applyWaterMask(score, in.NDWI, p.NDWIWaterMax)

	out := in.NDVI.WithData(score).Clip01()
	meta := Metadata{
		Mode: model.ModeHardrock,
		Weights: map[string]float64{
			"lineaments":    wLine,
			"relief":        wRelief,
			"exposure":      wExposure,
			"geology_boost": wGeo,
		},
		Thresholds: map[string]float64{
			"lineament_percentile":  p.LineamentPercentile,
			"slope_min":             p.SlopeMin,
			"slope_max":             p.SlopeMax,
			"ndvi_max":              p.NDVIMax,
			"ndwi_water_max":        p.NDWIWaterMax,
			ThresholdLineamentValue: lineamentCut,
		},
	}
	return out, meta, nil
}
