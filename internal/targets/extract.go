// Package targets turns a score raster into ranked candidate polygons
// with per-target evidence.
package targets

import (
	"math"
	"sort"

	"github.com/google/uuid"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/atlas-cli/internal/geodesy"
	"github.com/sells-group/atlas-cli/internal/model"
	"github.com/sells-group/atlas-cli/internal/raster"
	"github.com/sells-group/atlas-cli/internal/rasterize"
)

// Evidence layer names. The pipeline assembles these per mode.
const (
	LayerNDVI       = "ndvi"
	LayerNDWI       = "ndwi"
	LayerBSI        = "bsi"
	LayerSlope      = "slope"
	LayerDistCoast  = "dist_coast"
	LayerDistRiver  = "dist_river"
	LayerLineaments = "lineaments"
	LayerGeology    = "geology_mask"
)

// Layers maps evidence layer names to their rasters.
type Layers map[string]raster.Raster

// ResolveThreshold turns the extraction parameters into a concrete score
// cut value. Percentile thresholds are resolved against the non-NaN
// score distribution.
func ResolveThreshold(score raster.Raster, p model.ExtractParams) float64 {
	if p.ThresholdMethod == model.ThresholdMethodFixed {
		return p.FixedThreshold
	}
	return raster.NaNPercentile(score.Data, p.TargetPercentile)
}

// Extract thresholds the score raster, drops specks below the minimum
// area, vectorizes what remains and ranks the resulting targets by
// (mean score, area) descending. Distances are nil when the respective
// feature set is empty or holds no line segments. RunID is left for the
// caller to fill in.
func Extract(
	score raster.Raster,
	threshold, minAreaKM2 float64,
	mode model.Mode,
	layers Layers,
	thresholds map[string]float64,
	roads, rivers model.FeatureSet,
) ([]model.Target, error) {
	g := score.Grid
	mask := make([]bool, len(score.Data))
	for i, v := range score.Data {
		mask[i] = v >= threshold
	}

	pxArea := pixelAreaKM2(g)
	minPx := 1
	if pxArea > 0 {
		if px := int(minAreaKM2 / pxArea); px > minPx {
			minPx = px
		}
	}
	labels, n := label(mask, g.Width, g.Height)
	kept := removeSmall(labels, n, minPx)
	zap.L().Debug("targets: thresholded score",
		zap.Float64("threshold", threshold),
		zap.Int("components", n),
		zap.Int("kept", len(kept)),
		zap.Int("min_size_px", minPx))

	out := make([]model.Target, 0, len(kept))
	for _, l := range kept {
		poly := vectorize(labels, l, g)
		if poly == nil {
			continue
		}
		area := polygonAreaKM2(poly, g)
		if area < minAreaKM2 {
			continue
		}

		polyMask := rasterize.GeometryMask(poly, g)
		vals := maskedValues(score.Data, polyMask)
		if len(vals) == 0 {
			continue
		}
		lon, lat := geodesy.Centroid(poly)

		t := model.Target{
			ID:               uuid.NewString(),
			Geometry:         poly,
			AreaKM2:          area,
			CentroidLon:      lon,
			CentroidLat:      lat,
			MeanScore:        raster.NaNMean(vals),
			MaxScore:         raster.NaNMax(vals),
			DistanceToRoadM:  distanceToLines(poly, roads),
			DistanceToRiverM: distanceToLines(poly, rivers),
			Evidence:         computeEvidence(polyMask, layers, thresholds, mode),
		}
		t.EvidenceSummary = evidenceChips(t.Evidence, mode)
		out = append(out, t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MeanScore != out[j].MeanScore {
			return out[i].MeanScore > out[j].MeanScore
		}
		return out[i].AreaKM2 > out[j].AreaKM2
	})
	return out, nil
}

// polygonAreaKM2 is geodesic on geographic grids and planar otherwise.
func polygonAreaKM2(p *geom.Polygon, g raster.Grid) float64 {
	if g.Geographic() {
		return geodesy.PolygonAreaKM2(p)
	}
	return math.Abs(p.Area()) / 1e6
}

// distanceToLines returns the polygon-to-lines distance in meters, or
// nil when the feature set is empty or carries no line segments.
func distanceToLines(p *geom.Polygon, lines model.FeatureSet) *float64 {
	if lines.Empty() {
		return nil
	}
	d := geodesy.PolygonToLinesM(p, lines.Geoms)
	if math.IsInf(d, 1) {
		return nil
	}
	return &d
}

func maskedValues(data []float64, mask []bool) []float64 {
	var vals []float64
	for i, m := range mask {
		if m {
			vals = append(vals, data[i])
		}
	}
	return vals
}
