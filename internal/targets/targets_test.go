package targets

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"

	"github.com/sells-group/atlas-cli/internal/model"
	"github.com/sells-group/atlas-cli/internal/raster"
	"github.com/sells-group/atlas-cli/internal/rasterize"
)

// testGrid covers [0,0.1]x[0,0.1] degrees near the equator with 10x10
// pixels, roughly 1.24 km2 per pixel.
func testGrid() raster.Grid {
	return raster.GridFromBounds(0, 0, 0.1, 0.1, 10, 10, raster.CRSWGS84)
}

func constLayers(g raster.Grid, vals map[string]float64) Layers {
	l := make(Layers, len(vals))
	for name, v := range vals {
		l[name] = raster.NewConst(g, v)
	}
	return l
}

func coastalThresholds() map[string]float64 {
	return map[string]float64{
		"slope_max":           5,
		"ndvi_max":            0.2,
		"bsi_threshold_value": 0.5,
		"coast_max_m":         30_000,
		"river_max_m":         10_000,
	}
}

func coastalLayers(g raster.Grid) Layers {
	return constLayers(g, map[string]float64{
		LayerNDVI:      0.1,
		LayerNDWI:      -0.3,
		LayerBSI:       0.6,
		LayerSlope:     2,
		LayerDistCoast: 5_000,
		LayerDistRiver: 2_000,
	})
}

func TestLabel_DiagonalPixelsAreSeparate(t *testing.T) {
	mask := make([]bool, 16)
	mask[0] = true  // (0,0)
	mask[5] = true  // (1,1)
	_, n := label(mask, 4, 4)
	assert.Equal(t, 2, n)
}

func TestLabel_ConnectedBlob(t *testing.T) {
	mask := make([]bool, 16)
	for _, i := range []int{1, 2, 5, 6, 9} {
		mask[i] = true
	}
	labels, n := label(mask, 4, 4)
	assert.Equal(t, 1, n)
	for _, i := range []int{1, 2, 5, 6, 9} {
		assert.Equal(t, 1, labels[i])
	}
}

func TestRemoveSmall(t *testing.T) {
	mask := make([]bool, 16)
	mask[0] = true // singleton
	for _, i := range []int{10, 11, 14, 15} {
		mask[i] = true // 2x2 blob
	}
	labels, n := label(mask, 4, 4)
	kept := removeSmall(labels, n, 2)
	require.Len(t, kept, 1)
	assert.Equal(t, 0, labels[0])
	assert.NotEqual(t, 0, labels[10])
}

func TestVectorize_SquareWithHole(t *testing.T) {
	g := raster.GridFromBounds(0, 0, 1, 1, 10, 10, raster.CRSWGS84)
	labels := make([]int, 100)
	for y := 2; y <= 4; y++ {
		for x := 2; x <= 4; x++ {
			labels[y*10+x] = 1
		}
	}
	labels[3*10+3] = 0 // hole

	poly := vectorize(labels, 1, g)
	require.NotNil(t, poly)
	assert.Equal(t, 2, poly.NumLinearRings())

	// Re-rasterizing the polygon recovers exactly the 8 member pixels.
	mask := rasterize.GeometryMask(poly, g)
	count := 0
	for _, m := range mask {
		if m {
			count++
		}
	}
	assert.Equal(t, 8, count)
	assert.False(t, mask[3*10+3])
	assert.True(t, mask[2*10+2])
}

func TestVectorize_EmptyLabel(t *testing.T) {
	g := raster.GridFromBounds(0, 0, 1, 1, 4, 4, raster.CRSWGS84)
	assert.Nil(t, vectorize(make([]int, 16), 1, g))
}

func TestExtract_SpeckBelowMinAreaDropped(t *testing.T) {
	g := testGrid()
	score := raster.NewConst(g, 0)
	// 2x2 blob of high score, roughly 4.9 km2.
	for _, i := range []int{4*10 + 4, 4*10 + 5, 5*10 + 4, 5*10 + 5} {
		score.Data[i] = 0.9
	}
	got, err := Extract(score, 0.5, 10.0, model.ModeCoastal,
		coastalLayers(g), coastalThresholds(), model.FeatureSet{}, model.FeatureSet{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExtract_SingleTarget(t *testing.T) {
	g := testGrid()
	score := raster.NewConst(g, 0)
	for y := 2; y < 6; y++ {
		for x := 2; x < 6; x++ {
			score.Data[y*10+x] = 0.9
		}
	}
	got, err := Extract(score, 0.5, 1.0, model.ModeCoastal,
		coastalLayers(g), coastalThresholds(), model.FeatureSet{}, model.FeatureSet{})
	require.NoError(t, err)
	require.Len(t, got, 1)

	tg := got[0]
	assert.InDelta(t, 0.9, tg.MeanScore, 1e-12)
	assert.InDelta(t, 0.9, tg.MaxScore, 1e-12)
	// 16 pixels of ~1.24 km2.
	assert.InDelta(t, 19.8, tg.AreaKM2, 0.5)
	assert.InDelta(t, 0.04, tg.CentroidLon, 1e-6)
	assert.InDelta(t, 0.06, tg.CentroidLat, 1e-6)
	assert.Nil(t, tg.DistanceToRoadM)
	assert.Nil(t, tg.DistanceToRiverM)
	assert.NotEmpty(t, tg.ID)
	assert.NotEmpty(t, tg.Evidence)
	assert.NotEmpty(t, tg.EvidenceSummary)

	// Constant layers: every coastal percentage metric saturates except
	// sandiness (0.6 >= 0.5 holds too), so all pcts are 1.
	assert.Equal(t, 1.0, tg.Evidence["pct_near_coast"])
	assert.Equal(t, 1.0, tg.Evidence["pct_high_bsi"])
	assert.InDelta(t, 0.1, tg.Evidence["ndvi_mean"], 1e-12)
}

func TestExtract_SortedByMeanThenArea(t *testing.T) {
	g := testGrid()
	score := raster.NewConst(g, 0)
	// Low-mean larger blob.
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			score.Data[y*10+x] = 0.6
		}
	}
	// High-mean smaller blob.
	for y := 7; y < 9; y++ {
		for x := 7; x < 9; x++ {
			score.Data[y*10+x] = 0.95
		}
	}
	got, err := Extract(score, 0.5, 1.0, model.ModeCoastal,
		coastalLayers(g), coastalThresholds(), model.FeatureSet{}, model.FeatureSet{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Greater(t, got[0].MeanScore, got[1].MeanScore)
}

func TestExtract_NaNScoreNeverSelected(t *testing.T) {
	g := testGrid()
	score := raster.NewConst(g, math.NaN())
	got, err := Extract(score, 0.5, 1.0, model.ModeCoastal,
		coastalLayers(g), coastalThresholds(), model.FeatureSet{}, model.FeatureSet{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExtract_DistanceToNearbyRiver(t *testing.T) {
	g := testGrid()
	score := raster.NewConst(g, 0)
	for y := 2; y < 6; y++ {
		for x := 2; x < 6; x++ {
			score.Data[y*10+x] = 0.9
		}
	}
	rivers := model.FeatureSet{CRS: raster.CRSWGS84, Geoms: []geom.T{
		geom.NewLineStringFlat(geom.XY, []float64{0, 0.06, 0.1, 0.06}),
	}}
	got, err := Extract(score, 0.5, 1.0, model.ModeCoastal,
		coastalLayers(g), coastalThresholds(), model.FeatureSet{}, rivers)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].DistanceToRiverM)
	// The river crosses the target polygon.
	assert.Equal(t, 0.0, *got[0].DistanceToRiverM)
}

func TestResolveThreshold(t *testing.T) {
	g := raster.GridFromBounds(0, 0, 1, 1, 2, 2, raster.CRSWGS84)
	r := raster.NewConst(g, 0)
	r.Data = []float64{0, 0.25, 0.5, 1}

	fixed := model.ExtractParams{ThresholdMethod: model.ThresholdMethodFixed, FixedThreshold: 0.7}
	assert.Equal(t, 0.7, ResolveThreshold(r, fixed))

	pct := model.ExtractParams{ThresholdMethod: model.ThresholdMethodPercentile, TargetPercentile: 50}
	assert.InDelta(t, 0.375, ResolveThreshold(r, pct), 1e-12)
}

func TestEvidenceChips_TopThreePositive(t *testing.T) {
	ev := map[string]float64{
		"pct_near_coast": 0.8,
		"pct_low_slope":  0.6,
		"pct_low_ndvi":   0.4,
		"pct_high_bsi":   0.9,
		"pct_near_river": 0.1,
	}
	chips := evidenceChips(ev, model.ModeCoastal)
	assert.Equal(t, []string{
		"High sandiness (BSI top 30%)",
		"Near coastline (<30 km)",
		"Low slope (<=5°)",
	}, chips)
}

func TestEvidenceChips_ZeroMetricsExcluded(t *testing.T) {
	chips := evidenceChips(map[string]float64{"pct_near_coast": 0.2}, model.ModeCoastal)
	assert.Equal(t, []string{"Near coastline (<30 km)"}, chips)
}

func TestEvidenceChips_LithologyOnlyWhenMatched(t *testing.T) {
	base := map[string]float64{
		"pct_lineament_high": 0.5,
		"pct_relief":         0.4,
		"pct_low_ndvi":       0.3,
		"pct_geology_match":  0,
	}
	chips := evidenceChips(base, model.ModeHardrock)
	assert.NotContains(t, chips, "Favorable lithology match")

	base["pct_geology_match"] = 0.9
	chips = evidenceChips(base, model.ModeHardrock)
	assert.Contains(t, chips, "Favorable lithology match")
	assert.Equal(t, "Favorable lithology match", chips[0])
}

func TestComputeEvidence_NaNCountsInDenominator(t *testing.T) {
	g := raster.GridFromBounds(0, 0, 1, 1, 2, 2, raster.CRSWGS84)
	layers := coastalLayers(g)
	ndvi := raster.NewConst(g, 0.1)
	ndvi.Data[0] = math.NaN()
	layers[LayerNDVI] = ndvi

	mask := []bool{true, true, true, true}
	ev := computeEvidence(mask, layers, coastalThresholds(), model.ModeCoastal)
	// 3 of 4 pixels pass ndvi <= 0.2; the NaN fails but still counts.
	assert.InDelta(t, 0.75, ev["pct_low_ndvi"], 1e-12)
	assert.InDelta(t, 0.1, ev["ndvi_mean"], 1e-12)
}
