package targets

import (
	"sort"

	"github.com/sells-group/atlas-cli/internal/model"
	"github.com/sells-group/atlas-cli/internal/raster"
)

// computeEvidence summarizes the evidence layers over one target's pixel
// mask. Percentage metrics count the fraction of masked pixels passing
// the comparison over all masked pixels; a NaN sample fails every
// comparison but still counts in the denominator.
func computeEvidence(mask []bool, layers Layers, thresholds map[string]float64, mode model.Mode) map[string]float64 {
	mean := func(name string) float64 {
		return raster.NaNMean(maskedValues(layers[name].Data, mask))
	}
	pct := func(name string, pass func(v float64) bool) float64 {
		vals := maskedValues(layers[name].Data, mask)
		if len(vals) == 0 {
			return 0
		}
		hits := 0
		for _, v := range vals {
			if pass(v) {
				hits++
			}
		}
		return float64(hits) / float64(len(vals))
	}

	if mode == model.ModeCoastal {
		return map[string]float64{
			"ndvi_mean":         mean(LayerNDVI),
			"ndwi_mean":         mean(LayerNDWI),
			"bsi_mean":          mean(LayerBSI),
			"slope_mean":        mean(LayerSlope),
			"dist_coast_mean_m": mean(LayerDistCoast),
			"dist_river_mean_m": mean(LayerDistRiver),
			"pct_low_slope":     pct(LayerSlope, func(v float64) bool { return v <= thresholds["slope_max"] }),
			"pct_low_ndvi":      pct(LayerNDVI, func(v float64) bool { return v <= thresholds["ndvi_max"] }),
			"pct_high_bsi":      pct(LayerBSI, func(v float64) bool { return v >= thresholds["bsi_threshold_value"] }),
			"pct_near_coast":    pct(LayerDistCoast, func(v float64) bool { return v <= thresholds["coast_max_m"] }),
			"pct_near_river":    pct(LayerDistRiver, func(v float64) bool { return v <= thresholds["river_max_m"] }),
		}
	}

	ev := map[string]float64{
		"ndvi_mean":      mean(LayerNDVI),
		"ndwi_mean":      mean(LayerNDWI),
		"slope_mean":     mean(LayerSlope),
		"lineament_mean": mean(LayerLineaments),
		"pct_relief": pct(LayerSlope, func(v float64) bool {
			return v >= thresholds["slope_min"] && v <= thresholds["slope_max"]
		}),
		"pct_lineament_high": pct(LayerLineaments, func(v float64) bool {
			return v >= thresholds["lineament_threshold_value"]
		}),
		"pct_low_ndvi": pct(LayerNDVI, func(v float64) bool { return v <= thresholds["ndvi_max"] }),
	}
	if _, ok := layers[LayerGeology]; ok {
		ev["geology_mask_mean"] = mean(LayerGeology)
		ev["pct_geology_match"] = pct(LayerGeology, func(v float64) bool { return v >= 0.5 })
	} else {
		ev["geology_mask_mean"] = 0
		ev["pct_geology_match"] = 0
	}
	return ev
}

// evidenceChips renders the top supporting evidence as short labels: the
// three strongest positive percentage metrics, strongest first. Ties
// keep the listed order.
func evidenceChips(evidence map[string]float64, mode model.Mode) []string {
	type chip struct {
		label string
		value float64
	}
	var candidates []chip
	if mode == model.ModeCoastal {
		candidates = []chip{
			{"Near coastline (<30 km)", evidence["pct_near_coast"]},
			{"Low slope (<=5°)", evidence["pct_low_slope"]},
			{"Low vegetation (NDVI<=0.2)", evidence["pct_low_ndvi"]},
			{"High sandiness (BSI top 30%)", evidence["pct_high_bsi"]},
			{"Near rivers", evidence["pct_near_river"]},
		}
	} else {
		candidates = []chip{
			{"High lineament density", evidence["pct_lineament_high"]},
			{"Moderate relief (2–25°)", evidence["pct_relief"]},
			{"Low vegetation (NDVI<=0.4)", evidence["pct_low_ndvi"]},
		}
		if evidence["pct_geology_match"] > 0 {
			candidates = append(candidates, chip{"Favorable lithology match", evidence["pct_geology_match"]})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].value > candidates[j].value
	})
	chips := make([]string, 0, 3)
	for _, c := range candidates {
		if len(chips) == 3 {
			break
		}
		if c.value > 0 {
			chips = append(chips, c.label)
		}
	}
	return chips
}
