package model

// Threshold methods for target extraction.
const (
	ThresholdMethodPercentile = "percentile"
	ThresholdMethodFixed      = "fixed"
)

// CoastalWeights are the linear combination weights of the coastal placer
// sub-scores. They are applied as given; callers own any normalization.
type CoastalWeights struct {
	CoastalProximity float64 `json:"coastal_proximity" yaml:"coastal_proximity" mapstructure:"coastal_proximity"`
	Slope            float64 `json:"slope" yaml:"slope" mapstructure:"slope"`
	BareLand         float64 `json:"bare_land" yaml:"bare_land" mapstructure:"bare_land"`
	Sandiness        float64 `json:"sandiness" yaml:"sandiness" mapstructure:"sandiness"`
	RiverProximity   float64 `json:"river_proximity" yaml:"river_proximity" mapstructure:"river_proximity"`
}

// CoastalParams holds every threshold and weight of the coastal placer
// model. All defaults are explicit; nothing is implied downstream.
type CoastalParams struct {
	CoastMaxM     float64        `json:"coast_max_m" yaml:"coast_max_m" mapstructure:"coast_max_m"`
	SlopeMax      float64        `json:"slope_max" yaml:"slope_max" mapstructure:"slope_max"`
	NDVIMax       float64        `json:"ndvi_max" yaml:"ndvi_max" mapstructure:"ndvi_max"`
	BSIPercentile float64        `json:"bsi_percentile" yaml:"bsi_percentile" mapstructure:"bsi_percentile"`
	RiverMaxM     float64        `json:"river_max_m" yaml:"river_max_m" mapstructure:"river_max_m"`
	NDWIWaterMax  float64        `json:"ndwi_water_max" yaml:"ndwi_water_max" mapstructure:"ndwi_water_max"`
	Weights       CoastalWeights `json:"weights" yaml:"weights" mapstructure:"weights"`
}

// DefaultCoastalParams returns the calibrated coastal placer defaults.
func DefaultCoastalParams() CoastalParams {
	return CoastalParams{
		CoastMaxM:     30_000,
		SlopeMax:      5.0,
		NDVIMax:       0.2,
		BSIPercentile: 70,
		RiverMaxM:     10_000,
		NDWIWaterMax:  0.1,
		Weights: CoastalWeights{
			CoastalProximity: 0.30,
			Slope:            0.20,
			BareLand:         0.20,
			Sandiness:        0.20,
			RiverProximity:   0.10,
		},
	}
}

// HardrockWeights are the linear combination weights of the hardrock /
// carbonatite sub-scores.
type HardrockWeights struct {
	Lineaments   float64 `json:"lineaments" yaml:"lineaments" mapstructure:"lineaments"`
	Relief       float64 `json:"relief" yaml:"relief" mapstructure:"relief"`
	Exposure     float64 `json:"exposure" yaml:"exposure" mapstructure:"exposure"`
	GeologyBoost float64 `json:"geology_boost" yaml:"geology_boost" mapstructure:"geology_boost"`
}

// HardrockParams holds every threshold and weight of the hardrock model.
type HardrockParams struct {
	LineamentPercentile float64         `json:"lineament_percentile" yaml:"lineament_percentile" mapstructure:"lineament_percentile"`
	SlopeMin            float64         `json:"slope_min" yaml:"slope_min" mapstructure:"slope_min"`
	SlopeMax            float64         `json:"slope_max" yaml:"slope_max" mapstructure:"slope_max"`
	NDVIMax             float64         `json:"ndvi_max" yaml:"ndvi_max" mapstructure:"ndvi_max"`
	NDWIWaterMax        float64         `json:"ndwi_water_max" yaml:"ndwi_water_max" mapstructure:"ndwi_water_max"`
	Weights             HardrockWeights `json:"weights" yaml:"weights" mapstructure:"weights"`
}

// DefaultHardrockParams returns the calibrated hardrock defaults.
func DefaultHardrockParams() HardrockParams {
	return HardrockParams{
		LineamentPercentile: 70,
		SlopeMin:            2.0,
		SlopeMax:            25.0,
		NDVIMax:             0.4,
		NDWIWaterMax:        0.1,
		Weights: HardrockWeights{
			Lineaments:   0.45,
			Relief:       0.20,
			Exposure:     0.20,
			GeologyBoost: 0.15,
		},
	}
}

// ExtractParams configures target extraction.
type ExtractParams struct {
	ThresholdMethod  string  `json:"threshold_method" yaml:"threshold_method" mapstructure:"threshold_method"`
	TargetPercentile float64 `json:"target_percentile" yaml:"target_percentile" mapstructure:"target_percentile"`
	FixedThreshold   float64 `json:"fixed_threshold" yaml:"fixed_threshold" mapstructure:"fixed_threshold"`
	MinAreaKM2       float64 `json:"min_area_km2" yaml:"min_area_km2" mapstructure:"min_area_km2"`
}

// DefaultExtractParams returns the extraction defaults: the 95th score
// percentile threshold and a 0.1 km2 minimum area.
func DefaultExtractParams() ExtractParams {
	return ExtractParams{
		ThresholdMethod:  ThresholdMethodPercentile,
		TargetPercentile: 95,
		FixedThreshold:   0.7,
		MinAreaKM2:       0.1,
	}
}
