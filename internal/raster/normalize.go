package raster

// NormalizePercentile rescales the raster so the value at the low
// percentile maps to 0 and the value at the high percentile maps to 1,
// clipped to [0,1]. Missing data (NaN) is ignored when locating the
// percentile values and propagates through the output. A degenerate
// raster whose two percentile values coincide normalizes to all-zero;
// that is a documented sentinel, not an error.
func NormalizePercentile(r Raster, pLow, pHigh float64) Raster {
	lo := NaNPercentile(r.Data, pLow)
	hi := NaNPercentile(r.Data, pHigh)
	if hi-lo == 0 {
		return NewConst(r.Grid, 0)
	}
	out := make([]float64, len(r.Data))
	span := hi - lo
	for i, v := range r.Data {
		out[i] = (v - lo) / span
	}
	return r.WithData(out).Clip01()
}

// NormalizeMinMax rescales the raster so its non-NaN minimum maps to 0
// and maximum to 1, with the same degenerate all-zero rule.
func NormalizeMinMax(r Raster) Raster {
	return NormalizePercentile(r, 0, 100)
}
