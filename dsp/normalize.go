// Package dsp holds the signal primitives of the scoring pipeline: peak
// normalisation and cross-correlation.
package dsp

// Peak returns the largest absolute sample value, 0 for an empty signal.
func Peak(x []float32) float32 {
	var peak float32
	for _, s := range x {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// Normalize returns a copy of x scaled so its peak absolute value is 1.
// Silent and empty signals are copied unchanged.
func Normalize(x []float32) []float32 {
	out := make([]float32, len(x))
	peak := Peak(x)
	if peak <= 0 {
		copy(out, x)
		return out
	}
	for i, s := range x {
		out[i] = s / peak
	}
	return out
}
