package dsp

import (
	"math"

	algofft "github.com/cwbudde/algo-fft"
)

// DirectLimit is the largest len(deg)*len(ref) product correlated directly.
// Larger inputs go through an FFT estimate.
const DirectLimit = 1 << 22

// fftTolerance is the band, relative to sqrt(E_deg*E_ref), inside which FFT
// correlation values are re-evaluated exactly. It is far above the float32
// round-off of the FFT convolution.
const fftTolerance = 1e-4

// Lags returns the lag axis of a full correlation of a degraded signal of
// length nDeg against a reference of length nRef: -(nRef-1) .. nDeg-1.
func Lags(nDeg, nRef int) []int {
	if nDeg <= 0 || nRef <= 0 {
		return nil
	}
	out := make([]int, nDeg+nRef-1)
	for i := range out {
		out[i] = i - (nRef - 1)
	}
	return out
}

// CrossCorrelate returns the full cross-correlation of deg against ref. Index i
// holds lag i-(len(ref)-1), whose value is sum(deg[n+lag] * ref[n]).
// Inputs above DirectLimit use FFT convolution and carry float32 round-off.
func CrossCorrelate(deg, ref []float32) []float64 {
	if len(deg) == 0 || len(ref) == 0 {
		return nil
	}
	if len(deg)*len(ref) <= DirectLimit {
		return correlateDirect(deg, ref)
	}
	out, err := correlateFFT(deg, ref)
	if err != nil {
		return correlateDirect(deg, ref)
	}
	return out
}

// ArgMax returns the index of the first maximum, -1 for an empty slice.
func ArgMax(x []float64) int {
	best := -1
	bestV := math.Inf(-1)
	for i, v := range x {
		if best < 0 || v > bestV {
			best = i
			bestV = v
		}
	}
	return best
}

// CorrelationLag returns the lag of the full cross-correlation maximum of deg
// against ref. Ties resolve to the lowest lag. The result is identical whether
// the correlation was computed directly or through the FFT: FFT candidates
// near the maximum are re-scored with the exact dot product.
func CorrelationLag(deg, ref []float32) int {
	if len(deg) == 0 || len(ref) == 0 {
		return 0
	}
	offset := len(ref) - 1
	if len(deg)*len(ref) <= DirectLimit {
		return ArgMax(correlateDirect(deg, ref)) - offset
	}

	approx, err := correlateFFT(deg, ref)
	if err != nil {
		return ArgMax(correlateDirect(deg, ref)) - offset
	}

	scale := math.Sqrt(energy(deg) * energy(ref))
	if scale == 0 {
		// Every lag correlates to exactly zero.
		return -offset
	}
	peak := approx[ArgMax(approx)]
	floor := peak - fftTolerance*scale

	best := -1
	bestV := math.Inf(-1)
	for i, v := range approx {
		if v < floor {
			continue
		}
		exact := dotAtLag(deg, ref, i-offset)
		if best < 0 || exact > bestV {
			best = i
			bestV = exact
		}
	}
	return best - offset
}

func correlateDirect(deg, ref []float32) []float64 {
	offset := len(ref) - 1
	out := make([]float64, len(deg)+len(ref)-1)
	for i := range out {
		out[i] = dotAtLag(deg, ref, i-offset)
	}
	return out
}

func correlateFFT(deg, ref []float32) ([]float64, error) {
	rev := make([]float32, len(ref))
	for i, v := range ref {
		rev[len(ref)-1-i] = v
	}
	conv := make([]float32, len(deg)+len(ref)-1)
	if err := algofft.ConvolveReal(conv, deg, rev); err != nil {
		return nil, err
	}
	out := make([]float64, len(conv))
	for i, v := range conv {
		out[i] = float64(v)
	}
	return out, nil
}

// dotAtLag computes sum(deg[n+lag] * ref[n]) over the overlapping range.
func dotAtLag(deg, ref []float32, lag int) float64 {
	n0 := 0
	if lag < 0 {
		n0 = -lag
	}
	n1 := len(ref)
	if len(deg)-lag < n1 {
		n1 = len(deg) - lag
	}
	var sum float64
	for n := n0; n < n1; n++ {
		sum += float64(deg[n+lag]) * float64(ref[n])
	}
	return sum
}

func energy(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return sum
}
