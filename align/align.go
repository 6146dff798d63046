// Package align corrects the time offset between a reference recording and a
// degraded capture of the same audio.
//
// A single cross-correlation lag is estimated for the whole signal. Clock
// drift between the two captures is not corrected; long recordings with a
// drifting clock stay misaligned towards their end.
package align

import (
	"slices"

	"github.com/cwbudde/algo-mos/dsp"
)

// Result is a time-aligned, length-matched signal pair.
type Result struct {
	Reference []float32
	Degraded  []float32
	// Lag is the estimated shift of the degraded signal relative to the
	// reference. Positive: degraded trimmed from the front. Zero or negative:
	// reference trimmed by |Lag|.
	Lag int
}

// EstimateLag returns the lag at the first maximum of the full
// cross-correlation of deg against ref.
func EstimateLag(ref, deg []float32) int {
	return dsp.CorrelationLag(deg, ref)
}

// Align shifts one signal by the estimated lag and truncates both to their
// common length. An empty input returns both signals unchanged with lag 0.
func Align(ref, deg []float32) Result {
	if len(ref) == 0 || len(deg) == 0 {
		return Result{Reference: ref, Degraded: deg}
	}

	return ByLag(ref, deg, EstimateLag(ref, deg))
}

// ByLag applies a known lag with the same trimming rules as Align. Lags
// outside the signals yield an empty pair.
func ByLag(ref, deg []float32, lag int) Result {
	r, d := ref, deg
	if lag > 0 {
		if lag >= len(d) {
			return Result{Lag: lag}
		}
		d = d[lag:]
	} else {
		if -lag >= len(r) {
			return Result{Lag: lag}
		}
		r = r[-lag:]
	}
	n := min(len(r), len(d))
	return Result{
		Reference: slices.Clone(r[:n]),
		Degraded:  slices.Clone(d[:n]),
		Lag:       lag,
	}
}
