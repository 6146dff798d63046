package dsp

import (
	"math/rand"
	"testing"
)

func TestLags(t *testing.T) {
	got := Lags(3, 2)
	want := []int{-1, 0, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Lags[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if Lags(0, 4) != nil {
		t.Fatalf("expected nil lags for empty input")
	}
}

func TestCrossCorrelateMatchesHandComputed(t *testing.T) {
	deg := []float32{1, 2, 3}
	ref := []float32{0, 1, 0.5}
	// lag -2: deg[0]*ref[2]
	// lag -1: deg[0]*ref[1] + deg[1]*ref[2]
	// lag  0: deg[0]*ref[0] + deg[1]*ref[1] + deg[2]*ref[2]
	// lag  1: deg[1]*ref[0] + deg[2]*ref[1]
	// lag  2: deg[2]*ref[0]
	want := []float64{0.5, 2, 3.5, 3, 0}
	got := CrossCorrelate(deg, ref)
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("corr[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestArgMaxFirstOccurrenceWins(t *testing.T) {
	if got := ArgMax([]float64{1, 5, 2, 5, 5}); got != 1 {
		t.Fatalf("ArgMax = %d, want 1", got)
	}
	if got := ArgMax(nil); got != -1 {
		t.Fatalf("ArgMax(nil) = %d, want -1", got)
	}
	if got := ArgMax([]float64{0, 0, 0}); got != 0 {
		t.Fatalf("ArgMax(zeros) = %d, want 0", got)
	}
}

func TestCorrelationLagKnownShift(t *testing.T) {
	ref := randomSignal(2000, 5)
	const shift = 37
	deg := make([]float32, len(ref)+shift)
	copy(deg[shift:], ref)
	if got := CorrelationLag(deg, ref); got != shift {
		t.Fatalf("CorrelationLag = %d, want %d", got, shift)
	}
}

func TestCorrelationLagNegativeShift(t *testing.T) {
	ref := randomSignal(2000, 17)
	const shift = 52
	deg := append([]float32(nil), ref[shift:]...)
	if got := CorrelationLag(deg, ref); got != -shift {
		t.Fatalf("CorrelationLag = %d, want %d", got, -shift)
	}
}

func TestCorrelationLagSilenceIsLowestLag(t *testing.T) {
	deg := make([]float32, 10)
	ref := make([]float32, 4)
	if got := CorrelationLag(deg, ref); got != -3 {
		t.Fatalf("CorrelationLag(silence) = %d, want -3", got)
	}
}

func TestCorrelationLagFFTMatchesDirect(t *testing.T) {
	const (
		n     = 4096
		m     = 2048
		shift = 443
	)
	ref := randomSignal(m, 23)
	deg := make([]float32, n)
	copy(deg[shift:], ref)
	noise := rand.New(rand.NewSource(99))
	for i := range deg {
		deg[i] += 0.05 * float32(noise.Float64()-0.5)
	}
	if n*m <= DirectLimit {
		t.Fatalf("test inputs must exceed DirectLimit")
	}

	got := CorrelationLag(deg, ref)
	want := ArgMax(correlateDirect(deg, ref)) - (m - 1)
	if got != want {
		t.Fatalf("fft lag = %d, direct lag = %d", got, want)
	}
	if got != shift {
		t.Fatalf("fft lag = %d, want %d", got, shift)
	}
}

func TestCorrelationLagFFTTieBreak(t *testing.T) {
	const (
		m   = 2100
		gap = 100
	)
	ref := randomSignal(m, 41)
	deg := make([]float32, 0, 2*m+gap)
	deg = append(deg, ref...)
	deg = append(deg, make([]float32, gap)...)
	deg = append(deg, ref...)
	if len(deg)*len(ref) <= DirectLimit {
		t.Fatalf("test inputs must exceed DirectLimit")
	}
	// Lags 0 and m+gap correlate to bit-identical values; the lower one wins.
	if dotAtLag(deg, ref, 0) != dotAtLag(deg, ref, m+gap) {
		t.Fatalf("fixture does not produce an exact tie")
	}
	for i := 0; i < 3; i++ {
		if got := CorrelationLag(deg, ref); got != 0 {
			t.Fatalf("run %d: CorrelationLag = %d, want 0", i, got)
		}
	}
}

func TestCrossCorrelateFFTCloseToDirect(t *testing.T) {
	ref := randomSignal(2048, 31)
	deg := randomSignal(4096, 37)
	got := CrossCorrelate(deg, ref)
	want := correlateDirect(deg, ref)
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if d := got[i] - want[i]; d > 0.1 || d < -0.1 {
			t.Fatalf("corr[%d] = %v, direct %v", i, got[i], want[i])
		}
	}
}

func randomSignal(n int, seed int64) []float32 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(rng.Float64()*2 - 1)
	}
	return out
}
