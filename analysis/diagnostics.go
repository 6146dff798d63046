// Package analysis computes objective distances between an aligned reference
// and degraded pair. They complement the perceptual score; nothing here
// feeds into the MOS.
package analysis

import "math"

const (
	envFrame    = 320 // 20 ms at 16 kHz
	envHop      = 160
	maxSpecSize = 2048
	floorDB     = -120.0
)

// Diagnostics describes how far a degraded signal is from its reference.
type Diagnostics struct {
	Samples        int     `json:"samples" yaml:"samples"`
	TimeRMSE       float64 `json:"time_rmse" yaml:"time_rmse"`
	SNRDB          float64 `json:"snr_db" yaml:"snr_db"`
	LevelDiffDB    float64 `json:"level_diff_db" yaml:"level_diff_db"`
	EnvelopeRMSEDB float64 `json:"envelope_rmse_db" yaml:"envelope_rmse_db"`
	SpectralRMSEDB float64 `json:"spectral_rmse_db" yaml:"spectral_rmse_db"`
}

// Diagnose compares two aligned signals over their common length.
func Diagnose(reference, degraded []float32) Diagnostics {
	n := min(len(reference), len(degraded))
	d := Diagnostics{Samples: n}
	if n == 0 {
		return d
	}
	ref := widen(reference[:n])
	deg := widen(degraded[:n])

	var sig, noise float64
	for i := range ref {
		e := ref[i] - deg[i]
		sig += ref[i] * ref[i]
		noise += e * e
	}
	d.TimeRMSE = math.Sqrt(noise / float64(n))
	d.SNRDB = powToDB(sig) - powToDB(noise)
	d.LevelDiffDB = linToDB(rms(deg)) - linToDB(rms(ref))

	refEnv := rmsEnvelope(ref, envFrame, envHop)
	degEnv := rmsEnvelope(deg, envFrame, envHop)
	if len(refEnv) > 0 {
		diff := make([]float64, len(refEnv))
		for i := range refEnv {
			diff[i] = linToDB(refEnv[i]) - linToDB(degEnv[i])
		}
		d.EnvelopeRMSEDB = rms(diff)
	}
	d.SpectralRMSEDB = spectralRMSEDB(ref, deg)
	return d
}

func widen(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func rmsEnvelope(x []float64, frame, hop int) []float64 {
	if len(x) < frame {
		return nil
	}
	n := 1 + (len(x)-frame)/hop
	out := make([]float64, n)
	for i := range out {
		start := i * hop
		out[i] = rms(x[start : start+frame])
	}
	return out
}

// spectralRMSEDB compares Hann-windowed magnitude spectra of the leading
// block of both signals.
func spectralRMSEDB(a, b []float64) float64 {
	n := min(len(a), maxSpecSize)
	if n < 256 {
		return 0
	}
	aw := make([]float64, n)
	bw := make([]float64, n)
	for i := 0; i < n; i++ {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		aw[i] = a[i] * w
		bw[i] = b[i] * w
	}
	bins := n / 2
	var sum float64
	for k := 1; k < bins; k++ {
		d := linToDB(binMag(aw, k)) - linToDB(binMag(bw, k))
		sum += d * d
	}
	return math.Sqrt(sum / float64(bins-1))
}

func binMag(x []float64, bin int) float64 {
	n := len(x)
	var re, im float64
	for i := 0; i < n; i++ {
		phi := -2.0 * math.Pi * float64(bin*i%n) / float64(n)
		re += x[i] * math.Cos(phi)
		im += x[i] * math.Sin(phi)
	}
	return math.Hypot(re, im)
}

func linToDB(x float64) float64 {
	if db := 20 * math.Log10(x); db > floorDB {
		return db
	}
	return floorDB
}

func powToDB(p float64) float64 {
	if db := 10 * math.Log10(p); db > floorDB {
		return db
	}
	return floorDB
}
