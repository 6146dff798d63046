package mos

import "github.com/cwbudde/algo-mos/internal/common"

// Result is the outcome of one successful evaluation. Values keep full
// precision; Report rounds them for presentation.
type Result struct {
	MOS      float64 `json:"mos"`
	RawScore float64 `json:"raw_score"`
	Quality  Quality `json:"quality"`
	// LatencySampleLag is how many samples alignment trimmed from the
	// reference, an estimate of the one-way delay.
	LatencySampleLag int `json:"latency_sample_lag"`
	Lag              int `json:"lag_samples"`
	AlignedSamples   int `json:"aligned_samples"`
}

// Report is the presentation form of a Result.
type Report struct {
	MOSScore         float64 `json:"mos_score" yaml:"mos_score"`
	RawPESQ          float64 `json:"raw_pesq" yaml:"raw_pesq"`
	Quality          string  `json:"quality" yaml:"quality"`
	LatencySampleLag int     `json:"latency_sample_lag" yaml:"latency_sample_lag"`
	LagSamples       int     `json:"lag_samples" yaml:"lag_samples"`
	AlignedSamples   int     `json:"aligned_samples" yaml:"aligned_samples"`
}

// Report rounds the MOS to 2 and the raw score to 3 decimals and labels the
// quality bucket with labels (English when nil).
func (r Result) Report(labels Labels) Report {
	if labels == nil {
		labels = EnglishLabels
	}
	return Report{
		MOSScore:         common.Round(r.MOS, 2),
		RawPESQ:          common.Round(r.RawScore, 3),
		Quality:          labels.Label(r.Quality),
		LatencySampleLag: r.LatencySampleLag,
		LagSamples:       r.Lag,
		AlignedSamples:   r.AlignedSamples,
	}
}
