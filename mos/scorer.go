package mos

import (
	"context"
	"fmt"
	"strings"
)

// Mode selects the perceptual model bandwidth.
type Mode string

const (
	Narrowband Mode = "nb"
	Wideband   Mode = "wb"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Wideband, "wideband":
		return Wideband, nil
	case Narrowband, "narrowband":
		return Narrowband, nil
	}
	return "", fmt.Errorf("unknown scoring mode %q (use wb or nb)", s)
}

// Scorer computes a raw perceptual quality score for two equal-length,
// peak-normalised mono signals at sampleRate.
type Scorer interface {
	Score(ctx context.Context, sampleRate int, reference, degraded []float32, mode Mode) (float64, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, sampleRate int, reference, degraded []float32, mode Mode) (float64, error)

func (f ScorerFunc) Score(ctx context.Context, sampleRate int, reference, degraded []float32, mode Mode) (float64, error) {
	return f(ctx, sampleRate, reference, degraded, mode)
}
