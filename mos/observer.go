package mos

import "time"

// Outcome summarises one finished evaluation.
type Outcome struct {
	ID       string
	Kind     string
	Duration time.Duration
	// Lag and MOS are set for successful evaluations only.
	Lag int
	MOS float64
}

// Observer is notified once per evaluation, successful or not.
type Observer interface {
	ObserveEvaluation(Outcome)
}

type nopObserver struct{}

func (nopObserver) ObserveEvaluation(Outcome) {}
