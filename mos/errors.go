package mos

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies why an evaluation produced no score.
type Kind int

const (
	KindEmptyOrCorruptAudio Kind = iota + 1
	KindSignalTooShort
	KindScoringFailure
)

var (
	ErrEmptyOrCorruptAudio = errors.New("empty or corrupt audio")
	ErrSignalTooShort      = errors.New("signal too short after alignment")
	ErrScoringFailure      = errors.New("quality scorer failed")
)

func (k Kind) String() string {
	switch k {
	case KindEmptyOrCorruptAudio:
		return "empty_or_corrupt_audio"
	case KindSignalTooShort:
		return "signal_too_short"
	case KindScoringFailure:
		return "scoring_failure"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) sentinel() error {
	switch k {
	case KindEmptyOrCorruptAudio:
		return ErrEmptyOrCorruptAudio
	case KindSignalTooShort:
		return ErrSignalTooShort
	case KindScoringFailure:
		return ErrScoringFailure
	}
	return nil
}

// EvaluationError is the terminal failure of one evaluation. It matches its
// kind's sentinel and the underlying cause with errors.Is.
type EvaluationError struct {
	Kind  Kind
	Stage Stage
	Err   error
}

func newError(kind Kind, stage Stage, err error) *EvaluationError {
	return &EvaluationError{Kind: kind, Stage: stage, Err: err}
}

func (e *EvaluationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v during %s", e.Kind.sentinel(), e.Stage)
	}
	return fmt.Sprintf("%v during %s: %v", e.Kind.sentinel(), e.Stage, e.Err)
}

func (e *EvaluationError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsNotScoreable reports whether err means the pair was valid audio but too
// short to score, as opposed to a decode or scorer failure.
func IsNotScoreable(err error) bool {
	return errors.Is(err, ErrSignalTooShort)
}

// OutcomeOf names the outcome of an evaluation for metrics and batch records.
func OutcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	var eerr *EvaluationError
	if errors.As(err, &eerr) {
		return eerr.Kind.String()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "error"
}
