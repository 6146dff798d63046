// Package mos estimates a Mean Opinion Score for a degraded recording against
// its reference clip.
//
// An evaluation loads both files, peak-normalises each signal, aligns them by
// cross-correlation, hands the aligned pair to a perceptual Scorer and maps
// the raw score onto the 1..5 MOS scale and a quality bucket. Each call runs
// the pipeline exactly once; nothing is retried and no partial score is ever
// returned.
package mos

import (
	"context"
	"fmt"
	"time"

	"github.com/cwbudde/algo-mos/align"
	"github.com/cwbudde/algo-mos/audio"
	"github.com/cwbudde/algo-mos/dsp"
	"github.com/cwbudde/algo-mos/internal/common"
	"github.com/cwbudde/algo-mos/internal/logging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSampleRate = 16000
	// DefaultMinSamples is the shortest aligned signal handed to the scorer.
	DefaultMinSamples = 100
)

// SampleLoader decodes a file into a mono buffer at targetRate. On failure it
// returns an empty buffer and an error.
type SampleLoader interface {
	Load(ctx context.Context, path string, targetRate int) (audio.Buffer, error)
}

// Evaluator runs the scoring pipeline. It keeps no per-evaluation state and
// is safe for concurrent use.
type Evaluator struct {
	loader     SampleLoader
	scorer     Scorer
	sampleRate int
	minSamples int
	mode       Mode
	log        *logrus.Entry
	observer   Observer
}

type Option func(*Evaluator)

func WithSampleRate(rate int) Option {
	return func(e *Evaluator) { e.sampleRate = rate }
}

func WithMinSamples(n int) Option {
	return func(e *Evaluator) { e.minSamples = n }
}

func WithMode(mode Mode) Option {
	return func(e *Evaluator) { e.mode = mode }
}

func WithLogger(log *logrus.Entry) Option {
	return func(e *Evaluator) {
		if log != nil {
			e.log = log
		}
	}
}

func WithObserver(o Observer) Option {
	return func(e *Evaluator) {
		if o != nil {
			e.observer = o
		}
	}
}

func NewEvaluator(loader SampleLoader, scorer Scorer, opts ...Option) *Evaluator {
	e := &Evaluator{
		loader:     loader,
		scorer:     scorer,
		sampleRate: DefaultSampleRate,
		minSamples: DefaultMinSamples,
		mode:       Wideband,
		log:        logging.Discard(),
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) SampleRate() int { return e.sampleRate }

// Evaluate scores the degraded file against the reference file.
func (e *Evaluator) Evaluate(ctx context.Context, referencePath, degradedPath string) (Result, error) {
	start := time.Now()
	id := uuid.NewString()
	log := e.log.WithFields(logrus.Fields{
		"evaluation_id": id,
		"reference":     referencePath,
		"degraded":      degradedPath,
	})

	res, err := e.loadAndRun(ctx, log, referencePath, degradedPath)
	e.finish(log, id, start, res, err)
	return res, err
}

// EvaluateBuffers scores already decoded buffers. Both must be at the
// evaluator's sample rate.
func (e *Evaluator) EvaluateBuffers(ctx context.Context, ref, deg audio.Buffer) (Result, error) {
	start := time.Now()
	id := uuid.NewString()
	log := e.log.WithField("evaluation_id", id)

	res, err := e.run(ctx, log, ref, deg)
	e.finish(log, id, start, res, err)
	return res, err
}

func (e *Evaluator) loadAndRun(ctx context.Context, log *logrus.Entry, referencePath, degradedPath string) (Result, error) {
	if e.loader == nil {
		return Result{}, fmt.Errorf("mos: evaluator has no loader")
	}
	log.WithField("stage", StageLoading).Debug("loading audio")
	ref, err := e.loader.Load(ctx, referencePath, e.sampleRate)
	if err != nil {
		return Result{}, e.loadFailure(ctx, "reference", err)
	}
	deg, err := e.loader.Load(ctx, degradedPath, e.sampleRate)
	if err != nil {
		return Result{}, e.loadFailure(ctx, "degraded", err)
	}
	return e.run(ctx, log, ref, deg)
}

func (e *Evaluator) loadFailure(ctx context.Context, which string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return newError(KindEmptyOrCorruptAudio, StageLoading, fmt.Errorf("%s: %w", which, err))
}

func (e *Evaluator) run(ctx context.Context, log *logrus.Entry, ref, deg audio.Buffer) (Result, error) {
	if e.scorer == nil {
		return Result{}, fmt.Errorf("mos: evaluator has no scorer")
	}
	if ref.Empty() {
		return Result{}, newError(KindEmptyOrCorruptAudio, StageLoading, fmt.Errorf("reference buffer is empty"))
	}
	if deg.Empty() {
		return Result{}, newError(KindEmptyOrCorruptAudio, StageLoading, fmt.Errorf("degraded buffer is empty"))
	}
	for _, b := range []struct {
		name string
		buf  audio.Buffer
	}{{"reference", ref}, {"degraded", deg}} {
		if b.buf.SampleRate != e.sampleRate {
			return Result{}, newError(KindEmptyOrCorruptAudio, StageLoading,
				fmt.Errorf("%s sample rate %d, want %d", b.name, b.buf.SampleRate, e.sampleRate))
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	log.WithField("stage", StageNormalizing).Debug("normalizing peaks")
	refN := dsp.Normalize(ref.Samples)
	degN := dsp.Normalize(deg.Samples)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	aligned := align.Align(refN, degN)
	log.WithFields(logrus.Fields{
		"stage":   StageAligning,
		"lag":     aligned.Lag,
		"samples": len(aligned.Reference),
	}).Debug("signals aligned")

	if len(aligned.Reference) < e.minSamples {
		return Result{}, newError(KindSignalTooShort, StageValidating,
			fmt.Errorf("aligned signal has %d samples, need at least %d", len(aligned.Reference), e.minSamples))
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	log.WithField("stage", StageScoring).Debug("scoring aligned pair")
	raw, err := e.scorer.Score(ctx, e.sampleRate, aligned.Reference, aligned.Degraded, e.mode)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		return Result{}, newError(KindScoringFailure, StageScoring, err)
	}
	if !common.IsFinite(raw) {
		return Result{}, newError(KindScoringFailure, StageScoring, fmt.Errorf("scorer returned %v", raw))
	}

	mos := common.Clamp(raw, MinMOS, MaxMOS)
	return Result{
		MOS:              mos,
		RawScore:         raw,
		Quality:          Classify(mos),
		LatencySampleLag: len(ref.Samples) - len(aligned.Reference),
		Lag:              aligned.Lag,
		AlignedSamples:   len(aligned.Reference),
	}, nil
}

func (e *Evaluator) finish(log *logrus.Entry, id string, start time.Time, res Result, err error) {
	elapsed := time.Since(start)
	outcome := Outcome{
		ID:       id,
		Kind:     OutcomeOf(err),
		Duration: elapsed,
	}
	if err != nil {
		log.WithError(err).WithField("outcome", outcome.Kind).Warn("evaluation produced no score")
	} else {
		outcome.Lag = res.Lag
		outcome.MOS = res.MOS
		log.WithFields(logrus.Fields{
			"stage":   StageMapping,
			"mos":     common.Round(res.MOS, 2),
			"raw":     common.Round(res.RawScore, 3),
			"quality": res.Quality,
			"lag":     res.Lag,
			"elapsed": elapsed,
		}).Info("evaluation complete")
	}
	e.observer.ObserveEvaluation(outcome)
}
