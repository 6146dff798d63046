package mos

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/cwbudde/algo-mos/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	buffers map[string]audio.Buffer
	errs    map[string]error
}

func (f fakeLoader) Load(_ context.Context, path string, targetRate int) (audio.Buffer, error) {
	if err, ok := f.errs[path]; ok {
		return audio.Buffer{SampleRate: targetRate}, err
	}
	return f.buffers[path], nil
}

type recordingScorer struct {
	mu    sync.Mutex
	raw   float64
	err   error
	calls int
	rate  int
	mode  Mode
	ref   []float32
	deg   []float32
}

func (s *recordingScorer) Score(_ context.Context, rate int, ref, deg []float32, mode Mode) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.rate = rate
	s.mode = mode
	s.ref = ref
	s.deg = deg
	return s.raw, s.err
}

type observerFunc func(Outcome)

func (f observerFunc) ObserveEvaluation(o Outcome) { f(o) }

func buf(samples ...float32) audio.Buffer {
	return audio.Buffer{Samples: samples, SampleRate: DefaultSampleRate}
}

func noise(n int, seed int64, scale float32) audio.Buffer {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float32, n)
	for i := range out {
		out[i] = scale * float32(rng.Float64()*2-1)
	}
	return audio.Buffer{Samples: out, SampleRate: DefaultSampleRate}
}

func delayed(b audio.Buffer, k int) audio.Buffer {
	out := make([]float32, len(b.Samples)+k)
	copy(out[k:], b.Samples)
	return audio.Buffer{Samples: out, SampleRate: b.SampleRate}
}

func TestEvaluateBuffersTwoSampleDelay(t *testing.T) {
	scorer := &recordingScorer{raw: 3.9}
	ev := NewEvaluator(nil, scorer, WithMinSamples(1))

	res, err := ev.EvaluateBuffers(context.Background(), buf(1, 2, 3, 4, 5, 0, 0), buf(0, 0, 1, 2, 3, 4, 5))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Lag)
	assert.Equal(t, 5, res.AlignedSamples)
	assert.Equal(t, 2, res.LatencySampleLag)
	assert.Len(t, scorer.ref, 5)
	assert.Len(t, scorer.deg, 5)
	assert.Equal(t, Good, res.Quality)
}

func TestEvaluateBuffersPassesNormalizedEqualLengthSignals(t *testing.T) {
	ref := noise(4000, 1, 20000)
	deg := delayed(ref, 120)
	scorer := &recordingScorer{raw: 4.4}
	ev := NewEvaluator(nil, scorer)

	res, err := ev.EvaluateBuffers(context.Background(), ref, deg)
	require.NoError(t, err)

	assert.Equal(t, 1, scorer.calls)
	assert.Equal(t, DefaultSampleRate, scorer.rate)
	assert.Equal(t, Wideband, scorer.mode)
	require.Equal(t, len(scorer.ref), len(scorer.deg))
	for i := range scorer.ref {
		require.LessOrEqual(t, math.Abs(float64(scorer.ref[i])), 1.0)
		require.LessOrEqual(t, math.Abs(float64(scorer.deg[i])), 1.0)
	}
	assert.Equal(t, 120, res.Lag)
	assert.Equal(t, len(ref.Samples)-len(scorer.ref), res.LatencySampleLag)
	assert.Equal(t, Excellent, res.Quality)
	assert.InDelta(t, 4.4, res.MOS, 1e-12)
}

func TestEvaluateBuffersClampsScore(t *testing.T) {
	ref := noise(2000, 2, 1)
	cases := []struct {
		raw     float64
		mos     float64
		quality Quality
	}{
		{7.25, 5.0, Excellent},
		{-0.5, 1.0, Bad},
		{0.99, 1.0, Bad},
		{4.64, 4.64, Excellent},
	}
	for _, c := range cases {
		ev := NewEvaluator(nil, &recordingScorer{raw: c.raw})
		res, err := ev.EvaluateBuffers(context.Background(), ref, ref)
		require.NoError(t, err)
		assert.Equal(t, c.mos, res.MOS, "raw %v", c.raw)
		assert.Equal(t, c.raw, res.RawScore)
		assert.Equal(t, c.quality, res.Quality, "raw %v", c.raw)
		assert.GreaterOrEqual(t, res.MOS, MinMOS)
		assert.LessOrEqual(t, res.MOS, MaxMOS)
	}
}

func TestEvaluateBuffersBoundaryFallsLow(t *testing.T) {
	ref := noise(2000, 3, 1)
	ev := NewEvaluator(nil, &recordingScorer{raw: 3.6})
	res, err := ev.EvaluateBuffers(context.Background(), ref, ref)
	require.NoError(t, err)
	assert.Equal(t, Acceptable, res.Quality)
}

func TestEvaluateBuffersTooShortIsNotScoreable(t *testing.T) {
	scorer := &recordingScorer{raw: 4}
	ev := NewEvaluator(nil, scorer)
	short := noise(50, 4, 1)

	_, err := ev.EvaluateBuffers(context.Background(), short, short)
	require.Error(t, err)
	assert.True(t, IsNotScoreable(err))
	assert.ErrorIs(t, err, ErrSignalTooShort)

	var eerr *EvaluationError
	require.ErrorAs(t, err, &eerr)
	assert.Equal(t, KindSignalTooShort, eerr.Kind)
	assert.Equal(t, StageValidating, eerr.Stage)
	assert.Zero(t, scorer.calls)
}

func TestEvaluateBuffersEmpty(t *testing.T) {
	ev := NewEvaluator(nil, &recordingScorer{raw: 4})
	_, err := ev.EvaluateBuffers(context.Background(), audio.Buffer{SampleRate: DefaultSampleRate}, noise(500, 5, 1))
	assert.ErrorIs(t, err, ErrEmptyOrCorruptAudio)
	assert.False(t, IsNotScoreable(err))
}

func TestEvaluateBuffersRateMismatch(t *testing.T) {
	ev := NewEvaluator(nil, &recordingScorer{raw: 4})
	deg := noise(500, 6, 1)
	deg.SampleRate = 8000
	_, err := ev.EvaluateBuffers(context.Background(), noise(500, 7, 1), deg)
	assert.ErrorIs(t, err, ErrEmptyOrCorruptAudio)
}

func TestEvaluateBuffersScorerFailure(t *testing.T) {
	cause := errors.New("pesq: no utterances detected")
	ev := NewEvaluator(nil, &recordingScorer{err: cause})
	ref := noise(1000, 8, 1)

	_, err := ev.EvaluateBuffers(context.Background(), ref, ref)
	assert.ErrorIs(t, err, ErrScoringFailure)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "scoring")
}

func TestEvaluateBuffersScorerNaN(t *testing.T) {
	ev := NewEvaluator(nil, &recordingScorer{raw: math.NaN()})
	ref := noise(1000, 9, 1)
	_, err := ev.EvaluateBuffers(context.Background(), ref, ref)
	assert.ErrorIs(t, err, ErrScoringFailure)
}

func TestEvaluateBuffersCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var got Outcome
	scorer := &recordingScorer{raw: 4}
	ev := NewEvaluator(nil, scorer, WithObserver(observerFunc(func(o Outcome) { got = o })))
	ref := noise(1000, 10, 1)

	_, err := ev.EvaluateBuffers(ctx, ref, ref)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "canceled", got.Kind)
	assert.Zero(t, scorer.calls)
}

func TestEvaluateLoadsFiles(t *testing.T) {
	ref := noise(3000, 11, 30000)
	loader := fakeLoader{buffers: map[string]audio.Buffer{
		"reference.mp3": ref,
		"call.m4a":      delayed(ref, 40),
	}}
	var outcomes []Outcome
	ev := NewEvaluator(loader, &recordingScorer{raw: 2.5},
		WithObserver(observerFunc(func(o Outcome) { outcomes = append(outcomes, o) })))

	res, err := ev.Evaluate(context.Background(), "reference.mp3", "call.m4a")
	require.NoError(t, err)
	assert.Equal(t, 40, res.Lag)
	assert.Equal(t, Poor, res.Quality)

	require.Len(t, outcomes, 1)
	assert.Equal(t, "success", outcomes[0].Kind)
	assert.Equal(t, 40, outcomes[0].Lag)
	assert.NotEmpty(t, outcomes[0].ID)
}

func TestEvaluateDecodeFailureIsEmptyOrCorrupt(t *testing.T) {
	decodeErr := &audio.DecodeError{Path: "call.m4a", Format: audio.FormatFFmpeg, Err: audio.ErrEmptyStream}
	loader := fakeLoader{
		buffers: map[string]audio.Buffer{"reference.mp3": noise(1000, 12, 1)},
		errs:    map[string]error{"call.m4a": decodeErr},
	}
	scorer := &recordingScorer{raw: 4}
	ev := NewEvaluator(loader, scorer)

	_, err := ev.Evaluate(context.Background(), "reference.mp3", "call.m4a")
	assert.ErrorIs(t, err, ErrEmptyOrCorruptAudio)
	assert.ErrorIs(t, err, audio.ErrEmptyStream)

	var derr *audio.DecodeError
	assert.ErrorAs(t, err, &derr)
	assert.Equal(t, "empty_or_corrupt_audio", OutcomeOf(err))
	assert.Zero(t, scorer.calls)
}

func TestEvaluateConcurrentCallsAreIndependent(t *testing.T) {
	ref := noise(3000, 13, 1)
	loader := fakeLoader{buffers: map[string]audio.Buffer{
		"ref": ref,
		"a":   delayed(ref, 10),
		"b":   delayed(ref, 90),
	}}
	ev := NewEvaluator(loader, ScorerFunc(func(_ context.Context, _ int, r, d []float32, _ Mode) (float64, error) {
		return 3.2, nil
	}))

	var wg sync.WaitGroup
	lags := make([]int, 16)
	errs := make([]error, 16)
	for i := range lags {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			deg := "a"
			if i%2 == 1 {
				deg = "b"
			}
			res, err := ev.Evaluate(context.Background(), "ref", deg)
			lags[i], errs[i] = res.Lag, err
		}(i)
	}
	wg.Wait()

	for i := range lags {
		require.NoError(t, errs[i])
		want := 10
		if i%2 == 1 {
			want = 90
		}
		assert.Equal(t, want, lags[i], "evaluation %d", i)
	}
}

func TestReportRoundsAndLabels(t *testing.T) {
	res := Result{
		MOS:              3.14159,
		RawScore:         3.14159,
		Quality:          Acceptable,
		LatencySampleLag: 2,
		Lag:              2,
		AlignedSamples:   5,
	}
	rep := res.Report(SpanishLabels)
	assert.Equal(t, 3.14, rep.MOSScore)
	assert.Equal(t, 3.142, rep.RawPESQ)
	assert.Equal(t, "Aceptable", rep.Quality)
	assert.Equal(t, 2, rep.LatencySampleLag)

	assert.Equal(t, "Acceptable", res.Report(nil).Quality)
}
