// Package audio decodes audio containers into mono sample buffers at a fixed
// sample rate and writes buffers back out as WAV.
package audio

import (
	"errors"
	"fmt"
	"time"
)

// Buffer is a mono signal at a fixed sample rate.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

func (b Buffer) Len() int { return len(b.Samples) }

func (b Buffer) Empty() bool { return len(b.Samples) == 0 }

func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(b.Samples)) / float64(b.SampleRate) * float64(time.Second))
}

var (
	// ErrEmptyStream is reported when a container decodes to zero samples.
	ErrEmptyStream = errors.New("audio stream contains no samples")
	// ErrUnsupported is reported when no decoder accepts the input.
	ErrUnsupported = errors.New("unsupported audio format")
)

// DecodeError describes a failed Load. The accompanying Buffer is always empty.
type DecodeError struct {
	Path   string
	Format Format
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s (%s): %v", e.Path, e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
