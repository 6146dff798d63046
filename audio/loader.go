package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-mos/internal/logging"
	"github.com/sirupsen/logrus"
)

// Format names the decoder used for a file.
type Format string

const (
	FormatWAV    Format = "wav"
	FormatMP3    Format = "mp3"
	FormatFFmpeg Format = "ffmpeg"
)

const headerSize = 12

// DetectFormat picks a decoder from the leading bytes of a file, falling back
// to the extension and finally to ffmpeg.
func DetectFormat(path string, header []byte) Format {
	switch {
	case len(header) >= 12 && bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE")):
		return FormatWAV
	case len(header) >= 3 && bytes.Equal(header[0:3], []byte("ID3")):
		return FormatMP3
	case len(header) >= 2 && isMPEGAudioSync(header[0], header[1]):
		return FormatMP3
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return FormatWAV
	case ".mp3":
		return FormatMP3
	}
	return FormatFFmpeg
}

// isMPEGAudioSync matches an MPEG audio frame header. ADTS AAC shares the
// sync word but has layer bits 00, so it is left to ffmpeg.
func isMPEGAudioSync(b0, b1 byte) bool {
	return b0 == 0xFF && b1&0xE0 == 0xE0 && b1&0x06 != 0
}

// Loader turns audio files into mono buffers at a target sample rate.
// A Loader holds no per-call state and may be shared between goroutines.
type Loader struct {
	ffmpegBin string
	log       *logrus.Entry
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFFmpeg sets the ffmpeg binary used for containers without a native
// decoder. An empty name disables the fallback.
func WithFFmpeg(bin string) LoaderOption {
	return func(l *Loader) {
		l.ffmpegBin = bin
	}
}

func WithLogger(log *logrus.Entry) LoaderOption {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		ffmpegBin: "ffmpeg",
		log:       logging.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load decodes path into a mono buffer at targetRate.
//
// Decode failures do not panic and do not leak partial data: Load returns an
// empty buffer together with a *DecodeError and logs the cause. Callers must
// treat the empty buffer as unusable rather than as silence.
func (l *Loader) Load(ctx context.Context, path string, targetRate int) (Buffer, error) {
	empty := Buffer{SampleRate: targetRate}
	if targetRate <= 0 {
		return empty, fmt.Errorf("audio: invalid target sample rate %d", targetRate)
	}

	samples, format, err := l.decode(ctx, path, targetRate)
	if err == nil && len(samples) == 0 {
		err = ErrEmptyStream
	}
	if err != nil {
		l.log.WithError(err).WithFields(logrus.Fields{
			"path":   path,
			"format": format,
		}).Warn("audio decode failed")
		return empty, &DecodeError{Path: path, Format: format, Err: err}
	}

	l.log.WithFields(logrus.Fields{
		"path":    path,
		"format":  format,
		"samples": len(samples),
		"rate":    targetRate,
	}).Debug("audio decoded")
	return Buffer{Samples: toFloat32(samples), SampleRate: targetRate}, nil
}

func (l *Loader) decode(ctx context.Context, path string, targetRate int) ([]float64, Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, DetectFormat(path, nil), err
	}
	defer f.Close()

	header := make([]byte, headerSize)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, DetectFormat(path, nil), err
	}
	header = header[:n]
	if n == 0 {
		return nil, DetectFormat(path, nil), ErrEmptyStream
	}
	format := DetectFormat(path, header)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, format, err
	}

	var (
		samples    []float64
		sourceRate int
	)
	switch format {
	case FormatWAV:
		samples, sourceRate, err = ReadWAV(f)
	case FormatMP3:
		samples, sourceRate, err = DecodeMP3(f)
	case FormatFFmpeg:
		if l.ffmpegBin == "" {
			return nil, format, ErrUnsupported
		}
		samples, err = decodeFFmpeg(ctx, l.ffmpegBin, path, targetRate)
		sourceRate = targetRate
	default:
		return nil, format, ErrUnsupported
	}
	if err != nil {
		return nil, format, err
	}

	samples, err = Resample(samples, sourceRate, targetRate)
	if err != nil {
		return nil, format, fmt.Errorf("resample %d -> %d: %w", sourceRate, targetRate, err)
	}
	return samples, format, nil
}
