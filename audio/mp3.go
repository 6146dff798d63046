package audio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// DecodeMP3 decodes an MP3 stream to mono samples in the 16-bit integer domain.
// go-mp3 always emits signed 16-bit little-endian stereo frames.
func DecodeMP3(r io.Reader) ([]float64, int, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, fmt.Errorf("creating mp3 decoder: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, fmt.Errorf("decoding mp3: %w", err)
	}

	const (
		bytesPerSample = 2
		numChannels    = 2
		bytesPerFrame  = bytesPerSample * numChannels
	)

	frames := len(pcm) / bytesPerFrame
	if frames == 0 {
		return nil, decoder.SampleRate(), ErrEmptyStream
	}
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		off := i * bytesPerFrame
		left := int16(binary.LittleEndian.Uint16(pcm[off:]))
		right := int16(binary.LittleEndian.Uint16(pcm[off+bytesPerSample:]))
		out[i] = (float64(left) + float64(right)) / 2
	}
	return out, decoder.SampleRate(), nil
}
