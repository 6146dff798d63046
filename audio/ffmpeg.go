package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// decodeFFmpeg asks ffmpeg for mono signed 16-bit PCM at the target rate, so
// the result needs neither downmix nor resampling.
func decodeFFmpeg(ctx context.Context, bin, path string, targetRate int) ([]float64, error) {
	args := []string{
		"-hide_banner", "-nostats", "-loglevel", "error",
		"-i", path,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(targetRate),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-",
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("%s: %w", bin, err)
		}
		return nil, fmt.Errorf("%s: %w: %s", bin, err, msg)
	}
	return pcm16ToFloat(stdout.Bytes()), nil
}

func pcm16ToFloat(pcm []byte) []float64 {
	n := len(pcm) / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	return out
}
