// Package pesq scores aligned signal pairs with the ITU-T P.862 reference
// binary. The binary is run once per pair on temporary WAV files and its
// prediction line is parsed from stdout.
package pesq

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-mos/audio"
	"github.com/cwbudde/algo-mos/internal/logging"
	"github.com/cwbudde/algo-mos/mos"
	"github.com/sirupsen/logrus"
)

const DefaultBinary = "pesq"

var (
	wbLine = regexp.MustCompile(`P\.862\.2 Prediction \(MOS-LQO\):\s*=\s*([-+]?[0-9]*\.?[0-9]+)`)
	nbLine = regexp.MustCompile(`P\.862 Prediction \(Raw MOS, MOS-LQO\):\s*=\s*([-+]?[0-9]*\.?[0-9]+)\s+([-+]?[0-9]*\.?[0-9]+)`)
)

// Process runs an external PESQ binary. The zero value uses "pesq" from PATH
// and the system temp directory.
type Process struct {
	Binary  string
	WorkDir string
	Logger  *logrus.Entry
}

var _ mos.Scorer = (*Process)(nil)

func New(binary, workDir string, log *logrus.Entry) *Process {
	return &Process{Binary: binary, WorkDir: workDir, Logger: log}
}

func (p *Process) binary() string {
	if p.Binary == "" {
		return DefaultBinary
	}
	return p.Binary
}

func (p *Process) log() *logrus.Entry {
	if p.Logger == nil {
		return logging.Discard()
	}
	return p.Logger
}

// Available reports whether the binary can be found.
func (p *Process) Available() error {
	_, err := exec.LookPath(p.binary())
	return err
}

// Score writes both signals to a fresh temp directory, runs the binary on
// them and returns the predicted MOS-LQO.
func (p *Process) Score(ctx context.Context, sampleRate int, reference, degraded []float32, mode mos.Mode) (float64, error) {
	if err := validate(sampleRate, len(reference), len(degraded), mode); err != nil {
		return 0, err
	}

	dir, err := os.MkdirTemp(p.WorkDir, "pesq-*")
	if err != nil {
		return 0, fmt.Errorf("pesq: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	refPath := filepath.Join(dir, "ref.wav")
	degPath := filepath.Join(dir, "deg.wav")
	if err := audio.WriteMonoWAV(refPath, reference, sampleRate); err != nil {
		return 0, fmt.Errorf("pesq: write reference: %w", err)
	}
	if err := audio.WriteMonoWAV(degPath, degraded, sampleRate); err != nil {
		return 0, fmt.Errorf("pesq: write degraded: %w", err)
	}

	args := []string{"+" + strconv.Itoa(sampleRate)}
	if mode == mos.Wideband {
		args = append(args, "+wb")
	}
	args = append(args, refPath, degPath)

	cmd := exec.CommandContext(ctx, p.binary(), args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	p.log().WithFields(logrus.Fields{
		"binary":  p.binary(),
		"mode":    mode,
		"samples": len(reference),
	}).Debug("running pesq")

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = lastLine(stdout.String())
		}
		if msg == "" {
			return 0, fmt.Errorf("pesq: %w", err)
		}
		return 0, fmt.Errorf("pesq: %w: %s", err, msg)
	}
	return ParseOutput(stdout.String(), mode)
}

func validate(sampleRate, nRef, nDeg int, mode mos.Mode) error {
	switch sampleRate {
	case 8000, 16000:
	default:
		return fmt.Errorf("pesq: unsupported sample rate %d (use 8000 or 16000)", sampleRate)
	}
	switch mode {
	case mos.Wideband:
		if sampleRate != 16000 {
			return fmt.Errorf("pesq: wideband mode needs 16000 Hz, got %d", sampleRate)
		}
	case mos.Narrowband:
	default:
		return fmt.Errorf("pesq: unknown mode %q", mode)
	}
	if nRef == 0 || nDeg == 0 {
		return fmt.Errorf("pesq: empty signal")
	}
	if nRef != nDeg {
		return fmt.Errorf("pesq: signal lengths differ (%d vs %d)", nRef, nDeg)
	}
	return nil
}

// ParseOutput extracts the predicted score from the binary's stdout. In
// narrowband mode the line carries raw MOS and MOS-LQO; the latter is
// returned.
func ParseOutput(out string, mode mos.Mode) (float64, error) {
	var m []string
	switch mode {
	case mos.Wideband:
		m = wbLine.FindStringSubmatch(out)
	case mos.Narrowband:
		if nb := nbLine.FindStringSubmatch(out); nb != nil {
			m = []string{nb[0], nb[2]}
		}
	default:
		return 0, fmt.Errorf("pesq: unknown mode %q", mode)
	}
	if m == nil {
		if line := lastLine(out); line != "" {
			return 0, fmt.Errorf("pesq: no %s prediction in output: %s", mode, line)
		}
		return 0, fmt.Errorf("pesq: no %s prediction in output", mode)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("pesq: parse score %q: %w", m[1], err)
	}
	return v, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
