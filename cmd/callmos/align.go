package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/cwbudde/algo-mos/align"
	"github.com/cwbudde/algo-mos/analysis"
	"github.com/cwbudde/algo-mos/audio"
	"github.com/cwbudde/algo-mos/dsp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type alignReport struct {
	LagSamples       int     `json:"lag_samples" yaml:"lag_samples"`
	AlignedSamples   int     `json:"aligned_samples" yaml:"aligned_samples"`
	LatencySampleLag int     `json:"latency_sample_lag" yaml:"latency_sample_lag"`
	LagSeconds       float64 `json:"lag_seconds" yaml:"lag_seconds"`

	// Distances between the peak-normalised aligned signals.
	Diagnostics analysis.Diagnostics `json:"diagnostics" yaml:"diagnostics"`

	ReferenceOut string `json:"reference_out,omitempty" yaml:"reference_out,omitempty"`
	DegradedOut  string `json:"degraded_out,omitempty" yaml:"degraded_out,omitempty"`
}

func newAlignCmd(a *app) *cobra.Command {
	var referencePath, degradedPath, writeDir, format string

	cmd := &cobra.Command{
		Use:   "align",
		Short: "Estimate the delay between the reference and a recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if referencePath == "" {
				referencePath = a.defaultReference()
			}
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			rate := a.cfg.SampleRate
			loader := a.loader()
			ref, err := loader.Load(ctx, referencePath, rate)
			if err != nil {
				return err
			}
			deg, err := loader.Load(ctx, degradedPath, rate)
			if err != nil {
				return err
			}
			if ref.Empty() || deg.Empty() {
				return fmt.Errorf("nothing to align: reference %d samples, degraded %d samples", ref.Len(), deg.Len())
			}

			res := align.Align(dsp.Normalize(ref.Samples), dsp.Normalize(deg.Samples))
			rep := alignReport{
				LagSamples:       res.Lag,
				AlignedSamples:   len(res.Reference),
				LatencySampleLag: ref.Len() - len(res.Reference),
				LagSeconds:       float64(res.Lag) / float64(rate),
				Diagnostics:      analysis.Diagnose(res.Reference, res.Degraded),
			}
			if writeDir != "" {
				rep.ReferenceOut = filepath.Join(writeDir, "reference_aligned.wav")
				rep.DegradedOut = filepath.Join(writeDir, "degraded_aligned.wav")
				if err := audio.WriteMonoWAV(rep.ReferenceOut, res.Reference, rate); err != nil {
					return fmt.Errorf("write aligned reference: %w", err)
				}
				if err := audio.WriteMonoWAV(rep.DegradedOut, res.Degraded, rate); err != nil {
					return fmt.Errorf("write aligned degraded: %w", err)
				}
			}
			a.log.WithFields(logrus.Fields{
				"lag":     rep.LagSamples,
				"samples": rep.AlignedSamples,
			}).Debug("aligned")

			return writeOutput(cmd.OutOrStdout(), format, rep, func(w io.Writer) error {
				d := rep.Diagnostics
				_, err := fmt.Fprintf(w, "lag %d samples (%.3fs)  aligned %d samples  latency %d samples\n"+
					"snr %.1f dB  level %+.1f dB  envelope %.1f dB  spectral %.1f dB\n",
					rep.LagSamples, rep.LagSeconds, rep.AlignedSamples, rep.LatencySampleLag,
					d.SNRDB, d.LevelDiffDB, d.EnvelopeRMSEDB, d.SpectralRMSEDB)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&referencePath, "reference", "", "reference clip (default <reference_dir>/reference.mp3)")
	cmd.Flags().StringVar(&degradedPath, "degraded", "", "degraded recording")
	cmd.Flags().StringVar(&writeDir, "write-dir", "", "write the aligned pair as WAV files into this directory")
	cmd.Flags().StringVar(&format, "format", "text", "output format: json|yaml|text")
	_ = cmd.MarkFlagRequired("degraded")
	return cmd
}
