package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newEvaluateCmd(a *app) *cobra.Command {
	var referencePath, degradedPath, format string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score one degraded recording against the reference clip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if referencePath == "" {
				referencePath = a.defaultReference()
			}
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			res, err := a.evaluator(nil).Evaluate(ctx, referencePath, degradedPath)
			if err != nil {
				return err
			}
			rep := res.Report(a.cfg.LabelSet())
			return writeOutput(cmd.OutOrStdout(), format, rep, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "MOS %.2f (%s)  raw %.3f  lag %d samples  latency %d samples\n",
					rep.MOSScore, rep.Quality, rep.RawPESQ, rep.LagSamples, rep.LatencySampleLag)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&referencePath, "reference", "", "reference clip (default <reference_dir>/reference.mp3)")
	cmd.Flags().StringVar(&degradedPath, "degraded", "", "degraded recording")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json|yaml|text")
	_ = cmd.MarkFlagRequired("degraded")
	return cmd
}
