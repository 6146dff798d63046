package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-mos/internal/batch"
	"github.com/cwbudde/algo-mos/internal/metrics"
	"github.com/cwbudde/algo-mos/mos"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// timedEvaluator applies the per-evaluation timeout inside the worker pool.
type timedEvaluator struct {
	a  *app
	ev *mos.Evaluator
}

func (t timedEvaluator) Evaluate(ctx context.Context, referencePath, degradedPath string) (mos.Result, error) {
	ctx, cancel := t.a.withTimeout(ctx)
	defer cancel()
	return t.ev.Evaluate(ctx, referencePath, degradedPath)
}

func newBatchCmd(a *app) *cobra.Command {
	var manifestPath, metricsAddr, format, outputPath string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Score every job of a YAML manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobs, err := batch.LoadManifest(manifestPath, a.cfg.ReferenceDir)
			if err != nil {
				return err
			}

			collector := metrics.New()
			if metricsAddr != "" {
				shutdown, err := collector.Serve(metricsAddr, a.entry())
				if err != nil {
					return fmt.Errorf("metrics listener: %w", err)
				}
				defer shutdown()
			}

			workers := a.cfg.WorkerCount()
			a.log.WithFields(logrus.Fields{
				"jobs":    len(jobs),
				"workers": workers,
			}).Info("batch started")

			ev := timedEvaluator{a: a, ev: a.evaluator(collector)}
			records := batch.Run(cmd.Context(), ev, jobs, workers, a.cfg.LabelSet())

			fields := logrus.Fields{}
			for outcome, n := range batch.Summary(records) {
				fields[outcome] = n
			}
			a.log.WithFields(fields).Info("batch finished")

			out := cmd.OutOrStdout()
			if outputPath != "" {
				f, err := os.Create(outputPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			if err := writeOutput(out, format, records, func(w io.Writer) error {
				return writeRecordTable(w, records)
			}); err != nil {
				return err
			}
			return cmd.Context().Err()
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "YAML manifest of jobs")
	cmd.Flags().String("workers", "1", "parallel evaluations (number or 'auto')")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json|yaml|text")
	cmd.Flags().StringVar(&outputPath, "output", "", "write records to this file instead of stdout")
	_ = cmd.MarkFlagRequired("manifest")
	_ = a.v.BindPFlag("workers", cmd.Flags().Lookup("workers"))
	return cmd
}

func writeRecordTable(w io.Writer, records []batch.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOUTCOME\tMOS\tQUALITY\tLATENCY")
	for _, r := range records {
		if r.Report == nil {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\n", r.ID, r.Outcome)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%d\n", r.ID, r.Outcome, r.Report.MOSScore, r.Report.Quality, r.Report.LatencySampleLag)
	}
	return tw.Flush()
}
