package main

import (
	"context"
	"path/filepath"

	"github.com/cwbudde/algo-mos/audio"
	"github.com/cwbudde/algo-mos/internal/batch"
	"github.com/cwbudde/algo-mos/internal/config"
	"github.com/cwbudde/algo-mos/internal/logging"
	"github.com/cwbudde/algo-mos/mos"
	"github.com/cwbudde/algo-mos/pesq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type app struct {
	v          *viper.Viper
	configPath string
	envFile    string
	cfg        *config.Config
	log        *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "callmos",
		Short:         "Estimate the MOS of recorded calls against a reference clip",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	pf.String("log-level", "info", "log level: debug|info|warn|error")
	pf.String("log-format", "text", "log format: text|json")
	pf.String("ffmpeg", "ffmpeg", "ffmpeg binary for containers without a native decoder (empty disables)")
	pf.String("pesq", "pesq", "PESQ reference binary")
	pf.String("mode", "wb", "scoring mode: wb|nb")
	pf.String("labels", "en", "quality label language: en|es")
	pf.Duration("timeout", 0, "per-evaluation timeout (0 uses the configured value)")
	for key, flag := range map[string]string{
		"log_level":  "log-level",
		"log_format": "log-format",
		"ffmpeg_bin": "ffmpeg",
		"pesq_bin":   "pesq",
		"mode":       "mode",
		"labels":     "labels",
		"timeout":    "timeout",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		newEvaluateCmd(a),
		newAlignCmd(a),
		newBatchCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	a.log.WithFields(logrus.Fields{
		"sample_rate": cfg.SampleRate,
		"mode":        cfg.Mode,
		"config":      a.configPath,
	}).Debug("configuration loaded")
	return nil
}

func (a *app) entry() *logrus.Entry {
	return logrus.NewEntry(a.log)
}

func (a *app) loader() *audio.Loader {
	return audio.NewLoader(audio.WithFFmpeg(a.cfg.FFmpegBin), audio.WithLogger(a.entry()))
}

func (a *app) evaluator(obs mos.Observer) *mos.Evaluator {
	opts := []mos.Option{
		mos.WithSampleRate(a.cfg.SampleRate),
		mos.WithMinSamples(a.cfg.MinSamples),
		mos.WithMode(a.cfg.ScoringMode()),
		mos.WithLogger(a.entry()),
	}
	if obs != nil {
		opts = append(opts, mos.WithObserver(obs))
	}
	return mos.NewEvaluator(a.loader(), pesq.New(a.cfg.PESQBin, a.cfg.WorkDir, a.entry()), opts...)
}

// withTimeout bounds one evaluation by the configured timeout.
func (a *app) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, a.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func (a *app) defaultReference() string {
	return filepath.Join(a.cfg.ReferenceDir, batch.DefaultReference)
}
