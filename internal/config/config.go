// Package config resolves the callmos settings from defaults, an optional
// YAML file, a .env file and CALLMOS_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/cwbudde/algo-mos/internal/common"
	"github.com/cwbudde/algo-mos/mos"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "CALLMOS"

type Config struct {
	SampleRate   int           `mapstructure:"sample_rate"`
	MinSamples   int           `mapstructure:"min_samples"`
	Mode         string        `mapstructure:"mode"`
	Labels       string        `mapstructure:"labels"`
	FFmpegBin    string        `mapstructure:"ffmpeg_bin"`
	PESQBin      string        `mapstructure:"pesq_bin"`
	WorkDir      string        `mapstructure:"work_dir"`
	ReferenceDir string        `mapstructure:"reference_dir"`
	Workers      string        `mapstructure:"workers"`
	Timeout      time.Duration `mapstructure:"timeout"`
	LogLevel     string        `mapstructure:"log_level"`
	LogFormat    string        `mapstructure:"log_format"`
}

// SetDefaults registers every key so that environment variables are picked
// up by Unmarshal even when no config file mentions them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("sample_rate", mos.DefaultSampleRate)
	v.SetDefault("min_samples", mos.DefaultMinSamples)
	v.SetDefault("mode", string(mos.Wideband))
	v.SetDefault("labels", "en")
	v.SetDefault("ffmpeg_bin", "ffmpeg")
	v.SetDefault("pesq_bin", "pesq")
	v.SetDefault("work_dir", os.TempDir())
	v.SetDefault("reference_dir", ".")
	v.SetDefault("workers", "1")
	v.SetDefault("timeout", 60*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads the optional config file at path into v and returns the
// validated configuration. Flags bound to v before the call take precedence.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.SampleRate != 8000 && c.SampleRate != 16000 {
		errs = append(errs, fmt.Errorf("sample_rate %d: use 8000 or 16000", c.SampleRate))
	}
	mode, err := mos.ParseMode(c.Mode)
	if err != nil {
		errs = append(errs, fmt.Errorf("mode: %w", err))
	} else if mode == mos.Wideband && c.SampleRate != 16000 {
		errs = append(errs, fmt.Errorf("mode wb needs sample_rate 16000, got %d", c.SampleRate))
	}
	if c.MinSamples < 1 {
		errs = append(errs, fmt.Errorf("min_samples %d: must be >= 1", c.MinSamples))
	}
	if _, err := mos.LabelsByName(c.Labels); err != nil {
		errs = append(errs, fmt.Errorf("labels: %w", err))
	}
	if _, err := common.ParseWorkers(c.Workers); err != nil {
		errs = append(errs, fmt.Errorf("workers: %w", err))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout %s: must not be negative", c.Timeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) ScoringMode() mos.Mode {
	m, _ := mos.ParseMode(c.Mode)
	return m
}

func (c *Config) LabelSet() mos.Labels {
	l, _ := mos.LabelsByName(c.Labels)
	return l
}

// WorkerCount resolves the workers setting, mapping "auto" to GOMAXPROCS.
func (c *Config) WorkerCount() int {
	n, err := common.ParseWorkers(c.Workers)
	if err != nil {
		return 1
	}
	return common.ResolveWorkers(n)
}
