// Package config loads the batch analysis configuration.
//
// Values come from a YAML file, may be overridden by RINGDOWN_* environment
// variables (nested keys joined by underscores, e.g. RINGDOWN_ANALYSIS_WORKERS),
// are completed with struct-tag defaults and finally validated.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/cwbudde/algo-ringdown/internal/logging"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "RINGDOWN"

// Config is the root of a batch configuration file.
type Config struct {
	Log      logging.Config `mapstructure:"log" yaml:"log"`
	Analysis Analysis       `mapstructure:"analysis" yaml:"analysis"`
	Events   []Event        `mapstructure:"events" yaml:"events" validate:"required,min=1,unique=Name,dive"`
}

// Analysis holds the per-run analysis settings.
type Analysis struct {
	FilterOrder int     `mapstructure:"filter_order" yaml:"filter_order" default:"4" validate:"gte=1,lte=8"`
	MinSamples  int     `mapstructure:"min_samples" yaml:"min_samples" default:"50" validate:"gte=16"`
	Tolerance   float64 `mapstructure:"tolerance" yaml:"tolerance" default:"0.05" validate:"gt=0"`

	// Tracking window relative to the reference sample, in seconds.
	WindowStart float64 `mapstructure:"window_start" yaml:"window_start"`
	WindowEnd   float64 `mapstructure:"window_end" yaml:"window_end" default:"0.02" validate:"gtfield=WindowStart"`

	// Pass band as factors of the reference frequency.
	BandLowFactor  float64 `mapstructure:"band_low_factor" yaml:"band_low_factor" default:"0.7" validate:"gt=0"`
	BandHighFactor float64 `mapstructure:"band_high_factor" yaml:"band_high_factor" default:"1.3" validate:"gtfield=BandLowFactor"`

	FitStart      float64 `mapstructure:"fit_start" yaml:"fit_start"`
	FitDuration   float64 `mapstructure:"fit_duration" yaml:"fit_duration" default:"0.03" validate:"gt=0"`
	MaxIterations int     `mapstructure:"max_iterations" yaml:"max_iterations" default:"200" validate:"gte=1"`

	// IncludeFlagged admits low-confidence and unreliable results into the
	// combined statistics.
	IncludeFlagged bool `mapstructure:"include_flagged" yaml:"include_flagged"`

	Workers             int     `mapstructure:"workers" yaml:"workers" default:"4" validate:"gte=1,lte=64"`
	BootstrapResamples  int     `mapstructure:"bootstrap_resamples" yaml:"bootstrap_resamples" default:"1000" validate:"gte=1"`
	BootstrapConfidence float64 `mapstructure:"bootstrap_confidence" yaml:"bootstrap_confidence" default:"0.9" validate:"gt=0,lt=1"`
	RedshiftDefault     float64 `mapstructure:"redshift_default" yaml:"redshift_default" validate:"gte=0"`
}

// Event is one ring-down to analyse: either a signal file or a synthetic
// injection.
type Event struct {
	Name       string   `mapstructure:"name" yaml:"name" validate:"required"`
	Mass       float64  `mapstructure:"mass" yaml:"mass" validate:"gt=0"`
	Spin       float64  `mapstructure:"spin" yaml:"spin" validate:"gte=0,lt=1"`
	Redshift   *float64 `mapstructure:"redshift" yaml:"redshift,omitempty" validate:"omitempty,gte=0"`
	SampleRate float64  `mapstructure:"sample_rate" yaml:"sample_rate" default:"4096" validate:"gt=0"`

	// ReferenceIndex is the merger sample. Nil locates the peak of |x|.
	ReferenceIndex *int `mapstructure:"reference_index" yaml:"reference_index,omitempty" validate:"omitempty,gte=0"`

	Data      string     `mapstructure:"data" yaml:"data,omitempty" validate:"required_without=Injection,excluded_with=Injection"`
	Injection *Injection `mapstructure:"injection" yaml:"injection,omitempty"`
}

// Injection describes a synthetic two-mode ring-down built from the
// reference prediction.
type Injection struct {
	Duration          float64 `mapstructure:"duration" yaml:"duration" default:"0.5" validate:"gt=0"`
	Amplitude         float64 `mapstructure:"amplitude" yaml:"amplitude" default:"1" validate:"gt=0"`
	OvertoneAmplitude float64 `mapstructure:"overtone_amplitude" yaml:"overtone_amplitude" validate:"gte=0"`
	// FrequencyShift is a fractional offset applied to the fundamental.
	FrequencyShift float64 `mapstructure:"frequency_shift" yaml:"frequency_shift" validate:"gt=-1,lt=1"`
	Noise          float64 `mapstructure:"noise" yaml:"noise" validate:"gte=0"`
	Seed           uint64  `mapstructure:"seed" yaml:"seed" default:"1"`
}

// RedshiftOr returns the event redshift or fallback when unset.
func (e Event) RedshiftOr(fallback float64) float64 {
	if e.Redshift != nil {
		return *e.Redshift
	}
	return fallback
}

var validate = validator.New()

// Load reads the file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(bytes.NewReader(b))
}

// Parse reads YAML from r.
func Parse(r io.Reader) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := c.setDefaults(); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// Default returns the settings used when no file is given.
func Default() Analysis {
	var a Analysis
	_ = defaults.Set(&a)
	return a
}

func (c *Config) setDefaults() error {
	if err := defaults.Set(c); err != nil {
		return err
	}
	for i := range c.Events {
		if err := defaults.Set(&c.Events[i]); err != nil {
			return err
		}
		if inj := c.Events[i].Injection; inj != nil {
			if err := defaults.Set(inj); err != nil {
				return err
			}
		}
	}
	return nil
}

// Validate checks struct constraints and reports every violation.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_without":
		return fmt.Sprintf("%s is required when %s is not set", field, fe.Param())
	case "excluded_with":
		return fmt.Sprintf("%s cannot be combined with %s", field, fe.Param())
	case "gt", "gtfield":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "unique":
		return fmt.Sprintf("%s must have unique %s values", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
