package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
log:
  level: debug
  format: json
analysis:
  tolerance: 0.03
  workers: 8
  redshift_default: 0.09
events:
  - name: GW150914
    mass: 62
    spin: 0.68
    injection:
      noise: 0.01
      frequency_shift: 0.02
  - name: GW170104
    mass: 48.7
    spin: 0.64
    redshift: 0.2
    sample_rate: 16384
    reference_index: 1024
    data: strain/GW170104.txt
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	a := cfg.Analysis
	assert.Equal(t, 0.03, a.Tolerance)
	assert.Equal(t, 8, a.Workers)
	assert.Equal(t, 4, a.FilterOrder)
	assert.Equal(t, 50, a.MinSamples)
	assert.Equal(t, 0.02, a.WindowEnd)
	assert.Equal(t, 0.7, a.BandLowFactor)
	assert.Equal(t, 1.3, a.BandHighFactor)
	assert.Equal(t, 0.03, a.FitDuration)
	assert.Equal(t, 200, a.MaxIterations)
	assert.Equal(t, 1000, a.BootstrapResamples)
	assert.Equal(t, 0.9, a.BootstrapConfidence)
	assert.False(t, a.IncludeFlagged)

	require.Len(t, cfg.Events, 2)
	first := cfg.Events[0]
	assert.Equal(t, 4096.0, first.SampleRate)
	assert.Nil(t, first.ReferenceIndex)
	assert.Equal(t, 0.09, first.RedshiftOr(a.RedshiftDefault))
	require.NotNil(t, first.Injection)
	assert.Equal(t, 0.5, first.Injection.Duration)
	assert.Equal(t, 1.0, first.Injection.Amplitude)
	assert.Equal(t, uint64(1), first.Injection.Seed)
	assert.Equal(t, 0.02, first.Injection.FrequencyShift)

	second := cfg.Events[1]
	require.NotNil(t, second.ReferenceIndex)
	assert.Equal(t, 1024, *second.ReferenceIndex)
	assert.Equal(t, 0.2, second.RedshiftOr(a.RedshiftDefault))
	assert.Equal(t, "strain/GW170104.txt", second.Data)
}

func TestParseEnvironmentOverride(t *testing.T) {
	t.Setenv("RINGDOWN_ANALYSIS_WORKERS", "2")

	cfg, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Analysis.Workers)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "no events",
			yaml: "analysis:\n  workers: 2\n",
			want: "Events",
		},
		{
			name: "spin too high",
			yaml: "events:\n  - name: a\n    mass: 60\n    spin: 1.2\n    data: x.txt\n",
			want: "Spin",
		},
		{
			name: "missing source",
			yaml: "events:\n  - name: a\n    mass: 60\n    spin: 0.5\n",
			want: "Data",
		},
		{
			name: "both sources",
			yaml: "events:\n  - name: a\n    mass: 60\n    spin: 0.5\n    data: x.txt\n    injection:\n      noise: 0\n",
			want: "cannot be combined",
		},
		{
			name: "duplicate names",
			yaml: "events:\n  - name: a\n    mass: 60\n    data: x.txt\n  - name: a\n    mass: 50\n    data: y.txt\n",
			want: "unique",
		},
		{
			name: "inverted band",
			yaml: "analysis:\n  band_low_factor: 2\n  band_high_factor: 1\nevents:\n  - name: a\n    mass: 60\n    data: x.txt\n",
			want: "BandHighFactor",
		},
		{
			name: "bad log level",
			yaml: "log:\n  level: loud\nevents:\n  - name: a\n    mass: 60\n    data: x.txt\n",
			want: "Level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ringdown.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Events, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	a := Default()
	assert.Equal(t, 4, a.FilterOrder)
	assert.Equal(t, 0.05, a.Tolerance)
	assert.Equal(t, 4, a.Workers)
}
