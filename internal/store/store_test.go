package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-ringdown/internal/pipeline"
	"github.com/cwbudde/algo-ringdown/measure/anomaly"
	"github.com/cwbudde/algo-ringdown/measure/modefit"
	"github.com/cwbudde/algo-ringdown/stats/stack"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func summaryAt(start time.Time) pipeline.Summary {
	return pipeline.Summary{
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Events: []pipeline.EventResult{
			{
				Name: "GW-b", Mass: 62, Spin: 0.68, Redshift: 0.09,
				ReferenceFrequency: 250.5, MeanFrequency: 252, FrequencyDeviation: 0.006,
				Anomaly: anomaly.Result{MaxDeviation: 0.02, Significance: 3.5},
				Fit: &modefit.Result{
					Fundamental:      modefit.Mode{Frequency: 250, FrequencyErr: 0.4},
					Overtone:         modefit.Mode{Frequency: 395, FrequencyErr: math.NaN()},
					RatioDeviation:   0.001,
					RatioUncertainty: math.NaN(),
				},
			},
			{
				Name: "GW-a", Mass: 80, Spin: 0.995, Redshift: 0.1,
				Error: "qnm: spin 0.995 out of range",
			},
		},
		Combined: []stack.Combined{
			{Field: stack.FieldFrequencyDeviation, Mean: 0.006, StdErr: 0.002, Significance: 3, Level: stack.LevelEvidence, Count: 1, Mode: stack.CallerWeights},
			{Field: stack.FieldMaxDeviation, Mean: 0.02, StdErr: 0.01, Significance: 2, Level: stack.LevelHint, Count: 1, Mode: stack.CallerWeights},
		},
	}
}

func TestSaveAndReadBack(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	id, err := s.SaveRun(ctx, summaryAt(start))
	require.NoError(t, err)
	assert.Positive(t, id)

	run, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
	assert.Equal(t, 2, run.Events)
	assert.Equal(t, 1, run.Failed)
	assert.True(t, run.StartedAt.Equal(start))
	assert.True(t, run.FinishedAt.Equal(start.Add(2*time.Second)))

	events, err := s.EventResults(ctx, id)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Catalogue order is kept, not name order.
	ok := events[0]
	assert.Equal(t, "GW-b", ok.Name)
	assert.InDelta(t, 0.006, ok.FrequencyDeviation.Float64, 1e-12)
	assert.True(t, ok.Fundamental.Valid)
	assert.InDelta(t, 0.4, ok.FundamentalErr.Float64, 1e-12)
	assert.True(t, ok.Overtone.Valid)
	assert.False(t, ok.OvertoneErr.Valid, "NaN must be stored as NULL")
	assert.False(t, ok.RatioUncertainty.Valid)
	assert.Empty(t, ok.Error)

	failed := events[1]
	assert.Equal(t, "GW-a", failed.Name)
	assert.False(t, failed.ReferenceFrequency.Valid)
	assert.False(t, failed.MeanFrequency.Valid)
	assert.False(t, failed.Fundamental.Valid)
	assert.Contains(t, failed.Error, "out of range")

	combined, err := s.CombinedResults(ctx, id)
	require.NoError(t, err)
	require.Len(t, combined, 2)
	assert.Equal(t, stack.FieldFrequencyDeviation, combined[0].Field)
	assert.Equal(t, "evidence", combined[0].Level)
	assert.Equal(t, "caller-weights", combined[0].Mode)
	assert.Equal(t, stack.FieldMaxDeviation, combined[1].Field)
}

func TestLatestRunPicksNewest(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	newer, err := s.SaveRun(ctx, summaryAt(base.Add(time.Hour)))
	require.NoError(t, err)
	_, err = s.SaveRun(ctx, summaryAt(base))
	require.NoError(t, err)

	run, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer, run.ID)
}

func TestEmptyStore(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, err := s.LatestRun(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.EventResults(ctx, 42)
	require.ErrorIs(t, err, ErrNotFound)

	combined, err := s.CombinedResults(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, combined)
}

func TestDuplicateEventNamesRollBack(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	sum := summaryAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	sum.Events[1].Name = sum.Events[0].Name

	_, err := s.SaveRun(ctx, sum)
	require.Error(t, err)

	_, err = s.LatestRun(ctx)
	require.ErrorIs(t, err, ErrNotFound, "failed save must not leave a run behind")
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	id, err := s.SaveRun(ctx, summaryAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	run, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
}
