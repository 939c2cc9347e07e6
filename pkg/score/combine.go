package score

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// CombineCriteria merges the tables of several criteria scored over the same
// ensemble into one weight per run: the weighted mean of the per-criterion
// weights, normalized to sum to 1. Nil weights means equal weighting.
// A run missing a weight under one criterion counts as zero there.
func CombineCriteria(tables []*ResultTable, weights []float64) (*ResultTable, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no result tables to combine", ErrInvalidInput)
	}
	if weights == nil {
		weights = make([]float64, len(tables))
		for i := range weights {
			weights[i] = 1
		}
	}
	if len(weights) != len(tables) {
		return nil, fmt.Errorf("%w: %d criterion weights for %d tables",
			ErrInvalidInput, len(weights), len(tables))
	}

	var wsum float64
	for i, w := range weights {
		if math.IsNaN(w) || w < 0 {
			return nil, fmt.Errorf("%w: criterion weight %d is %v", ErrInvalidInput, i, w)
		}
		wsum += w
	}
	if wsum == 0 {
		return nil, fmt.Errorf("%w: criterion weights sum to 0", ErrDegenerateWeights)
	}

	base := tables[0]
	if base == nil {
		return nil, fmt.Errorf("%w: result table 0 is nil", ErrType)
	}
	combined := make(ScoreVector, len(base.Rows))
	names := make([]string, 0, len(tables))

	for i, t := range tables {
		if t == nil {
			return nil, fmt.Errorf("%w: result table %d is nil", ErrType, i)
		}
		if err := sameRuns(base, t); err != nil {
			return nil, fmt.Errorf("table %d (%s): %w", i, t.Criterion, err)
		}
		for j, r := range t.Rows {
			if isMissing(r.Weight) {
				continue
			}
			combined[j] += weights[i] * r.Weight / wsum
		}
		if t.Criterion != "" {
			names = append(names, t.Criterion)
		}
	}

	norm, err := NormalizeWeights(combined)
	if err != nil {
		return nil, fmt.Errorf("combining criteria: %w", err)
	}

	out := &ResultTable{
		Criterion: strings.Join(names, "+"),
		Method:    base.Method,
		Rows:      make([]Result, len(base.Rows)),
	}
	for j, r := range base.Rows {
		out.Rows[j] = Result{Weight: norm[j], RunNumber: r.RunNumber, RunID: r.RunID}
	}

	slog.Debug("criteria combined", "criteria", len(tables), "runs", len(out.Rows))
	return out, nil
}

func sameRuns(a, b *ResultTable) error {
	if len(a.Rows) != len(b.Rows) {
		return fmt.Errorf("%w: %d runs, expected %d", ErrShape, len(b.Rows), len(a.Rows))
	}
	for j := range a.Rows {
		if a.Rows[j].RunID != b.Rows[j].RunID {
			return fmt.Errorf("%w: run %d is id %d, expected %d",
				ErrShape, j+1, b.Rows[j].RunID, a.Rows[j].RunID)
		}
	}
	return nil
}
