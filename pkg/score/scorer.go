package score

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	// MethodRamp names the piecewise-linear ramp scorer.
	MethodRamp = "ramp"
	// MethodBayesian names the RMSE likelihood posterior scorer.
	MethodBayesian = "bayesian"

	minMatrixCols = 3
)

// Methods lists the built-in scoring methods.
var Methods = []string{MethodRamp, MethodBayesian}

// Scorer turns an aligned matrix (column 0 observed, 1..K modeled)
// into one score per modeled column.
type Scorer interface {
	Score(m Matrix) (ScoreVector, error)
	Name() string
}

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc func(m Matrix) (ScoreVector, error)

// Score calls f(m).
func (f ScorerFunc) Score(m Matrix) (ScoreVector, error) {
	return f(m)
}

// Name returns "custom".
func (f ScorerFunc) Name() string {
	return "custom"
}

// Params carries the scorer-specific parameters of the built-in methods.
type Params struct {
	W1     float64 `json:"w1" yaml:"w1"`
	W2     float64 `json:"w2" yaml:"w2"`
	DropNA bool    `json:"drop_na" yaml:"drop_na"`
	E      float64 `json:"e" yaml:"e"`
}

// NewScorer resolves a built-in scorer by method name.
func NewScorer(method string, p Params) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case MethodRamp:
		return Ramp{W1: p.W1, W2: p.W2, DropNA: p.DropNA}, nil
	case MethodBayesian, "bayes":
		if math.IsNaN(p.E) || p.E <= 0 {
			return nil, fmt.Errorf("%w: exponent e must be > 0, got %v", ErrInvalidInput, p.E)
		}
		return Bayesian{E: p.E}, nil
	default:
		return nil, fmt.Errorf("%w: unknown scoring method %q (want one of %s)",
			ErrInvalidInput, method, strings.Join(Methods, ", "))
	}
}

// concurrent is implemented by scorers that can spread columns across workers.
type concurrent interface {
	withWorkers(n int) Scorer
}

func checkColumns(m Matrix) error {
	if m.Cols() < minMatrixCols {
		return fmt.Errorf("%w: matrix has %d columns, need observed plus at least 2 runs",
			ErrInvalidInput, m.Cols())
	}
	for j := 1; j < m.Cols(); j++ {
		if len(m[j]) != len(m[0]) {
			return fmt.Errorf("%w: column %d has %d rows, observed has %d",
				ErrShape, j, len(m[j]), len(m[0]))
		}
	}
	return nil
}

// eachColumn applies fn to every modeled column and stores the results in
// column order. With workers > 1 columns are scored concurrently.
func eachColumn(m Matrix, workers int, fn func(obs, mod []float64) (float64, error)) (ScoreVector, error) {
	obs := m[0]
	out := make(ScoreVector, m.Cols()-1)

	if workers <= 1 {
		for j := 1; j < m.Cols(); j++ {
			v, err := fn(obs, m[j])
			if err != nil {
				return nil, fmt.Errorf("column %d: %w", j, err)
			}
			out[j-1] = v
		}
		return out, nil
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for j := 1; j < m.Cols(); j++ {
		g.Go(func() error {
			v, err := fn(obs, m[j])
			if err != nil {
				return fmt.Errorf("column %d: %w", j, err)
			}
			out[j-1] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
