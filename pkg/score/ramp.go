package score

import (
	"fmt"
	"log/slog"
	"math"
)

// Ramp scores each run with a piecewise-linear decay of the absolute
// deviation d from the observed series: 1 for d <= W1, 0 for d >= W2,
// linear in between. The run score is the mean of its row scores.
type Ramp struct {
	W1     float64 `json:"w1" yaml:"w1"`
	W2     float64 `json:"w2" yaml:"w2"`
	DropNA bool    `json:"drop_na" yaml:"drop_na"`

	workers int
}

// ScoreRamp scores the modeled columns of m with the ramp method. Scores
// are in [0,1], except that a run with no row where both it and the observed
// series have a value scores NaN.
func ScoreRamp(m Matrix, w1, w2 float64, dropNA bool) (ScoreVector, error) {
	return Ramp{W1: w1, W2: w2, DropNA: dropNA}.Score(m)
}

// Name returns the method name.
func (r Ramp) Name() string {
	return MethodRamp
}

func (r Ramp) withWorkers(n int) Scorer {
	r.workers = n
	return r
}

// Score implements Scorer.
func (r Ramp) Score(m Matrix) (ScoreVector, error) {
	if math.IsNaN(r.W1) || r.W1 < 0 {
		return nil, fmt.Errorf("%w: w1 must be >= 0, got %v", ErrInvalidInput, r.W1)
	}
	if math.IsNaN(r.W2) || r.W2 < r.W1 {
		return nil, fmt.Errorf("%w: w2 must be >= w1 (%v), got %v", ErrInvalidInput, r.W1, r.W2)
	}
	if err := checkColumns(m); err != nil {
		return nil, err
	}
	if allMissing(m[0]) {
		return nil, fmt.Errorf("%w: observed column", ErrAllMissing)
	}
	for j := 1; j < m.Cols(); j++ {
		if allMissing(m[j]) {
			return nil, fmt.Errorf("%w: run column %d", ErrAllMissing, j)
		}
	}

	v, err := eachColumn(m, r.workers, func(obs, mod []float64) (float64, error) {
		return r.column(obs, mod), nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("ramp scores", "w1", r.W1, "w2", r.W2, "drop_na", r.DropNA, "runs", len(v))
	return v, nil
}

// column returns the mean row score of one modeled column. Rows where either
// value is missing stay missing and do not count toward the mean; DropNA
// removes them up front so the mean runs over the complete rows only.
// A column with no comparable rows scores NaN.
func (r Ramp) column(obs, mod []float64) float64 {
	var sum float64
	var n int
	for i := range obs {
		if r.DropNA && (isMissing(obs[i]) || isMissing(mod[i])) {
			continue
		}
		s := r.row(math.Abs(obs[i] - mod[i]))
		if isMissing(s) {
			continue
		}
		sum += s
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// row maps a deviation to a score. The d >= W2 branch is evaluated first and
// the d <= W1 branch second so that with W1 == W2 a deviation of exactly W1
// is a perfect match.
func (r Ramp) row(d float64) float64 {
	if isMissing(d) {
		return d
	}
	s := math.NaN()
	if d >= r.W2 {
		s = 0
	}
	if d <= r.W1 {
		s = 1
	}
	if d > r.W1 && d < r.W2 {
		s = 1 - (d-r.W1)/(r.W2-r.W1)
	}
	return s
}
