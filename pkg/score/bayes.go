package score

import (
	"fmt"
	"log/slog"
	"math"
)

// DefaultExponent is the decay exponent of the default configuration.
const DefaultExponent = 2.0

// Bayesian scores runs by posterior probability under a normal error model:
// likelihood exp(-0.5 * rmse^E), uniform prior, normalized to sum to 1.
// Larger E penalizes deviations above 1 more steeply.
type Bayesian struct {
	E float64 `json:"e" yaml:"e"`

	workers int
}

// ScoreBayesian scores the modeled columns of m with the Bayesian method.
func ScoreBayesian(m Matrix, e float64) (ScoreVector, error) {
	return Bayesian{E: e}.Score(m)
}

// Name returns the method name.
func (b Bayesian) Name() string {
	return MethodBayesian
}

func (b Bayesian) withWorkers(n int) Scorer {
	b.workers = n
	return b
}

// Score implements Scorer.
func (b Bayesian) Score(m Matrix) (ScoreVector, error) {
	if math.IsNaN(b.E) || b.E <= 0 {
		return nil, fmt.Errorf("%w: exponent e must be > 0, got %v", ErrInvalidInput, b.E)
	}
	if err := checkColumns(m); err != nil {
		return nil, err
	}

	likelihoods, err := eachColumn(m, b.workers, func(obs, mod []float64) (float64, error) {
		return Likelihood(RMSE(obs, mod), b.E), nil
	})
	if err != nil {
		return nil, err
	}

	prior := 1 / float64(len(likelihoods))
	posterior := make(ScoreVector, len(likelihoods))
	for j, l := range likelihoods {
		// a missing likelihood keeps the run with zero mass
		if isMissing(l) {
			l = 0
		}
		posterior[j] = l * prior
	}

	probs, err := NormalizeWeights(posterior)
	if err != nil {
		return nil, fmt.Errorf("posterior: %w", err)
	}

	slog.Debug("bayesian scores", "e", b.E, "runs", len(probs))
	return probs, nil
}

// RMSE is the root-mean-square error between obs and mod over all rows.
// Any missing value yields NaN.
func RMSE(obs, mod []float64) float64 {
	if len(obs) == 0 || len(obs) != len(mod) {
		return math.NaN()
	}
	var sum float64
	for i := range obs {
		d := obs[i] - mod[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(obs)))
}

// Likelihood is exp(-0.5 * rmse^e). A missing rmse yields NaN.
func Likelihood(rmse, e float64) float64 {
	if isMissing(rmse) {
		return rmse
	}
	return math.Exp(-0.5 * math.Pow(rmse, e))
}

// NormalizeWeights scales v to sum to 1. Missing entries count as zero.
func NormalizeWeights(v ScoreVector) (ScoreVector, error) {
	var sum float64
	for _, x := range v {
		if isMissing(x) {
			continue
		}
		if x < 0 {
			return nil, fmt.Errorf("%w: negative weight %v", ErrInvalidInput, x)
		}
		sum += x
	}
	if sum == 0 || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("%w: weights sum to %v", ErrDegenerateWeights, sum)
	}
	out := make(ScoreVector, len(v))
	for i, x := range v {
		if isMissing(x) {
			continue
		}
		out[i] = x / sum
	}
	return out, nil
}
