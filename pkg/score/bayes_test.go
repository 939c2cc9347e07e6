package score

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-9

func TestScoreBayesian_ScenarioC(t *testing.T) {
	obs := []float64{0, 0, 0, 0}
	m := Matrix{obs, {0, 0, 0, 0}, {10, -10, 10, -10}}

	assert.Equal(t, 0.0, RMSE(m[0], m[1]))
	assert.Equal(t, 10.0, RMSE(m[0], m[2]))

	v, err := ScoreBayesian(m, 2)
	require.NoError(t, err)
	require.Len(t, v, 2)
	assert.InDelta(t, 1.0, v[0], epsilon)
	assert.InDelta(t, 0.0, v[1], epsilon)
}

func TestScoreBayesian_SumsToOne(t *testing.T) {
	m := Matrix{
		{14.1, 14.3, 14.2, 14.6, 14.5},
		{14.0, 14.2, 14.4, 14.5, 14.7},
		{13.5, 13.9, 14.0, 14.1, 14.0},
		{14.1, 14.3, 14.2, 14.6, 14.5},
		{15.2, 15.6, 15.1, 15.8, 16.0},
	}
	for _, e := range []float64{0.5, 1, 2, 3} {
		v, err := ScoreBayesian(m, e)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, v.Sum(), epsilon)
	}
}

func TestScoreBayesian_PerfectMatchHasMaxWeight(t *testing.T) {
	obs := []float64{1, 2, 3, 4}
	m := Matrix{obs, {1.5, 2.5, 3.5, 4.5}, obs, {0, 0, 0, 0}}

	v, err := ScoreBayesian(m, DefaultExponent)
	require.NoError(t, err)
	for j := range v {
		assert.LessOrEqual(t, v[j], v[1])
	}

	r, err := ScoreRamp(m, 0.1, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r[1])
}

func TestScoreBayesian_SpreadsWithMoreRuns(t *testing.T) {
	obs := []float64{1, 2, 3}
	small := Matrix{obs, obs, obs}
	large := Matrix{obs, obs, obs, obs, obs}

	vs, err := ScoreBayesian(small, 2)
	require.NoError(t, err)
	vl, err := ScoreBayesian(large, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, vs[0], epsilon)
	assert.InDelta(t, 0.25, vl[0], epsilon)
}

func TestScoreBayesian_MissingPropagates(t *testing.T) {
	m := Matrix{{1, 2, 3}, {1, nan, 3}, {1, 2, 3.5}}

	assert.True(t, math.IsNaN(RMSE(m[0], m[1])))

	v, err := ScoreBayesian(m, 2)
	require.NoError(t, err)
	require.Len(t, v, 2)
	assert.Equal(t, 0.0, v[0])
	assert.InDelta(t, 1.0, v[1], epsilon)
}

func TestScoreBayesian_Degenerate(t *testing.T) {
	m := Matrix{{0, 0}, {1000, 1000}, {-1000, -1000}}
	_, err := ScoreBayesian(m, 2)
	assert.ErrorIs(t, err, ErrDegenerateWeights)

	_, err = ScoreBayesian(Matrix{{1}, {nan}, {nan}}, 2)
	assert.ErrorIs(t, err, ErrDegenerateWeights)
}

func TestScoreBayesian_InvalidInput(t *testing.T) {
	_, err := ScoreBayesian(Matrix{{1}, {1}}, 2)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ScoreBayesian(Matrix{{1}, {1}, {1}}, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ScoreBayesian(Matrix{{1}, {1}, {1}}, -2)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ScoreBayesian(Matrix{{1, 2}, {1}, {1, 2}}, 2)
	assert.ErrorIs(t, err, ErrShape)
}

func TestLikelihood_ExponentDecay(t *testing.T) {
	tests := []struct {
		name string
		rmse float64
	}{
		{"just above one", 1.01},
		{"two", 2},
		{"large", 7.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := Likelihood(tt.rmse, 0.5)
			for _, e := range []float64{1, 1.5, 2, 3, 4} {
				l := Likelihood(tt.rmse, e)
				assert.Less(t, l, prev, "e=%v", e)
				prev = l
			}
		})
	}
}

func TestLikelihood(t *testing.T) {
	assert.Equal(t, 1.0, Likelihood(0, 2))
	assert.InDelta(t, math.Exp(-0.5), Likelihood(1, 2), epsilon)
	assert.InDelta(t, math.Exp(-2), Likelihood(2, 2), epsilon)
	assert.True(t, math.IsNaN(Likelihood(nan, 2)))
}

func TestNormalizeWeights(t *testing.T) {
	v, err := NormalizeWeights(ScoreVector{1, 3, nan, 0})
	require.NoError(t, err)
	assert.Equal(t, ScoreVector{0.25, 0.75, 0, 0}, v)

	_, err = NormalizeWeights(ScoreVector{0, 0})
	assert.ErrorIs(t, err, ErrDegenerateWeights)

	_, err = NormalizeWeights(ScoreVector{1, -1})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestScoreBayesian_Workers(t *testing.T) {
	m := Matrix{{1, 2, 3}}
	for j := 0; j < 25; j++ {
		f := float64(j) / 7
		m = append(m, []float64{1 + f, 2 - f, 3 + f*f})
	}

	seq, err := Bayesian{E: 2}.Score(m)
	require.NoError(t, err)
	par, err := Bayesian{E: 2}.withWorkers(4).Score(m)
	require.NoError(t, err)
	assert.Equal(t, seq, par)
}
