package data

import (
	"math"
	"strings"
	"testing"

	"github.com/mchmarny/runweight/pkg/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryRuns(t *testing.T) {
	db := setupTestDB(t)

	sum, err := ImportRuns(db, "ens", "a.csv", strings.NewReader(testRunsCSV))
	require.NoError(t, err)
	id := sum.Ensemble.ID

	all, err := QueryRuns(db, id, "", nil)
	require.NoError(t, err)
	assert.Len(t, all, 12)

	gmst, err := QueryRuns(db, id, "gmst", []int64{2001, 2002})
	require.NoError(t, err)
	require.Len(t, gmst, 6)
	assert.Equal(t, score.RunRecord{RunID: 1, Time: 2001, Variable: "gmst", Value: 0.2, Units: "degC"}, gmst[0])
	assert.True(t, math.IsNaN(gmst[2].Value))
	assert.Equal(t, int64(3), gmst[5].RunID)
	assert.Equal(t, int64(2002), gmst[5].Time)

	none, err := QueryRuns(db, id, "ocean_heat", nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = QueryRuns(db, "", "gmst", nil)
	assert.Error(t, err)

	_, err = QueryRuns(nil, id, "gmst", nil)
	assert.Error(t, err)
}

func TestQueryRuns_ScoresEndToEnd(t *testing.T) {
	db := setupTestDB(t)

	sum, err := ImportRuns(db, "ens", "a.csv", strings.NewReader(testRunsCSV))
	require.NoError(t, err)

	c, err := score.NewCriterion("gmst", []int64{2000, 2001, 2002}, []float64{0.1, 0.2, 0.3})
	require.NoError(t, err)

	recs, err := QueryRuns(db, sum.Ensemble.ID, c.Variable, c.Years)
	require.NoError(t, err)

	tbl, err := score.ScoreRuns(recs, c, score.Ramp{W1: 0.05, W2: 0.5, DropNA: true})
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 3)
	assert.Equal(t, 1.0, tbl.Rows[0].Weight)
	assert.Equal(t, 1.0, tbl.Rows[1].Weight)
	assert.Less(t, tbl.Rows[2].Weight, 0.5)

	_, err = score.ScoreRuns(recs, c, score.Bayesian{E: 2})
	require.NoError(t, err)
}
