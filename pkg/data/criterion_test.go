package data

import (
	"math"
	"testing"

	"github.com/mchmarny/runweight/pkg/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStoredCriterion(t *testing.T) *score.Criterion {
	t.Helper()
	c, err := score.NewCriterion("gmst", []int64{2000, 2001, 2002}, []float64{0.1, math.NaN(), 0.3})
	require.NoError(t, err)
	c.Name = "hadcrut5"
	c.Units = "degC"
	return c
}

func TestSaveAndGetCriterion(t *testing.T) {
	db := setupTestDB(t)
	c := testStoredCriterion(t)
	require.NoError(t, SaveCriterion(db, c))

	got, err := GetCriterion(db, "hadcrut5")
	require.NoError(t, err)
	assert.Equal(t, "hadcrut5", got.Name)
	assert.Equal(t, "gmst", got.Variable)
	assert.Equal(t, "degC", got.Units)
	assert.Equal(t, []int64{2000, 2001, 2002}, got.Years)
	require.Len(t, got.ObservedValues, 3)
	assert.Equal(t, 0.1, got.ObservedValues[0])
	assert.True(t, math.IsNaN(got.ObservedValues[1]))
	assert.Equal(t, 0.3, got.ObservedValues[2])
}

func TestSaveCriterion_Replaces(t *testing.T) {
	db := setupTestDB(t)
	c := testStoredCriterion(t)
	require.NoError(t, SaveCriterion(db, c))

	c.Years = []int64{1990}
	c.ObservedValues = []float64{-0.2}
	require.NoError(t, SaveCriterion(db, c))

	got, err := GetCriterion(db, c.Name)
	require.NoError(t, err)
	assert.Equal(t, []int64{1990}, got.Years)
	assert.Equal(t, []float64{-0.2}, got.ObservedValues)
}

func TestSaveCriterion_Invalid(t *testing.T) {
	db := setupTestDB(t)

	c := testStoredCriterion(t)
	c.Name = ""
	assert.Error(t, SaveCriterion(db, c))

	c = testStoredCriterion(t)
	c.ObservedValues = c.ObservedValues[:1]
	err := SaveCriterion(db, c)
	assert.ErrorIs(t, err, score.ErrType)

	assert.Error(t, SaveCriterion(db, nil))
	assert.Error(t, SaveCriterion(nil, testStoredCriterion(t)))
}

func TestListAndDeleteCriteria(t *testing.T) {
	db := setupTestDB(t)

	a := testStoredCriterion(t)
	b := testStoredCriterion(t)
	b.Name = "berkeley"
	require.NoError(t, SaveCriterion(db, a))
	require.NoError(t, SaveCriterion(db, b))

	list, err := ListCriteria(db)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "berkeley", list[0].Name)
	assert.Equal(t, "hadcrut5", list[1].Name)

	require.NoError(t, DeleteCriterion(db, "berkeley"))
	assert.ErrorIs(t, DeleteCriterion(db, "berkeley"), ErrCriterionNotFound)

	_, err = GetCriterion(db, "berkeley")
	assert.ErrorIs(t, err, ErrCriterionNotFound)

	list, err = ListCriteria(db)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
