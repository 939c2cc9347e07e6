package data

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mchmarny/runweight/pkg/score"
)

const (
	upsertCriterionSQL = `INSERT INTO criterion (name, variable, units, years, obs_values, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			variable = excluded.variable,
			units = excluded.units,
			years = excluded.years,
			obs_values = excluded.obs_values,
			updated_at = excluded.updated_at
	`

	selectCriterionSQL = `SELECT name, variable, units, years, obs_values
		FROM criterion
		WHERE name = ?
	`

	selectCriteriaSQL = `SELECT name, variable, units, years, obs_values
		FROM criterion
		ORDER BY name
	`

	deleteCriterionSQL = `DELETE FROM criterion WHERE name = ?`
)

var ErrCriterionNotFound = errors.New("criterion not found")

// SaveCriterion validates and stores c under its name, replacing any
// previous definition.
func SaveCriterion(db *sql.DB, c *score.Criterion) error {
	if db == nil {
		return errDBNotInitialized
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid criterion: %w", err)
	}
	if c.Name == "" {
		return errors.New("criterion name is required")
	}

	years, err := json.Marshal(c.Years)
	if err != nil {
		return fmt.Errorf("failed to marshal years of %s: %w", c.Name, err)
	}
	obs, err := json.Marshal(toNullable(c.ObservedValues))
	if err != nil {
		return fmt.Errorf("failed to marshal observed values of %s: %w", c.Name, err)
	}

	now := time.Now().UTC().Format(timeFormat)
	if _, err := db.Exec(rebind(db, upsertCriterionSQL), c.Name, c.Variable, c.Units, string(years), string(obs), now); err != nil {
		return fmt.Errorf("failed to save criterion %s: %w", c.Name, err)
	}
	return nil
}

// GetCriterion loads a criterion by name.
func GetCriterion(db *sql.DB, name string) (*score.Criterion, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	c, err := scanCriterion(db.QueryRow(rebind(db, selectCriterionSQL), name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCriterionNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get criterion %s: %w", name, err)
	}
	return c, nil
}

// ListCriteria returns all stored criteria ordered by name.
func ListCriteria(db *sql.DB) ([]*score.Criterion, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(selectCriteriaSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query criteria: %w", err)
	}
	defer rows.Close()

	list := make([]*score.Criterion, 0)
	for rows.Next() {
		c, err := scanCriterion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan criterion: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// DeleteCriterion removes a criterion by name.
func DeleteCriterion(db *sql.DB, name string) error {
	if db == nil {
		return errDBNotInitialized
	}

	res, err := db.Exec(rebind(db, deleteCriterionSQL), name)
	if err != nil {
		return fmt.Errorf("failed to delete criterion %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrCriterionNotFound, name)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCriterion(s scanner) (*score.Criterion, error) {
	var c score.Criterion
	var years, obs string
	if err := s.Scan(&c.Name, &c.Variable, &c.Units, &years, &obs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(years), &c.Years); err != nil {
		return nil, fmt.Errorf("failed to decode years of %s: %w", c.Name, err)
	}
	var vals []*float64
	if err := json.Unmarshal([]byte(obs), &vals); err != nil {
		return nil, fmt.Errorf("failed to decode observed values of %s: %w", c.Name, err)
	}
	c.ObservedValues = fromNullable(vals)
	return &c, nil
}

// toNullable maps missing values to nil since JSON has no NaN.
func toNullable(list []float64) []*float64 {
	out := make([]*float64, len(list))
	for i, v := range list {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = &v
	}
	return out
}

func fromNullable(list []*float64) []float64 {
	out := make([]float64, len(list))
	for i, v := range list {
		out[i] = math.NaN()
		if v != nil {
			out[i] = *v
		}
	}
	return out
}
