package data

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mchmarny/runweight/pkg/score"
)

const (
	selectRunRecordsSQL = `SELECT run_id, year, variable, value, units
		FROM run_record
		WHERE ensemble_id = ?
		  AND variable = COALESCE(?, variable)
		  %s
		ORDER BY run_id, year
	`
)

// QueryRuns returns the run records of an ensemble ordered by run and year.
// An empty variable selects all variables; empty years selects all years.
// Missing values come back as NaN.
func QueryRuns(db *sql.DB, ensembleID, variable string, years []int64) ([]score.RunRecord, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if ensembleID == "" {
		return nil, errors.New("ensemble id is required")
	}

	args := []any{ensembleID, nullString(variable)}
	yearFilter := ""
	if len(years) > 0 {
		marks := make([]string, len(years))
		for i, y := range years {
			marks[i] = "?"
			args = append(args, y)
		}
		yearFilter = fmt.Sprintf("AND year IN (%s)", strings.Join(marks, ", "))
	}

	q := rebind(db, fmt.Sprintf(selectRunRecordsSQL, yearFilter))
	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query run records: %w", err)
	}
	defer rows.Close()

	list := make([]score.RunRecord, 0)
	for rows.Next() {
		var r score.RunRecord
		var val sql.NullFloat64
		if err := rows.Scan(&r.RunID, &r.Time, &r.Variable, &val, &r.Units); err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		r.Value = math.NaN()
		if val.Valid {
			r.Value = val.Float64
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
