package data

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/mchmarny/runweight/pkg/score"
)

const (
	insertEnsembleSQL = `INSERT INTO ensemble (id, name, source, runs, records, imported_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	insertRunRecordSQL = `INSERT INTO run_record (ensemble_id, run_id, variable, year, value, units)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (ensemble_id, run_id, variable, year) DO UPDATE SET value = excluded.value, units = excluded.units
	`

	selectEnsemblesSQL = `SELECT id, name, source, runs, records, imported_at
		FROM ensemble
		ORDER BY imported_at DESC, name
	`

	selectEnsembleSQL = `SELECT id, name, source, runs, records, imported_at
		FROM ensemble
		WHERE id = ? OR name = ?
		ORDER BY imported_at DESC
		LIMIT 1
	`

	selectVariablesSQL = `SELECT variable, units, COUNT(DISTINCT run_id), MIN(year), MAX(year)
		FROM run_record
		WHERE ensemble_id = ?
		GROUP BY variable, units
		ORDER BY variable
	`

	deleteRunRecordsSQL = `DELETE FROM run_record WHERE ensemble_id = ?`
	deleteEnsembleSQL   = `DELETE FROM ensemble WHERE id = ?`

	importLogEvery = 10000
)

var ErrEnsembleNotFound = errors.New("ensemble not found")

// Ensemble is one imported set of model runs.
type Ensemble struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Source     string `json:"source" yaml:"source"`
	Runs       int64  `json:"runs" yaml:"runs"`
	Records    int64  `json:"records" yaml:"records"`
	ImportedAt string `json:"imported_at" yaml:"importedAt"`
}

// ImportSummary describes the outcome of an import.
type ImportSummary struct {
	Ensemble  *Ensemble `json:"ensemble" yaml:"ensemble"`
	Variables []string  `json:"variables" yaml:"variables"`
	Missing   int       `json:"missing_values" yaml:"missingValues"`
	Duration  string    `json:"duration" yaml:"duration"`
}

// Variable summarizes one variable of an ensemble.
type Variable struct {
	Name     string `json:"name" yaml:"name"`
	Units    string `json:"units,omitempty" yaml:"units,omitempty"`
	Runs     int64  `json:"runs" yaml:"runs"`
	FromYear int64  `json:"from_year" yaml:"fromYear"`
	ToYear   int64  `json:"to_year" yaml:"toYear"`
}

// ImportRuns parses long-format CSV from r and stores it as a new ensemble.
func ImportRuns(db *sql.DB, name, source string, r io.Reader) (*ImportSummary, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	start := time.Now()
	list, err := ParseRuns(r)
	if err != nil {
		return nil, fmt.Errorf("error parsing ensemble output %s: %w", source, err)
	}

	sum, err := SaveRuns(db, name, source, list)
	if err != nil {
		return nil, err
	}
	sum.Duration = time.Since(start).String()
	return sum, nil
}

// SaveRuns stores records as a new ensemble in a single transaction.
// NaN and infinite values are stored as NULL, counted as missing, and read
// back as NaN.
func SaveRuns(db *sql.DB, name, source string, list []score.RunRecord) (*ImportSummary, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if name == "" {
		return nil, errors.New("ensemble name is required")
	}
	if len(list) == 0 {
		return nil, errors.New("no run records to save")
	}

	e := &Ensemble{
		ID:         uuid.NewString(),
		Name:       name,
		Source:     source,
		Runs:       int64(len(score.RunIDs(list))),
		Records:    int64(len(list)),
		ImportedAt: time.Now().UTC().Format(timeFormat),
	}
	sum := &ImportSummary{Ensemble: e, Variables: make([]string, 0)}
	seen := make(map[string]bool)

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("error starting import tx: %w", err)
	}

	if _, err := tx.Exec(rebind(db, insertEnsembleSQL), e.ID, e.Name, e.Source, e.Runs, e.Records, e.ImportedAt); err != nil {
		rollbackTransaction(tx)
		return nil, fmt.Errorf("error inserting ensemble %s: %w", name, err)
	}

	stmt, err := tx.Prepare(rebind(db, insertRunRecordSQL))
	if err != nil {
		rollbackTransaction(tx)
		return nil, fmt.Errorf("error preparing run record insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range list {
		var val sql.NullFloat64
		if !math.IsNaN(r.Value) && !math.IsInf(r.Value, 0) {
			val = sql.NullFloat64{Float64: r.Value, Valid: true}
		} else {
			sum.Missing++
		}

		if _, err := stmt.Exec(e.ID, r.RunID, r.Variable, r.Time, val, r.Units); err != nil {
			rollbackTransaction(tx)
			return nil, fmt.Errorf("error inserting run %d %s/%d: %w", r.RunID, r.Variable, r.Time, err)
		}

		if !seen[r.Variable] {
			seen[r.Variable] = true
			sum.Variables = append(sum.Variables, r.Variable)
		}

		if (i+1)%importLogEvery == 0 {
			slog.Info("import progress", "ensemble", name, "records", i+1, "total", len(list))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing import tx: %w", err)
	}

	slog.Info("ensemble imported", "name", name, "id", e.ID, "runs", e.Runs, "records", e.Records)
	return sum, nil
}

// ListEnsembles returns all ensembles, most recent first.
func ListEnsembles(db *sql.DB) ([]*Ensemble, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(selectEnsemblesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query ensembles: %w", err)
	}
	defer rows.Close()

	list := make([]*Ensemble, 0)
	for rows.Next() {
		e := &Ensemble{}
		if err := rows.Scan(&e.ID, &e.Name, &e.Source, &e.Runs, &e.Records, &e.ImportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ensemble row: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// GetEnsemble finds an ensemble by ID or name. When several ensembles share
// a name the most recent import wins.
func GetEnsemble(db *sql.DB, ref string) (*Ensemble, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if ref == "" {
		return nil, errors.New("ensemble id or name is required")
	}

	e := &Ensemble{}
	err := db.QueryRow(rebind(db, selectEnsembleSQL), ref, ref).
		Scan(&e.ID, &e.Name, &e.Source, &e.Runs, &e.Records, &e.ImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrEnsembleNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query ensemble %s: %w", ref, err)
	}
	return e, nil
}

// DeleteEnsemble removes an ensemble and its run records.
func DeleteEnsemble(db *sql.DB, ref string) (*Ensemble, error) {
	e, err := GetEnsemble(db, ref)
	if err != nil {
		return nil, err
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("error starting delete tx: %w", err)
	}
	if _, err := tx.Exec(rebind(db, deleteRunRecordsSQL), e.ID); err != nil {
		rollbackTransaction(tx)
		return nil, fmt.Errorf("error deleting run records of %s: %w", e.ID, err)
	}
	if _, err := tx.Exec(rebind(db, deleteEnsembleSQL), e.ID); err != nil {
		rollbackTransaction(tx)
		return nil, fmt.Errorf("error deleting ensemble %s: %w", e.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing delete tx: %w", err)
	}

	slog.Info("ensemble deleted", "name", e.Name, "id", e.ID)
	return e, nil
}

// ListVariables summarizes the variables stored for an ensemble.
func ListVariables(db *sql.DB, ensembleID string) ([]*Variable, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(rebind(db, selectVariablesSQL), ensembleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query variables: %w", err)
	}
	defer rows.Close()

	list := make([]*Variable, 0)
	for rows.Next() {
		v := &Variable{}
		if err := rows.Scan(&v.Name, &v.Units, &v.Runs, &v.FromYear, &v.ToYear); err != nil {
			return nil, fmt.Errorf("failed to scan variable row: %w", err)
		}
		list = append(list, v)
	}
	return list, rows.Err()
}
