package data

import (
	"database/sql"
	"errors"
	"fmt"
)

var (
	stateQueries = map[string]string{
		"ensemble":   "SELECT COUNT(*) FROM ensemble",
		"run_record": "SELECT COUNT(*) FROM run_record",
		"variable":   "SELECT COUNT(DISTINCT variable) FROM run_record",
		"criterion":  "SELECT COUNT(*) FROM criterion",
	}
)

// GetDataState returns the current row counts of the database.
func GetDataState(db *sql.DB) (map[string]int64, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	state := make(map[string]int64)
	for k, v := range stateQueries {
		stmt, err := db.Prepare(v)
		if err != nil {
			return nil, fmt.Errorf("error preparing %s statement: %w", k, err)
		}

		count, err := getCount(stmt)
		stmt.Close()
		if err != nil {
			return nil, fmt.Errorf("error getting %s count: %w", k, err)
		}
		state[k] = count
	}

	return state, nil
}

func getCount(stmt *sql.Stmt) (int64, error) {
	var count int64
	err := stmt.QueryRow().Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to scan row: %w", err)
	}

	return count, nil
}
