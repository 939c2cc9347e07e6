package score

import (
	"fmt"
	"log/slog"
	"slices"
)

// Field selects which RunRecord field fills the matrix cells.
type Field string

const (
	// FieldValue selects RunRecord.Value.
	FieldValue Field = "value"
	// FieldTime selects RunRecord.Time.
	FieldTime Field = "time"
)

// RunIDs returns the distinct run identifiers in ascending order.
func RunIDs(records []RunRecord) []int64 {
	ids := make([]int64, 0)
	seen := make(map[int64]bool)
	for _, r := range records {
		if !seen[r.RunID] {
			seen[r.RunID] = true
			ids = append(ids, r.RunID)
		}
	}
	slices.Sort(ids)
	return ids
}

// BuildValueMatrix reshapes long-format records into one column per run,
// ordered by ascending run identifier. Rows keep the order in which they
// occur in records, so callers sort or filter by time beforehand.
// All runs must contribute the same number of rows.
func BuildValueMatrix(records []RunRecord, field Field) (Matrix, error) {
	if field == "" {
		field = FieldValue
	}
	if field != FieldValue && field != FieldTime {
		return nil, fmt.Errorf("%w: unknown matrix field %q", ErrInvalidInput, field)
	}

	parts := make(map[int64][]float64)
	for _, r := range records {
		v := r.Value
		if field == FieldTime {
			v = float64(r.Time)
		}
		parts[r.RunID] = append(parts[r.RunID], v)
	}

	ids := RunIDs(records)
	m := make(Matrix, 0, len(ids))
	for _, id := range ids {
		col := parts[id]
		if len(m) > 0 && len(col) != len(m[0]) {
			return nil, fmt.Errorf("%w: run %d has %d rows, run %d has %d",
				ErrShape, id, len(col), ids[0], len(m[0]))
		}
		m = append(m, col)
	}

	slog.Debug("value matrix built", "field", field, "runs", m.Cols(), "rows", m.Rows())
	return m, nil
}

// prependColumn returns a new matrix with col as column 0.
func prependColumn(col []float64, m Matrix) Matrix {
	out := make(Matrix, 0, len(m)+1)
	out = append(out, append([]float64(nil), col...))
	return append(out, m...)
}
