package score

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
)

type options struct {
	alignmentCheck bool
	workers        int
}

// Option configures ScoreRuns.
type Option func(*options)

// WithAlignmentCheck toggles verification that every run's time axis equals
// the criterion years, in order. It is on by default. When off, only the row
// count is compared with the observed values.
func WithAlignmentCheck(enabled bool) Option {
	return func(o *options) {
		o.alignmentCheck = enabled
	}
}

// WithWorkers scores modeled columns on up to n goroutines when the scorer
// supports it. Results keep column order.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// ScoreRuns subsets records to the criterion variable and years, builds the
// aligned matrix with the observed values as column 0, and scores it.
//
// The returned rows are ordered by RunNumber, the 1-based position of the run
// among the modeled columns (ascending run identifier). RunNumber equals the
// simulator RunID only when the identifiers are 1..K; the RunID field always
// carries the original identifier.
func ScoreRuns(records []RunRecord, c *Criterion, s Scorer, opts ...Option) (*ResultTable, error) {
	o := &options{alignmentCheck: true}
	for _, opt := range opts {
		opt(o)
	}

	if records == nil {
		return nil, fmt.Errorf("%w: ensemble output is nil", ErrType)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: criterion is nil", ErrType)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: scorer is nil", ErrType)
	}

	subset := subsetRecords(records, c)
	if len(subset) == 0 {
		return nil, fmt.Errorf("%w: variable %q in years %d-%d",
			ErrEmptySubset, c.Variable, c.Years[0], c.Years[len(c.Years)-1])
	}

	modeled, err := BuildValueMatrix(subset, FieldValue)
	if err != nil {
		return nil, fmt.Errorf("building value matrix for %q: %w", c.Variable, err)
	}
	if err := checkAlignment(subset, c, modeled, o.alignmentCheck); err != nil {
		return nil, err
	}

	m := prependColumn(c.ObservedValues, modeled)

	if o.workers > 1 {
		if cs, ok := s.(concurrent); ok {
			s = cs.withWorkers(o.workers)
		}
	}

	scores, err := s.Score(m)
	if err != nil {
		return nil, fmt.Errorf("scoring %q with %s: %w", c.Variable, s.Name(), err)
	}
	if len(scores) != modeled.Cols() {
		return nil, fmt.Errorf("%w: scorer %s returned %d scores for %d runs",
			ErrInvalidInput, s.Name(), len(scores), modeled.Cols())
	}

	ids := RunIDs(subset)
	t := &ResultTable{
		Criterion: c.Name,
		Method:    s.Name(),
		Rows:      make([]Result, len(scores)),
	}
	for j, w := range scores {
		t.Rows[j] = Result{
			Weight:    w,
			RunNumber: j + 1,
			RunID:     ids[j],
		}
	}

	slog.Debug("runs scored", "criterion", c.Name, "variable", c.Variable,
		"method", s.Name(), "runs", len(t.Rows), "rows", modeled.Rows())
	return t, nil
}

// subsetRecords keeps the rows matching the criterion variable and years,
// sorted by run then time.
func subsetRecords(records []RunRecord, c *Criterion) []RunRecord {
	years := make(map[int64]bool, len(c.Years))
	for _, y := range c.Years {
		years[y] = true
	}

	out := make([]RunRecord, 0)
	for _, r := range records {
		if r.Variable == c.Variable && years[r.Time] {
			out = append(out, r)
		}
	}

	slices.SortStableFunc(out, func(a, b RunRecord) int {
		if n := cmp.Compare(a.RunID, b.RunID); n != 0 {
			return n
		}
		return cmp.Compare(a.Time, b.Time)
	})
	return out
}

func checkAlignment(subset []RunRecord, c *Criterion, modeled Matrix, strict bool) error {
	if modeled.Rows() != len(c.ObservedValues) {
		return fmt.Errorf("%w: runs have %d rows for %q, criterion has %d observed values",
			ErrShape, modeled.Rows(), c.Variable, len(c.ObservedValues))
	}
	if !strict {
		return nil
	}

	times, err := BuildValueMatrix(subset, FieldTime)
	if err != nil {
		return err
	}
	ids := RunIDs(subset)
	for j, col := range times {
		for i, t := range col {
			if int64(t) != c.Years[i] {
				return fmt.Errorf("%w: run %d row %d is year %d, criterion expects %d",
					ErrAlignment, ids[j], i+1, int64(t), c.Years[i])
			}
		}
	}
	return nil
}
