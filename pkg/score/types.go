package score

import (
	"encoding/json"
	"fmt"
	"math"
)

// Criterion defines which observed variable, time window, and reference values
// a run is scored against.
type Criterion struct {
	Name           string    `json:"name,omitempty" yaml:"name,omitempty"`
	Variable       string    `json:"variable" yaml:"variable"`
	Units          string    `json:"units,omitempty" yaml:"units,omitempty"`
	Years          []int64   `json:"years" yaml:"years"`
	ObservedValues []float64 `json:"obs_values" yaml:"obs_values"`
}

// NewCriterion creates a validated criterion. The slices are copied.
func NewCriterion(variable string, years []int64, obs []float64) (*Criterion, error) {
	c := &Criterion{
		Variable:       variable,
		Years:          append([]int64(nil), years...),
		ObservedValues: append([]float64(nil), obs...),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the criterion invariants.
func (c *Criterion) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: criterion is nil", ErrType)
	}
	if c.Variable == "" {
		return fmt.Errorf("%w: criterion %q has no variable", ErrType, c.Name)
	}
	if len(c.Years) == 0 {
		return fmt.Errorf("%w: criterion %q has no years", ErrType, c.Name)
	}
	if len(c.Years) != len(c.ObservedValues) {
		return fmt.Errorf("%w: criterion %q has %d years but %d observed values",
			ErrType, c.Name, len(c.Years), len(c.ObservedValues))
	}
	for i := 1; i < len(c.Years); i++ {
		if c.Years[i] <= c.Years[i-1] {
			return fmt.Errorf("%w: criterion %q years must be strictly ascending, %d follows %d",
				ErrType, c.Name, c.Years[i], c.Years[i-1])
		}
	}
	return nil
}

// RunRecord is one row of long-format simulator output.
type RunRecord struct {
	RunID    int64   `json:"run_number" yaml:"runNumber"`
	Time     int64   `json:"year" yaml:"year"`
	Variable string  `json:"variable" yaml:"variable"`
	Value    float64 `json:"value" yaml:"value"`
	Units    string  `json:"units,omitempty" yaml:"units,omitempty"`
}

// Matrix is a column-major numeric matrix: m[j] is column j.
// In an aligned matrix column 0 holds the observed series and
// columns 1..K hold the modeled runs.
type Matrix [][]float64

// Cols returns the number of columns.
func (m Matrix) Cols() int {
	return len(m)
}

// Rows returns the number of rows, 0 for an empty matrix.
func (m Matrix) Rows() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Column returns column j.
func (m Matrix) Column(j int) []float64 {
	return m[j]
}

// Row returns a copy of row i across all columns.
func (m Matrix) Row(i int) []float64 {
	r := make([]float64, len(m))
	for j := range m {
		r[j] = m[j][i]
	}
	return r
}

// criterionJSON mirrors Criterion with nullable observed values.
type criterionJSON struct {
	Name           string     `json:"name,omitempty"`
	Variable       string     `json:"variable"`
	Units          string     `json:"units,omitempty"`
	Years          []int64    `json:"years"`
	ObservedValues []*float64 `json:"obs_values"`
}

// MarshalJSON writes missing observed values as null.
func (c Criterion) MarshalJSON() ([]byte, error) {
	out := criterionJSON{
		Name:           c.Name,
		Variable:       c.Variable,
		Units:          c.Units,
		Years:          c.Years,
		ObservedValues: make([]*float64, len(c.ObservedValues)),
	}
	for i, v := range c.ObservedValues {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out.ObservedValues[i] = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads null observed values as missing.
func (c *Criterion) UnmarshalJSON(b []byte) error {
	var in criterionJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	c.Name = in.Name
	c.Variable = in.Variable
	c.Units = in.Units
	c.Years = in.Years
	c.ObservedValues = make([]float64, len(in.ObservedValues))
	for i, v := range in.ObservedValues {
		c.ObservedValues[i] = math.NaN()
		if v != nil {
			c.ObservedValues[i] = *v
		}
	}
	return nil
}

// ScoreVector holds one score per modeled column, in column order.
type ScoreVector []float64

// Sum returns the sum of all entries.
func (v ScoreVector) Sum() float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

// Result pairs a weight with the run it belongs to.
// RunNumber is the 1-based position among the modeled columns;
// RunID is the simulator run identifier that column came from.
type Result struct {
	Weight    float64 `json:"weight" yaml:"weight"`
	RunNumber int     `json:"run_number" yaml:"runNumber"`
	RunID     int64   `json:"run_id,omitempty" yaml:"runID,omitempty"`
}

// MarshalJSON writes a missing weight as null since JSON has no NaN.
func (r Result) MarshalJSON() ([]byte, error) {
	type result struct {
		Weight    *float64 `json:"weight"`
		RunNumber int      `json:"run_number"`
		RunID     int64    `json:"run_id,omitempty"`
	}
	out := result{RunNumber: r.RunNumber, RunID: r.RunID}
	if !math.IsNaN(r.Weight) && !math.IsInf(r.Weight, 0) {
		w := r.Weight
		out.Weight = &w
	}
	return json.Marshal(out)
}

// ResultTable is the per-run outcome of one scoring call.
type ResultTable struct {
	Criterion string   `json:"criterion,omitempty" yaml:"criterion,omitempty"`
	Method    string   `json:"method,omitempty" yaml:"method,omitempty"`
	Rows      []Result `json:"rows" yaml:"rows"`
}

// Weights returns the weight column.
func (t *ResultTable) Weights() ScoreVector {
	v := make(ScoreVector, len(t.Rows))
	for i, r := range t.Rows {
		v[i] = r.Weight
	}
	return v
}

// Filter returns a new table holding only the rows with weight >= min.
// Rows with a missing weight are dropped.
func (t *ResultTable) Filter(min float64) *ResultTable {
	out := &ResultTable{
		Criterion: t.Criterion,
		Method:    t.Method,
		Rows:      make([]Result, 0, len(t.Rows)),
	}
	for _, r := range t.Rows {
		if math.IsNaN(r.Weight) || r.Weight < min {
			continue
		}
		out.Rows = append(out.Rows, r)
	}
	return out
}

func isMissing(v float64) bool {
	return math.IsNaN(v)
}

func allMissing(col []float64) bool {
	for _, v := range col {
		if !isMissing(v) {
			return false
		}
	}
	return true
}
