package criterion

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/mchmarny/runweight/pkg/score"
	"gopkg.in/yaml.v3"
)

// maxYearSpan bounds the number of years a year_range may expand to.
const maxYearSpan = 1_000_000

// YearRange is an inclusive span of consecutive years.
type YearRange struct {
	From int64 `yaml:"from"`
	To   int64 `yaml:"to"`
}

// Years expands the range.
func (r *YearRange) Years() ([]int64, error) {
	if r.To < r.From {
		return nil, fmt.Errorf("year_range from %d is after to %d", r.From, r.To)
	}
	// a negative span means the subtraction overflowed
	if span := r.To - r.From; span < 0 || span >= maxYearSpan {
		return nil, fmt.Errorf("year_range %d..%d exceeds %d years", r.From, r.To, maxYearSpan)
	}
	list := make([]int64, 0, r.To-r.From+1)
	for y := r.From; y <= r.To; y++ {
		list = append(list, y)
	}
	return list, nil
}

// Definition is one criterion as written in a criteria file. Either Years
// or YearRange must be set. A null observed value marks a missing year.
type Definition struct {
	Name      string     `yaml:"name"`
	Variable  string     `yaml:"variable"`
	Units     string     `yaml:"units,omitempty"`
	Years     []int64    `yaml:"years,omitempty"`
	YearRange *YearRange `yaml:"year_range,omitempty"`
	Values    []*float64 `yaml:"obs_values"`
}

// Criterion converts the definition into a validated criterion.
func (d *Definition) Criterion() (*score.Criterion, error) {
	years := d.Years
	if d.YearRange != nil {
		if len(d.Years) > 0 {
			return nil, errors.New("years and year_range are mutually exclusive")
		}
		r, err := d.YearRange.Years()
		if err != nil {
			return nil, err
		}
		years = r
	}

	obs := make([]float64, len(d.Values))
	for i, v := range d.Values {
		obs[i] = math.NaN()
		if v != nil {
			obs[i] = *v
		}
	}

	c, err := score.NewCriterion(d.Variable, years, obs)
	if err != nil {
		return nil, err
	}
	c.Name = d.Name
	c.Units = d.Units
	return c, nil
}

// Parse decodes a YAML list of criterion definitions. Every definition must
// be named and names must be unique.
func Parse(b []byte) ([]*score.Criterion, error) {
	var defs []*Definition
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&defs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no criteria defined")
		}
		return nil, fmt.Errorf("error decoding criteria: %w", err)
	}
	if len(defs) == 0 {
		return nil, errors.New("no criteria defined")
	}

	seen := make(map[string]bool, len(defs))
	list := make([]*score.Criterion, 0, len(defs))
	for i, d := range defs {
		if d == nil || d.Name == "" {
			return nil, fmt.Errorf("criterion %d: name is required", i+1)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("criterion %s: defined more than once", d.Name)
		}
		seen[d.Name] = true

		c, err := d.Criterion()
		if err != nil {
			return nil, fmt.Errorf("criterion %s: %w", d.Name, err)
		}
		list = append(list, c)
	}
	return list, nil
}

// Load reads and parses a criteria file.
func Load(path string) ([]*score.Criterion, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading criteria file %s: %w", path, err)
	}
	list, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}
