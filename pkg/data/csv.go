package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/mchmarny/runweight/pkg/score"
)

var (
	runColumnNames   = []string{"run_number", "run_id", "run"}
	timeColumnNames  = []string{"year", "time"}
	varColumnNames   = []string{"variable"}
	valueColumnNames = []string{"value"}
	unitsColumnNames = []string{"units"}

	missingValues = []string{"", "na", "nan", "null"}
)

type csvLayout struct {
	run, time, variable, value, units int
}

// ParseRuns reads long-format ensemble output: a header row followed by one
// row per run, year and variable. Required columns are run_number, year,
// variable and value; units is optional. Empty and NA values are missing,
// infinite values are rejected.
func ParseRuns(r io.Reader) ([]score.RunRecord, error) {
	if r == nil {
		return nil, errors.New("reader is required")
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty input, header row required")
		}
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	l, err := parseHeader(header)
	if err != nil {
		return nil, err
	}
	cr.FieldsPerRecord = len(header)

	list := make([]score.RunRecord, 0)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading row: %w", err)
		}
		line, _ := cr.FieldPos(0)

		rec, err := l.record(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		list = append(list, rec)
	}

	return list, nil
}

func parseHeader(header []string) (*csvLayout, error) {
	idx := func(names []string) int {
		for i, h := range header {
			h = strings.ToLower(strings.TrimSpace(h))
			for _, n := range names {
				if h == n {
					return i
				}
			}
		}
		return -1
	}

	l := &csvLayout{
		run:      idx(runColumnNames),
		time:     idx(timeColumnNames),
		variable: idx(varColumnNames),
		value:    idx(valueColumnNames),
		units:    idx(unitsColumnNames),
	}
	if l.run < 0 || l.time < 0 || l.variable < 0 || l.value < 0 {
		return nil, fmt.Errorf("header %v must include run_number, year, variable and value columns", header)
	}
	return l, nil
}

func (l *csvLayout) record(row []string) (score.RunRecord, error) {
	var rec score.RunRecord

	id, err := strconv.ParseInt(strings.TrimSpace(row[l.run]), 10, 64)
	if err != nil || id < 1 {
		return rec, fmt.Errorf("invalid run number %q, positive integer required", row[l.run])
	}

	t, err := parseYear(row[l.time])
	if err != nil {
		return rec, err
	}

	v := strings.TrimSpace(row[l.variable])
	if v == "" {
		return rec, errors.New("variable is required")
	}

	val, err := parseValue(row[l.value])
	if err != nil {
		return rec, err
	}

	rec = score.RunRecord{RunID: id, Time: t, Variable: v, Value: val}
	if l.units >= 0 {
		rec.Units = strings.TrimSpace(row[l.units])
	}
	return rec, nil
}

func parseYear(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if t, err := strconv.ParseInt(s, 10, 64); err == nil {
		return t, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid year %q, integer required", s)
	}
	return int64(f), nil
}

func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	for _, m := range missingValues {
		if strings.EqualFold(s, m) {
			return math.NaN(), nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %w", s, err)
	}
	if math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid value %q, finite number required", s)
	}
	return v, nil
}
