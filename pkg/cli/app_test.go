package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mchmarny/runweight/pkg/config"
	"github.com/mchmarny/runweight/pkg/criterion"
	"github.com/mchmarny/runweight/pkg/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const (
	testRunsCSV = `run_number,year,variable,value,units
1,2000,gmst,0.10,degC
1,2001,gmst,0.20,degC
1,2002,gmst,0.30,degC
2,2000,gmst,0.20,degC
2,2001,gmst,0.30,degC
2,2002,gmst,0.40,degC
3,2000,gmst,0.90,degC
3,2001,gmst,1.00,degC
3,2002,gmst,1.10,degC
1,2000,co2,370,ppmv
2,2000,co2,372,ppmv
3,2000,co2,380,ppmv
`

	testCriteriaYAML = `
- name: hadcrut5
  variable: gmst
  units: degC
  year_range: {from: 2000, to: 2002}
  obs_values: [0.1, 0.2, 0.3]
- name: mauna-loa
  variable: co2
  units: ppmv
  years: [2000]
  obs_values: [370]
`
)

// setupTestApp points the home dir at a temp dir and returns paths to the
// database and test input files.
func setupTestApp(t *testing.T) (dbPath, runsPath, criteriaPath string) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	dbPath = filepath.Join(home, "test.db")
	runsPath = filepath.Join(home, "runs.csv")
	criteriaPath = filepath.Join(home, "criteria.yaml")
	require.NoError(t, os.WriteFile(runsPath, []byte(testRunsCSV), 0600))
	require.NoError(t, os.WriteFile(criteriaPath, []byte(testCriteriaYAML), 0600))
	return dbPath, runsPath, criteriaPath
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run(context.Background(), append([]string{appName}, args...))
	return out.String(), err
}

// setupTestConfig returns an initialized app config backed by a temp database.
func setupTestConfig(t *testing.T) *appConfig {
	t.Helper()
	dir := t.TempDir()
	dsn := filepath.Join(dir, data.DataFileName)
	require.NoError(t, data.Init(dsn))
	db, err := data.GetDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = data.ImportRuns(db, "hector", "runs.csv", strings.NewReader(testRunsCSV))
	require.NoError(t, err)

	list, err := criterion.Parse([]byte(testCriteriaYAML))
	require.NoError(t, err)
	for _, c := range list {
		require.NoError(t, data.SaveCriterion(db, c))
	}

	return &appConfig{
		HomeDir: dir,
		DSN:     dsn,
		Format:  formatJSON,
		Config:  config.Default(),
		DB:      db,
	}
}

func TestApp_EndToEnd(t *testing.T) {
	dbPath, runsPath, criteriaPath := setupTestApp(t)

	out, err := runApp(t, "--db", dbPath, "import", "--name", "hector", "--file", runsPath)
	require.NoError(t, err)
	var sum data.ImportSummary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, int64(3), sum.Ensemble.Runs)

	out, err = runApp(t, "--db", dbPath, "criterion", "add", "--file", criteriaPath)
	require.NoError(t, err)
	assert.Contains(t, out, "hadcrut5")
	assert.Contains(t, out, "mauna-loa")

	out, err = runApp(t, "--db", dbPath, "score", "--ensemble", "hector", "--criterion", "hadcrut5",
		"--method", "ramp", "--w1", "0.05", "--w2", "0.5")
	require.NoError(t, err)

	var rep ScoreReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Criteria, 1)
	require.Len(t, rep.Criteria[0].Rows, 3)
	assert.Equal(t, 1.0, rep.Criteria[0].Rows[0].Weight)
	assert.InDelta(t, 1-(0.1-0.05)/0.45, rep.Criteria[0].Rows[1].Weight, 1e-9)
	assert.Equal(t, 0.0, rep.Criteria[0].Rows[2].Weight)
	assert.Nil(t, rep.Combined)

	out, err = runApp(t, "--db", dbPath, "state")
	require.NoError(t, err)
	var state map[string]int64
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Equal(t, int64(1), state["ensemble"])
	assert.Equal(t, int64(2), state["criterion"])

	out, err = runApp(t, "--db", dbPath, "--format", "yaml", "ensemble", "list")
	require.NoError(t, err)
	var list []*data.Ensemble
	require.NoError(t, yaml.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "hector", list[0].Name)

	_, err = os.Stat(filepath.Join(os.Getenv("HOME"), ".runweight", config.FileName))
	assert.NoError(t, err)
}

func TestApp_ResetConfirmed(t *testing.T) {
	dbPath, runsPath, _ := setupTestApp(t)

	_, err := runApp(t, "--db", dbPath, "import", "--name", "hector", "--file", runsPath)
	require.NoError(t, err)

	_, err = runApp(t, "--db", dbPath, "reset", "--yes")
	require.NoError(t, err)

	db, err := data.GetDB(dbPath)
	require.NoError(t, err)
	defer db.Close()
	state, err := data.GetDataState(db)
	require.NoError(t, err)
	assert.Equal(t, int64(0), state["ensemble"])
}

func TestEncodeTo(t *testing.T) {
	v := map[string]int{"runs": 3}

	var buf bytes.Buffer
	require.NoError(t, encodeTo(&buf, formatJSON, v))
	assert.JSONEq(t, `{"runs":3}`, buf.String())

	buf.Reset()
	require.NoError(t, encodeTo(&buf, formatYAML, v))
	assert.Equal(t, "runs: 3\n", buf.String())
}

func TestApp_ImportRequiresOneSource(t *testing.T) {
	dbPath, runsPath, _ := setupTestApp(t)

	_, err := runApp(t, "--db", dbPath, "import", "--name", "x", "--file", runsPath, "--url", "http://localhost/runs.csv")
	assert.Error(t, err)
}
