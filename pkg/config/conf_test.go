package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mchmarny/runweight/pkg/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadOrCreate_Defaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "conf")

	c, err := ReadOrCreate(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	_, err = os.Stat(filepath.Join(dir, FileName))
	assert.NoError(t, err)
}

func TestConfig_SaveAndRead(t *testing.T) {
	dir := t.TempDir()

	c1, err := ReadOrCreate(dir)
	require.NoError(t, err)

	c1.Method = score.MethodBayesian
	c1.E = 1.5
	c1.Workers = 4
	require.NoError(t, Save(dir, c1))

	c2, err := ReadOrCreate(dir)
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
}

func TestLoad_PartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("method: bayesian\nport: 9090\n"), fileMode))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, score.MethodBayesian, c.Method)
	assert.Equal(t, 9090, c.Port)
	assert.Equal(t, DefaultW2, c.W2)
	assert.Equal(t, score.DefaultExponent, c.E)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":     "method: [",
		"bad method":   "method: kriging\n",
		"bad bounds":   "w1: 0.5\nw2: 0.1\n",
		"bad workers":  "workers: 0\n",
		"bad port":     "port: 70000\n",
		"bad exponent": "method: bayesian\ne: -1\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(content), fileMode))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestConfig_Params(t *testing.T) {
	p := Default().Params()
	assert.Equal(t, score.Params{W1: DefaultW1, W2: DefaultW2, DropNA: true, E: score.DefaultExponent}, p)
}

func TestSave_Errors(t *testing.T) {
	assert.Error(t, Save("", Default()))
	assert.Error(t, Save(t.TempDir(), nil))
	_, err := ReadOrCreate("")
	assert.Error(t, err)
}

func TestGetOrCreateHomeDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	dir, created, err := GetOrCreateHomeDir("runweight")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, ".runweight", filepath.Base(dir))

	_, created, err = GetOrCreateHomeDir(".runweight")
	require.NoError(t, err)
	assert.False(t, created)

	_, _, err = GetOrCreateHomeDir("")
	assert.Error(t, err)
}
