package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/runweight/pkg/score"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	FileName = "config.yaml"

	dirMode  = 0700
	fileMode = 0600

	DefaultW1      = 0.1
	DefaultW2      = 0.5
	DefaultPort    = 8080
	DefaultWorkers = 1
)

// Config holds the defaults applied to scoring commands when the
// corresponding flag is not set.
type Config struct {
	Method  string  `yaml:"method"`
	W1      float64 `yaml:"w1"`
	W2      float64 `yaml:"w2"`
	DropNA  bool    `yaml:"drop_na"`
	E       float64 `yaml:"e"`
	Workers int     `yaml:"workers"`
	Port    int     `yaml:"port"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Method:  score.MethodRamp,
		W1:      DefaultW1,
		W2:      DefaultW2,
		DropNA:  true,
		E:       score.DefaultExponent,
		Workers: DefaultWorkers,
		Port:    DefaultPort,
	}
}

// Params converts the scoring defaults into scorer parameters.
func (c *Config) Params() score.Params {
	return score.Params{W1: c.W1, W2: c.W2, DropNA: c.DropNA, E: c.E}
}

// Validate checks that the configured defaults describe a usable scorer.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config required")
	}
	if _, err := score.NewScorer(c.Method, c.Params()); err != nil {
		return errors.Wrap(err, "invalid scoring defaults")
	}
	if !(c.W1 >= 0 && c.W2 >= c.W1) {
		return errors.Errorf("invalid ramp bounds: w1=%v w2=%v", c.W1, c.W2)
	}
	if !(c.E > 0) {
		return errors.Errorf("invalid exponent: %v", c.E)
	}
	if c.Workers < 1 {
		return errors.Errorf("invalid workers: %d", c.Workers)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("invalid port: %d", c.Port)
	}
	return nil
}

func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	path := filepath.Join(dirPath, FileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return errors.Wrapf(err, "failed to write config file %s", path)
	}
	return nil
}

// ReadOrCreate reads app config from directory or creates a new one with
// defaults. Keys missing from the file keep their default values.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if err := os.MkdirAll(dirPath, dirMode); err != nil {
		return nil, errors.Wrapf(err, "failed to create dir %s", dirPath)
	}

	path := filepath.Join(dirPath, FileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating default config", "path", path)
		if err := Save(dirPath, Default()); err != nil {
			return nil, errors.Wrap(err, "failed to create default config")
		}
	}

	return Load(path)
}

// Load reads the config file at path over the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config file %s", path)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, errors.Wrapf(err, "error parsing config file %s", path)
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config file %s", path)
	}
	return c, nil
}

// GetOrCreateHomeDir returns the app directory under the user home.
// The created flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, errors.Wrap(err, "failed to get user home dir")
	}
	slog.Debug("home dir", "path", home)

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, errors.Wrapf(err, "failed to create dir %s", dir)
		}
		created = true
	}
	return dir, created, nil
}
