package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mchmarny/runweight/pkg/config"
	"github.com/mchmarny/runweight/pkg/data"
	"github.com/mchmarny/runweight/pkg/logging"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "runweight"
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	dbFlag = &cli.StringFlag{
		Name:    "db",
		Usage:   "Path to the Sqlite database file or a postgres:// DSN (default: $HOME/.runweight/data.db)",
		Sources: cli.EnvVars("RUNWEIGHT_DB"),
	}

	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}

	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to the config file (default: $HOME/.runweight/config.yaml)",
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefaultCLILogger("info")

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	HomeDir string
	DSN     string
	Format  string
	Config  *config.Config
	DB      *sql.DB
}

func getConfig(cmd *cli.Command) (*appConfig, error) {
	cfg, ok := cmd.Root().Metadata[appConfigKey].(*appConfig)
	if !ok || cfg == nil {
		return nil, errors.New("app not initialized")
	}
	return cfg, nil
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Weight ensemble model runs by how well they match observations",
		Metadata:              map[string]any{},
		Flags: []cli.Flag{
			debugFlag,
			dbFlag,
			formatFlag,
			configFlag,
		},
		Commands: []*cli.Command{
			authCmd,
			importCmd,
			ensembleCmd,
			criterionCmd,
			scoreCmd,
			stateCmd,
			serverCmd,
			resetCmd,
		},
		Before: initApp,
		After:  closeApp,
	}
}

func initApp(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool(debugFlag.Name) {
		logging.SetDefaultCLILogger("debug")
	}

	home, _, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		return ctx, fmt.Errorf("resolving home dir: %w", err)
	}

	var conf *config.Config
	if p := cmd.String(configFlag.Name); p != "" {
		conf, err = config.Load(p)
	} else {
		conf, err = config.ReadOrCreate(home)
	}
	if err != nil {
		return ctx, fmt.Errorf("loading config: %w", err)
	}

	dsn := cmd.String(dbFlag.Name)
	if dsn == "" {
		dsn = filepath.Join(home, data.DataFileName)
	}

	if err := data.Init(dsn); err != nil {
		return ctx, fmt.Errorf("initializing database: %w", err)
	}

	db, err := data.GetDB(dsn)
	if err != nil {
		return ctx, fmt.Errorf("opening database: %w", err)
	}

	format := formatJSON
	if f := cmd.String(formatFlag.Name); f == formatYAML || f == "yml" {
		format = formatYAML
	}

	cmd.Metadata[appConfigKey] = &appConfig{
		HomeDir: home,
		DSN:     dsn,
		Format:  format,
		Config:  conf,
		DB:      db,
	}
	slog.Debug("app initialized", "db", dsn, "method", conf.Method)
	return ctx, nil
}

func closeApp(_ context.Context, cmd *cli.Command) error {
	if cfg, ok := cmd.Metadata[appConfigKey].(*appConfig); ok && cfg.DB != nil {
		cfg.DB.Close()
	}
	return nil
}

func encode(cmd *cli.Command, v any) error {
	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}
	format := formatJSON
	if cfg, err := getConfig(cmd); err == nil {
		format = cfg.Format
	}
	return encodeTo(w, format, v)
}

func encodeTo(w io.Writer, format string, v any) error {
	if format == formatYAML {
		e := yaml.NewEncoder(w)
		defer e.Close()
		return e.Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
