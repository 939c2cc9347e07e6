package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mchmarny/runweight/pkg/data"
	"github.com/urfave/cli/v3"
)

const (
	dropTablesSQL = `DROP TABLE IF EXISTS run_record;
		DROP TABLE IF EXISTS ensemble;
		DROP TABLE IF EXISTS criterion;
		DROP TABLE IF EXISTS schema_version;
	`
)

var (
	yesFlag = &cli.BoolFlag{
		Name:  "yes",
		Usage: "Skip the confirmation prompt",
	}

	resetCmd = &cli.Command{
		Name:   "reset",
		Usage:  "Delete all imported data and criteria and start fresh",
		Flags:  []cli.Flag{yesFlag},
		Action: cmdReset,
	}
)

func cmdReset(_ context.Context, cmd *cli.Command) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}

	if !cmd.Bool(yesFlag.Name) {
		fmt.Fprintf(os.Stderr, "This will permanently delete all data in %s\n", cfg.DSN)
		fmt.Fprint(os.Stderr, "Are you sure? [y/N]: ")

		answer, err := stdinReader(cmd).ReadString('\n')
		if err != nil && answer == "" {
			return fmt.Errorf("reading input: %w", err)
		}
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Fprintln(os.Stderr, "Aborted.")
			return nil
		}
	}

	if err := resetDB(cfg); err != nil {
		return err
	}

	if err := data.Init(cfg.DSN); err != nil {
		return fmt.Errorf("re-initializing database: %w", err)
	}

	db, err := data.GetDB(cfg.DSN)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	cfg.DB = db

	slog.Info("database re-initialized", "db", cfg.DSN)
	return nil
}

// resetDB drops the Postgres tables or deletes the Sqlite file.
func resetDB(cfg *appConfig) error {
	if data.IsPostgresDSN(cfg.DSN) {
		if _, err := cfg.DB.Exec(dropTablesSQL); err != nil {
			return fmt.Errorf("dropping tables: %w", err)
		}
		cfg.DB.Close()
		slog.Info("database tables dropped")
		return nil
	}

	closeDB(cfg.DB)
	cfg.DB = nil

	if err := os.Remove(cfg.DSN); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting database: %w", err)
	}
	slog.Info("database deleted", "path", cfg.DSN)
	return nil
}

func closeDB(db *sql.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Debug("error closing database", "error", err)
	}
}
