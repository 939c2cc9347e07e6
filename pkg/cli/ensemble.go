package cli

import (
	"context"
	"fmt"

	"github.com/mchmarny/runweight/pkg/data"
	"github.com/urfave/cli/v3"
)

var (
	ensembleRefFlag = &cli.StringFlag{
		Name:     "name",
		Usage:    "Ensemble name or ID",
		Required: true,
	}

	ensembleCmd = &cli.Command{
		Name:            "ensemble",
		Aliases:         []string{"e"},
		Usage:           "List, inspect, and delete imported ensembles",
		HideHelpCommand: true,
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List imported ensembles",
				Action: cmdEnsembleList,
			},
			{
				Name:   "show",
				Usage:  "Show the variables of an ensemble",
				Flags:  []cli.Flag{ensembleRefFlag},
				Action: cmdEnsembleShow,
			},
			{
				Name:   "delete",
				Usage:  "Delete an ensemble and its runs",
				Flags:  []cli.Flag{ensembleRefFlag},
				Action: cmdEnsembleDelete,
			},
		},
	}

	stateCmd = &cli.Command{
		Name:   "state",
		Usage:  "Print the row counts of the local database",
		Action: cmdState,
	}
)

type EnsembleDetail struct {
	*data.Ensemble
	Variables []*data.Variable `json:"variables" yaml:"variables"`
}

func cmdEnsembleList(_ context.Context, cmd *cli.Command) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	list, err := data.ListEnsembles(cfg.DB)
	if err != nil {
		return fmt.Errorf("listing ensembles: %w", err)
	}
	return encode(cmd, list)
}

func cmdEnsembleShow(_ context.Context, cmd *cli.Command) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	e, err := data.GetEnsemble(cfg.DB, cmd.String(ensembleRefFlag.Name))
	if err != nil {
		return err
	}
	vars, err := data.ListVariables(cfg.DB, e.ID)
	if err != nil {
		return fmt.Errorf("listing variables of %s: %w", e.Name, err)
	}
	return encode(cmd, &EnsembleDetail{Ensemble: e, Variables: vars})
}

func cmdEnsembleDelete(_ context.Context, cmd *cli.Command) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	e, err := data.DeleteEnsemble(cfg.DB, cmd.String(ensembleRefFlag.Name))
	if err != nil {
		return err
	}
	return encode(cmd, e)
}

func cmdState(_ context.Context, cmd *cli.Command) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	state, err := data.GetDataState(cfg.DB)
	if err != nil {
		return fmt.Errorf("getting data state: %w", err)
	}
	return encode(cmd, state)
}
