package cli

import (
	"context"
	"fmt"

	"github.com/mchmarny/runweight/pkg/criterion"
	"github.com/mchmarny/runweight/pkg/data"
	"github.com/urfave/cli/v3"
)

var (
	criteriaFileFlag = &cli.StringFlag{
		Name:     "file",
		Usage:    "Path to a YAML criteria file",
		Required: true,
	}

	criterionNameFlag = &cli.StringFlag{
		Name:     "name",
		Usage:    "Criterion name",
		Required: true,
	}

	criterionCmd = &cli.Command{
		Name:            "criterion",
		Aliases:         []string{"c"},
		Usage:           "Manage the observed series runs are scored against",
		HideHelpCommand: true,
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add or replace criteria from a YAML file",
				UsageText: "runweight criterion add --file criteria.yaml",
				Flags:     []cli.Flag{criteriaFileFlag},
				Action:    cmdCriterionAdd,
			},
			{
				Name:   "list",
				Usage:  "List stored criteria",
				Action: cmdCriterionList,
			},
			{
				Name:   "show",
				Usage:  "Show one criterion",
				Flags:  []cli.Flag{criterionNameFlag},
				Action: cmdCriterionShow,
			},
			{
				Name:   "delete",
				Usage:  "Delete one criterion",
				Flags:  []cli.Flag{criterionNameFlag},
				Action: cmdCriterionDelete,
			},
		},
	}
)

func cmdCriterionAdd(_ context.Context, cmd *cli.Command) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}

	list, err := criterion.Load(cmd.String(criteriaFileFlag.Name))
	if err != nil {
		return err
	}

	names := make([]string, 0, len(list))
	for _, c := range list {
		if err := data.SaveCriterion(cfg.DB, c); err != nil {
			return err
		}
		names = append(names, c.Name)
	}
	return encode(cmd, names)
}

func cmdCriterionList(_ context.Context, cmd *cli.Command) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	list, err := data.ListCriteria(cfg.DB)
	if err != nil {
		return fmt.Errorf("listing criteria: %w", err)
	}
	return encode(cmd, list)
}

func cmdCriterionShow(_ context.Context, cmd *cli.Command) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	c, err := data.GetCriterion(cfg.DB, cmd.String(criterionNameFlag.Name))
	if err != nil {
		return err
	}
	return encode(cmd, c)
}

func cmdCriterionDelete(_ context.Context, cmd *cli.Command) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	name := cmd.String(criterionNameFlag.Name)
	if err := data.DeleteCriterion(cfg.DB, name); err != nil {
		return err
	}
	return encode(cmd, map[string]string{"deleted": name})
}
