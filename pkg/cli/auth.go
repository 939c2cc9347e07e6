package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mchmarny/runweight/pkg/auth"
	"github.com/urfave/cli/v3"
)

var (
	tokenFlag = &cli.StringFlag{
		Name:    "token",
		Usage:   "Access token for protected data sources (read from stdin when omitted)",
		Sources: cli.EnvVars("RUNWEIGHT_TOKEN"),
	}

	authCmd = &cli.Command{
		Name:            "auth",
		Usage:           "Manage the access token used to download ensemble output",
		HideHelpCommand: true,
		Commands: []*cli.Command{
			{
				Name:   "set",
				Usage:  "Store the access token in the OS keychain",
				Flags:  []cli.Flag{tokenFlag},
				Action: cmdAuthSet,
			},
			{
				Name:   "clear",
				Usage:  "Remove the stored access token",
				Action: cmdAuthClear,
			},
		},
	}
)

func cmdAuthSet(_ context.Context, cmd *cli.Command) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}

	token := cmd.String(tokenFlag.Name)
	if token == "" {
		fmt.Fprint(os.Stderr, "Token: ")
		token, err = stdinReader(cmd).ReadString('\n')
		if err != nil && token == "" {
			return fmt.Errorf("reading token: %w", err)
		}
	}

	if err := auth.SaveToken(cfg.HomeDir, strings.TrimSpace(token)); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	slog.Info("token saved")
	return nil
}

func cmdAuthClear(_ context.Context, cmd *cli.Command) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	if err := auth.DeleteToken(cfg.HomeDir); err != nil {
		return fmt.Errorf("deleting token: %w", err)
	}
	slog.Info("token cleared")
	return nil
}

// optionalToken returns the stored token or an empty string when none is set.
func optionalToken(cfg *appConfig) (string, error) {
	token, err := auth.GetToken(cfg.HomeDir)
	if errors.Is(err, auth.ErrTokenNotFound) {
		return "", nil
	}
	return token, err
}

func stdinReader(cmd *cli.Command) *bufio.Reader {
	r := cmd.Root().Reader
	if r == nil {
		r = os.Stdin
	}
	return bufio.NewReader(r)
}
