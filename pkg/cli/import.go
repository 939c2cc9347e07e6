package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/mchmarny/runweight/pkg/data"
	"github.com/mchmarny/runweight/pkg/net"
	"github.com/urfave/cli/v3"
)

var (
	nameFlag = &cli.StringFlag{
		Name:     "name",
		Usage:    "Name of the ensemble",
		Required: true,
	}

	fileFlag = &cli.StringFlag{
		Name:  "file",
		Usage: "Path to a long-format CSV file (run_number,year,variable,value[,units])",
	}

	urlFlag = &cli.StringFlag{
		Name:  "url",
		Usage: "URL of a long-format CSV file",
	}

	githubFlag = &cli.StringFlag{
		Name:  "github",
		Usage: "GitHub repository holding the CSV as a release asset (owner/repo)",
	}

	tagFlag = &cli.StringFlag{
		Name:  "tag",
		Usage: "Release tag (used with --github)",
	}

	assetFlag = &cli.StringFlag{
		Name:  "asset",
		Usage: "Release asset name (used with --github)",
	}

	importCmd = &cli.Command{
		Name:    "import",
		Aliases: []string{"i"},
		Usage:   "Import ensemble output from a file, URL, or GitHub release",
		UsageText: `runweight import --name hector-ssp245 --file runs.csv
   runweight import --name hector-ssp245 --url https://example.org/runs.csv
   runweight import --name hector-ssp245 --github jgcri/hector-runs --tag v1.0 --asset runs.csv`,
		HideHelpCommand: true,
		Action:          cmdImport,
		Flags: []cli.Flag{
			nameFlag,
			fileFlag,
			urlFlag,
			githubFlag,
			tagFlag,
			assetFlag,
		},
	}
)

func cmdImport(ctx context.Context, cmd *cli.Command) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}

	name := cmd.String(nameFlag.Name)
	file := cmd.String(fileFlag.Name)
	url := cmd.String(urlFlag.Name)
	repo := cmd.String(githubFlag.Name)

	sources := 0
	for _, s := range []string{file, url, repo} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		return errors.New("exactly one of --file, --url, or --github is required")
	}

	var sum *data.ImportSummary
	switch {
	case file != "":
		sum, err = importFile(cfg, name, file)
	case url != "":
		var client *http.Client
		client, err = authClient(ctx, cfg)
		if err == nil {
			sum, err = data.ImportRunsFromURL(ctx, cfg.DB, client, name, url)
		}
	default:
		sum, err = importRelease(ctx, cfg, name, repo, cmd.String(tagFlag.Name), cmd.String(assetFlag.Name))
	}
	if err != nil {
		return fmt.Errorf("importing %s: %w", name, err)
	}

	return encode(cmd, sum)
}

func importFile(cfg *appConfig, name, path string) (*data.ImportSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return data.ImportRuns(cfg.DB, name, path, f)
}

func importRelease(ctx context.Context, cfg *appConfig, name, repo, tag, asset string) (*data.ImportSummary, error) {
	owner, r, err := data.ParseRepo(repo)
	if err != nil {
		return nil, err
	}
	if tag == "" || asset == "" {
		return nil, errors.New("--tag and --asset are required with --github")
	}

	client, err := authClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &data.ReleaseAsset{Owner: owner, Repo: r, Tag: tag, Name: asset}
	return data.ImportReleaseAsset(ctx, cfg.DB, client, name, a)
}

// authClient returns a bearer-token client when a token is stored and nil
// otherwise, which makes downloads anonymous.
func authClient(ctx context.Context, cfg *appConfig) (*http.Client, error) {
	token, err := optionalToken(cfg)
	if err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}
	if token == "" {
		return nil, nil
	}
	return net.GetOAuthClient(ctx, token), nil
}
