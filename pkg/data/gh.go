package data

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/go-github/v83/github"
	"github.com/pkg/errors"
)

var newGitHubClient = github.NewClient

// ReleaseAsset identifies a file attached to a GitHub release.
type ReleaseAsset struct {
	Owner string `json:"owner" yaml:"owner"`
	Repo  string `json:"repo" yaml:"repo"`
	Tag   string `json:"tag" yaml:"tag"`
	Name  string `json:"name" yaml:"name"`
}

// ParseRepo splits an owner/repo slug.
func ParseRepo(slug string) (owner, repo string, err error) {
	parts := strings.Split(strings.TrimSpace(slug), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/repo", slug)
	}
	return parts[0], parts[1], nil
}

func (a *ReleaseAsset) String() string {
	return fmt.Sprintf("github.com/%s/%s@%s/%s", a.Owner, a.Repo, a.Tag, a.Name)
}

// DownloadReleaseAsset writes the content of a release asset to w.
// A nil client makes unauthenticated requests.
func DownloadReleaseAsset(ctx context.Context, client *http.Client, a *ReleaseAsset, w io.Writer) error {
	if a == nil || a.Owner == "" || a.Repo == "" || a.Tag == "" || a.Name == "" {
		return errors.New("owner, repo, tag, and asset name are required")
	}

	gh := newGitHubClient(client)

	rel, resp, err := gh.Repositories.GetReleaseByTag(ctx, a.Owner, a.Repo, a.Tag)
	if err != nil {
		return errors.Wrapf(err, "failed to get release %s for %s/%s", a.Tag, a.Owner, a.Repo)
	}
	checkRateLimit(resp)

	var id int64
	for _, asset := range rel.Assets {
		if asset.GetName() == a.Name {
			id = asset.GetID()
			break
		}
	}
	if id == 0 {
		return errors.Errorf("asset %s not found in release %s of %s/%s", a.Name, a.Tag, a.Owner, a.Repo)
	}

	follow := client
	if follow == nil {
		follow = http.DefaultClient
	}

	rc, redirect, err := gh.Repositories.DownloadReleaseAsset(ctx, a.Owner, a.Repo, id, follow)
	if err != nil {
		return errors.Wrapf(err, "failed to download asset %s", a)
	}
	if rc == nil {
		return errors.Errorf("asset %s redirected to %s without content", a, redirect)
	}
	defer rc.Close()

	n, err := io.Copy(w, rc)
	if err != nil {
		return errors.Wrapf(err, "error reading asset %s", a)
	}

	slog.Debug("release asset downloaded", "asset", a.String(), "bytes", n)
	return nil
}

// ImportReleaseAsset downloads a release asset holding long-format CSV and
// imports it as a new ensemble.
func ImportReleaseAsset(ctx context.Context, db *sql.DB, client *http.Client, name string, a *ReleaseAsset) (*ImportSummary, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	var buf bytes.Buffer
	if err := DownloadReleaseAsset(ctx, client, a, &buf); err != nil {
		return nil, err
	}

	return ImportRuns(db, name, a.String(), &buf)
}
