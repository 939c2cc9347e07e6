package data

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mchmarny/runweight/pkg/net"
)

// ImportRunsFromURL downloads long-format CSV from url and imports it as a
// new ensemble. A nil client uses the default HTTP client.
func ImportRunsFromURL(ctx context.Context, db *sql.DB, client *http.Client, name, url string) (*ImportSummary, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	var buf bytes.Buffer
	n, err := net.Download(ctx, client, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("error downloading ensemble output: %w", err)
	}
	slog.Debug("ensemble output downloaded", "url", url, "bytes", n)

	return ImportRuns(db, name, url, &buf)
}
