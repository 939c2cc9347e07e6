package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var ErrorURLNotFound = errors.New("URL not found")

// Download streams the content at url into w. A nil client uses GetHTTPClient.
func Download(ctx context.Context, client *http.Client, url string, w io.Writer) (int64, error) {
	if url == "" {
		return 0, errors.New("url is required")
	}
	if w == nil {
		return 0, errors.New("writer is required")
	}

	if client == nil {
		c, err := GetHTTPClient()
		if err != nil {
			return 0, fmt.Errorf("error creating HTTP client: %w", err)
		}
		client = c
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("error creating HTTP Get request: %w", err)
	}
	req.Header.Set("User-Agent", clientAgent)

	resp, err := client.Do(req) //nolint:gosec // URL supplied by the operator
	if err != nil {
		return 0, fmt.Errorf("error downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, fmt.Errorf("%w: %s", ErrorURLNotFound, url)
	}

	if resp.StatusCode != http.StatusOK {
		PrintHTTPResponse(resp)
		return 0, fmt.Errorf("error downloading file (status: %d - %s): %s", resp.StatusCode, resp.Status, url)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("error saving downloaded content: %w", err)
	}

	return n, nil
}
