package data

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/go-github/v83/github"
)

const (
	rateLimitThreshold = 10
	rateLimitMaxWait   = 15 * time.Minute
	rateLimitJitterMs  = 2000
)

// checkRateLimit sleeps until the GitHub rate limit resets when few
// requests remain.
func checkRateLimit(resp *github.Response) {
	wait := rateLimitWait(resp, time.Now())
	if wait == 0 {
		return
	}

	total := wait + time.Duration(rand.IntN(rateLimitJitterMs))*time.Millisecond
	slog.Info("rate limit approaching, waiting",
		"remaining", resp.Rate.Remaining,
		"reset_at", resp.Rate.Reset.Format(time.RFC3339),
		"wait", total.String(),
	)
	time.Sleep(total)
}

// rateLimitWait returns how long to wait before the next request, capped
// at rateLimitMaxWait. Zero means no wait.
func rateLimitWait(resp *github.Response, now time.Time) time.Duration {
	if resp == nil || resp.Rate.Remaining > rateLimitThreshold {
		return 0
	}
	wait := resp.Rate.Reset.Sub(now)
	if wait <= 0 {
		return 0
	}
	return min(wait, rateLimitMaxWait)
}
