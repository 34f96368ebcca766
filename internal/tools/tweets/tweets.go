// Package tweets implements the Medic Coordinator's tweet analyzer tool.
package tweets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/swarmaid/swarmaid/internal/social"
	"github.com/swarmaid/swarmaid/internal/tools"
)

// SampleSize is how many posts go into the brief.
const SampleSize = 5

// Tool pulls recent posts about the scenario and asks for medical needs.
type Tool struct {
	searcher social.Searcher
	logger   *slog.Logger
}

var _ tools.Tool = (*Tool)(nil)

// NewTool creates the tweet analyzer. A nil searcher always uses the
// sample posts.
func NewTool(searcher social.Searcher, logger *slog.Logger) *Tool {
	return &Tool{searcher: searcher, logger: logger}
}

func (t *Tool) Name() string        { return "Tweet Analyzer" }
func (t *Tool) Description() string { return "Analyze Twitter hashtags for medical triage info" }

// Execute never fails: search problems fall back to sample posts and the
// reason is surfaced in the brief.
func (t *Tool) Execute(ctx context.Context, query string) (*tools.Result, error) {
	posts, err := t.search(ctx, query)
	if err != nil {
		t.logger.WarnContext(ctx, "tweet search unavailable, using sample posts", slog.String("error", err.Error()))
		res := tools.Brief(fmt.Sprintf(
			"(Twitter API unavailable: %s) Summarize urgent medical needs based on these sample tweets:\n%s",
			err, strings.Join(social.FallbackTweets(), "\n")))
		res.Metadata = map[string]any{"sample": true}
		// Missing credentials and empty searches are settled outcomes; anything
		// else may recover on the next run.
		res.Degraded = !errors.Is(err, social.ErrNoCredentials) && !errors.Is(err, social.ErrNoResults)
		return res, nil
	}
	res := tools.Brief("Summarize urgent medical needs based on these tweets:\n" + strings.Join(posts, "\n"))
	res.Metadata = map[string]any{"posts": len(posts)}
	return res, nil
}

func (t *Tool) search(ctx context.Context, query string) ([]string, error) {
	if t.searcher == nil {
		return nil, social.ErrNoCredentials
	}
	return t.searcher.Search(ctx, SearchQuery(query), SampleSize)
}

// SearchQuery widens a scenario into a medical-signal search.
func SearchQuery(scenario string) string {
	return strings.TrimSpace(scenario) + " disaster medical injuries hospitals damage"
}
