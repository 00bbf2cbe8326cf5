package recall

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soundprediction/recall/pkg/cache"
	"github.com/soundprediction/recall/pkg/search"
	"github.com/soundprediction/recall/pkg/types"
	"github.com/soundprediction/recall/pkg/utils"
)

// Search pipeline stages, as reported by StageError.
const (
	StagePrimarySearch   = "primary_search"
	StageExpansion       = "relationship_expansion"
	StageRelationships   = "relationship_lookup"
	StageScoring         = "scoring"
	StageContextAssembly = "context_assembly"
)

// StageError reports the pipeline stage in which a search failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// Is matches types.ErrTimeout when the stage ran out of time.
func (e *StageError) Is(target error) bool {
	return target == types.ErrTimeout && errors.Is(e.Err, context.DeadlineExceeded)
}

// Search runs a text search with default options.
func (c *Client) Search(ctx context.Context, text string) *types.SearchResult {
	return c.SearchWithQuery(ctx, types.SearchQuery{Text: text})
}

// SearchWithQuery runs a structured search. It never fails: when a stage
// fails the result is empty, Error is set and Context explains the failure.
// Successful results are cached by cache.Key and later identical queries
// get a copy of the cached result, original latency included.
func (c *Client) SearchWithQuery(ctx context.Context, q types.SearchQuery) *types.SearchResult {
	start := c.now()
	s := c.config.Search
	q = q.WithDefaults(s.DefaultLimit, s.MaxDepth, s.MaxContextLength)

	key := cache.Key(q)
	if cached, ok := c.cache.Get(key); ok {
		c.record(start, cached.Query, cached.Intent, cached.TotalFound, true)
		return cached.Clone()
	}

	plan := search.Preprocess(q)
	result, err := c.execute(ctx, plan)
	if err != nil {
		var stageErr *StageError
		stage := ""
		if errors.As(err, &stageErr) {
			stage = stageErr.Stage
		}
		c.logger.Warn("Search failed",
			"query", plan.Text, "intent", plan.Intent, "stage", stage, "error", err)
		result = failedResult(plan, err)
	}
	result.LatencyMs = elapsedMs(start, c.now())

	if err == nil {
		c.cache.Put(key, result.Clone())
	}
	c.record(start, plan.Text, plan.Intent, result.TotalFound, false)
	c.logger.Debug("Search complete",
		"query", plan.Text, "intent", plan.Intent,
		"total_found", result.TotalFound, "latency_ms", result.LatencyMs)

	out := *result
	return &out
}

func (c *Client) execute(ctx context.Context, plan *search.Plan) (*types.SearchResult, error) {
	timeout := c.config.Search.StageTimeout

	primary, err := runStage(ctx, timeout, StagePrimarySearch, func(ctx context.Context) ([]*types.Entity, error) {
		return c.primary.Search(ctx, plan)
	})
	if err != nil {
		return nil, err
	}

	related := []*types.Entity{}
	if plan.Expand && len(primary) > 0 {
		related, err = runStage(ctx, timeout, StageExpansion, func(ctx context.Context) ([]*types.Entity, error) {
			return c.expander.Expand(ctx, primary, plan)
		})
		if err != nil {
			return nil, err
		}
	}

	rels := []*types.Relationship{}
	if len(primary) > 0 {
		rels, err = runStage(ctx, timeout, StageRelationships, func(ctx context.Context) ([]*types.Relationship, error) {
			return c.expander.Relationships(ctx, primary, related)
		})
		if err != nil {
			return nil, err
		}
	}

	scores, err := runStage(ctx, 0, StageScoring, func(context.Context) (map[string]float64, error) {
		return search.ScoreAll(primary, related), nil
	})
	if err != nil {
		return nil, err
	}

	assembled, err := runStage(ctx, 0, StageContextAssembly, func(context.Context) (string, error) {
		return search.AssembleContext(primary, related, rels, plan.Intent, plan.MaxContextLength), nil
	})
	if err != nil {
		return nil, err
	}

	total := len(primary) + len(related)
	partial := make([]*types.Entity, 0, total)
	partial = append(partial, primary...)
	partial = append(partial, related...)

	return &types.SearchResult{
		Query:         plan.Text,
		Intent:        plan.Intent,
		Primary:       primary,
		Related:       related,
		Relationships: rels,
		Scores:        scores,
		Context:       assembled,
		TotalFound:    total,
		Suggestions:   search.Suggest(plan, partial, total),
	}, nil
}

// runStage runs fn under its own timeout and turns errors and panics into a
// StageError. A zero timeout only inherits the caller's deadline.
func runStage[T any](ctx context.Context, timeout time.Duration, stage string, fn func(context.Context) (T, error)) (result T, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	defer func() {
		if err != nil {
			var zero T
			result, err = zero, &StageError{Stage: stage, Err: err}
		}
	}()
	defer utils.RecoverAsError(&err)

	result, err = fn(ctx)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return result, err
}

func failedResult(plan *search.Plan, err error) *types.SearchResult {
	return &types.SearchResult{
		Query:         plan.Text,
		Intent:        plan.Intent,
		Primary:       []*types.Entity{},
		Related:       []*types.Entity{},
		Relationships: []*types.Relationship{},
		Scores:        map[string]float64{},
		Context:       search.FailureContext(plan.Text, err, plan.MaxContextLength),
		TotalFound:    0,
		Suggestions:   search.Suggest(plan, nil, 0),
		Error:         err.Error(),
	}
}

// GetSearchAnalytics summarizes the search history.
func (c *Client) GetSearchAnalytics() types.SearchAnalytics {
	return c.history.Analytics()
}

// SearchHistory returns the recorded searches, oldest first.
func (c *Client) SearchHistory() []types.SearchRecord {
	return c.history.Records()
}

// ClearCache drops every cached search result.
func (c *Client) ClearCache() {
	c.cache.Clear()
}

func (c *Client) record(start time.Time, query string, intent types.Intent, count int, hit bool) {
	c.history.Add(types.SearchRecord{
		Timestamp:   start.UTC(),
		Query:       query,
		Intent:      intent,
		ResultCount: count,
		LatencyMs:   elapsedMs(start, c.now()),
		CacheHit:    hit,
	})
}

func elapsedMs(start, end time.Time) float64 {
	return float64(end.Sub(start).Microseconds()) / 1000
}
