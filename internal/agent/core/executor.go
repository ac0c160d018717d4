package core

import (
	"context"
	"log"
	"time"

	"github.com/mohammad-safakhou/gramlens/config"
	"github.com/mohammad-safakhou/gramlens/internal/agent/telemetry"
	"github.com/mohammad-safakhou/gramlens/internal/corpus"
	"github.com/mohammad-safakhou/gramlens/internal/query"
	"github.com/mohammad-safakhou/gramlens/internal/retrieval"
)

// Executor maps planned actions onto the query engine, the retrieval adapter
// and the sentiment tool. Every failure inside one action is contained: the
// action yields zero results and the rest of the plan keeps running.
type Executor struct {
	engine    *query.Engine
	searcher  retrieval.Searcher
	sentiment *SentimentTool
	telemetry *telemetry.Telemetry
	logger    *log.Logger
	timeout   time.Duration
}

// NewExecutor creates an executor over the given collaborators.
func NewExecutor(cfg *config.Config, engine *query.Engine, searcher retrieval.Searcher, sentiment *SentimentTool, tel *telemetry.Telemetry) *Executor {
	return &Executor{
		engine:    engine,
		searcher:  searcher,
		sentiment: sentiment,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[EXECUTOR] ", log.LstdFlags),
		timeout:   cfg.Agent.ToolTimeout,
	}
}

// Execute runs one action and returns whatever it produced. It never returns
// an error: unknown tools, handler errors and panics all degrade to an empty
// result so the remaining actions still run.
func (e *Executor) Execute(ctx context.Context, action Action) (items []ResultItem) {
	startTime := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("Tool %s panicked: %v", action.Tool, r)
			items = nil
		}
		e.telemetry.RecordToolEvent(telemetry.ToolEvent{
			Tool:     string(action.Tool),
			Duration: time.Since(startTime),
			Success:  items != nil,
			Results:  len(items),
		})
	}()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var err error
	switch action.Tool {
	case ToolTopPostsByLikes:
		items, err = e.rankPosts(ctx, action, query.MetricLikes, false)
	case ToolTopPostsByComments:
		items, err = e.rankPosts(ctx, action, query.MetricComments, false)
	case ToolPostsByEngagement:
		items, err = e.rankPosts(ctx, action, query.MetricEngagement, paramBool(action.Params, "ascending", false))
	case ToolRecentPosts:
		items, err = e.recentPosts(ctx, action)
	case ToolProfileStatistics:
		items, err = e.profileStatistics(ctx, action)
	case ToolCompareProfiles:
		items, err = e.compareProfiles(ctx)
	case ToolCountTerm:
		items, err = e.countTerm(ctx, action)
	case ToolAnalyzeSentiment:
		items, err = e.analyzeSentiment(ctx, action)
	case ToolSemanticSearch:
		items, err = e.semanticSearch(ctx, action)
	default:
		e.logger.Printf("Unknown tool %q, skipping", action.Tool)
		return nil
	}
	if err != nil {
		e.logger.Printf("Tool %s failed: %v", action.Tool, err)
		return nil
	}
	return items
}

func (e *Executor) rankPosts(ctx context.Context, action Action, metric query.Metric, ascending bool) ([]ResultItem, error) {
	limit := paramInt(action.Params, "limit", 10)
	profile := paramString(action.Params, "profile", "")
	var (
		posts []corpus.Post
		err   error
	)
	if ascending {
		posts, err = e.engine.BottomByMetric(ctx, metric, limit, profile)
	} else {
		posts, err = e.engine.TopByMetric(ctx, metric, limit, profile)
	}
	if err != nil {
		return nil, err
	}
	return postItems(posts), nil
}

func (e *Executor) recentPosts(ctx context.Context, action Action) ([]ResultItem, error) {
	days := paramInt(action.Params, "days", 30)
	limit := paramInt(action.Params, "limit", 10)
	profile := paramString(action.Params, "profile", "")
	posts, err := e.engine.Recent(ctx, days, limit, profile)
	if err != nil {
		return nil, err
	}
	return postItems(posts), nil
}

func (e *Executor) profileStatistics(ctx context.Context, action Action) ([]ResultItem, error) {
	profile := paramString(action.Params, "profile", "")
	stats, err := e.engine.Statistics(ctx, profile)
	if err != nil {
		return nil, err
	}
	return []ResultItem{StatisticsItem{Stats: stats}}, nil
}

func (e *Executor) compareProfiles(ctx context.Context) ([]ResultItem, error) {
	comparison, err := e.engine.CompareProfiles(ctx)
	if err != nil {
		return nil, err
	}
	return []ResultItem{ComparisonItem{Profiles: comparison}}, nil
}

func (e *Executor) countTerm(ctx context.Context, action Action) ([]ResultItem, error) {
	term := paramString(action.Params, "term", "")
	if term == "" {
		e.logger.Printf("count_term_occurrences called without a term, skipping")
		return nil, nil
	}
	profile := paramString(action.Params, "profile", "")
	caseSensitive := paramBool(action.Params, "case_sensitive", false)
	count, err := e.engine.CountTerm(ctx, term, profile, caseSensitive)
	if err != nil {
		return nil, err
	}
	return []ResultItem{TermCountItem{Count: count}}, nil
}

func (e *Executor) analyzeSentiment(ctx context.Context, action Action) ([]ResultItem, error) {
	topic := paramString(action.Params, "topic", "")
	if topic == "" {
		e.logger.Printf("analyze_sentiment called without a topic, skipping")
		return nil, nil
	}
	profile := paramString(action.Params, "profile", "")
	nPosts := paramInt(action.Params, "n_posts", 20)
	report, err := e.sentiment.Analyze(ctx, topic, profile, nPosts)
	if err != nil {
		return nil, err
	}
	return []ResultItem{report}, nil
}

func (e *Executor) semanticSearch(ctx context.Context, action Action) ([]ResultItem, error) {
	q := paramString(action.Params, "query", "")
	if q == "" {
		e.logger.Printf("semantic_search called without a query, skipping")
		return nil, nil
	}
	nResults := paramInt(action.Params, "n_results", 5)
	profile := paramString(action.Params, "profile", "")
	hits, err := e.searcher.Search(ctx, q, nResults, profile)
	if err != nil {
		return nil, err
	}
	items := make([]ResultItem, 0, len(hits))
	for _, h := range hits {
		items = append(items, PostRecord{Post: retrieval.PostFromHit(h), Distance: h.Distance})
	}
	return items, nil
}

func postItems(posts []corpus.Post) []ResultItem {
	items := make([]ResultItem, 0, len(posts))
	for _, p := range posts {
		items = append(items, PostRecord{Post: p})
	}
	return items
}

// Loose parameter coercion: plans come from the model, so every parameter is
// best-effort typed and falls back to its default instead of failing.

func paramInt(params map[string]any, key string, fallback int) int {
	if params == nil {
		return fallback
	}
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

func paramString(params map[string]any, key, fallback string) string {
	if params == nil {
		return fallback
	}
	if v, ok := params[key].(string); ok {
		return v
	}
	return fallback
}

func paramBool(params map[string]any, key string, fallback bool) bool {
	if params == nil {
		return fallback
	}
	if v, ok := params[key].(bool); ok {
		return v
	}
	return fallback
}
