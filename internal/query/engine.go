package query

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mohammad-safakhou/gramlens/internal/corpus"
)

// Metric selects the ranking key for top/bottom queries.
type Metric string

const (
	MetricLikes      Metric = "likes"
	MetricComments   Metric = "comments"
	MetricEngagement Metric = "engagement"
)

// Statistics aggregates engagement counters for one profile (or the whole
// corpus when Profile is empty).
type Statistics struct {
	Profile         string       `json:"profile"`
	TotalPosts      int          `json:"total_posts"`
	TotalLikes      int          `json:"total_likes"`
	TotalComments   int          `json:"total_comments"`
	AvgLikes        float64      `json:"avg_likes"`
	AvgComments     float64      `json:"avg_comments"`
	TotalEngagement int          `json:"total_engagement"`
	TopPost         *corpus.Post `json:"top_post,omitempty"`
}

// TermCount is the result of an exhaustive substring count over the corpus.
type TermCount struct {
	Term          string        `json:"term"`
	Profile       string        `json:"profile"`
	Count         int           `json:"count"`
	Percentage    float64       `json:"percentage"`
	TotalPosts    int           `json:"total_posts"`
	MatchingPosts []corpus.Post `json:"matching_posts"`
}

// Engine answers deterministic structured queries over the corpus. Every
// method re-reads a fresh snapshot from the accessor; nothing is cached or
// mutated, so results are reproducible for identical input.
type Engine struct {
	accessor corpus.Accessor
	now      func() time.Time
}

// NewEngine creates a query engine over the given accessor.
func NewEngine(accessor corpus.Accessor) *Engine {
	return &Engine{accessor: accessor, now: time.Now}
}

// WithClock overrides the engine's clock; used by time-window tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func metricValue(p corpus.Post, metric Metric) (int, error) {
	switch metric {
	case MetricLikes:
		return p.LikesCount, nil
	case MetricComments:
		return p.CommentsCount, nil
	case MetricEngagement:
		return p.Engagement(), nil
	default:
		return 0, fmt.Errorf("unknown metric: %s", metric)
	}
}

func clampLimit(limit, n int) int {
	if limit <= 0 || limit > n {
		return n
	}
	return limit
}

// TopByMetric returns up to limit posts sorted descending by metric.
// The sort is stable: ties preserve original corpus order.
func (e *Engine) TopByMetric(ctx context.Context, metric Metric, limit int, profile string) ([]corpus.Post, error) {
	return e.rankByMetric(ctx, metric, limit, profile, true)
}

// BottomByMetric returns up to limit posts sorted ascending by metric.
func (e *Engine) BottomByMetric(ctx context.Context, metric Metric, limit int, profile string) ([]corpus.Post, error) {
	return e.rankByMetric(ctx, metric, limit, profile, false)
}

func (e *Engine) rankByMetric(ctx context.Context, metric Metric, limit int, profile string, descending bool) ([]corpus.Post, error) {
	if _, err := metricValue(corpus.Post{}, metric); err != nil {
		return nil, err
	}
	posts, err := e.accessor.Posts(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("corpus scan: %w", err)
	}
	sort.SliceStable(posts, func(i, j int) bool {
		vi, _ := metricValue(posts[i], metric)
		vj, _ := metricValue(posts[j], metric)
		if descending {
			return vi > vj
		}
		return vi < vj
	})
	return posts[:clampLimit(limit, len(posts))], nil
}

// Recent returns up to limit posts published within the last days days,
// newest first. Posts with an unknown timestamp are skipped rather than
// treated as an error.
func (e *Engine) Recent(ctx context.Context, days, limit int, profile string) ([]corpus.Post, error) {
	if days <= 0 {
		days = 30
	}
	posts, err := e.accessor.Posts(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("corpus scan: %w", err)
	}
	cutoff := e.now().AddDate(0, 0, -days)
	recent := make([]corpus.Post, 0, len(posts))
	for _, p := range posts {
		if p.Timestamp.IsZero() {
			continue
		}
		if !p.Timestamp.Before(cutoff) {
			recent = append(recent, p)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Timestamp.After(recent[j].Timestamp)
	})
	return recent[:clampLimit(limit, len(recent))], nil
}

// CountTerm counts every post whose cleaned text contains term as a
// substring. Unlike semantic search, which ranks the most relevant posts,
// this scans the whole corpus and reports an exact count.
func (e *Engine) CountTerm(ctx context.Context, term, profile string, caseSensitive bool) (TermCount, error) {
	posts, err := e.accessor.Posts(ctx, profile)
	if err != nil {
		return TermCount{}, fmt.Errorf("corpus scan: %w", err)
	}
	needle := term
	if !caseSensitive {
		needle = strings.ToLower(term)
	}
	var matching []corpus.Post
	for _, p := range posts {
		text := p.Text
		if !caseSensitive {
			text = strings.ToLower(text)
		}
		if strings.Contains(text, needle) {
			matching = append(matching, p)
		}
	}
	total := len(posts)
	percentage := 0.0
	if total > 0 {
		percentage = round2(float64(len(matching)) / float64(total) * 100)
	}
	return TermCount{
		Term:          term,
		Profile:       profile,
		Count:         len(matching),
		Percentage:    percentage,
		TotalPosts:    total,
		MatchingPosts: matching,
	}, nil
}

// Statistics aggregates engagement counters for the given profile, or for
// the whole corpus when profile is empty. An empty corpus yields zeroed
// counters and averages, never a division fault.
func (e *Engine) Statistics(ctx context.Context, profile string) (Statistics, error) {
	posts, err := e.accessor.Posts(ctx, profile)
	if err != nil {
		return Statistics{}, fmt.Errorf("corpus scan: %w", err)
	}
	return aggregate(profile, posts), nil
}

// CompareProfiles returns per-profile statistics, one entry per distinct
// profile observed in the corpus.
func (e *Engine) CompareProfiles(ctx context.Context) (map[string]Statistics, error) {
	posts, err := e.accessor.Posts(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("corpus scan: %w", err)
	}
	grouped := make(map[string][]corpus.Post)
	for _, p := range posts {
		grouped[p.Profile] = append(grouped[p.Profile], p)
	}
	comparison := make(map[string]Statistics, len(grouped))
	for profile, group := range grouped {
		comparison[profile] = aggregate(profile, group)
	}
	return comparison, nil
}

func aggregate(profile string, posts []corpus.Post) Statistics {
	stats := Statistics{Profile: profile, TotalPosts: len(posts)}
	topIdx := -1
	topEngagement := -1
	for i, p := range posts {
		stats.TotalLikes += p.LikesCount
		stats.TotalComments += p.CommentsCount
		if p.Engagement() > topEngagement {
			topEngagement = p.Engagement()
			topIdx = i
		}
	}
	stats.TotalEngagement = stats.TotalLikes + stats.TotalComments
	if stats.TotalPosts > 0 {
		stats.AvgLikes = round2(float64(stats.TotalLikes) / float64(stats.TotalPosts))
		stats.AvgComments = round2(float64(stats.TotalComments) / float64(stats.TotalPosts))
	}
	if topIdx >= 0 {
		top := posts[topIdx]
		stats.TopPost = &top
	}
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
