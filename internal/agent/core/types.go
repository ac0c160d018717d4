package core

import (
	"github.com/mohammad-safakhou/gramlens/internal/corpus"
	"github.com/mohammad-safakhou/gramlens/internal/query"
)

// ToolName identifies one of the closed set of executable tools. Dispatch is
// by this enumeration, never by arbitrary strings coming out of the model.
type ToolName string

const (
	ToolTopPostsByLikes    ToolName = "get_top_posts_by_likes"
	ToolTopPostsByComments ToolName = "get_top_posts_by_comments"
	ToolPostsByEngagement  ToolName = "get_posts_by_engagement"
	ToolRecentPosts        ToolName = "get_recent_posts"
	ToolProfileStatistics  ToolName = "get_profile_statistics"
	ToolCompareProfiles    ToolName = "compare_profiles"
	ToolCountTerm          ToolName = "count_term_occurrences"
	ToolAnalyzeSentiment   ToolName = "analyze_sentiment"
	ToolSemanticSearch     ToolName = "semantic_search"
)

// KnownTool reports whether name belongs to the tool catalog.
func KnownTool(name ToolName) bool {
	switch name {
	case ToolTopPostsByLikes, ToolTopPostsByComments, ToolPostsByEngagement,
		ToolRecentPosts, ToolProfileStatistics, ToolCompareProfiles,
		ToolCountTerm, ToolAnalyzeSentiment, ToolSemanticSearch:
		return true
	}
	return false
}

// Action is a single planned tool invocation. Created by the planner for one
// plan and consumed once by the executor; never persisted.
type Action struct {
	Tool   ToolName       `json:"tool"`
	Params map[string]any `json:"params,omitempty"`
}

// Plan is the planner's output for one question.
type Plan struct {
	Reasoning string   `json:"reasoning"`
	Actions   []Action `json:"actions"`
}

// ResultItem is the closed set of shapes a tool can produce. Every tool
// yields a homogeneous sequence of one variant; the formatter dispatches on
// the variant, never on the tool name.
type ResultItem interface {
	resultItem()
}

// PostRecord wraps a post plus an optional relevance distance when the post
// came out of semantic search.
type PostRecord struct {
	Post     corpus.Post `json:"post"`
	Distance float64     `json:"distance,omitempty"`
}

// StatisticsItem carries aggregate counters for one profile or the whole corpus.
type StatisticsItem struct {
	Stats query.Statistics `json:"stats"`
}

// ComparisonItem maps each observed profile to its statistics.
type ComparisonItem struct {
	Profiles map[string]query.Statistics `json:"profiles"`
}

// TermCountItem is the result of an exhaustive term count.
type TermCountItem struct {
	Count query.TermCount `json:"count"`
}

// SentimentReport is the sentiment tool's verdict over a topic-filtered
// slice of the corpus. Error is set when the model's verdict could not be
// parsed and the report degraded to neutral-only.
type SentimentReport struct {
	Topic           string                   `json:"topic"`
	Profile         string                   `json:"profile,omitempty"`
	PostsAnalyzed   int                      `json:"posts_analyzed"`
	Positive        int                      `json:"positive"`
	Negative        int                      `json:"negative"`
	Neutral         int                      `json:"neutral"`
	Summary         string                   `json:"summary"`
	KeyPoints       []string                 `json:"key_points,omitempty"`
	PositiveAspects []string                 `json:"positive_aspects,omitempty"`
	NegativeAspects []string                 `json:"negative_aspects,omitempty"`
	Examples        map[string][]corpus.Post `json:"examples,omitempty"` // keyed by bucket, at most 2 each
	Error           string                   `json:"error,omitempty"`
}

func (PostRecord) resultItem()      {}
func (StatisticsItem) resultItem()  {}
func (ComparisonItem) resultItem()  {}
func (TermCountItem) resultItem()   {}
func (SentimentReport) resultItem() {}

// ExecutionOutcome pairs one executed action with whatever it produced,
// preserving plan order.
type ExecutionOutcome struct {
	Tool  ToolName     `json:"tool"`
	Items []ResultItem `json:"items"`
}

// Answer is the engine's one externally visible contract: an answer string
// plus the flat list of every ResultItem collected while producing it.
type Answer struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Results []ResultItem `json:"results"`
}
