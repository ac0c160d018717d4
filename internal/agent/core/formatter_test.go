package core

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/gramlens/internal/corpus"
	"github.com/mohammad-safakhou/gramlens/internal/query"
)

func TestFormatStatisticsRoundTrip(t *testing.T) {
	stats := query.Statistics{
		Profile:         "uni",
		TotalPosts:      42,
		TotalLikes:      1234,
		TotalComments:   99,
		AvgLikes:        29.38,
		AvgComments:     2.36,
		TotalEngagement: 1333,
	}
	out := FormatOutcomes([]ExecutionOutcome{{Tool: ToolProfileStatistics, Items: []ResultItem{StatisticsItem{Stats: stats}}}})

	// Re-parse the numeric fields out of the block.
	var total int
	var avgLikes, avgComments float64
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if n, err := fmt.Sscanf(line, "- Total posts: %d", &total); n == 1 && err == nil {
			continue
		}
		if n, err := fmt.Sscanf(line, "- Average likes per post: %f", &avgLikes); n == 1 && err == nil {
			continue
		}
		fmt.Sscanf(line, "- Average comments per post: %f", &avgComments)
	}
	if total != 42 {
		t.Fatalf("total posts not recoverable: %d", total)
	}
	if avgLikes != 29.38 || avgComments != 2.36 {
		t.Fatalf("averages not recoverable at 2-decimal precision: %v / %v", avgLikes, avgComments)
	}
}

func TestFormatPostsTruncatesAndLimits(t *testing.T) {
	items := make([]ResultItem, 0, 12)
	for i := 0; i < 12; i++ {
		items = append(items, PostRecord{Post: corpus.Post{
			ID:      fmt.Sprintf("p%d", i),
			Profile: "uni",
			Text:    strings.Repeat("x", 300),
		}})
	}
	out := FormatOutcomes([]ExecutionOutcome{{Tool: ToolTopPostsByLikes, Items: items}})

	if strings.Count(out, "[uni]") != 10 {
		t.Fatalf("expected at most 10 posts rendered, got %d", strings.Count(out, "[uni]"))
	}
	if !strings.Contains(out, "2 more posts omitted") {
		t.Fatalf("expected omission note for overflow posts")
	}
	if !strings.Contains(out, strings.Repeat("x", 200)+"...") {
		t.Fatalf("expected 200-char truncation with ellipsis")
	}
	if strings.Contains(out, strings.Repeat("x", 201)) {
		t.Fatalf("post text exceeded the 200-char budget")
	}
}

func TestFormatBlocksEndWithSeparator(t *testing.T) {
	outcomes := []ExecutionOutcome{
		{Tool: ToolProfileStatistics, Items: []ResultItem{StatisticsItem{}}},
		{Tool: ToolCompareProfiles, Items: []ResultItem{ComparisonItem{Profiles: map[string]query.Statistics{"uni": {}}}}},
	}
	out := FormatOutcomes(outcomes)
	if strings.Count(out, blockSeparator) != 2 {
		t.Fatalf("expected one separator per block, got %d", strings.Count(out, blockSeparator))
	}
}

func TestFormatSkipsEmptyOutcomes(t *testing.T) {
	outcomes := []ExecutionOutcome{{Tool: ToolSemanticSearch, Items: nil}}
	if out := FormatOutcomes(outcomes); out != "" {
		t.Fatalf("expected no output for empty outcome, got %q", out)
	}
}

func TestFormatTermCountExamples(t *testing.T) {
	matching := make([]corpus.Post, 7)
	for i := range matching {
		matching[i] = corpus.Post{ID: fmt.Sprintf("m%d", i), Text: fmt.Sprintf("match %d %s", i, strings.Repeat("y", 300))}
	}
	count := query.TermCount{
		Term:          "uff",
		Count:         7,
		Percentage:    14.0,
		TotalPosts:    50,
		MatchingPosts: matching,
	}
	out := FormatOutcomes([]ExecutionOutcome{{Tool: ToolCountTerm, Items: []ResultItem{TermCountItem{Count: count}}}})

	if !strings.Contains(out, "7 of 50 (14.00%)") {
		t.Fatalf("count line missing: %q", out)
	}
	if strings.Count(out, "match ") != 5 {
		t.Fatalf("expected at most 5 term examples, got %d", strings.Count(out, "match "))
	}
	if !strings.Contains(out, strings.Repeat("y", 250-len("match 0 "))+"...") {
		t.Fatalf("expected 250-char truncation for term examples")
	}
}

func TestFormatSentimentBuckets(t *testing.T) {
	report := SentimentReport{
		Topic:         "campus",
		PostsAnalyzed: 4,
		Positive:      3,
		Neutral:       1,
		Summary:       "mostly positive",
		Examples: map[string][]corpus.Post{
			"positive": {{ID: "a", Text: "love it"}, {ID: "b", Text: "great"}, {ID: "c", Text: "extra"}},
			"neutral":  {{ID: "d", Text: "meh"}},
		},
	}
	out := FormatOutcomes([]ExecutionOutcome{{Tool: ToolAnalyzeSentiment, Items: []ResultItem{report}}})

	if !strings.Contains(out, "Positive: 3, Negative: 0, Neutral: 1") {
		t.Fatalf("tally line missing: %q", out)
	}
	if strings.Count(out, "Example (positive)") != 2 {
		t.Fatalf("expected at most 2 examples per bucket")
	}
	if !strings.Contains(out, "mostly positive") {
		t.Fatalf("summary missing")
	}
}
