package core

import (
	"context"
	"testing"

	"github.com/mohammad-safakhou/gramlens/config"
	"github.com/mohammad-safakhou/gramlens/internal/agent/telemetry"
	"github.com/mohammad-safakhou/gramlens/internal/corpus"
)

func newTestSentiment(posts []corpus.Post, prov *stubProvider) *SentimentTool {
	return NewSentimentTool(&config.Config{}, prov, corpus.NewMemory(posts), telemetry.NewTelemetry(config.TelemetryConfig{}))
}

func TestAnalyzeNoMatchesSkipsLLM(t *testing.T) {
	prov := &stubProvider{}
	tool := newTestSentiment([]corpus.Post{{ID: "a", Text: "nothing relevant"}}, prov)

	report, err := tool.Analyze(context.Background(), "scholarship", "", 20)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if prov.calls != 0 {
		t.Fatalf("expected no LLM call for zero matches, got %d calls", prov.calls)
	}
	if report.PostsAnalyzed != 0 || report.Positive != 0 || report.Negative != 0 || report.Neutral != 0 {
		t.Fatalf("expected zero-count report, got %+v", report)
	}
	if report.Summary == "" {
		t.Fatalf("expected explanatory summary on zero matches")
	}
}

func TestAnalyzeParsesVerdict(t *testing.T) {
	prov := &stubProvider{responses: []string{
		`{"summary": "mostly positive", "positive": 2, "negative": 0, "neutral": 1, "key_points": ["k1"], "positive_aspects": ["pa"], "negative_aspects": [], "post_sentiments": ["positive", "neutral", "positive"]}`,
	}}
	posts := []corpus.Post{
		{ID: "a", Text: "the scholarship is great"},
		{ID: "b", Text: "scholarship deadline info"},
		{ID: "c", Text: "love the scholarship program"},
	}
	report, err := newTestSentiment(posts, prov).Analyze(context.Background(), "scholarship", "", 20)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.PostsAnalyzed != 3 || report.Positive != 2 || report.Neutral != 1 {
		t.Fatalf("verdict counts not carried over: %+v", report)
	}
	if report.Error != "" {
		t.Fatalf("unexpected error marker: %q", report.Error)
	}
	if len(report.Examples["positive"]) != 2 {
		t.Fatalf("expected 2 positive examples, got %d", len(report.Examples["positive"]))
	}
	if len(report.Examples["neutral"]) != 1 || report.Examples["neutral"][0].ID != "b" {
		t.Fatalf("neutral example misbucketed: %+v", report.Examples["neutral"])
	}
}

func TestAnalyzeStripsCodeFence(t *testing.T) {
	prov := &stubProvider{responses: []string{
		"```json\n{\"summary\": \"ok\", \"positive\": 1, \"negative\": 0, \"neutral\": 0, \"post_sentiments\": [\"positive\"]}\n```",
	}}
	posts := []corpus.Post{{ID: "a", Text: "campus life"}}
	report, err := newTestSentiment(posts, prov).Analyze(context.Background(), "campus", "", 20)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.Positive != 1 || report.Error != "" {
		t.Fatalf("fenced verdict not parsed: %+v", report)
	}
}

func TestAnalyzeDegradesOnUnparsableVerdict(t *testing.T) {
	prov := &stubProvider{responses: []string{"the sentiment is, like, pretty good?"}}
	posts := []corpus.Post{
		{ID: "a", Text: "campus tour"},
		{ID: "b", Text: "new campus building"},
	}
	report, err := newTestSentiment(posts, prov).Analyze(context.Background(), "campus", "", 20)
	if err != nil {
		t.Fatalf("Analyze must not fail on a bad verdict: %v", err)
	}
	if report.Error == "" {
		t.Fatalf("expected error marker on degraded report")
	}
	if report.Neutral != 2 || report.Positive != 0 || report.Negative != 0 {
		t.Fatalf("expected all posts tagged neutral, got %+v", report)
	}
	if report.PostsAnalyzed != 2 {
		t.Fatalf("expected 2 posts analyzed, got %d", report.PostsAnalyzed)
	}
}

func TestAnalyzeCapsPosts(t *testing.T) {
	prov := &stubProvider{responses: []string{
		`{"summary": "s", "positive": 0, "negative": 0, "neutral": 50}`,
	}}
	posts := make([]corpus.Post, 80)
	for i := range posts {
		posts[i] = corpus.Post{ID: string(rune('a' + i)), Text: "campus"}
	}
	report, err := newTestSentiment(posts, prov).Analyze(context.Background(), "campus", "", 200)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.PostsAnalyzed != 50 {
		t.Fatalf("expected analysis capped at 50 posts, got %d", report.PostsAnalyzed)
	}
}
