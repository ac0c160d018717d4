package core

import (
	"context"
	"errors"
	"testing"

	"github.com/mohammad-safakhou/gramlens/config"
	"github.com/mohammad-safakhou/gramlens/internal/agent/telemetry"
	"github.com/mohammad-safakhou/gramlens/internal/corpus"
	"github.com/mohammad-safakhou/gramlens/internal/query"
	"github.com/mohammad-safakhou/gramlens/internal/retrieval"
)

func newTestExecutor(posts []corpus.Post, searcher retrieval.Searcher, prov *stubProvider) *Executor {
	cfg := &config.Config{}
	accessor := corpus.NewMemory(posts)
	tele := telemetry.NewTelemetry(config.TelemetryConfig{})
	sentiment := NewSentimentTool(cfg, prov, accessor, tele)
	return NewExecutor(cfg, query.NewEngine(accessor), searcher, sentiment, tele)
}

func TestExecuteTopPostsAppliesDefaults(t *testing.T) {
	posts := make([]corpus.Post, 15)
	for i := range posts {
		posts[i] = corpus.Post{ID: string(rune('a' + i)), LikesCount: i}
	}
	exec := newTestExecutor(posts, &stubSearcher{}, &stubProvider{})

	items := exec.Execute(context.Background(), Action{Tool: ToolTopPostsByLikes})
	if len(items) != 10 {
		t.Fatalf("expected default limit 10, got %d items", len(items))
	}
	top := items[0].(PostRecord)
	if top.Post.LikesCount != 14 {
		t.Fatalf("expected most liked post first, got %d likes", top.Post.LikesCount)
	}
}

func TestExecuteCoercesJSONNumbers(t *testing.T) {
	posts := []corpus.Post{{ID: "a", LikesCount: 1}, {ID: "b", LikesCount: 2}, {ID: "c", LikesCount: 3}}
	exec := newTestExecutor(posts, &stubSearcher{}, &stubProvider{})

	// JSON decoding hands the executor float64 values.
	items := exec.Execute(context.Background(), Action{
		Tool:   ToolTopPostsByLikes,
		Params: map[string]any{"limit": float64(2)},
	})
	if len(items) != 2 {
		t.Fatalf("expected float64 limit coerced to 2, got %d items", len(items))
	}
}

func TestExecuteGarbledParamsFallBackToDefaults(t *testing.T) {
	posts := []corpus.Post{{ID: "a"}}
	exec := newTestExecutor(posts, &stubSearcher{}, &stubProvider{})

	items := exec.Execute(context.Background(), Action{
		Tool:   ToolTopPostsByLikes,
		Params: map[string]any{"limit": "lots", "profile": 7},
	})
	if len(items) != 1 {
		t.Fatalf("expected garbled params to fall back to defaults, got %d items", len(items))
	}
}

func TestExecuteUnknownToolYieldsEmpty(t *testing.T) {
	exec := newTestExecutor([]corpus.Post{{ID: "a"}}, &stubSearcher{}, &stubProvider{})
	if items := exec.Execute(context.Background(), Action{Tool: ToolName("rm_rf")}); len(items) != 0 {
		t.Fatalf("unknown tool must yield empty result, got %d items", len(items))
	}
}

func TestExecuteSemanticSearchFailureYieldsEmpty(t *testing.T) {
	exec := newTestExecutor([]corpus.Post{{ID: "a"}}, &stubSearcher{err: errors.New("vector service down")}, &stubProvider{})
	items := exec.Execute(context.Background(), Action{
		Tool:   ToolSemanticSearch,
		Params: map[string]any{"query": "anything"},
	})
	if len(items) != 0 {
		t.Fatalf("expected vector outage to degrade to empty result, got %d items", len(items))
	}
}

func TestExecuteSemanticSearchMapsHits(t *testing.T) {
	searcher := &stubSearcher{hits: []retrieval.Hit{
		{ID: "uni_1", Document: "graduation ceremony", Distance: 0.12, Metadata: map[string]string{"profile": "uni", "likesCount": "9"}},
	}}
	exec := newTestExecutor(nil, searcher, &stubProvider{})
	items := exec.Execute(context.Background(), Action{
		Tool:   ToolSemanticSearch,
		Params: map[string]any{"query": "graduation"},
	})
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	record := items[0].(PostRecord)
	if record.Post.ID != "uni_1" || record.Post.LikesCount != 9 || record.Distance != 0.12 {
		t.Fatalf("hit not mapped onto post record: %+v", record)
	}
}

func TestExecuteCountTermRequiresTerm(t *testing.T) {
	exec := newTestExecutor([]corpus.Post{{ID: "a", Text: "x"}}, &stubSearcher{}, &stubProvider{})
	if items := exec.Execute(context.Background(), Action{Tool: ToolCountTerm}); len(items) != 0 {
		t.Fatalf("missing term must yield empty result, got %d items", len(items))
	}
}

func TestExecuteCompareProfiles(t *testing.T) {
	posts := []corpus.Post{
		{ID: "a", Profile: "uni", LikesCount: 4},
		{ID: "b", Profile: "lab", LikesCount: 2},
	}
	exec := newTestExecutor(posts, &stubSearcher{}, &stubProvider{})
	items := exec.Execute(context.Background(), Action{Tool: ToolCompareProfiles})
	if len(items) != 1 {
		t.Fatalf("expected a single comparison item, got %d", len(items))
	}
	comparison := items[0].(ComparisonItem)
	if len(comparison.Profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(comparison.Profiles))
	}
}

func TestExecuteEngagementAscending(t *testing.T) {
	posts := []corpus.Post{
		{ID: "hot", LikesCount: 100},
		{ID: "cold", LikesCount: 1},
	}
	exec := newTestExecutor(posts, &stubSearcher{}, &stubProvider{})
	items := exec.Execute(context.Background(), Action{
		Tool:   ToolPostsByEngagement,
		Params: map[string]any{"ascending": true, "limit": float64(1)},
	})
	if len(items) != 1 || items[0].(PostRecord).Post.ID != "cold" {
		t.Fatalf("expected ascending order to surface the coldest post, got %+v", items)
	}
}
