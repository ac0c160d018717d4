package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/gramlens/config"
	"github.com/mohammad-safakhou/gramlens/internal/agent/telemetry"
	"github.com/mohammad-safakhou/gramlens/internal/corpus"
	"github.com/mohammad-safakhou/gramlens/internal/helpers"
	"github.com/mohammad-safakhou/gramlens/provider"
)

const maxSentimentPosts = 50

// SentimentTool asks the LLM for a sentiment verdict over posts mentioning a
// topic. A corpus with no mention of the topic never triggers an LLM call,
// and an unparsable verdict degrades to a neutral-only report instead of
// failing the action.
type SentimentTool struct {
	config    *config.Config
	provider  provider.Provider
	accessor  corpus.Accessor
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewSentimentTool creates a sentiment tool over the given accessor.
func NewSentimentTool(cfg *config.Config, prov provider.Provider, accessor corpus.Accessor, tel *telemetry.Telemetry) *SentimentTool {
	return &SentimentTool{
		config:    cfg,
		provider:  prov,
		accessor:  accessor,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[SENTIMENT] ", log.LstdFlags),
	}
}

// verdict is the JSON shape requested from the model. PostSentiments labels
// the numbered posts in prompt order so examples can be bucketed.
type verdict struct {
	Summary         string   `json:"summary"`
	Positive        int      `json:"positive"`
	Negative        int      `json:"negative"`
	Neutral         int      `json:"neutral"`
	KeyPoints       []string `json:"key_points"`
	PositiveAspects []string `json:"positive_aspects"`
	NegativeAspects []string `json:"negative_aspects"`
	PostSentiments  []string `json:"post_sentiments"`
}

// Analyze builds a sentiment report for posts mentioning topic.
func (s *SentimentTool) Analyze(ctx context.Context, topic, profile string, nPosts int) (SentimentReport, error) {
	if nPosts <= 0 {
		nPosts = 20
	}
	if nPosts > maxSentimentPosts {
		nPosts = maxSentimentPosts
	}

	posts, err := s.accessor.Posts(ctx, profile)
	if err != nil {
		return SentimentReport{}, fmt.Errorf("corpus scan: %w", err)
	}
	needle := strings.ToLower(topic)
	var matching []corpus.Post
	for _, p := range posts {
		if strings.Contains(strings.ToLower(p.Text), needle) {
			matching = append(matching, p)
		}
	}
	if len(matching) == 0 {
		return SentimentReport{
			Topic:   topic,
			Profile: profile,
			Summary: fmt.Sprintf("No posts mentioning %q were found, so there is no sentiment to report.", topic),
		}, nil
	}
	if len(matching) > nPosts {
		matching = matching[:nPosts]
	}

	startTime := time.Now()
	model := provider.ResolveModel(s.config.LLM.Routing, "sentiment")
	messages := []provider.Message{
		{Role: "system", Content: sentimentSystemPrompt},
		{Role: "user", Content: s.buildPrompt(topic, matching)},
	}
	response, err := s.provider.Chat(ctx, model, messages, provider.Options{
		Temperature: 0.2,
		MaxTokens:   1500,
		JSONMode:    true,
	})
	s.telemetry.RecordLLMEvent(telemetry.LLMEvent{
		Model:    model,
		Stage:    "sentiment",
		Duration: time.Since(startTime),
		Success:  err == nil,
	})
	if err != nil {
		s.logger.Printf("Sentiment call failed, degrading to neutral report: %v", err)
		return s.degradedReport(topic, profile, matching, fmt.Sprintf("sentiment call failed: %v", err)), nil
	}

	v, err := s.parseVerdict(response)
	if err != nil {
		s.logger.Printf("Sentiment verdict unparsable, degrading to neutral report: %v", err)
		return s.degradedReport(topic, profile, matching, "sentiment verdict was not valid JSON"), nil
	}

	report := SentimentReport{
		Topic:           topic,
		Profile:         profile,
		PostsAnalyzed:   len(matching),
		Positive:        v.Positive,
		Negative:        v.Negative,
		Neutral:         v.Neutral,
		Summary:         v.Summary,
		KeyPoints:       v.KeyPoints,
		PositiveAspects: v.PositiveAspects,
		NegativeAspects: v.NegativeAspects,
		Examples:        bucketExamples(matching, v.PostSentiments),
	}
	return report, nil
}

func (s *SentimentTool) parseVerdict(response string) (verdict, error) {
	raw := response
	if inner, ok := helpers.StripCodeFence(response); ok {
		raw = inner
	}
	var v verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		extracted, exErr := helpers.ExtractJSON(response)
		if exErr != nil {
			return verdict{}, exErr
		}
		if err := json.Unmarshal([]byte(extracted), &v); err != nil {
			return verdict{}, err
		}
	}
	return v, nil
}

// degradedReport tags every analyzed post as neutral and records why.
func (s *SentimentTool) degradedReport(topic, profile string, analyzed []corpus.Post, reason string) SentimentReport {
	return SentimentReport{
		Topic:         topic,
		Profile:       profile,
		PostsAnalyzed: len(analyzed),
		Neutral:       len(analyzed),
		Summary:       fmt.Sprintf("Sentiment for %q could not be determined; all %d analyzed posts were treated as neutral.", topic, len(analyzed)),
		Examples:      bucketExamples(analyzed, nil),
		Error:         reason,
	}
}

// bucketExamples picks up to 2 posts per sentiment bucket using the model's
// per-post labels. Labels are best-effort: missing or misaligned entries are
// skipped rather than guessed.
func bucketExamples(analyzed []corpus.Post, labels []string) map[string][]corpus.Post {
	examples := make(map[string][]corpus.Post)
	for i, label := range labels {
		if i >= len(analyzed) {
			break
		}
		bucket := strings.ToLower(strings.TrimSpace(label))
		switch bucket {
		case "positive", "negative", "neutral":
		default:
			continue
		}
		if len(examples[bucket]) >= 2 {
			continue
		}
		examples[bucket] = append(examples[bucket], analyzed[i])
	}
	if len(examples) == 0 {
		return nil
	}
	return examples
}

func (s *SentimentTool) buildPrompt(topic string, posts []corpus.Post) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TOPIC: %s\n\nPOSTS (%d):\n", topic, len(posts))
	for i, p := range posts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, helpers.Truncate(p.Text, 300))
	}
	b.WriteString("\nRespond with the JSON verdict.")
	return b.String()
}

const sentimentSystemPrompt = `You are a sentiment analyst for social media posts. Given a topic and a numbered list of posts mentioning it, produce a structured verdict.

Output exactly one JSON object:
{"summary": "one-paragraph overall sentiment summary", "positive": <count>, "negative": <count>, "neutral": <count>, "key_points": ["..."], "positive_aspects": ["..."], "negative_aspects": ["..."], "post_sentiments": ["positive"|"negative"|"neutral", one entry per post in order]}

The three counts must sum to the number of posts. Base the verdict only on the supplied posts.`
