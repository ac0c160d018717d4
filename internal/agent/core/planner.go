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
	"github.com/mohammad-safakhou/gramlens/internal/helpers"
	"github.com/mohammad-safakhou/gramlens/provider"
)

// Planner turns a user question into an ordered list of tool actions via the
// LLM. It never fails: any model or parse failure degrades to a single
// semantic_search action over the raw question.
type Planner struct {
	config    *config.Config
	provider  provider.Provider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewPlanner creates a new planner instance.
func NewPlanner(cfg *config.Config, prov provider.Provider, tel *telemetry.Telemetry) *Planner {
	return &Planner{
		config:    cfg,
		provider:  prov,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[PLANNER] ", log.LstdFlags),
	}
}

// Plan asks the model for a plan and validates it. The returned plan always
// has at least one action.
func (p *Planner) Plan(ctx context.Context, question, profile string) Plan {
	startTime := time.Now()

	model := provider.ResolveModel(p.config.LLM.Routing, "planning")
	messages := []provider.Message{
		{Role: "system", Content: planningSystemPrompt},
		{Role: "user", Content: p.buildPlanningPrompt(question, profile)},
	}

	response, err := p.provider.Chat(ctx, model, messages, provider.Options{
		Temperature: p.config.Agent.PlannerTemperature,
		MaxTokens:   p.config.Agent.PlannerMaxTokens,
		JSONMode:    true,
	})
	p.telemetry.RecordLLMEvent(telemetry.LLMEvent{
		Model:    model,
		Stage:    "planning",
		Duration: time.Since(startTime),
		Success:  err == nil,
	})
	if err != nil {
		p.logger.Printf("Planning call failed, falling back to semantic search: %v", err)
		return p.fallbackPlan(question, profile)
	}

	plan, err := p.parsePlanningResponse(response)
	if err != nil {
		p.logger.Printf("Planning response unparsable, falling back to semantic search: %v", err)
		return p.fallbackPlan(question, profile)
	}

	valid := plan.Actions[:0]
	for _, action := range plan.Actions {
		if !KnownTool(action.Tool) {
			p.logger.Printf("Dropping unknown tool from plan: %q", action.Tool)
			continue
		}
		valid = append(valid, action)
	}
	plan.Actions = valid
	if len(plan.Actions) == 0 {
		p.logger.Printf("Plan had no valid actions, falling back to semantic search")
		return p.fallbackPlan(question, profile)
	}

	p.logger.Printf("Planning completed in %v with %d actions", time.Since(startTime), len(plan.Actions))
	return plan
}

// fallbackPlan is the deterministic last resort: one semantic search over the
// raw question.
func (p *Planner) fallbackPlan(question, profile string) Plan {
	params := map[string]any{
		"query":     question,
		"n_results": 5,
	}
	if profile != "" {
		params["profile"] = profile
	}
	return Plan{
		Reasoning: "fallback: semantic search over the raw question",
		Actions:   []Action{{Tool: ToolSemanticSearch, Params: params}},
	}
}

func (p *Planner) parsePlanningResponse(response string) (Plan, error) {
	var plan Plan
	if err := json.Unmarshal([]byte(response), &plan); err != nil {
		// Model wrapped the object in prose or a code fence; extract the
		// first balanced JSON value and retry.
		extracted, exErr := helpers.ExtractJSON(response)
		if exErr != nil {
			return Plan{}, fmt.Errorf("no JSON object in planning response: %w", exErr)
		}
		if err := json.Unmarshal([]byte(extracted), &plan); err != nil {
			return Plan{}, fmt.Errorf("failed to parse planning response: %w", err)
		}
	}
	if len(plan.Actions) == 0 {
		return Plan{}, fmt.Errorf("planning response contained no actions")
	}
	return plan, nil
}

func (p *Planner) buildPlanningPrompt(question, profile string) string {
	scope := "all profiles"
	if profile != "" {
		scope = fmt.Sprintf("profile %q only; include \"profile\": %q in every action's params", profile, profile)
	}
	var known string
	if len(p.config.Corpus.Profiles) > 0 {
		known = fmt.Sprintf("\n\nKNOWN PROFILES: %s", strings.Join(p.config.Corpus.Profiles, ", "))
	}
	return fmt.Sprintf("QUESTION: %s\n\nSCOPE: %s%s\n\nRespond with the JSON plan.", question, scope, known)
}

const planningSystemPrompt = `You are a planning agent for a social media post analysis engine. Translate the user's question into an ordered list of tool calls.

AVAILABLE TOOLS:
- get_top_posts_by_likes: params {limit (default 10), profile?}
- get_top_posts_by_comments: params {limit (default 10), profile?}
- get_posts_by_engagement: params {limit (default 10), ascending? (default false), profile?} — engagement = likes + comments
- get_recent_posts: params {days (default 30), limit (default 10), profile?}
- get_profile_statistics: params {profile?} — totals and averages for one profile or the whole corpus
- compare_profiles: params {} — per-profile statistics side by side
- count_term_occurrences: params {term (required), profile?, case_sensitive (default false)} — exact substring count over every post
- analyze_sentiment: params {topic (required), profile?, n_posts (default 20, max 50)} — sentiment verdict on posts mentioning the topic
- semantic_search: params {query (required), n_results (default 5), profile?} — meaning-based retrieval of relevant posts

RULES:
- Output exactly one JSON object: {"reasoning": "...", "actions": [{"tool": "...", "params": {...}}, ...]}
- Use only the tools listed above with the parameter names shown.
- Prefer count_term_occurrences when the user asks "how many posts mention X"; semantic_search only ranks the most relevant posts, it never counts.
- Combine tools when a question has several parts; actions run in the order given.

EXAMPLES:
Question: "What are the 5 most liked posts?"
{"reasoning": "Direct ranking by likes.", "actions": [{"tool": "get_top_posts_by_likes", "params": {"limit": 5}}]}

Question: "How many posts mention UFF and what do people think about it?"
{"reasoning": "Exact count first, then sentiment on matching posts.", "actions": [{"tool": "count_term_occurrences", "params": {"term": "UFF"}}, {"tool": "analyze_sentiment", "params": {"topic": "UFF"}}]}

Question: "Which profile performs better?"
{"reasoning": "Side-by-side statistics across profiles.", "actions": [{"tool": "compare_profiles", "params": {}}]}

Question: "What has been posted about scholarships lately?"
{"reasoning": "Recent window plus meaning-based retrieval.", "actions": [{"tool": "get_recent_posts", "params": {"days": 30, "limit": 10}}, {"tool": "semantic_search", "params": {"query": "scholarships", "n_results": 5}}]}`
