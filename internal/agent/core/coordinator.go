package core

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/gramlens/config"
	"github.com/mohammad-safakhou/gramlens/internal/agent/telemetry"
	"github.com/mohammad-safakhou/gramlens/internal/corpus"
	"github.com/mohammad-safakhou/gramlens/internal/query"
	"github.com/mohammad-safakhou/gramlens/internal/retrieval"
	"github.com/mohammad-safakhou/gramlens/provider"
)

// Canned terminal responses for the two no-synthesis states.
const (
	msgNoPlan    = "I could not determine how to answer that question. Try rephrasing it or asking about posts, statistics, or sentiment."
	msgNoResults = "I found no relevant information in the post corpus for that question."
)

// state tracks the coordinator's position in one answer() pass.
type state string

const (
	statePlanning     state = "planning"
	stateExecuting    state = "executing"
	stateSynthesizing state = "synthesizing"
	stateEmpty        state = "empty"
	stateDone         state = "done"
)

// Coordinator drives one question through planning, execution, formatting
// and synthesis. It owns the failure policy: the caller always gets an
// answer string plus the flat list of collected results, never an error
// from the agent pipeline itself.
type Coordinator struct {
	planner     *Planner
	executor    *Executor
	synthesizer *Synthesizer
	telemetry   *telemetry.Telemetry
	logger      *log.Logger
}

// NewCoordinator wires the full agent pipeline from configuration and
// collaborators.
func NewCoordinator(cfg *config.Config, prov provider.Provider, accessor corpus.Accessor, searcher retrieval.Searcher, tel *telemetry.Telemetry) *Coordinator {
	engine := query.NewEngine(accessor)
	sentiment := NewSentimentTool(cfg, prov, accessor, tel)
	return &Coordinator{
		planner:     NewPlanner(cfg, prov, tel),
		executor:    NewExecutor(cfg, engine, searcher, sentiment, tel),
		synthesizer: NewSynthesizer(cfg, prov, tel),
		telemetry:   tel,
		logger:      log.New(log.Writer(), "[COORDINATOR] ", log.LstdFlags),
	}
}

// Answer processes one question, optionally scoped to a profile. When fn is
// non-nil the synthesized answer streams through it.
func (c *Coordinator) Answer(ctx context.Context, question, profile string, fn func(delta string) error) Answer {
	startTime := time.Now()
	answer := Answer{ID: uuid.New().String(), Results: []ResultItem{}}
	c.logger.Printf("[%s] Answering (state %s): %s", answer.ID, statePlanning, question)

	plan := c.planner.Plan(ctx, question, profile)
	if len(plan.Actions) == 0 {
		// Cannot happen given the planner's fallback, but checked anyway.
		answer.Text = msgNoPlan
		c.record(answer.ID, startTime, stateDone, false, true)
		return answer
	}

	c.logger.Printf("[%s] Executing %d actions (state %s)", answer.ID, len(plan.Actions), stateExecuting)
	var outcomes []ExecutionOutcome
	for _, action := range plan.Actions {
		items := c.executor.Execute(ctx, action)
		if len(items) == 0 {
			continue
		}
		outcomes = append(outcomes, ExecutionOutcome{Tool: action.Tool, Items: items})
		answer.Results = append(answer.Results, items...)
	}

	if len(answer.Results) == 0 {
		answer.Text = msgNoResults
		c.record(answer.ID, startTime, stateEmpty, false, false)
		return answer
	}

	c.logger.Printf("[%s] Synthesizing over %d results (state %s)", answer.ID, len(answer.Results), stateSynthesizing)
	contextBlocks := FormatOutcomes(outcomes)
	answer.Text = c.synthesizer.Synthesize(ctx, question, contextBlocks, fn)

	c.record(answer.ID, startTime, stateDone, true, false)
	c.logger.Printf("[%s] Answered in %v (%d results, state %s)", answer.ID, time.Since(startTime), len(answer.Results), stateDone)
	return answer
}

func (c *Coordinator) record(id string, startTime time.Time, s state, answered, failed bool) {
	c.telemetry.RecordQuestionEvent(telemetry.QuestionEvent{
		ID:       id,
		Duration: time.Since(startTime),
		Answered: answered,
		Empty:    s == stateEmpty,
		Failed:   failed,
	})
}
