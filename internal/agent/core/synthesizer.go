package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mohammad-safakhou/gramlens/config"
	"github.com/mohammad-safakhou/gramlens/internal/agent/telemetry"
	"github.com/mohammad-safakhou/gramlens/provider"
)

// Synthesizer turns the formatted tool output into a natural-language answer
// with one LLM call. A failed call yields an explicit error string as the
// answer, never an error to the caller.
type Synthesizer struct {
	config    *config.Config
	provider  provider.Provider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewSynthesizer creates a new synthesizer instance.
func NewSynthesizer(cfg *config.Config, prov provider.Provider, tel *telemetry.Telemetry) *Synthesizer {
	return &Synthesizer{
		config:    cfg,
		provider:  prov,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[SYNTHESIZER] ", log.LstdFlags),
	}
}

// Synthesize answers the question from the supplied context blocks. When fn
// is non-nil the answer is streamed through it delta by delta; either way
// the complete answer text is returned.
func (s *Synthesizer) Synthesize(ctx context.Context, question, contextBlocks string, fn func(delta string) error) string {
	startTime := time.Now()
	model := provider.ResolveModel(s.config.LLM.Routing, "synthesis")
	messages := []provider.Message{
		{Role: "system", Content: synthesisSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("QUESTION: %s\n\nCONTEXT:\n%s", question, contextBlocks)},
	}
	opts := provider.Options{
		Temperature: s.config.Agent.SynthesisTemperature,
		MaxTokens:   s.config.Agent.SynthesisMaxTokens,
	}

	var (
		answer string
		err    error
	)
	if fn != nil {
		answer, err = s.provider.ChatStream(ctx, model, messages, opts, fn)
	} else {
		answer, err = s.provider.Chat(ctx, model, messages, opts)
	}
	s.telemetry.RecordLLMEvent(telemetry.LLMEvent{
		Model:    model,
		Stage:    "synthesis",
		Duration: time.Since(startTime),
		Success:  err == nil,
	})
	if err != nil {
		s.logger.Printf("Synthesis call failed: %v", err)
		return fmt.Sprintf("I gathered relevant data but could not generate a summary (error: %v). The raw results are included below the answer.", err)
	}
	s.logger.Printf("Synthesis completed in %v", time.Since(startTime))
	return answer
}

const synthesisSystemPrompt = `You are an analyst answering questions about a corpus of social media posts. Answer the question using ONLY the supplied context blocks.

RULES:
- Cite concrete numbers (likes, comments, percentages) and post URLs from the context where they support the answer.
- If the context does not contain enough information for part of the question, say so plainly instead of inventing details.
- Keep the answer focused; do not restate the whole context.`
