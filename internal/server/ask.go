package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/gramlens/internal/agent/core"
	"github.com/mohammad-safakhou/gramlens/internal/agent/telemetry"
	"github.com/mohammad-safakhou/gramlens/internal/cache"
)

// AskHandler serves the question answering API.
type AskHandler struct {
	Coordinator *core.Coordinator
	Cache       *cache.AnswerCache
	Telemetry   *telemetry.Telemetry
	Profiles    []string
}

// Register mounts the handler's routes on the API group.
func (h *AskHandler) Register(g *echo.Group) {
	g.POST("/ask", h.ask)
	g.GET("/profiles", h.profiles)
	g.GET("/stats", h.stats)
}

// AskRequest is the /api/ask payload.
type AskRequest struct {
	Question string `json:"question"`
	Profile  string `json:"profile,omitempty"`
}

// AskResponse pairs the synthesized answer with the collected result items.
type AskResponse struct {
	ID      string            `json:"id"`
	Answer  string            `json:"answer"`
	Results []core.ResultItem `json:"results"`
	Cached  bool              `json:"cached,omitempty"`
}

func (h *AskHandler) ask(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}
	ctx := c.Request().Context()

	if cached, err := h.Cache.Get(ctx, req.Question, req.Profile); err != nil {
		log.Printf("[HTTP] answer cache read failed: %v", err)
	} else if cached != nil {
		return c.JSONBlob(http.StatusOK, mustMarshalCached(cached))
	}

	answer := h.Coordinator.Answer(ctx, req.Question, req.Profile, nil)

	resp := AskResponse{ID: answer.ID, Answer: answer.Text, Results: answer.Results}
	if raw, err := json.Marshal(resp.Results); err == nil {
		if err := h.Cache.Put(ctx, req.Question, req.Profile, cache.CachedAnswer{
			Text:    answer.Text,
			Results: raw,
		}); err != nil {
			log.Printf("[HTTP] answer cache write failed: %v", err)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// mustMarshalCached rebuilds an AskResponse body from the cached record.
// Results were stored as raw JSON, so the response is assembled by hand to
// avoid re-decoding into the tagged union.
func mustMarshalCached(cached *cache.CachedAnswer) []byte {
	body := map[string]any{
		"id":      "",
		"answer":  cached.Text,
		"results": json.RawMessage(cached.Results),
		"cached":  true,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		raw = []byte(`{"answer":"","results":[],"cached":true}`)
	}
	return raw
}

func (h *AskHandler) profiles(c echo.Context) error {
	profiles := h.Profiles
	if profiles == nil {
		profiles = []string{}
	}
	return c.JSON(http.StatusOK, map[string]any{"profiles": profiles})
}

func (h *AskHandler) stats(c echo.Context) error {
	metrics := h.Telemetry.GetMetrics()
	return c.JSON(http.StatusOK, map[string]any{
		"total_questions":    metrics.TotalQuestions,
		"answered_questions": metrics.AnsweredQuestions,
		"empty_questions":    metrics.EmptyQuestions,
		"failed_questions":   metrics.FailedQuestions,
		"average_answer_ms":  metrics.AverageAnswerTime.Milliseconds(),
		"tool_executions":    metrics.ToolExecutions,
		"tool_failures":      metrics.ToolFailures,
		"llm_requests":       metrics.LLMRequests,
	})
}
