package telemetry

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammad-safakhou/gramlens/config"
)

// Telemetry tracks question processing, tool executions and LLM usage. It
// keeps an in-memory snapshot for the stats endpoint and mirrors the counters
// into a private Prometheus registry for scraping.
type Telemetry struct {
	config   config.TelemetryConfig
	logger   *log.Logger
	mu       sync.RWMutex
	metrics  *Metrics
	registry *prometheus.Registry

	questionsTotal *prometheus.CounterVec
	questionTime   prometheus.Histogram
	toolRuns       *prometheus.CounterVec
	toolTime       *prometheus.HistogramVec
	llmRequests    *prometheus.CounterVec
}

// Metrics is the in-memory counters snapshot.
type Metrics struct {
	TotalQuestions    int64
	AnsweredQuestions int64
	EmptyQuestions    int64
	FailedQuestions   int64
	AverageAnswerTime time.Duration
	ToolExecutions    map[string]int64
	ToolFailures      map[string]int64
	ToolAverageTimes  map[string]time.Duration
	LLMRequests       map[string]int64
	LLMFailures       map[string]int64
	LLMAverageLatency map[string]time.Duration
}

// QuestionEvent records one full answer() pass.
type QuestionEvent struct {
	ID       string
	Question string
	Duration time.Duration
	Answered bool // synthesizer produced an answer
	Empty    bool // terminal Empty state
	Failed   bool
}

// ToolEvent records one action execution.
type ToolEvent struct {
	Tool     string
	Duration time.Duration
	Success  bool
	Results  int
}

// LLMEvent records one chat call.
type LLMEvent struct {
	Model    string
	Stage    string // planning, synthesis, sentiment
	Duration time.Duration
	Success  bool
}

// NewTelemetry creates a telemetry instance with a fresh registry.
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	registry := prometheus.NewRegistry()
	t := &Telemetry{
		config: cfg,
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		metrics: &Metrics{
			ToolExecutions:    make(map[string]int64),
			ToolFailures:      make(map[string]int64),
			ToolAverageTimes:  make(map[string]time.Duration),
			LLMRequests:       make(map[string]int64),
			LLMFailures:       make(map[string]int64),
			LLMAverageLatency: make(map[string]time.Duration),
		},
		registry: registry,
		questionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gramlens_questions_total",
			Help: "Questions processed, by terminal outcome.",
		}, []string{"outcome"}),
		questionTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gramlens_question_duration_seconds",
			Help:    "End to end answer latency.",
			Buckets: prometheus.DefBuckets,
		}),
		toolRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gramlens_tool_executions_total",
			Help: "Tool executions, by tool and status.",
		}, []string{"tool", "status"}),
		toolTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gramlens_tool_duration_seconds",
			Help:    "Per-tool execution latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gramlens_llm_requests_total",
			Help: "LLM chat calls, by model, stage and status.",
		}, []string{"model", "stage", "status"}),
	}
	registry.MustRegister(t.questionsTotal, t.questionTime, t.toolRuns, t.toolTime, t.llmRequests)

	if cfg.Enabled && cfg.PeriodicLogs {
		go t.startPeriodicLogs()
	}
	return t
}

// Registry exposes the Prometheus registry for the HTTP metrics handler.
func (t *Telemetry) Registry() *prometheus.Registry {
	return t.registry
}

// RecordQuestionEvent records a complete answer() pass.
func (t *Telemetry) RecordQuestionEvent(event QuestionEvent) {
	if !t.config.Enabled {
		return
	}
	outcome := "answered"
	switch {
	case event.Failed:
		outcome = "failed"
	case event.Empty:
		outcome = "empty"
	}
	t.questionsTotal.WithLabelValues(outcome).Inc()
	t.questionTime.Observe(event.Duration.Seconds())

	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.TotalQuestions++
	switch {
	case event.Failed:
		t.metrics.FailedQuestions++
	case event.Empty:
		t.metrics.EmptyQuestions++
	default:
		t.metrics.AnsweredQuestions++
	}
	if t.metrics.TotalQuestions == 1 {
		t.metrics.AverageAnswerTime = event.Duration
	} else {
		total := t.metrics.AverageAnswerTime * time.Duration(t.metrics.TotalQuestions-1)
		t.metrics.AverageAnswerTime = (total + event.Duration) / time.Duration(t.metrics.TotalQuestions)
	}
	t.logger.Printf("Question Event: ID=%s, Outcome=%s, Duration=%v", event.ID, outcome, event.Duration)
}

// RecordToolEvent records one action execution.
func (t *Telemetry) RecordToolEvent(event ToolEvent) {
	if !t.config.Enabled {
		return
	}
	status := "ok"
	if !event.Success {
		status = "error"
	}
	t.toolRuns.WithLabelValues(event.Tool, status).Inc()
	t.toolTime.WithLabelValues(event.Tool).Observe(event.Duration.Seconds())

	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.ToolExecutions[event.Tool]++
	if !event.Success {
		t.metrics.ToolFailures[event.Tool]++
	}
	runs := t.metrics.ToolExecutions[event.Tool]
	if runs == 1 {
		t.metrics.ToolAverageTimes[event.Tool] = event.Duration
	} else {
		total := t.metrics.ToolAverageTimes[event.Tool] * time.Duration(runs-1)
		t.metrics.ToolAverageTimes[event.Tool] = (total + event.Duration) / time.Duration(runs)
	}
}

// RecordLLMEvent records one chat call.
func (t *Telemetry) RecordLLMEvent(event LLMEvent) {
	if !t.config.Enabled {
		return
	}
	status := "ok"
	if !event.Success {
		status = "error"
	}
	t.llmRequests.WithLabelValues(event.Model, event.Stage, status).Inc()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.LLMRequests[event.Model]++
	if !event.Success {
		t.metrics.LLMFailures[event.Model]++
	}
	reqs := t.metrics.LLMRequests[event.Model]
	if reqs == 1 {
		t.metrics.LLMAverageLatency[event.Model] = event.Duration
	} else {
		total := t.metrics.LLMAverageLatency[event.Model] * time.Duration(reqs-1)
		t.metrics.LLMAverageLatency[event.Model] = (total + event.Duration) / time.Duration(reqs)
	}
}

// GetMetrics returns a copy of the current counters.
func (t *Telemetry) GetMetrics() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	metrics := *t.metrics
	metrics.ToolExecutions = make(map[string]int64)
	metrics.ToolFailures = make(map[string]int64)
	metrics.ToolAverageTimes = make(map[string]time.Duration)
	metrics.LLMRequests = make(map[string]int64)
	metrics.LLMFailures = make(map[string]int64)
	metrics.LLMAverageLatency = make(map[string]time.Duration)
	for k, v := range t.metrics.ToolExecutions {
		metrics.ToolExecutions[k] = v
	}
	for k, v := range t.metrics.ToolFailures {
		metrics.ToolFailures[k] = v
	}
	for k, v := range t.metrics.ToolAverageTimes {
		metrics.ToolAverageTimes[k] = v
	}
	for k, v := range t.metrics.LLMRequests {
		metrics.LLMRequests[k] = v
	}
	for k, v := range t.metrics.LLMFailures {
		metrics.LLMFailures[k] = v
	}
	for k, v := range t.metrics.LLMAverageLatency {
		metrics.LLMAverageLatency[k] = v
	}
	return metrics
}

func (t *Telemetry) startPeriodicLogs() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		m := t.GetMetrics()
		t.logger.Printf("Metrics Snapshot: Questions=%d (answered=%d empty=%d failed=%d), AvgTime=%v",
			m.TotalQuestions, m.AnsweredQuestions, m.EmptyQuestions, m.FailedQuestions, m.AverageAnswerTime)
	}
}

// Shutdown logs a final report.
func (t *Telemetry) Shutdown() {
	m := t.GetMetrics()
	t.logger.Printf("Final Report: Questions=%d, Answered=%d, Empty=%d, Failed=%d, AvgTime=%v",
		m.TotalQuestions, m.AnsweredQuestions, m.EmptyQuestions, m.FailedQuestions, m.AverageAnswerTime)
}
