package provider

import (
	"errors"
	"fmt"

	"github.com/mohammad-safakhou/gramlens/config"
	ollama_provider "github.com/mohammad-safakhou/gramlens/provider/ollama"
	openai_provider "github.com/mohammad-safakhou/gramlens/provider/openai"
	"github.com/mohammad-safakhou/gramlens/provider/types"
)

// Provider is the chat interface every LLM backend must satisfy.
type Provider = types.Provider

// Message is a single chat turn.
type Message = types.Message

// Options tunes one chat call.
type Options = types.Options

// ErrNoProviders indicates that no LLM provider is configured.
var ErrNoProviders = errors.New("no LLM providers configured")

// New creates an LLM provider from configuration. The first configured
// provider wins; model routing picks concrete models per stage elsewhere.
func New(cfg config.LLMConfig) (Provider, error) {
	if len(cfg.Providers) == 0 {
		return nil, ErrNoProviders
	}
	for _, pc := range cfg.Providers {
		switch pc.Type {
		case "openai":
			return openai_provider.NewClient(pc), nil
		case "ollama":
			return ollama_provider.NewClient(pc), nil
		default:
			return nil, fmt.Errorf("unsupported LLM provider type: %s", pc.Type)
		}
	}
	return nil, ErrNoProviders
}

// ResolveModel maps a routing slot to a configured model name, falling back
// to the routing fallback slot when the slot is empty.
func ResolveModel(routing config.LLMRoutingConfig, slot string) string {
	var model string
	switch slot {
	case "planning":
		model = routing.Planning
	case "synthesis":
		model = routing.Synthesis
	case "sentiment":
		model = routing.Sentiment
	}
	if model == "" {
		model = routing.Fallback
	}
	return model
}
