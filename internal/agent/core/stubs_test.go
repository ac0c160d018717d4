package core

import (
	"context"
	"errors"

	"github.com/mohammad-safakhou/gramlens/internal/retrieval"
	"github.com/mohammad-safakhou/gramlens/provider"
)

// stubProvider replays canned chat responses in call order and counts calls.
type stubProvider struct {
	responses []string
	err       error
	calls     int
	lastMsgs  []provider.Message
}

func (s *stubProvider) Chat(ctx context.Context, model string, messages []provider.Message, opts provider.Options) (string, error) {
	s.calls++
	s.lastMsgs = messages
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", errors.New("stub exhausted")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func (s *stubProvider) ChatStream(ctx context.Context, model string, messages []provider.Message, opts provider.Options, fn func(delta string) error) (string, error) {
	resp, err := s.Chat(ctx, model, messages, opts)
	if err != nil {
		return "", err
	}
	if fn != nil {
		if err := fn(resp); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

// stubSearcher returns fixed hits, or an error to simulate a vector outage.
type stubSearcher struct {
	hits  []retrieval.Hit
	err   error
	calls int
}

func (s *stubSearcher) Search(ctx context.Context, query string, nResults int, profile string) ([]retrieval.Hit, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}
