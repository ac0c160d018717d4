package ollama_provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/gramlens/config"
	"github.com/mohammad-safakhou/gramlens/provider/types"
)

const defaultBaseURL = "http://localhost:11434"

// client implements types.Provider against a local Ollama daemon
type client struct {
	baseURL    string
	httpClient *http.Client
}

// request represents a request to the Ollama chat API
type request struct {
	Model    string          `json:"model"`
	Messages []types.Message `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
	Options  map[string]any  `json:"options,omitempty"`
}

// response represents one line of the Ollama chat API output
type response struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// NewClient creates a new Ollama chat client
func NewClient(cfg config.LLMProvider) types.Provider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *client) send(ctx context.Context, model string, messages []types.Message, opts types.Options, stream bool) (*http.Response, error) {
	body := request{
		Model:    model,
		Messages: messages,
		Stream:   stream,
	}
	if opts.JSONMode {
		body.Format = "json"
	}
	options := map[string]any{}
	if opts.Temperature > 0 {
		options["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	if len(options) > 0 {
		body.Options = options
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/chat", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("API returned status: %d", resp.StatusCode)
	}
	return resp, nil
}

// Chat sends a request and returns the complete reply
func (c *client) Chat(ctx context.Context, model string, messages []types.Message, opts types.Options) (string, error) {
	resp, err := c.send(ctx, model, messages, opts, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return out.Message.Content, nil
}

// ChatStream sends a streaming request, invoking fn per content delta
func (c *client) ChatStream(ctx context.Context, model string, messages []types.Message, opts types.Options, fn func(delta string) error) (string, error) {
	resp, err := c.send(ctx, model, messages, opts, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ch response
		if err := json.Unmarshal([]byte(line), &ch); err != nil {
			continue
		}
		if ch.Message.Content != "" {
			full.WriteString(ch.Message.Content)
			if fn != nil {
				if err := fn(ch.Message.Content); err != nil {
					return full.String(), err
				}
			}
		}
		if ch.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("failed to read stream: %w", err)
	}
	return full.String(), nil
}
