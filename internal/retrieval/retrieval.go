package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/gramlens/config"
	"github.com/mohammad-safakhou/gramlens/internal/corpus"
)

// Hit is one ranked result from the vector search service.
type Hit struct {
	ID       string            `json:"id"`
	Document string            `json:"document"`
	Metadata map[string]string `json:"metadata"`
	Distance float64           `json:"distance"`
}

// Searcher is the interface the executor depends on; the HTTP client below
// is the production implementation.
type Searcher interface {
	Search(ctx context.Context, query string, nResults int, profile string) ([]Hit, error)
}

// Client talks to the external vector search service over HTTP.
type Client struct {
	baseURL    string
	collection string
	maxResults int
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient creates a vector search client from configuration.
func NewClient(cfg config.VectorConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		collection: cfg.Collection,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.New(log.Writer(), "[RETRIEVAL] ", log.LstdFlags),
	}
}

type searchRequest struct {
	Collection string            `json:"collection"`
	Query      string            `json:"query"`
	NResults   int               `json:"n_results"`
	Where      map[string]string `json:"where,omitempty"`
}

type searchResponse struct {
	Results []Hit `json:"results"`
}

// Search queries the vector service. Empty or malformed responses normalize
// to an empty slice; only transport-level failures surface as errors.
func (c *Client) Search(ctx context.Context, query string, nResults int, profile string) ([]Hit, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("vector search service not configured")
	}
	if nResults <= 0 {
		nResults = c.maxResults
	}
	body := searchRequest{
		Collection: c.collection,
		Query:      query,
		NResults:   nResults,
	}
	if profile != "" {
		body.Where = map[string]string{"profile": profile}
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/search", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vector service returned status: %d", resp.StatusCode)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.logger.Printf("malformed search response, treating as empty: %v", err)
		return nil, nil
	}
	return out.Results, nil
}

type indexRequest struct {
	Collection string     `json:"collection"`
	Documents  []Document `json:"documents"`
}

// Document is one entry pushed to the vector service for embedding.
type Document struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// Index pushes documents to the vector service for embedding. Used by the
// index command after posts are loaded into the corpus store.
func (c *Client) Index(ctx context.Context, docs []Document) error {
	if c.baseURL == "" {
		return fmt.Errorf("vector search service not configured")
	}
	jsonData, err := json.Marshal(indexRequest{Collection: c.collection, Documents: docs})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/documents", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("vector service returned status: %d", resp.StatusCode)
	}
	c.logger.Printf("indexed %d documents into %s", len(docs), c.collection)
	return nil
}

// DocumentFromPost converts a post to its indexable document form.
func DocumentFromPost(p corpus.Post) Document {
	metadata := map[string]string{
		"profile":       p.Profile,
		"caption":       p.Caption,
		"url":           p.URL,
		"likesCount":    fmt.Sprintf("%d", p.LikesCount),
		"commentsCount": fmt.Sprintf("%d", p.CommentsCount),
	}
	if !p.Timestamp.IsZero() {
		metadata["timestamp"] = p.Timestamp.Format(time.RFC3339)
	}
	return Document{ID: p.ID, Text: p.Text, Metadata: metadata}
}

// PostFromHit rebuilds a corpus.Post view from a hit's metadata so search
// results share the shape of structured query results.
func PostFromHit(h Hit) corpus.Post {
	post := corpus.Post{
		ID:      h.ID,
		Profile: h.Metadata["profile"],
		Text:    h.Document,
		Caption: h.Metadata["caption"],
		URL:     h.Metadata["url"],
	}
	if ts := h.Metadata["timestamp"]; ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			post.Timestamp = t
		}
	}
	fmt.Sscanf(h.Metadata["likesCount"], "%d", &post.LikesCount)
	fmt.Sscanf(h.Metadata["commentsCount"], "%d", &post.CommentsCount)
	return post
}
