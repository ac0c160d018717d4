package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/gramlens/config"
)

// CachedAnswer is the serialized form stored per question.
type CachedAnswer struct {
	Text     string          `json:"text"`
	Results  json.RawMessage `json:"results"`
	CachedAt time.Time       `json:"cached_at"`
	Question string          `json:"question"`
	Profile  string          `json:"profile,omitempty"`
}

// AnswerCache memoizes full answers in Redis, keyed by a hash of
// (question, profile). A nil *AnswerCache is a valid no-op cache so callers
// never branch on whether Redis is configured.
type AnswerCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// New connects to Redis and returns an answer cache. Returns (nil, nil)
// when Redis is not configured.
func New(ctx context.Context, cfg config.RedisConfig) (*AnswerCache, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	port := cfg.Port
	if port == "" {
		port = "6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", cfg.Host, port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.Timeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &AnswerCache{
		client: client,
		ttl:    ttl,
		logger: log.New(log.Writer(), "[CACHE] ", log.LstdFlags),
	}, nil
}

// Key derives the cache key for a question/profile pair.
func Key(question, profile string) string {
	sum := sha256.Sum256([]byte(question + "\x00" + profile))
	return "gramlens:answer:" + hex.EncodeToString(sum[:])
}

// Get returns the cached answer, or (nil, nil) on a miss.
func (c *AnswerCache) Get(ctx context.Context, question, profile string) (*CachedAnswer, error) {
	if c == nil {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, Key(question, profile)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var cached CachedAnswer
	if err := json.Unmarshal(raw, &cached); err != nil {
		// Stale or corrupt entry; treat as a miss.
		c.logger.Printf("Dropping unreadable cache entry: %v", err)
		return nil, nil
	}
	return &cached, nil
}

// Put stores an answer under the question/profile key with the configured TTL.
func (c *AnswerCache) Put(ctx context.Context, question, profile string, answer CachedAnswer) error {
	if c == nil {
		return nil
	}
	answer.Question = question
	answer.Profile = profile
	answer.CachedAt = time.Now()
	raw, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("marshal cached answer: %w", err)
	}
	return c.client.Set(ctx, Key(question, profile), raw, c.ttl).Err()
}

// Close releases the Redis connection.
func (c *AnswerCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
