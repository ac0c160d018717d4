package corpus

import (
	"context"
	"time"
)

// Post is a single ingested social-media post. Records are immutable once
// loaded; every query operates on a snapshot returned by an Accessor.
type Post struct {
	ID            string    `json:"id"`
	Profile       string    `json:"profile"`
	Text          string    `json:"text"`
	Caption       string    `json:"caption"`
	URL           string    `json:"url"`
	Timestamp     time.Time `json:"timestamp"`
	LikesCount    int       `json:"likes_count"`
	CommentsCount int       `json:"comments_count"`
	Hashtags      []string  `json:"hashtags,omitempty"`
	Mentions      []string  `json:"mentions,omitempty"`
}

// Engagement is the post's combined interaction count.
func (p Post) Engagement() int {
	return p.LikesCount + p.CommentsCount
}

// Accessor provides read-only snapshot access to the post corpus.
// Implementations must return posts in a stable order so that ranking
// ties are reproducible across calls.
type Accessor interface {
	// Posts returns all posts, optionally filtered by profile (equality
	// match; empty string means no filter).
	Posts(ctx context.Context, profile string) ([]Post, error)
}

// Memory is an immutable in-memory Accessor used by the CLI's file-backed
// mode and by tests.
type Memory struct {
	posts []Post
}

// NewMemory snapshots the given posts into a Memory accessor.
func NewMemory(posts []Post) *Memory {
	snapshot := make([]Post, len(posts))
	copy(snapshot, posts)
	return &Memory{posts: snapshot}
}

// Posts implements Accessor.
func (m *Memory) Posts(ctx context.Context, profile string) ([]Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Post, 0, len(m.posts))
	for _, p := range m.posts {
		if profile != "" && p.Profile != profile {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Profiles returns the distinct profiles present in the snapshot, in first-seen order.
func (m *Memory) Profiles() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range m.posts {
		if _, ok := seen[p.Profile]; ok {
			continue
		}
		seen[p.Profile] = struct{}{}
		out = append(out, p.Profile)
	}
	return out
}
