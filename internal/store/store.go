package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/mohammad-safakhou/gramlens/internal/corpus"
)

// Store persists the post corpus in Postgres and implements
// corpus.Accessor over it. Rows are returned ordered by (profile, id) so
// ranking ties stay reproducible across calls.
type Store struct {
	DB *sql.DB
}

// NewWithDSN constructs the Store using an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{DB: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.DB.Close()
}

const postColumns = "id, profile, text, caption, url, posted_at, likes_count, comments_count, hashtags, mentions"

// Posts implements corpus.Accessor. An empty profile returns the whole corpus.
func (s *Store) Posts(ctx context.Context, profile string) ([]corpus.Post, error) {
	query := "SELECT " + postColumns + " FROM posts ORDER BY profile, id"
	args := []any{}
	if profile != "" {
		query = "SELECT " + postColumns + " FROM posts WHERE profile = $1 ORDER BY id"
		args = append(args, profile)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []corpus.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func scanPost(rows *sql.Rows) (corpus.Post, error) {
	var (
		p        corpus.Post
		postedAt sql.NullTime
		hashtags []byte
		mentions []byte
	)
	if err := rows.Scan(&p.ID, &p.Profile, &p.Text, &p.Caption, &p.URL, &postedAt,
		&p.LikesCount, &p.CommentsCount, &hashtags, &mentions); err != nil {
		return corpus.Post{}, fmt.Errorf("scan post: %w", err)
	}
	if postedAt.Valid {
		p.Timestamp = postedAt.Time
	}
	if len(hashtags) > 0 {
		_ = json.Unmarshal(hashtags, &p.Hashtags)
	}
	if len(mentions) > 0 {
		_ = json.Unmarshal(mentions, &p.Mentions)
	}
	return p, nil
}

// UpsertPosts writes a batch of posts, replacing rows that share an id.
// Used by the index command when ingesting profile exports.
func (s *Store) UpsertPosts(ctx context.Context, posts []corpus.Post) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO posts (id, profile, text, caption, url, posted_at, likes_count, comments_count, hashtags, mentions)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (id) DO UPDATE SET
            profile = EXCLUDED.profile,
            text = EXCLUDED.text,
            caption = EXCLUDED.caption,
            url = EXCLUDED.url,
            posted_at = EXCLUDED.posted_at,
            likes_count = EXCLUDED.likes_count,
            comments_count = EXCLUDED.comments_count,
            hashtags = EXCLUDED.hashtags,
            mentions = EXCLUDED.mentions`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range posts {
		hashtags, _ := json.Marshal(p.Hashtags)
		mentions, _ := json.Marshal(p.Mentions)
		var postedAt any
		if !p.Timestamp.IsZero() {
			postedAt = p.Timestamp
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.Profile, p.Text, p.Caption, p.URL, postedAt,
			p.LikesCount, p.CommentsCount, hashtags, mentions); err != nil {
			return fmt.Errorf("upsert post %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// Profiles returns the distinct profiles present in the corpus.
func (s *Store) Profiles(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT DISTINCT profile FROM posts ORDER BY profile")
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []string
	for rows.Next() {
		var profile string
		if err := rows.Scan(&profile); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// CountPosts returns the total number of stored posts.
func (s *Store) CountPosts(ctx context.Context) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&count)
	return count, err
}
