package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Loader reads profile export files (one JSON array per profile) and turns
// them into cleaned Posts ready for indexing.
type Loader struct {
	dataDir string
	logger  *log.Logger
}

// NewLoader creates a loader rooted at dataDir.
func NewLoader(dataDir string) *Loader {
	return &Loader{
		dataDir: dataDir,
		logger:  log.New(log.Writer(), "[LOADER] ", log.LstdFlags),
	}
}

// rawPost mirrors the profile export schema.
type rawPost struct {
	ID             string   `json:"id"`
	ShortCode      string   `json:"shortCode"`
	Caption        string   `json:"caption"`
	URL            string   `json:"url"`
	Timestamp      string   `json:"timestamp"`
	LikesCount     int      `json:"likesCount"`
	CommentsCount  int      `json:"commentsCount"`
	Hashtags       []string `json:"hashtags"`
	Mentions       []string `json:"mentions"`
	LatestComments []struct {
		Text string `json:"text"`
	} `json:"latestComments"`
}

var urlPattern = regexp.MustCompile(`http[s]?://\S+`)
var spacePattern = regexp.MustCompile(`\s+`)

// CleanText normalizes post text: strips URLs and pictographic symbols and
// collapses whitespace.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = urlPattern.ReplaceAllString(text, "")
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.In(r, unicode.So, unicode.Sk, unicode.Cs) {
			continue
		}
		b.WriteRune(r)
	}
	text = spacePattern.ReplaceAllString(b.String(), " ")
	return strings.TrimSpace(text)
}

// buildText concatenates every searchable text field of a post into the
// cleaned document the query engine and vector index operate on.
func buildText(raw rawPost) string {
	var parts []string
	if caption := CleanText(raw.Caption); caption != "" {
		parts = append(parts, "Caption: "+caption)
	}
	if len(raw.Hashtags) > 0 {
		parts = append(parts, "Hashtags: "+strings.Join(raw.Hashtags, " "))
	}
	if len(raw.Mentions) > 0 {
		parts = append(parts, "Mentions: "+strings.Join(raw.Mentions, " "))
	}
	var comments []string
	for i, c := range raw.LatestComments {
		if i >= 5 {
			break
		}
		if text := CleanText(c.Text); text != "" {
			comments = append(comments, text)
		}
	}
	if len(comments) > 0 {
		parts = append(parts, "Comments: "+strings.Join(comments, " | "))
	}
	return strings.Join(parts, " ")
}

// parseTimestamp accepts the timestamp layouts seen in profile exports.
// A zero time is returned when nothing parses; consumers skip such posts
// for time-window queries instead of failing.
func parseTimestamp(s string) time.Time {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// LoadProfile loads and cleans every post in <dataDir>/<profile>.json.
func (l *Loader) LoadProfile(profile string) ([]Post, error) {
	path := filepath.Join(l.dataDir, profile+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile file %s: %w", path, err)
	}

	var raws []rawPost
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("parsing profile file %s: %w", path, err)
	}

	posts := make([]Post, 0, len(raws))
	for _, raw := range raws {
		id := raw.ID
		if id == "" {
			id = raw.ShortCode
		}
		if id == "" {
			continue
		}
		posts = append(posts, Post{
			ID:            fmt.Sprintf("%s_%s", profile, id),
			Profile:       profile,
			Text:          buildText(raw),
			Caption:       CleanText(raw.Caption),
			URL:           raw.URL,
			Timestamp:     parseTimestamp(raw.Timestamp),
			LikesCount:    raw.LikesCount,
			CommentsCount: raw.CommentsCount,
			Hashtags:      raw.Hashtags,
			Mentions:      raw.Mentions,
		})
	}
	l.logger.Printf("loaded %d posts for profile %s", len(posts), profile)
	return posts, nil
}

// LoadAll loads every configured profile, skipping files that are missing.
func (l *Loader) LoadAll(profiles []string) ([]Post, error) {
	var all []Post
	for _, profile := range profiles {
		posts, err := l.LoadProfile(profile)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				l.logger.Printf("profile file missing for %s, skipping", profile)
				continue
			}
			return nil, err
		}
		all = append(all, posts...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no posts found under %s", l.dataDir)
	}
	return all, nil
}
