package corpus

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCleanTextStripsURLsAndSymbols(t *testing.T) {
	in := "Check this https://example.com/post?id=1 out \U0001F389  now"
	got := CleanText(in)
	if strings.Contains(got, "http") {
		t.Fatalf("URL not stripped: %q", got)
	}
	if strings.Contains(got, "\U0001F389") {
		t.Fatalf("symbol not stripped: %q", got)
	}
	if got != "Check this out now" {
		t.Fatalf("unexpected cleaned text: %q", got)
	}
}

func TestCleanTextCollapsesWhitespace(t *testing.T) {
	if got := CleanText("a\n\n  b\t c"); got != "a b c" {
		t.Fatalf("whitespace not collapsed: %q", got)
	}
}

func TestBuildTextIncludesAllFields(t *testing.T) {
	raw := rawPost{
		Caption:  "Graduation day",
		Hashtags: []string{"#grad", "#2025"},
		Mentions: []string{"@uni"},
		LatestComments: []struct {
			Text string `json:"text"`
		}{
			{Text: "congrats"}, {Text: "amazing"}, {Text: "c3"}, {Text: "c4"}, {Text: "c5"}, {Text: "dropped"},
		},
	}
	text := buildText(raw)
	for _, part := range []string{"Caption: Graduation day", "Hashtags: #grad #2025", "Mentions: @uni", "Comments: congrats | amazing"} {
		if !strings.Contains(text, part) {
			t.Fatalf("text missing %q: %q", part, text)
		}
	}
	if strings.Contains(text, "dropped") {
		t.Fatalf("expected only first 5 comments, got %q", text)
	}
}

func TestParseTimestampLayouts(t *testing.T) {
	cases := []string{
		"2025-03-04T10:11:12Z",
		"2025-03-04T10:11:12",
		"2025-03-04 10:11:12",
		"2025-03-04",
	}
	for _, in := range cases {
		if ts := parseTimestamp(in); ts.IsZero() {
			t.Fatalf("expected %q to parse", in)
		}
	}
	if ts := parseTimestamp("yesterday"); !ts.IsZero() {
		t.Fatalf("expected unparsable timestamp to fail open to zero, got %v", ts)
	}
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	payload := `[
		{"id": "1", "caption": "First post", "url": "https://x/1", "timestamp": "2025-01-02T03:04:05Z", "likesCount": 7, "commentsCount": 2, "hashtags": ["#a"]},
		{"shortCode": "abc", "caption": "Second"},
		{"caption": "no id, skipped"}
	]`
	if err := os.WriteFile(filepath.Join(dir, "uni.json"), []byte(payload), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	posts, err := NewLoader(dir).LoadProfile("uni")
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts (one skipped for missing id), got %d", len(posts))
	}
	if posts[0].ID != "uni_1" || posts[0].Profile != "uni" {
		t.Fatalf("unexpected first post identity: %+v", posts[0])
	}
	if posts[0].LikesCount != 7 || posts[0].CommentsCount != 2 {
		t.Fatalf("counts not carried over: %+v", posts[0])
	}
	want := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if !posts[0].Timestamp.Equal(want) {
		t.Fatalf("timestamp mismatch: %v", posts[0].Timestamp)
	}
	if posts[1].ID != "uni_abc" {
		t.Fatalf("expected shortCode fallback id, got %s", posts[1].ID)
	}
}

func TestLoadAllSkipsMissingProfiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "uni.json"), []byte(`[{"id":"1","caption":"hi"}]`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	posts, err := NewLoader(dir).LoadAll([]string{"uni", "ghost"})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post with the missing profile skipped, got %d", len(posts))
	}
}

func TestLoadAllEmptyIsError(t *testing.T) {
	if _, err := NewLoader(t.TempDir()).LoadAll([]string{"ghost"}); err == nil {
		t.Fatalf("expected error when no posts found")
	}
}

func TestMemoryProfileFilter(t *testing.T) {
	m := NewMemory([]Post{
		{ID: "a", Profile: "uni"},
		{ID: "b", Profile: "lab"},
	})
	posts, err := m.Posts(context.Background(), "uni")
	if err != nil {
		t.Fatalf("Posts: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "a" {
		t.Fatalf("profile filter failed: %+v", posts)
	}
	all, err := m.Posts(context.Background(), "")
	if err != nil {
		t.Fatalf("Posts: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected unfiltered snapshot, got %d", len(all))
	}
	profiles := m.Profiles()
	if len(profiles) != 2 || profiles[0] != "uni" || profiles[1] != "lab" {
		t.Fatalf("unexpected profiles: %v", profiles)
	}
}
