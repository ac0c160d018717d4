package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mohammad-safakhou/gramlens/config"
	"github.com/mohammad-safakhou/gramlens/internal/corpus"
)

func clientFor(url string) *Client {
	return NewClient(config.VectorConfig{BaseURL: url, Collection: "posts", MaxResults: 5})
}

func TestSearchMapsResults(t *testing.T) {
	var got searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(searchResponse{Results: []Hit{
			{ID: "uni_1", Document: "graduation day", Distance: 0.07, Metadata: map[string]string{"profile": "uni"}},
		}})
	}))
	defer srv.Close()

	hits, err := clientFor(srv.URL).Search(context.Background(), "graduation", 3, "uni")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "uni_1" || hits[0].Distance != 0.07 {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if got.Collection != "posts" || got.Query != "graduation" || got.NResults != 3 {
		t.Fatalf("request not forwarded: %+v", got)
	}
	if got.Where["profile"] != "uni" {
		t.Fatalf("expected profile filter in where clause, got %+v", got.Where)
	}
}

func TestSearchOmitsWhereWithoutProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if _, present := body["where"]; present {
			t.Errorf("where clause must be omitted for unscoped search")
		}
		json.NewEncoder(w).Encode(searchResponse{})
	}))
	defer srv.Close()

	if _, err := clientFor(srv.URL).Search(context.Background(), "q", 0, ""); err != nil {
		t.Fatalf("Search: %v", err)
	}
}

func TestSearchDefaultsNResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got searchRequest
		json.NewDecoder(r.Body).Decode(&got)
		if got.NResults != 5 {
			t.Errorf("expected configured max results 5, got %d", got.NResults)
		}
		json.NewEncoder(w).Encode(searchResponse{})
	}))
	defer srv.Close()

	if _, err := clientFor(srv.URL).Search(context.Background(), "q", 0, ""); err != nil {
		t.Fatalf("Search: %v", err)
	}
}

func TestSearchMalformedResponseIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	hits, err := clientFor(srv.URL).Search(context.Background(), "q", 5, "")
	if err != nil {
		t.Fatalf("malformed body must not error: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected empty result set, got %d hits", len(hits))
	}
}

func TestSearchNonOKStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := clientFor(srv.URL).Search(context.Background(), "q", 5, ""); err == nil {
		t.Fatalf("expected error on 500 response")
	}
}

func TestSearchUnconfiguredErrors(t *testing.T) {
	if _, err := clientFor("").Search(context.Background(), "q", 5, ""); err == nil {
		t.Fatalf("expected error when base URL is unset")
	}
}

func TestIndexPushesDocuments(t *testing.T) {
	var got indexRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/documents" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	docs := []Document{{ID: "a", Text: "t"}}
	if err := clientFor(srv.URL).Index(context.Background(), docs); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if got.Collection != "posts" || len(got.Documents) != 1 || got.Documents[0].ID != "a" {
		t.Fatalf("request not forwarded: %+v", got)
	}
}

func TestPostDocumentRoundTrip(t *testing.T) {
	posted := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)
	original := corpus.Post{
		ID:            "uni_9",
		Profile:       "uni",
		Text:          "spring open day",
		Caption:       "open day",
		URL:           "https://example.com/p/9",
		Timestamp:     posted,
		LikesCount:    123,
		CommentsCount: 7,
	}
	doc := DocumentFromPost(original)
	rebuilt := PostFromHit(Hit{ID: doc.ID, Document: doc.Text, Metadata: doc.Metadata})

	if rebuilt.ID != original.ID || rebuilt.Profile != original.Profile || rebuilt.Text != original.Text {
		t.Fatalf("identity fields lost: %+v", rebuilt)
	}
	if rebuilt.LikesCount != 123 || rebuilt.CommentsCount != 7 {
		t.Fatalf("counts lost: %+v", rebuilt)
	}
	if !rebuilt.Timestamp.Equal(posted) {
		t.Fatalf("timestamp lost: %v", rebuilt.Timestamp)
	}
}

func TestPostFromHitToleratesMissingMetadata(t *testing.T) {
	rebuilt := PostFromHit(Hit{ID: "x", Document: "text only"})
	if rebuilt.ID != "x" || rebuilt.Text != "text only" {
		t.Fatalf("unexpected post: %+v", rebuilt)
	}
	if rebuilt.LikesCount != 0 || !rebuilt.Timestamp.IsZero() {
		t.Fatalf("missing metadata must leave zero values: %+v", rebuilt)
	}
}
