package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/drcartoon/cartoonbox/internal/logging"
	"github.com/drcartoon/cartoonbox/pkg/models"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger, err := logging.NewDefaultLogger()
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	return NewClient(Options{
		BaseURL:    srv.URL,
		Collection: "cartoons",
		Rows:       50,
	}, logger), srv
}

func TestSearch(t *testing.T) {
	var gotQuery string
	client, srv := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/advancedsearch.php" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query().Get("q")

		// Year arrives as a number for one doc and a string for the other,
		// title as both a string and a list. The archive does all of this.
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"response": {
				"docs": [
					{"identifier": "toon-1", "title": "Adventures", "year": 1995, "subject": "comedy; family"},
					{"identifier": "toon-2", "title": ["Space Cats"], "year": "2001", "subject": ["sci-fi"]}
				]
			}
		}`))
	}))

	items, err := client.Search(context.Background(), SearchFilters{Query: "cats", Year: 2001, Genre: "sci-fi"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	want := "collection:cartoons AND mediatype:movies AND (cats) AND year:2001 AND subject:sci-fi"
	if gotQuery != want {
		t.Errorf("Query mismatch:\n got %q\nwant %q", gotQuery, want)
	}

	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].ID != "toon-1" || items[0].Title != "Adventures" || items[0].Year != 1995 {
		t.Errorf("Unexpected first item: %+v", items[0])
	}
	if items[1].Title != "Space Cats" || items[1].Year != 2001 {
		t.Errorf("Unexpected second item: %+v", items[1])
	}
	if len(items[0].Subjects) != 2 || items[0].Subjects[0] != "comedy" || items[0].Subjects[1] != "family" {
		t.Errorf("Semicolon subjects not split: %v", items[0].Subjects)
	}
	if items[0].Thumbnail != srv.URL+"/services/img/toon-1" {
		t.Errorf("Unexpected thumbnail: %s", items[0].Thumbnail)
	}
}

func TestSearchUpstreamError(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	if _, err := client.Search(context.Background(), SearchFilters{}); err == nil {
		t.Error("Expected error on upstream failure")
	}
}

func TestDetail(t *testing.T) {
	client, srv := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metadata/toon-1" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"metadata": map[string]interface{}{
				"identifier":  "toon-1",
				"title":       "Adventures",
				"description": "A show about adventures",
			},
			"files": []map[string]string{
				{"name": "adventures_1x01.mp4", "title": "Adventures 1x01 Pilot"},
				{"name": "adventures_1x02.mp4", "title": "Adventures 1x02 The Cave"},
				{"name": "adventures_2x01.mp4", "title": "Adventures 2x01 Return"},
				{"name": "holiday_special.mp4", "title": "Holiday Special"},
				{"name": "cover.jpg", "title": "Cover Art"},
			},
		})
	}))

	detail, err := client.Detail(context.Background(), "toon-1")
	if err != nil {
		t.Fatalf("Detail failed: %v", err)
	}

	if detail.Title != "Adventures" {
		t.Errorf("Unexpected title: %s", detail.Title)
	}
	if detail.StreamURL != srv.URL+"/download/toon-1/adventures_1x01.mp4" {
		t.Errorf("Unexpected stream URL: %s", detail.StreamURL)
	}

	// Non-mp4 files are skipped: 4 episodes across 3 buckets.
	if len(detail.Seasons) != 3 {
		t.Fatalf("Expected 3 seasons, got %d", len(detail.Seasons))
	}
	if detail.Seasons[0].Name != "Season 1" || len(detail.Seasons[0].Episodes) != 2 {
		t.Errorf("Unexpected first season: %+v", detail.Seasons[0])
	}
	if detail.Seasons[1].Name != "Season 2" {
		t.Errorf("Unexpected second season: %s", detail.Seasons[1].Name)
	}
	if detail.Seasons[2].Name != "Specials" || len(detail.Seasons[2].Episodes) != 1 {
		t.Errorf("Specials should come last: %+v", detail.Seasons[2])
	}
}

func TestGroupBySeasonZeroPadded(t *testing.T) {
	episodes := []models.Episode{
		{Title: "Show 01x03 Something"},
		{Title: "Show 10x01 Later"},
		{Title: "Show 2x05 Middle"},
	}

	seasons := GroupBySeason(episodes)
	if len(seasons) != 3 {
		t.Fatalf("Expected 3 seasons, got %d", len(seasons))
	}

	// Numeric order, not lexicographic: 1, 2, 10.
	want := []string{"Season 1", "Season 2", "Season 10"}
	for i, name := range want {
		if seasons[i].Name != name {
			t.Errorf("Season %d: expected %s, got %s", i, name, seasons[i].Name)
		}
	}
}

func TestGenreCounts(t *testing.T) {
	items := []models.CatalogItem{
		{Subjects: []string{"comedy", "family"}},
		{Subjects: []string{"comedy"}},
	}

	counts := GenreCounts(items)
	if counts["comedy"] != 2 || counts["family"] != 1 {
		t.Errorf("Unexpected counts: %v", counts)
	}
}
