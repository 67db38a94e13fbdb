package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/drcartoon/cartoonbox/internal/cache"
	"github.com/drcartoon/cartoonbox/internal/logging"
	"github.com/drcartoon/cartoonbox/internal/metrics"
	"github.com/drcartoon/cartoonbox/internal/tracing"
	"github.com/drcartoon/cartoonbox/pkg/models"
)

// Client talks to the public archive's search and metadata endpoints. It is
// a collaborator, not a store: the backend only ever extracts a video id and
// a title from what it returns, and never validates catalog contents.
type Client struct {
	baseURL    string
	collection string
	rows       int
	httpClient *http.Client
	cache      *cache.Cache
	log        *logging.Logger
}

// Options configures the catalog client.
type Options struct {
	BaseURL    string
	Collection string
	Rows       int
	Timeout    time.Duration
	Cache      *cache.Cache // optional
}

// NewClient creates a catalog client with a bounded request timeout.
func NewClient(opts Options, log *logging.Logger) *Client {
	if opts.Rows <= 0 {
		opts.Rows = 100
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		collection: opts.Collection,
		rows:       opts.Rows,
		httpClient: &http.Client{Timeout: opts.Timeout},
		cache:      opts.Cache,
		log:        log,
	}
}

// SearchFilters narrows a catalog search. Zero values are omitted from the
// query.
type SearchFilters struct {
	Query string
	Year  int
	Genre string
}

// flexString tolerates fields the archive returns as either a string or a
// list of strings.
type flexString []string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*f = []string{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*f = many
	return nil
}

func (f flexString) first() string {
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

type searchDoc struct {
	Identifier  string          `json:"identifier"`
	Title       flexString      `json:"title"`
	Description flexString      `json:"description"`
	Subject     flexString      `json:"subject"`
	Year        json.RawMessage `json:"year"`
}

// parseYear tolerates the year arriving as a number, a string, or not at all.
func parseYear(raw json.RawMessage) int {
	var n int
	if json.Unmarshal(raw, &n) == nil {
		return n
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		year, _ := strconv.Atoi(s)
		return year
	}
	return 0
}

type searchResponse struct {
	Response struct {
		Docs []searchDoc `json:"docs"`
	} `json:"response"`
}

// Search queries the archive for cartoons matching the filters, sorted by
// downloads. Results pass through the short-TTL cache when one is wired.
func (c *Client) Search(ctx context.Context, filters SearchFilters) ([]models.CatalogItem, error) {
	cacheKey := fmt.Sprintf("%s|%d|%s", filters.Query, filters.Year, filters.Genre)
	if c.cache != nil {
		if items, err := c.cache.GetSearch(ctx, cacheKey); err == nil && items != nil {
			return items, nil
		}
	}

	q := fmt.Sprintf("collection:%s AND mediatype:movies", c.collection)
	if filters.Query != "" {
		q += fmt.Sprintf(" AND (%s)", filters.Query)
	}
	if filters.Year != 0 {
		q += fmt.Sprintf(" AND year:%d", filters.Year)
	}
	if filters.Genre != "" {
		q += fmt.Sprintf(" AND subject:%s", filters.Genre)
	}

	params := url.Values{}
	params.Set("q", q)
	params.Add("fl[]", "identifier")
	params.Add("fl[]", "title")
	params.Add("fl[]", "description")
	params.Add("fl[]", "subject")
	params.Add("fl[]", "year")
	params.Add("sort[]", "downloads desc")
	params.Set("rows", strconv.Itoa(c.rows))
	params.Set("output", "json")

	span, ctx := tracing.StartCatalogSpan(ctx, "search")
	defer tracing.FinishSpan(span)

	start := time.Now()
	var result searchResponse
	err := c.getJSON(ctx, c.baseURL+"/advancedsearch.php?"+params.Encode(), &result)
	tracing.LogError(span, err)
	c.log.LogCatalogFetch("search", q, len(result.Response.Docs), time.Since(start), err)
	if err != nil {
		metrics.CatalogFetchesTotal.WithLabelValues("search", "error").Inc()
		return nil, fmt.Errorf("failed to search catalog: %w", err)
	}
	metrics.CatalogFetchesTotal.WithLabelValues("search", "ok").Inc()

	items := make([]models.CatalogItem, 0, len(result.Response.Docs))
	for _, doc := range result.Response.Docs {
		year := parseYear(doc.Year)
		items = append(items, models.CatalogItem{
			ID:          doc.Identifier,
			Title:       doc.Title.first(),
			Year:        year,
			Description: doc.Description.first(),
			Subjects:    splitSubjects(doc.Subject),
			Thumbnail:   c.thumbnailURL(doc.Identifier),
		})
	}

	if c.cache != nil {
		if err := c.cache.SetSearch(ctx, cacheKey, items); err != nil {
			c.log.WithError(err).Warn("failed to cache search results")
		}
	}

	return items, nil
}

// splitSubjects normalizes subject tags: list entries pass through, single
// strings split on semicolons, everything lowercased and trimmed.
func splitSubjects(raw flexString) []string {
	var subjects []string
	for _, entry := range raw {
		for _, tag := range strings.Split(entry, ";") {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag != "" {
				subjects = append(subjects, tag)
			}
		}
	}
	return subjects
}

// GenreCounts tallies subject tags across a result set for the genre filter
// sidebar.
func GenreCounts(items []models.CatalogItem) map[string]int {
	counts := make(map[string]int)
	for _, item := range items {
		for _, tag := range item.Subjects {
			counts[tag]++
		}
	}
	return counts
}

type metadataFile struct {
	Name   string `json:"name"`
	Title  string `json:"title"`
	Format string `json:"format"`
}

type metadataResponse struct {
	Metadata struct {
		Identifier  string     `json:"identifier"`
		Title       flexString `json:"title"`
		Description flexString `json:"description"`
	} `json:"metadata"`
	Files []metadataFile `json:"files"`
}

// Detail fetches one item's metadata and shapes it into the playable view:
// mp4 files become episodes grouped by season, plus a direct stream URL for
// the first file.
func (c *Client) Detail(ctx context.Context, videoID string) (*models.CatalogDetail, error) {
	if c.cache != nil {
		if detail, err := c.cache.GetDetail(ctx, videoID); err == nil && detail != nil {
			return detail, nil
		}
	}

	span, ctx := tracing.StartCatalogSpan(ctx, "metadata")
	defer tracing.FinishSpan(span)

	start := time.Now()
	var meta metadataResponse
	err := c.getJSON(ctx, c.baseURL+"/metadata/"+url.PathEscape(videoID), &meta)
	tracing.LogError(span, err)
	c.log.LogCatalogFetch("metadata", videoID, len(meta.Files), time.Since(start), err)
	if err != nil {
		metrics.CatalogFetchesTotal.WithLabelValues("metadata", "error").Inc()
		return nil, fmt.Errorf("failed to fetch metadata: %w", err)
	}
	metrics.CatalogFetchesTotal.WithLabelValues("metadata", "ok").Inc()

	episodes := c.episodes(videoID, meta.Files)

	detail := &models.CatalogDetail{
		ID:          videoID,
		Title:       meta.Metadata.Title.first(),
		Description: meta.Metadata.Description.first(),
		Thumbnail:   c.thumbnailURL(videoID),
		Seasons:     GroupBySeason(episodes),
	}
	if detail.Title == "" {
		detail.Title = videoID
	}
	if len(episodes) > 0 {
		detail.StreamURL = episodes[0].URL
	}

	if c.cache != nil {
		if err := c.cache.SetDetail(ctx, videoID, detail); err != nil {
			c.log.WithError(err).Warn("failed to cache detail")
		}
	}

	return detail, nil
}

// episodes extracts playable mp4 files, numbered in file order.
func (c *Client) episodes(videoID string, files []metadataFile) []models.Episode {
	var episodes []models.Episode
	for _, f := range files {
		if !strings.HasSuffix(f.Name, ".mp4") {
			continue
		}
		title := f.Title
		if title == "" {
			title = f.Name
		}
		episodes = append(episodes, models.Episode{
			Title:    title,
			Filename: f.Name,
			URL:      fmt.Sprintf("%s/download/%s/%s", c.baseURL, videoID, f.Name),
			Number:   len(episodes) + 1,
		})
	}
	return episodes
}

// seasonPattern matches "1x02"-style markers in episode titles.
var seasonPattern = regexp.MustCompile(`(0?(\d+))x(\d+)`)

// GroupBySeason buckets episodes by the season marker in their titles;
// unmarked episodes land in "Specials". Seasons come back in numeric order
// with Specials last.
func GroupBySeason(episodes []models.Episode) []models.Season {
	buckets := make(map[string][]models.Episode)
	for _, ep := range episodes {
		name := "Specials"
		if m := seasonPattern.FindStringSubmatch(ep.Title); m != nil {
			n, _ := strconv.Atoi(m[2])
			name = fmt.Sprintf("Season %d", n)
		}
		buckets[name] = append(buckets[name], ep)
	}

	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if names[i] == "Specials" {
			return false
		}
		if names[j] == "Specials" {
			return true
		}
		return seasonNumber(names[i]) < seasonNumber(names[j])
	})

	seasons := make([]models.Season, 0, len(names))
	for _, name := range names {
		seasons = append(seasons, models.Season{Name: name, Episodes: buckets[name]})
	}
	return seasons
}

func seasonNumber(name string) int {
	n, _ := strconv.Atoi(strings.TrimPrefix(name, "Season "))
	return n
}

func (c *Client) thumbnailURL(videoID string) string {
	return fmt.Sprintf("%s/services/img/%s", c.baseURL, videoID)
}

func (c *Client) getJSON(ctx context.Context, rawURL string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
