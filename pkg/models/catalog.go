package models

// CatalogItem is one search result from the external archive. The backend
// only ever needs the identifier and title; the rest is passed through to
// the UI untouched.
type CatalogItem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Year        int      `json:"year,omitempty"`
	Description string   `json:"description,omitempty"`
	Subjects    []string `json:"subjects,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
}

// Episode is a single playable file inside a catalog item.
type Episode struct {
	Title    string `json:"title"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Number   int    `json:"number"`
}

// Season groups episodes parsed out of an item's file list. Episodes whose
// titles carry no season marker land in "Specials".
type Season struct {
	Name     string    `json:"name"`
	Episodes []Episode `json:"episodes"`
}

// CatalogDetail is the metadata view of one item: description plus its
// playable files grouped by season.
type CatalogDetail struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	StreamURL   string   `json:"stream_url,omitempty"`
	Seasons     []Season `json:"seasons"`
}
