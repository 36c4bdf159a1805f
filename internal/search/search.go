// Package search finds revisions by free text, preferring Meilisearch and
// falling back to a Postgres scan when it is unavailable.
package search

// Result is a single revision hit.
type Result struct {
	ID             string `json:"id"`
	Obsid          int    `json:"obsid"`
	RevisionNumber int    `json:"revisionNumber"`
	Kind           string `json:"kind"`
	Submitter      string `json:"submitter"`
	Notes          string `json:"notes,omitempty"`
	RevTime        int64  `json:"revTime"`
}

// Query describes a revision search.
type Query struct {
	Text   string
	Obsid  *int
	Kind   string
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// RevisionRecord is the data indexed per revision.
type RevisionRecord struct {
	ID             string `json:"id"`
	Obsid          int    `json:"obsid"`
	RevisionNumber int    `json:"revisionNumber"`
	Kind           string `json:"kind"`
	Submitter      string `json:"submitter"`
	Notes          string `json:"notes"`
	RevTime        int64  `json:"revTime"`
}
