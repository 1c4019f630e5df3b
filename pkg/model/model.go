package model

import (
	"time"
)

// PageDocument is a wiki page as fetched at the start of processing.
type PageDocument struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Identifiers addresses one journal issue in the knowledge base.
type Identifiers struct {
	SourceID string `json:"source_id"` // Wikidata QID of the journal, empty if unresolved
	Volume   int    `json:"volume"`
	Issue    int    `json:"issue"` // Defaults to 1
}

// HasSource reports whether a journal QID was resolved.
func (i Identifiers) HasSource() bool {
	return i.SourceID != ""
}

// ResultRow is one article binding returned by the SPARQL endpoint.
type ResultRow struct {
	Label    string `json:"label"`
	ImageURL string `json:"image_url,omitempty"` // Commons Special:FilePath URL, optional
}

// Markers names the templates bounding the replaceable list region.
type Markers struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// PageStatus is the terminal state of a page within a run.
type PageStatus string

const (
	StatusSubmitted PageStatus = "submitted"
	StatusSkipped   PageStatus = "skipped"
	StatusFailed    PageStatus = "failed"
	StatusDryRun    PageStatus = "dry_run"
)

// EditRecord is the persisted outcome of processing one page.
type EditRecord struct {
	RunID     string     `json:"run_id"`
	Title     string     `json:"title"`
	Status    PageStatus `json:"status"`
	Stage     string     `json:"stage,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Rows      int        `json:"rows"`
	RevID     int64      `json:"rev_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// RunRecord summarizes one batch run.
type RunRecord struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Pages      int       `json:"pages"`
	Submitted  int       `json:"submitted"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Aborted    string    `json:"aborted,omitempty"`
}
