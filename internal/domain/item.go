package domain

import "time"

// ParsedItem is a normalized entry recovered from a feed or listing page.
// GUID uniquely determines URL; two items with the same GUID are merged
// before they leave the parser.
type ParsedItem struct {
	GUID        string // stable key, e.g. "hf-papers:2405.12345"
	Title       string
	URL         string
	PublishedAt time.Time
	Summary     string // abstract on input, short blurb after summarization
	Author      string
	Source      string
	Paper       bool // paper-type items get a summarization blurb
}

// SummaryRequest asks for a short blurb for one paper.
type SummaryRequest struct {
	Key      string // join key back to the caller's ParsedItem.GUID
	Title    string
	Abstract string
}

// ChatMessage is one turn of an AI chat exchange.
type ChatMessage struct {
	Role    string
	Content string
}

// StoredItem is the persisted snapshot used for deduplication and audit.
type StoredItem struct {
	Item      ParsedItem
	Summary   string
	Degraded  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
