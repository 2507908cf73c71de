package models

import "time"

// SearchRequest is the caller-facing search contract.
type SearchRequest struct {
	Query           string
	PageToken       string
	Region          string
	CategoryFilter  string // platform video category id
	RequireCaptions bool
}

// SearchQuery is what is actually sent to the platform, filter hints included.
type SearchQuery struct {
	Text            string
	PageToken       string
	PublishedAfter  time.Time
	DurationBucket  string // "any" | "short" | "medium" | "long"
	Language        string
	Region          string
	CategoryID      string
	ClosedCaptioned bool
	MaxResults      int
}

type SearchPage struct {
	Candidates    []Candidate
	NextPageToken string
	Filtered      int // dropped by the client-side re-filter
}

// LayoutSignals are the free embed-level hints used for short-form detection.
type LayoutSignals struct {
	HTML            string `json:"html"`
	ThumbnailWidth  int    `json:"thumbnail_width"`
	ThumbnailHeight int    `json:"thumbnail_height"`
	Title           string `json:"title"`
}
