package models

import "time"

// Failure kinds recorded for a URL.
const (
	KindNotFound        = "not_found"
	KindChallenge       = "challenge"
	KindTransient       = "transient"
	KindFetch           = "fetch"
	KindNotProductPage  = "not_product_page"
	KindStorage         = "storage"
	KindDiscoveryFailed = "discovery"
)

type ScrapeError struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	URL        string    `json:"url"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	Attempts   int       `json:"attempts"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Stats struct {
	TotalURLs          int64            `json:"total_urls"`
	PendingURLs        int64            `json:"pending_urls"`
	TotalDetails       int64            `json:"total_details"`
	TotalErrors        int64            `json:"total_errors"`
	RecentlyUpdated    int64            `json:"recently_updated"`
	RecentlyDiscovered int64            `json:"recently_discovered"`
	ErrorsByKind       map[string]int64 `json:"errors_by_kind"`
}
