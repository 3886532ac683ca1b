package fetcher

import (
	"context"

	"polymarket-scraper/internal/model"
)

// Record is one raw JSON object as returned by the Gamma API. Numbers are
// decoded as json.Number.
type Record = map[string]any

// EventSource retrieves the raw event records of one scrape cycle.
type EventSource interface {
	FetchEvents(ctx context.Context) []Record
}

// TagSource lists the tags known to the API.
type TagSource interface {
	FetchTags(ctx context.Context) ([]model.Tag, error)
}

var (
	_ EventSource = (*Fetcher)(nil)
	_ TagSource   = (*Fetcher)(nil)
)
