package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-scraper/internal/model"
)

// SnapshotRecord is the archived summary of one scrape cycle.
type SnapshotRecord struct {
	ID            string
	CapturedAt    time.Time
	TotalEvents   int
	TotalMarkets  int
	TotalVolume   decimal.Decimal
	FetchDuration time.Duration
	Categories    json.RawMessage
	CreatedAt     time.Time
}

// EventRecord is one archived event row of a snapshot. Position keeps the
// snapshot's event order.
type EventRecord struct {
	SnapshotID    string
	Position      int
	EventID       string
	Title         string
	Category      string
	NumMarkets    int
	Volume        decimal.Decimal
	Volume24hr    decimal.Decimal
	Liquidity     decimal.Decimal
	PolymarketURL string
}

// CategorySummary is the JSON shape stored in snapshots.categories.
type CategorySummary struct {
	Name       string          `json:"name"`
	Events     int             `json:"events"`
	Volume     decimal.Decimal `json:"volume"`
	Volume24hr decimal.Decimal `json:"volume_24hr"`
}

// NewSnapshotRecord flattens a snapshot for archival.
func NewSnapshotRecord(snap model.Snapshot) (SnapshotRecord, []EventRecord, error) {
	stats := snap.CategoryStats()
	summaries := make([]CategorySummary, 0, len(stats))
	for _, st := range stats {
		summaries = append(summaries, CategorySummary{
			Name:       st.Name,
			Events:     st.Events,
			Volume:     decimal.NewFromFloat(st.Volume).Round(2),
			Volume24hr: decimal.NewFromFloat(st.Volume24hr).Round(2),
		})
	}
	categories, err := json.Marshal(summaries)
	if err != nil {
		return SnapshotRecord{}, nil, fmt.Errorf("marshal categories: %w", err)
	}

	rec := SnapshotRecord{
		ID:            snap.ID,
		CapturedAt:    snap.Timestamp,
		TotalEvents:   snap.TotalEvents,
		TotalMarkets:  snap.TotalMarkets,
		TotalVolume:   decimal.NewFromFloat(snap.TotalVolume).Round(2),
		FetchDuration: snap.FetchDuration,
		Categories:    categories,
	}

	events := make([]EventRecord, 0, len(snap.Events))
	for i, e := range snap.Events {
		events = append(events, EventRecord{
			SnapshotID:    snap.ID,
			Position:      i,
			EventID:       e.ID,
			Title:         e.Title,
			Category:      e.Category,
			NumMarkets:    len(e.Markets),
			Volume:        decimal.NewFromFloat(e.Volume).Round(2),
			Volume24hr:    decimal.NewFromFloat(e.Volume24hr).Round(2),
			Liquidity:     decimal.NewFromFloat(e.Liquidity).Round(2),
			PolymarketURL: e.PolymarketURL,
		})
	}
	return rec, events, nil
}

// CategorySummaries decodes the stored category breakdown.
func (r SnapshotRecord) CategorySummaries() ([]CategorySummary, error) {
	if len(r.Categories) == 0 {
		return nil, nil
	}
	var out []CategorySummary
	if err := json.Unmarshal(r.Categories, &out); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return out, nil
}
