package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-scraper/internal/model"
)

// Document is the JSON serialisation of a snapshot.
type Document struct {
	ScrapedAt            time.Time                `json:"scraped_at"`
	SnapshotID           string                   `json:"snapshot_id"`
	TotalEvents          int                      `json:"total_events"`
	TotalMarkets         int                      `json:"total_markets"`
	TotalVolume          json.Number              `json:"total_volume"`
	FetchDurationSeconds float64                  `json:"fetch_duration_seconds"`
	Categories           map[string][]model.Event `json:"categories"`
	Events               []model.Event            `json:"events"`
}

// NewDocument builds the JSON document for snap.
func NewDocument(snap model.Snapshot) Document {
	categories := snap.Categories
	if categories == nil {
		categories = map[string][]model.Event{}
	}
	events := snap.Events
	if events == nil {
		events = []model.Event{}
	}
	return Document{
		ScrapedAt:            snap.Timestamp.UTC(),
		SnapshotID:           snap.ID,
		TotalEvents:          snap.TotalEvents,
		TotalMarkets:         snap.TotalMarkets,
		TotalVolume:          json.Number(decimal.NewFromFloat(snap.TotalVolume).StringFixed(2)),
		FetchDurationSeconds: snap.FetchDurationSeconds(),
		Categories:           categories,
		Events:               events,
	}
}

// WriteJSON writes the full entity tree grouped by category.
func (e *Exporter) WriteJSON(snap model.Snapshot) (string, error) {
	path, err := e.filePath("polymarket_events", snap, FormatJSON)
	if err != nil {
		return "", err
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create json: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(NewDocument(snap)); err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return path, nil
}
