package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// OracleType names the mechanism that settles a market.
type OracleType string

const (
	OracleUMA       OracleType = "UMA"
	OracleChainlink OracleType = "Chainlink"
	OracleUnknown   OracleType = "Unknown"
)

// Tag labels an event. Identity is ID.
type Tag struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// Market is a single question inside an event. Empty date and resolver
// strings mean the upstream record did not carry them.
type Market struct {
	ID            string     `json:"id"`
	Question      string     `json:"question"`
	Slug          string     `json:"slug"`
	Outcomes      []string   `json:"outcomes"`
	OutcomePrices []string   `json:"outcome_prices"`
	Volume        float64    `json:"volume"`
	Volume24hr    float64    `json:"volume_24hr"`
	Liquidity     float64    `json:"liquidity"`
	Active        bool       `json:"active"`
	Closed        bool       `json:"closed"`
	EndDate       string     `json:"end_date,omitempty"`
	CreatedAt     string     `json:"created_at,omitempty"`
	Description   string     `json:"description"`
	ResolvedBy    string     `json:"resolved_by,omitempty"`
	OracleType    OracleType `json:"oracle_type"`
	OracleLink    string     `json:"oracle_link"`
	UMABond       *float64   `json:"uma_bond"`
	UMAReward     *float64   `json:"uma_reward"`
	PolymarketURL string     `json:"polymarket_url"`
}

// TopOutcome returns the outcome with the highest price. The first outcome
// wins ties. ok is false when any price fails to parse or no label exists
// at the winning index.
func (m Market) TopOutcome() (label string, price decimal.Decimal, ok bool) {
	if len(m.OutcomePrices) == 0 {
		return "", decimal.Decimal{}, false
	}

	best := -1
	for i, raw := range m.OutcomePrices {
		p, err := decimal.NewFromString(raw)
		if err != nil {
			return "", decimal.Decimal{}, false
		}
		if best < 0 || p.GreaterThan(price) {
			best = i
			price = p
		}
	}

	if best < len(m.Outcomes) {
		label = m.Outcomes[best]
	}
	return label, price, true
}

// Event groups one or more markets. Volume, Volume24hr and Liquidity are
// always sums over Markets.
type Event struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Slug          string   `json:"slug"`
	Volume        float64  `json:"volume"`
	Volume24hr    float64  `json:"volume_24hr"`
	Liquidity     float64  `json:"liquidity"`
	Active        bool     `json:"active"`
	Closed        bool     `json:"closed"`
	Tags          []Tag    `json:"tags"`
	Markets       []Market `json:"markets"`
	PolymarketURL string   `json:"polymarket_url"`
	Category      string   `json:"category"`
	StartDate     string   `json:"start_date,omitempty"`
	EndDate       string   `json:"end_date,omitempty"`
	Description   string   `json:"description"`
	CreatedAt     string   `json:"created_at,omitempty"`
}

// TopMarket returns the market with the highest volume, first wins on ties.
func (e Event) TopMarket() (Market, bool) {
	if len(e.Markets) == 0 {
		return Market{}, false
	}
	top := 0
	for i := 1; i < len(e.Markets); i++ {
		if e.Markets[i].Volume > e.Markets[top].Volume {
			top = i
		}
	}
	return e.Markets[top], true
}

// TagLabels returns the labels of all tags in order.
func (e Event) TagLabels() []string {
	labels := make([]string, 0, len(e.Tags))
	for _, t := range e.Tags {
		labels = append(labels, t.Label)
	}
	return labels
}

// Snapshot is the immutable result of one scrape cycle. Collaborators must
// treat every field as read-only.
type Snapshot struct {
	ID            string
	Timestamp     time.Time
	Events        []Event
	TotalEvents   int
	TotalMarkets  int
	TotalVolume   float64
	Categories    map[string][]Event
	FetchDuration time.Duration
}

// FetchDurationSeconds reports the fetch duration in seconds.
func (s Snapshot) FetchDurationSeconds() float64 {
	return s.FetchDuration.Seconds()
}

// CategoryNames returns the category keys in lexicographic order.
func (s Snapshot) CategoryNames() []string {
	names := make([]string, 0, len(s.Categories))
	for name := range s.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CategoryStat summarises one category of a snapshot.
type CategoryStat struct {
	Name       string
	Events     int
	Volume     float64
	Volume24hr float64
}

// CategoryStats returns per-category totals in CategoryNames order.
func (s Snapshot) CategoryStats() []CategoryStat {
	names := s.CategoryNames()
	stats := make([]CategoryStat, 0, len(names))
	for _, name := range names {
		stat := CategoryStat{Name: name}
		for _, e := range s.Categories[name] {
			stat.Events++
			stat.Volume += e.Volume
			stat.Volume24hr += e.Volume24hr
		}
		stats = append(stats, stat)
	}
	return stats
}
