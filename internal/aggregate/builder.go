package aggregate

import (
	"time"

	"github.com/google/uuid"

	"polymarket-scraper/internal/model"
	"polymarket-scraper/internal/normalize"
)

// Option customises a Builder.
type Option func(*Builder)

// WithClock overrides the capture clock.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithIDGenerator overrides snapshot ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(b *Builder) {
		if gen != nil {
			b.newID = gen
		}
	}
}

// Builder turns the raw records of one cycle into a Snapshot.
type Builder struct {
	parser *normalize.Parser
	now    func() time.Time
	newID  func() string
}

// NewBuilder returns a Builder using parser for record normalisation. A nil
// parser falls back to the default site and explorer links.
func NewBuilder(parser *normalize.Parser, opts ...Option) *Builder {
	if parser == nil {
		parser = normalize.NewParser(normalize.Options{})
	}
	b := &Builder{
		parser: parser,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildSnapshot parses raw, keeps the first event seen for every ID and
// partitions the survivors by category. It never fails.
func (b *Builder) BuildSnapshot(raw []map[string]any, fetchDuration time.Duration) model.Snapshot {
	events := make([]model.Event, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, record := range raw {
		event := b.parser.ParseEvent(record)
		if _, dup := seen[event.ID]; dup {
			continue
		}
		seen[event.ID] = struct{}{}
		events = append(events, event)
	}

	snap := model.Snapshot{
		ID:            b.newID(),
		Timestamp:     b.now().UTC(),
		Events:        events,
		TotalEvents:   len(events),
		Categories:    make(map[string][]model.Event),
		FetchDuration: fetchDuration,
	}
	for _, event := range events {
		snap.TotalMarkets += len(event.Markets)
		snap.TotalVolume += event.Volume
		snap.Categories[event.Category] = append(snap.Categories[event.Category], event)
	}
	return snap
}
