package service

import (
	"context"
	"io"

	"polymarket-scraper/internal/alerting"
	"polymarket-scraper/internal/export"
	"polymarket-scraper/internal/model"
	"polymarket-scraper/internal/render"
	"polymarket-scraper/internal/storage"
)

// Sink consumes a finished snapshot. Sinks must treat it as read-only.
type Sink interface {
	Name() string
	Consume(ctx context.Context, snap model.Snapshot) error
}

// SinkFunc adapts a function into a named Sink.
type SinkFunc struct {
	Label string
	Fn    func(ctx context.Context, snap model.Snapshot) error
}

// Name implements Sink.
func (f SinkFunc) Name() string { return f.Label }

// Consume implements Sink.
func (f SinkFunc) Consume(ctx context.Context, snap model.Snapshot) error { return f.Fn(ctx, snap) }

// SnapshotPublisher is satisfied by the Redis snapshot cache.
type SnapshotPublisher interface {
	Publish(ctx context.Context, snap model.Snapshot) error
}

// DashboardSink redraws the terminal dashboard.
func DashboardSink(d *render.Dashboard, out io.Writer) Sink {
	return SinkFunc{Label: "dashboard", Fn: func(_ context.Context, snap model.Snapshot) error {
		return d.Render(out, &snap)
	}}
}

// ExportSink writes the configured file formats.
func ExportSink(e *export.Exporter, formats []string) Sink {
	return SinkFunc{Label: "export", Fn: func(ctx context.Context, snap model.Snapshot) error {
		_, err := e.WriteAll(ctx, snap, formats)
		return err
	}}
}

// CacheSink publishes the snapshot to Redis.
func CacheSink(p SnapshotPublisher) Sink {
	return SinkFunc{Label: "cache", Fn: p.Publish}
}

// StoreSink archives the snapshot in postgres.
func StoreSink(store storage.SnapshotStore) Sink {
	return SinkFunc{Label: "storage", Fn: store.SaveSnapshot}
}

// NotifySink sends a cycle digest with the top events by 24h volume.
func NotifySink(n alerting.Notifier, topEvents int) Sink {
	return SinkFunc{Label: "notify", Fn: func(ctx context.Context, snap model.Snapshot) error {
		return n.Notify(ctx, alerting.NewNotification(snap, topEvents))
	}}
}
