package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"polymarket-scraper/internal/cache"
	"polymarket-scraper/internal/render"
)

// LatestOptions configure the latest command.
type LatestOptions struct {
	Top int
}

type latestReader interface {
	Latest(ctx context.Context) (cache.Summary, error)
	TopEventIDs(ctx context.Context, n int) ([]string, error)
}

// Latest prints the snapshot summary most recently published to Redis by a
// running scraper.
func (a *App) Latest(ctx context.Context, opts LatestOptions) error {
	snapshotCache, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	if snapshotCache == nil {
		return errors.New("redis.addr not configured; no published snapshot to read")
	}
	defer snapshotCache.Close()

	return a.writeLatest(ctx, snapshotCache, opts)
}

func (a *App) writeLatest(ctx context.Context, reader latestReader, opts LatestOptions) error {
	summary, err := reader.Latest(ctx)
	if errors.Is(err, cache.ErrNotFound) {
		fmt.Fprintln(a.Out, "no snapshot published yet")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "Snapshot %s captured %s\n", summary.SnapshotID, summary.CapturedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(a.Out, "Events: %d | Markets: %d | Volume: %s | Fetch: %.1fs\n",
		summary.TotalEvents, summary.TotalMarkets, render.FormatVolume(summary.TotalVolume), summary.FetchDurationSeconds)

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Category\tEvents\tVolume\t24h Vol")
	for _, c := range summary.Categories {
		fmt.Fprintf(writer, "%s\t%d\t%s\t%s\n", c.Name, c.Events, render.FormatVolume(c.Volume), render.FormatVolume(c.Volume24hr))
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	ids, err := reader.TopEventIDs(ctx, opts.Top)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		fmt.Fprintf(a.Out, "Top by 24h volume: %s\n", strings.Join(ids, ", "))
	}
	return nil
}
