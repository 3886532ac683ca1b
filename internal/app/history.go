package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-scraper/internal/render"
	"polymarket-scraper/internal/storage"
)

// HistoryOptions select what the history command prints.
type HistoryOptions struct {
	Limit      int
	SnapshotID string
}

type historyReader interface {
	ListRecentSnapshots(ctx context.Context, limit int) ([]storage.SnapshotRecord, error)
	ListSnapshotEvents(ctx context.Context, snapshotID string, limit int) ([]storage.EventRecord, error)
}

// History prints archived snapshots, or the events of one snapshot.
func (a *App) History(ctx context.Context, opts HistoryOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show history")
	}
	if closeStore != nil {
		defer closeStore()
	}

	return a.writeHistory(ctx, store, opts)
}

func (a *App) writeHistory(ctx context.Context, store historyReader, opts HistoryOptions) error {
	if opts.SnapshotID != "" {
		return a.writeSnapshotEvents(ctx, store, opts)
	}

	snapshots, err := store.ListRecentSnapshots(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		fmt.Fprintln(a.Out, "no snapshots found")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Captured (UTC)\tSnapshot\tEvents\tMarkets\tVolume\tFetch\tTop Categories")

	for _, snap := range snapshots {
		top := ""
		summaries, err := snap.CategorySummaries()
		if err != nil {
			a.Logger.Warn().Err(err).Str("snapshot", snap.ID).Msg("category summary unreadable")
		} else {
			top = topCategories(summaries, 3)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%d\t%d\t%s\t%.2fs\t%s\n",
			snap.CapturedAt.UTC().Format(time.RFC3339),
			snap.ID,
			snap.TotalEvents,
			snap.TotalMarkets,
			render.FormatVolume(snap.TotalVolume.InexactFloat64()),
			snap.FetchDuration.Seconds(),
			top,
		)
	}

	return writer.Flush()
}

func (a *App) writeSnapshotEvents(ctx context.Context, store historyReader, opts HistoryOptions) error {
	events, err := store.ListSnapshotEvents(ctx, opts.SnapshotID, opts.Limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintf(a.Out, "no events archived for snapshot %s\n", opts.SnapshotID)
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "#\tTitle\tCategory\tMarkets\tVolume\t24h Vol\tLiquidity")
	for _, e := range events {
		fmt.Fprintf(
			writer,
			"%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			e.Position+1,
			sanitizeInline(e.Title),
			e.Category,
			e.NumMarkets,
			formatDecimal(e.Volume, 2),
			formatDecimal(e.Volume24hr, 2),
			formatDecimal(e.Liquidity, 2),
		)
	}
	return writer.Flush()
}

// topCategories names the n categories with the highest volume.
func topCategories(summaries []storage.CategorySummary, n int) string {
	sorted := append([]storage.CategorySummary(nil), summaries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Volume.GreaterThan(sorted[j].Volume)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	names := make([]string, 0, len(sorted))
	for _, s := range sorted {
		names = append(names, fmt.Sprintf("%s(%d)", s.Name, s.Events))
	}
	return strings.Join(names, ", ")
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
