package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"polymarket-scraper/internal/service"
)

// OnceOptions configure a single scrape-and-export run.
type OnceOptions struct {
	// Formats overrides export.formats when non-empty.
	Formats []string
}

// Once scrapes a single snapshot, exports it, prints a summary and returns.
func (a *App) Once(ctx context.Context, opts OnceOptions) error {
	source, err := a.newFetcher()
	if err != nil {
		return err
	}
	exporter, err := a.newExporter(ctx)
	if err != nil {
		return err
	}

	svc := service.New(source, a.newBuilder(), nil, nil, service.Options{}, a.Logger)
	snap, err := svc.RunCycle(ctx)
	if err != nil {
		return err
	}

	formats := opts.Formats
	if len(formats) == 0 {
		formats = a.Config.Export.Formats
	}
	files, err := exporter.WriteAll(ctx, snap, formats)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "\nScraped %d events, %d markets\n", snap.TotalEvents, snap.TotalMarkets)
	fmt.Fprintf(a.Out, "Total Volume: $%s\n", decimal.NewFromFloat(snap.TotalVolume).StringFixed(2))
	fmt.Fprintln(a.Out, "\nExported to:")
	for _, f := range files {
		fmt.Fprintf(a.Out, "  %s\n", f)
	}
	return nil
}
