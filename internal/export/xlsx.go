package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"polymarket-scraper/internal/model"
)

const (
	eventsSheet     = "Events"
	categoriesSheet = "Categories"
)

// WriteXLSX writes an Events sheet with the CSV columns and a Categories
// sheet with per-category totals.
func (e *Exporter) WriteXLSX(snap model.Snapshot) (string, error) {
	path, err := e.filePath("polymarket_events", snap, FormatXLSX)
	if err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), eventsSheet); err != nil {
		return "", fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSheetRow(f, eventsSheet, 1, toCells(rowHeader)); err != nil {
		return "", err
	}
	for i, ev := range snap.Events {
		r := newEventRow(ev, snap.Timestamp)
		cells := []any{
			r.EventID,
			r.Title,
			r.Category,
			r.Tags,
			r.NumMarkets,
			r.TotalVolume.InexactFloat64(),
			r.Volume24hr.InexactFloat64(),
			r.Liquidity.InexactFloat64(),
			r.TopMarketQuestion,
			r.TopOutcome,
			nil,
			r.PolymarketURL,
			r.ScrapedAt,
		}
		if r.TopPrice != nil {
			cells[10] = r.TopPrice.InexactFloat64()
		}
		if err := writeSheetRow(f, eventsSheet, i+2, cells); err != nil {
			return "", err
		}
	}

	if _, err := f.NewSheet(categoriesSheet); err != nil {
		return "", fmt.Errorf("create sheet: %w", err)
	}
	header := []any{"category", "events", "total_volume", "volume_24hr"}
	if err := writeSheetRow(f, categoriesSheet, 1, header); err != nil {
		return "", err
	}
	for i, st := range snap.CategoryStats() {
		row := []any{st.Name, st.Events, st.Volume, st.Volume24hr}
		if err := writeSheetRow(f, categoriesSheet, i+2, row); err != nil {
			return "", err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save xlsx: %w", err)
	}
	return path, nil
}

func writeSheetRow(f *excelize.File, sheet string, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
