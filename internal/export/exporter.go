// Package export writes snapshots to files: a flat CSV table, a nested JSON
// document, an XLSX workbook and a PNG chart of category volume.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"polymarket-scraper/internal/model"
)

// Supported formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
	FormatPNG  = "png"
)

const fileTimeLayout = "20060102_150405"

// ErrNothingToPlot is returned by WriteChart when no category has volume.
var ErrNothingToPlot = errors.New("export: no category volume to plot")

// Uploader pushes a written file to remote storage under key.
type Uploader interface {
	Upload(ctx context.Context, localPath, key string) error
}

// Options configure an Exporter.
type Options struct {
	Dir      string
	Uploader Uploader
	// UploadPrefix is prepended to the file name to form the object key.
	UploadPrefix string
}

// Exporter writes snapshot files into Dir.
type Exporter struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs an Exporter. Dir defaults to "exports".
func New(opts Options, logger zerolog.Logger) *Exporter {
	if opts.Dir == "" {
		opts.Dir = "exports"
	}
	return &Exporter{opts: opts, logger: logger.With().Str("component", "exporter").Logger()}
}

// WriteAll writes every requested format and uploads the results when an
// Uploader is configured. Formats are case-insensitive; duplicates are
// written once.
func (e *Exporter) WriteAll(ctx context.Context, snap model.Snapshot, formats []string) ([]string, error) {
	written := make([]string, 0, len(formats))
	done := make(map[string]bool, len(formats))

	for _, raw := range formats {
		format := strings.ToLower(strings.TrimSpace(raw))
		if format == "" || done[format] {
			continue
		}
		done[format] = true

		var (
			p   string
			err error
		)
		switch format {
		case FormatCSV:
			p, err = e.WriteCSV(snap)
		case FormatJSON:
			p, err = e.WriteJSON(snap)
		case FormatXLSX:
			p, err = e.WriteXLSX(snap)
		case FormatPNG:
			p, err = e.WriteChart(snap)
			if errors.Is(err, ErrNothingToPlot) {
				e.logger.Debug().Str("snapshot_id", snap.ID).Msg("skip chart: no category volume")
				continue
			}
		default:
			err = fmt.Errorf("unsupported export format %q", raw)
		}
		if err != nil {
			return written, err
		}
		written = append(written, p)
	}

	if e.opts.Uploader != nil {
		for _, p := range written {
			key := path.Join(e.opts.UploadPrefix, filepath.Base(p))
			if err := e.opts.Uploader.Upload(ctx, p, key); err != nil {
				return written, fmt.Errorf("upload %s: %w", filepath.Base(p), err)
			}
		}
	}

	e.logger.Info().Strs("files", written).Msg("snapshot exported")
	return written, nil
}

func (e *Exporter) filePath(prefix string, snap model.Snapshot, ext string) (string, error) {
	if err := os.MkdirAll(e.opts.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	ts := snap.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	name := fmt.Sprintf("%s_%s.%s", prefix, ts.UTC().Format(fileTimeLayout), ext)
	return filepath.Join(e.opts.Dir, name), nil
}

// eventRow is the flat projection shared by the CSV and XLSX writers.
type eventRow struct {
	EventID           string
	Title             string
	Category          string
	Tags              string
	NumMarkets        int
	TotalVolume       decimal.Decimal
	Volume24hr        decimal.Decimal
	Liquidity         decimal.Decimal
	TopMarketQuestion string
	TopOutcome        string
	TopPrice          *decimal.Decimal
	PolymarketURL     string
	ScrapedAt         string
}

var rowHeader = []string{
	"event_id",
	"title",
	"category",
	"tags",
	"num_markets",
	"total_volume",
	"volume_24hr",
	"liquidity",
	"top_market_question",
	"top_outcome",
	"top_price",
	"polymarket_url",
	"scraped_at",
}

func newEventRow(e model.Event, scrapedAt time.Time) eventRow {
	row := eventRow{
		EventID:       e.ID,
		Title:         e.Title,
		Category:      e.Category,
		Tags:          strings.Join(e.TagLabels(), "; "),
		NumMarkets:    len(e.Markets),
		TotalVolume:   decimal.NewFromFloat(e.Volume).Round(2),
		Volume24hr:    decimal.NewFromFloat(e.Volume24hr).Round(2),
		Liquidity:     decimal.NewFromFloat(e.Liquidity).Round(2),
		PolymarketURL: e.PolymarketURL,
		ScrapedAt:     scrapedAt.UTC().Format(time.RFC3339),
	}
	if m, ok := e.TopMarket(); ok {
		row.TopMarketQuestion = m.Question
		if label, price, ok := m.TopOutcome(); ok {
			row.TopOutcome = label
			p := price.Round(4)
			row.TopPrice = &p
		}
	}
	return row
}

func (r eventRow) strings() []string {
	price := ""
	if r.TopPrice != nil {
		price = r.TopPrice.StringFixed(4)
	}
	return []string{
		r.EventID,
		r.Title,
		r.Category,
		r.Tags,
		fmt.Sprintf("%d", r.NumMarkets),
		r.TotalVolume.StringFixed(2),
		r.Volume24hr.StringFixed(2),
		r.Liquidity.StringFixed(2),
		r.TopMarketQuestion,
		r.TopOutcome,
		price,
		r.PolymarketURL,
		r.ScrapedAt,
	}
}
