package render

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-scraper/internal/model"
)

const (
	titleWidth = 40
	linkWidth  = 38

	clearScreen = "\033[H\033[2J"
)

// Options configure the dashboard view.
type Options struct {
	// Category restricts the events table to one category when set.
	Category string
	// MaxRows caps the events table; zero means no limit.
	MaxRows     int
	SiteBaseURL string
	// Clear redraws from the top of the terminal on every render.
	Clear bool
}

// Dashboard renders snapshots as plain-text tables.
type Dashboard struct {
	opts Options
}

// NewDashboard constructs a Dashboard.
func NewDashboard(opts Options) *Dashboard {
	if opts.SiteBaseURL == "" {
		opts.SiteBaseURL = "https://polymarket.com/event"
	}
	opts.SiteBaseURL = strings.TrimRight(opts.SiteBaseURL, "/") + "/"
	return &Dashboard{opts: opts}
}

// Render writes header, category overview and events table. A nil snapshot
// renders a loading placeholder.
func (d *Dashboard) Render(w io.Writer, snap *model.Snapshot) error {
	if d.opts.Clear {
		if _, err := io.WriteString(w, clearScreen); err != nil {
			return err
		}
	}
	if snap == nil {
		_, err := fmt.Fprintln(w, "Loading data...")
		return err
	}

	if err := d.writeHeader(w, snap); err != nil {
		return err
	}
	if err := d.writeCategories(w, snap); err != nil {
		return err
	}
	return d.writeEvents(w, snap)
}

func (d *Dashboard) writeHeader(w io.Writer, snap *model.Snapshot) error {
	_, err := fmt.Fprintf(w, "POLYMARKET REAL-TIME MONITOR  |  Events: %d  |  Markets: %d  |  Total Volume: %s  |  Fetch: %.1fs  |  Updated: %s\n\n",
		snap.TotalEvents,
		snap.TotalMarkets,
		FormatVolume(snap.TotalVolume),
		snap.FetchDurationSeconds(),
		FormatTimestamp(snap.Timestamp),
	)
	return err
}

func (d *Dashboard) writeCategories(w io.Writer, snap *model.Snapshot) error {
	fmt.Fprintln(w, "Categories Overview")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Category\tEvents\tTotal Volume\t24h Volume\t")
	for _, st := range snap.CategoryStats() {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t\n",
			st.Name, st.Events, FormatVolume(st.Volume), FormatVolume(st.Volume24hr))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

func (d *Dashboard) writeEvents(w io.Writer, snap *model.Snapshot) error {
	title := "Active Polymarket Events"
	if d.opts.Category != "" {
		title += " [" + d.opts.Category + "]"
	}
	fmt.Fprintln(w, title)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTitle\tCategory\tMarkets\tVolume\t24h Vol\tTop Outcome\tPrice\tLink")
	for i, e := range d.Rows(snap) {
		outcome, price := TopOutcome(e)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			truncate(sanitizeInline(e.Title), titleWidth, ""),
			e.Category,
			len(e.Markets),
			FormatVolume(e.Volume),
			FormatVolume(e.Volume24hr),
			sanitizeInline(outcome),
			price,
			d.shortLink(e.PolymarketURL),
		)
	}
	return tw.Flush()
}

// Rows returns the events shown in the table: filtered by category, sorted
// by 24h volume descending and capped at MaxRows.
func (d *Dashboard) Rows(snap *model.Snapshot) []model.Event {
	rows := make([]model.Event, 0, len(snap.Events))
	for _, e := range snap.Events {
		if d.opts.Category != "" && e.Category != d.opts.Category {
			continue
		}
		rows = append(rows, e)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Volume24hr > rows[j].Volume24hr })
	if d.opts.MaxRows > 0 && len(rows) > d.opts.MaxRows {
		rows = rows[:d.opts.MaxRows]
	}
	return rows
}

func (d *Dashboard) shortLink(link string) string {
	return truncate(strings.TrimPrefix(link, d.opts.SiteBaseURL), linkWidth, "...")
}

// TopOutcome picks the top market's leading outcome and formats its price as
// a percentage. Both are empty when the market has no usable prices.
func TopOutcome(e model.Event) (string, string) {
	m, ok := e.TopMarket()
	if !ok {
		return "", ""
	}
	label, price, ok := m.TopOutcome()
	if !ok {
		return "", ""
	}
	return label, price.Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}

// RenderTags writes the tag listing used by the tags command.
func RenderTags(w io.Writer, tags []model.Tag) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLabel\tSlug")
	for _, t := range tags {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, sanitizeInline(t.Label), t.Slug)
	}
	return tw.Flush()
}

// FormatVolume abbreviates dollar amounts: $1.2M, $3.4K, $12.
func FormatVolume(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("$%.1fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("$%.1fK", v/1_000)
	default:
		return fmt.Sprintf("$%.0f", v)
	}
}

// FormatTimestamp renders capture times the way the header does.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

func truncate(s string, width int, suffix string) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	keep := width - len([]rune(suffix))
	if suffix == "" || keep < 0 {
		keep = width
		suffix = ""
	}
	return string(r[:keep]) + suffix
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return strings.ReplaceAll(cleaned, "\t", " ")
}
