package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"polymarket-scraper/internal/cache"
	"polymarket-scraper/internal/config"
	"polymarket-scraper/internal/model"
	"polymarket-scraper/internal/storage"
)

func newGammaServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"e1","title":"Fed cut in March?","slug":"fed-cut",
			"volume24hr":"3.5","tags":[{"id":"1","label":"Economy"}],
			"markets":[{"id":"m1","question":"Fed cut?","volume":"12.5",
			"outcomes":"[\"Yes\",\"No\"]","outcomePrices":"[\"0.25\",\"0.75\"]"}]}]`))
	})
	mux.HandleFunc("/tags", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"2","label":"Sports","slug":"sports"},{"id":"1","label":"Crypto","slug":"crypto"}]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, baseURL string) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{
		API: config.APIConfig{
			BaseURL:        baseURL,
			PageLimit:      100,
			MaxPages:       2,
			MaxAttempts:    1,
			RequestTimeout: 2 * time.Second,
			BackoffBase:    time.Millisecond,
		},
		Export: config.ExportConfig{
			Dir:     t.TempDir(),
			Formats: []string{"csv", "json"},
		},
	}
	var out bytes.Buffer
	a := NewApp(cfg, zerolog.Nop())
	a.Out = &out
	return a, &out
}

func TestOnceExportsAndSummarises(t *testing.T) {
	srv := newGammaServer(t)
	a, out := newTestApp(t, srv.URL)

	if err := a.Once(context.Background(), OnceOptions{}); err != nil {
		t.Fatalf("Once: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "Scraped 1 events, 1 markets") {
		t.Fatalf("missing summary: %q", text)
	}
	if !strings.Contains(text, "Total Volume: $12.50") {
		t.Fatalf("missing total volume: %q", text)
	}

	entries, err := os.ReadDir(a.Config.Export.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected csv and json files, got %d", len(entries))
	}
	for _, e := range entries {
		if !strings.Contains(text, e.Name()) {
			t.Fatalf("exported file %s not reported", e.Name())
		}
	}
}

func TestOnceFormatsOverride(t *testing.T) {
	srv := newGammaServer(t)
	a, _ := newTestApp(t, srv.URL)

	if err := a.Once(context.Background(), OnceOptions{Formats: []string{"json"}}); err != nil {
		t.Fatalf("Once: %v", err)
	}
	entries, _ := os.ReadDir(a.Config.Export.Dir)
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), ".json") {
		t.Fatalf("unexpected exports: %v", entries)
	}
}

func TestTagsSortedByLabel(t *testing.T) {
	srv := newGammaServer(t)
	a, out := newTestApp(t, srv.URL)

	if err := a.Tags(context.Background()); err != nil {
		t.Fatalf("Tags: %v", err)
	}
	text := out.String()
	if strings.Index(text, "Crypto") > strings.Index(text, "Sports") {
		t.Fatalf("tags not sorted: %q", text)
	}
}

func TestTagsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	a, _ := newTestApp(t, srv.URL)

	if err := a.Tags(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestHistoryRequiresDatabase(t *testing.T) {
	a, _ := newTestApp(t, "https://gamma-api.polymarket.com")
	if err := a.History(context.Background(), HistoryOptions{Limit: 5}); err == nil {
		t.Fatal("expected error without database")
	}
}

type fakeArchive struct {
	snapshots []storage.SnapshotRecord
	events    []storage.EventRecord
	total     int64
	deleted   int64
	cutoff    time.Time
}

func (f *fakeArchive) ListRecentSnapshots(context.Context, int) ([]storage.SnapshotRecord, error) {
	return f.snapshots, nil
}

func (f *fakeArchive) ListSnapshotEvents(context.Context, string, int) ([]storage.EventRecord, error) {
	return f.events, nil
}

func (f *fakeArchive) CountSnapshots(context.Context) (int64, error) { return f.total, nil }

func (f *fakeArchive) DeleteSnapshotsBefore(_ context.Context, olderThan time.Time) (int64, error) {
	f.cutoff = olderThan
	return f.deleted, nil
}

func TestWriteHistory(t *testing.T) {
	categories, _ := json.Marshal([]storage.CategorySummary{
		{Name: "Sports", Events: 2, Volume: decimal.NewFromInt(10)},
		{Name: "Politics", Events: 5, Volume: decimal.NewFromInt(900)},
	})
	archive := &fakeArchive{
		snapshots: []storage.SnapshotRecord{{
			ID:            "snap-1",
			CapturedAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
			TotalEvents:   7,
			TotalMarkets:  20,
			TotalVolume:   decimal.NewFromInt(2_500_000),
			FetchDuration: 1500 * time.Millisecond,
			Categories:    categories,
		}},
		events: []storage.EventRecord{{Position: 0, Title: "Line\nbreak", Category: "Sports", NumMarkets: 2, Volume: decimal.NewFromFloat(1.5)}},
	}
	a, out := newTestApp(t, "https://gamma-api.polymarket.com")

	if err := a.writeHistory(context.Background(), archive, HistoryOptions{Limit: 10}); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	for _, want := range []string{"2025-03-01T12:00:00Z", "snap-1", "$2.5M", "1.50s", "Politics(5), Sports(2)"} {
		if !strings.Contains(text, want) {
			t.Fatalf("history missing %q: %q", want, text)
		}
	}

	out.Reset()
	if err := a.writeHistory(context.Background(), archive, HistoryOptions{SnapshotID: "snap-1"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Line break") || !strings.Contains(out.String(), "1.50") {
		t.Fatalf("event listing: %q", out.String())
	}
}

func TestWriteHistoryEmpty(t *testing.T) {
	a, out := newTestApp(t, "https://gamma-api.polymarket.com")
	if err := a.writeHistory(context.Background(), &fakeArchive{}, HistoryOptions{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "no snapshots found") {
		t.Fatalf("got %q", out.String())
	}
}

func TestPrune(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	a, _ := newTestApp(t, "https://gamma-api.polymarket.com")

	t.Run("deletes before cutoff", func(t *testing.T) {
		archive := &fakeArchive{total: 10, deleted: 4}
		if err := a.prune(context.Background(), archive, PruneOptions{OlderThan: 48 * time.Hour}, now); err != nil {
			t.Fatal(err)
		}
		if !archive.cutoff.Equal(now.Add(-48 * time.Hour)) {
			t.Fatalf("cutoff = %v", archive.cutoff)
		}
	})

	t.Run("dry run deletes nothing", func(t *testing.T) {
		archive := &fakeArchive{total: 10}
		if err := a.prune(context.Background(), archive, PruneOptions{OlderThan: time.Hour, DryRun: true}, now); err != nil {
			t.Fatal(err)
		}
		if !archive.cutoff.IsZero() {
			t.Fatal("dry run must not delete")
		}
	})

	t.Run("rejects non-positive window", func(t *testing.T) {
		err := a.Prune(context.Background(), PruneOptions{})
		if err == nil || errors.Is(err, context.Canceled) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestSimulateNotifyRequiresAlerting(t *testing.T) {
	a, _ := newTestApp(t, "https://gamma-api.polymarket.com")
	if err := a.SimulateNotify(context.Background()); err == nil {
		t.Fatal("expected error when alerting is disabled")
	}
}

func TestSimulateNotifyDelivers(t *testing.T) {
	var body []byte
	tg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		body = buf.Bytes()
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer tg.Close()

	a, _ := newTestApp(t, "https://gamma-api.polymarket.com")
	a.Config.Alerting = config.AlertingConfig{
		Enabled:   true,
		TopEvents: 3,
		Telegram:  config.TelegramConfig{Enabled: true, BotToken: "token", ChatID: "42", APIBase: tg.URL},
	}

	if err := a.SimulateNotify(context.Background()); err != nil {
		t.Fatalf("SimulateNotify: %v", err)
	}
	if !bytes.Contains(body, []byte("Simulated event")) {
		t.Fatalf("digest not delivered: %s", body)
	}
}

type fakeLatest struct {
	summary cache.Summary
	err     error
	ids     []string
	asked   int
}

func (f *fakeLatest) Latest(context.Context) (cache.Summary, error) { return f.summary, f.err }

func (f *fakeLatest) TopEventIDs(_ context.Context, n int) ([]string, error) {
	f.asked = n
	return f.ids, nil
}

func TestWriteLatest(t *testing.T) {
	a, out := newTestApp(t, "https://gamma-api.polymarket.com")
	reader := &fakeLatest{
		summary: cache.Summary{
			SnapshotID:  "snap-9",
			CapturedAt:  time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC),
			TotalEvents: 2,
			TotalVolume: 1500,
			Categories:  []model.CategoryStat{{Name: "Crypto", Events: 2, Volume: 1500, Volume24hr: 20}},
		},
		ids: []string{"e2", "e1"},
	}

	if err := a.writeLatest(context.Background(), reader, LatestOptions{Top: 5}); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	for _, want := range []string{"snap-9", "2025-05-01T08:00:00Z", "$1.5K", "Crypto", "e2, e1"} {
		if !strings.Contains(text, want) {
			t.Fatalf("latest missing %q: %q", want, text)
		}
	}
	if reader.asked != 5 {
		t.Fatalf("asked for %d ids", reader.asked)
	}
}

func TestWriteLatestNothingPublished(t *testing.T) {
	a, out := newTestApp(t, "https://gamma-api.polymarket.com")
	if err := a.writeLatest(context.Background(), &fakeLatest{err: cache.ErrNotFound}, LatestOptions{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "no snapshot published yet") {
		t.Fatalf("got %q", out.String())
	}
}
