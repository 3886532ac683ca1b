package normalize

import (
	"encoding/json"
	"strings"
	"testing"

	"polymarket-scraper/internal/model"
)

func decodeRecord(t *testing.T, body string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var rec map[string]any
	if err := dec.Decode(&rec); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return rec
}

func TestParseMarketMissingOutcomes(t *testing.T) {
	p := NewParser(Options{})
	m := p.ParseMarket(map[string]any{"id": "1"}, "ev")

	if m.Outcomes == nil || m.OutcomePrices == nil {
		t.Fatal("outcome sequences must be non-nil")
	}
	if len(m.Outcomes) != 0 || len(m.OutcomePrices) != 0 {
		t.Fatalf("expected empty outcomes, got %v / %v", m.Outcomes, m.OutcomePrices)
	}
}

func TestParseMarketOutcomeCoercion(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantLabels []string
		wantPrices []string
	}{
		{
			name:       "json encoded strings",
			body:       `{"outcomes":"[\"Yes\",\"No\"]","outcomePrices":"[\"0.42\",\"0.58\"]"}`,
			wantLabels: []string{"Yes", "No"},
			wantPrices: []string{"0.42", "0.58"},
		},
		{
			name:       "native lists with numeric prices",
			body:       `{"outcomes":["Yes","No"],"outcomePrices":[0.1,0.9]}`,
			wantLabels: []string{"Yes", "No"},
			wantPrices: []string{"0.1", "0.9"},
		},
		{
			name:       "malformed prices empty both",
			body:       `{"outcomes":["Yes","No"],"outcomePrices":"[0.1,"}`,
			wantLabels: []string{},
			wantPrices: []string{},
		},
		{
			name:       "trailing garbage after encoded outcomes empties both",
			body:       `{"outcomes":"[\"Yes\",\"No\"]garbage","outcomePrices":"[\"0.4\",\"0.6\"]"}`,
			wantLabels: []string{},
			wantPrices: []string{},
		},
		{
			name:       "malformed outcomes empty both",
			body:       `{"outcomes":{"a":1},"outcomePrices":["0.1","0.9"]}`,
			wantLabels: []string{},
			wantPrices: []string{},
		},
		{
			name:       "length mismatch empties both",
			body:       `{"outcomes":["A","B","C"],"outcomePrices":["0.1","0.9"]}`,
			wantLabels: []string{},
			wantPrices: []string{},
		},
		{
			name:       "prices missing keeps outcomes",
			body:       `{"outcomes":["Yes","No"]}`,
			wantLabels: []string{"Yes", "No"},
			wantPrices: []string{},
		},
	}

	p := NewParser(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := p.ParseMarket(decodeRecord(t, tt.body), "")
			if strings.Join(m.Outcomes, "|") != strings.Join(tt.wantLabels, "|") || len(m.Outcomes) != len(tt.wantLabels) {
				t.Errorf("outcomes = %v, want %v", m.Outcomes, tt.wantLabels)
			}
			if strings.Join(m.OutcomePrices, "|") != strings.Join(tt.wantPrices, "|") || len(m.OutcomePrices) != len(tt.wantPrices) {
				t.Errorf("prices = %v, want %v", m.OutcomePrices, tt.wantPrices)
			}
		})
	}
}

func TestParseMarketNumericFields(t *testing.T) {
	p := NewParser(Options{})
	m := p.ParseMarket(decodeRecord(t, `{
		"volumeNum": 0,
		"volume": "1234.5",
		"volume24hr": "oops",
		"liquidity": -3
	}`), "")

	if m.Volume != 1234.5 {
		t.Errorf("volume = %v, want 1234.5 (falls back to volume)", m.Volume)
	}
	if m.Volume24hr != 0 {
		t.Errorf("volume24hr = %v, want 0", m.Volume24hr)
	}
	if m.Liquidity != 0 {
		t.Errorf("liquidity = %v, want clamp to 0", m.Liquidity)
	}

	m = p.ParseMarket(decodeRecord(t, `{"volumeNum": 99.5, "volume": "1"}`), "")
	if m.Volume != 99.5 {
		t.Errorf("volume = %v, want volumeNum 99.5", m.Volume)
	}
}

func TestParseMarketURL(t *testing.T) {
	p := NewParser(Options{SiteBaseURL: "https://example.com/event/"})

	tests := []struct {
		eventSlug  string
		marketSlug string
		want       string
	}{
		{"ev", "mk", "https://example.com/event/ev/mk"},
		{"ev", "", "https://example.com/event/ev"},
		{"", "mk", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		m := p.ParseMarket(map[string]any{"slug": tt.marketSlug}, tt.eventSlug)
		if m.PolymarketURL != tt.want {
			t.Errorf("url(%q,%q) = %q, want %q", tt.eventSlug, tt.marketSlug, m.PolymarketURL, tt.want)
		}
	}
}

func TestOracleDetection(t *testing.T) {
	const feed = "https://data.chain.link/streams/btc-usd"
	p := NewParser(Options{})

	t.Run("uma bond wins over chainlink description", func(t *testing.T) {
		m := p.ParseMarket(map[string]any{
			"umaBond":     "500",
			"umaReward":   json.Number("5"),
			"resolvedBy":  "0x6a9d222616c90fca5754cd1333cfd9b7fb6a4f74",
			"description": "Resolves using " + feed + ".",
		}, "")
		if m.OracleType != model.OracleUMA {
			t.Fatalf("oracle = %s, want UMA", m.OracleType)
		}
		if m.UMABond == nil || *m.UMABond != 500 {
			t.Fatalf("uma bond = %v", m.UMABond)
		}
		if m.UMAReward == nil || *m.UMAReward != 5 {
			t.Fatalf("uma reward = %v", m.UMAReward)
		}
		want := "https://polygonscan.com/address/0x6A9D222616C90FcA5754cd1333cFD9b7fb6a4F74"
		if m.OracleLink != want {
			t.Fatalf("link = %s, want %s", m.OracleLink, want)
		}
	})

	t.Run("uma bond without resolver", func(t *testing.T) {
		m := p.ParseMarket(map[string]any{"umaBond": 1.0}, "")
		if m.OracleType != model.OracleUMA || m.OracleLink != "" {
			t.Fatalf("got %s %q", m.OracleType, m.OracleLink)
		}
	})

	t.Run("uma non-hex resolver kept verbatim", func(t *testing.T) {
		m := p.ParseMarket(map[string]any{"umaBond": 1.0, "resolvedBy": "uma-adapter"}, "")
		if want := "https://polygonscan.com/address/uma-adapter"; m.OracleLink != want {
			t.Fatalf("link = %q, want %q", m.OracleLink, want)
		}
	})

	t.Run("chainlink with trailing punctuation", func(t *testing.T) {
		m := p.ParseMarket(map[string]any{
			"umaBond":     "not-a-number",
			"description": "Source: " + feed + ". Other text.",
		}, "")
		if m.OracleType != model.OracleChainlink {
			t.Fatalf("oracle = %s, want Chainlink", m.OracleType)
		}
		if m.OracleLink != feed {
			t.Fatalf("link = %q, want %q", m.OracleLink, feed)
		}
		if m.UMABond != nil {
			t.Fatal("invalid bond must stay nil")
		}
	})

	t.Run("unknown", func(t *testing.T) {
		m := p.ParseMarket(map[string]any{"resolvedBy": "0xabc", "description": "no feed"}, "")
		if m.OracleType != model.OracleUnknown || m.OracleLink != "" {
			t.Fatalf("got %s %q", m.OracleType, m.OracleLink)
		}
	})
}

func TestExtractChainlinkURL(t *testing.T) {
	tests := map[string]string{
		"see https://data.chain.link/feeds/eth.":          "https://data.chain.link/feeds/eth",
		"(http://data.chain.link/x/y), more":              "http://data.chain.link/x/y",
		`"https://data.chain.link/a"`:                      "https://data.chain.link/a",
		"https://data.chain.link/ethereum/mainnet/btc-usd": "https://data.chain.link/ethereum/mainnet/btc-usd",
		"https://example.com/data.chain.link":              "",
	}
	for in, want := range tests {
		if got := ExtractChainlinkURL(in); got != want {
			t.Errorf("ExtractChainlinkURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseEventSumsMarkets(t *testing.T) {
	p := NewParser(Options{})
	e := p.ParseEvent(decodeRecord(t, `{
		"id": 42,
		"title": "Election",
		"slug": "election",
		"volume": 999999,
		"active": "true",
		"tags": [
			{"id": "1", "label": "All", "slug": "all"},
			{"id": "2", "label": "Crypto", "slug": "crypto"},
			{"id": "2", "label": "Crypto duplicate", "slug": "crypto"},
			{"id": 3, "label": "Politics", "slug": "politics"},
			"garbage"
		],
		"markets": [
			{"id": "m1", "slug": "a", "volume": "10.0", "volume24hr": 1, "liquidity": 2},
			{"id": "m2", "slug": "b", "volumeNum": 5.0, "volume24hr": "0.5", "liquidity": "1"},
			7
		]
	}`))

	if e.ID != "42" {
		t.Errorf("id = %q, want 42", e.ID)
	}
	if e.Volume != 15.0 {
		t.Errorf("volume = %v, want 15.0", e.Volume)
	}
	if e.Volume24hr != 1.5 || e.Liquidity != 3 {
		t.Errorf("volume24hr=%v liquidity=%v", e.Volume24hr, e.Liquidity)
	}
	if !e.Active {
		t.Error("string \"true\" should coerce to active")
	}
	if len(e.Markets) != 2 {
		t.Fatalf("markets = %d, want 2", len(e.Markets))
	}
	if e.Markets[0].PolymarketURL != "https://polymarket.com/event/election/a" {
		t.Errorf("market url = %s", e.Markets[0].PolymarketURL)
	}
	if len(e.Tags) != 3 {
		t.Fatalf("tags = %d, want 3 after id dedup", len(e.Tags))
	}
	if e.Tags[2].ID != "3" {
		t.Errorf("numeric tag id = %q", e.Tags[2].ID)
	}
	if e.Category != "Politics" {
		t.Errorf("category = %s, want Politics", e.Category)
	}
	if e.PolymarketURL != "https://polymarket.com/event/election" {
		t.Errorf("event url = %s", e.PolymarketURL)
	}
}

func TestParseEventEmpty(t *testing.T) {
	e := NewParser(Options{}).ParseEvent(map[string]any{})
	if e.Volume != 0 || len(e.Markets) != 0 || e.PolymarketURL != "" {
		t.Fatalf("unexpected event: %+v", e)
	}
	if e.Category != Uncategorized {
		t.Fatalf("category = %s", e.Category)
	}
}
