package normalize

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"polymarket-scraper/internal/model"
)

const (
	defaultSiteBaseURL     = "https://polymarket.com/event"
	defaultExplorerBaseURL = "https://polygonscan.com/address"
)

var chainlinkFeedPattern = regexp.MustCompile(`https?://data\.chain\.link/[^\s,)"]+`)

// Options configure link construction.
type Options struct {
	SiteBaseURL     string
	ExplorerBaseURL string
}

// Parser turns raw Gamma API records into model entities. Its methods are
// pure and never fail: fields that cannot be coerced fall back to their
// zero value.
type Parser struct {
	siteBase     string
	explorerBase string
}

// NewParser constructs a Parser, filling unset options with defaults.
func NewParser(opts Options) *Parser {
	site := strings.TrimRight(opts.SiteBaseURL, "/")
	if site == "" {
		site = defaultSiteBaseURL
	}
	explorer := strings.TrimRight(opts.ExplorerBaseURL, "/")
	if explorer == "" {
		explorer = defaultExplorerBaseURL
	}
	return &Parser{siteBase: site, explorerBase: explorer}
}

// ParseMarket converts one raw market record.
func (p *Parser) ParseMarket(raw map[string]any, eventSlug string) model.Market {
	slug := stringField(raw, "slug")
	description := stringField(raw, "description")
	resolvedBy := strings.TrimSpace(stringField(raw, "resolvedBy"))

	outcomes, prices := outcomeFields(raw)

	volume, ok := ToFloat(raw["volumeNum"])
	if !ok || volume == 0 {
		volume = floatField(raw, "volume")
	}

	liquidity := floatField(raw, "liquidity")
	if liquidity < 0 {
		liquidity = 0
	}

	m := model.Market{
		ID:            stringField(raw, "id"),
		Question:      stringField(raw, "question"),
		Slug:          slug,
		Outcomes:      outcomes,
		OutcomePrices: prices,
		Volume:        volume,
		Volume24hr:    floatField(raw, "volume24hr"),
		Liquidity:     liquidity,
		Active:        boolField(raw, "active"),
		Closed:        boolField(raw, "closed"),
		EndDate:       stringField(raw, "endDate"),
		CreatedAt:     stringField(raw, "createdAt"),
		Description:   description,
		ResolvedBy:    resolvedBy,
		UMABond:       optionalFloat(raw, "umaBond"),
		UMAReward:     optionalFloat(raw, "umaReward"),
		PolymarketURL: p.marketURL(eventSlug, slug),
	}

	m.OracleType, m.OracleLink = p.detectOracle(m.UMABond != nil, resolvedBy, description)
	return m
}

// ParseEvent converts one raw event record including its tags and markets.
func (p *Parser) ParseEvent(raw map[string]any) model.Event {
	slug := stringField(raw, "slug")
	tags := parseTags(raw["tags"])

	rawMarkets, _ := raw["markets"].([]any)
	markets := make([]model.Market, 0, len(rawMarkets))
	for _, item := range rawMarkets {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		markets = append(markets, p.ParseMarket(rec, slug))
	}

	e := model.Event{
		ID:          stringField(raw, "id"),
		Title:       stringField(raw, "title"),
		Slug:        slug,
		Active:      boolField(raw, "active"),
		Closed:      boolField(raw, "closed"),
		Tags:        tags,
		Markets:     markets,
		Category:    DetermineCategory(tags),
		StartDate:   stringField(raw, "startDate"),
		EndDate:     stringField(raw, "endDate"),
		Description: stringField(raw, "description"),
		CreatedAt:   stringField(raw, "createdAt"),
	}
	if slug != "" {
		e.PolymarketURL = p.siteBase + "/" + slug
	}

	// Upstream event-level aggregates are ignored; the sums are authoritative.
	for _, m := range markets {
		e.Volume += m.Volume
		e.Volume24hr += m.Volume24hr
		e.Liquidity += m.Liquidity
	}
	return e
}

func (p *Parser) marketURL(eventSlug, marketSlug string) string {
	switch {
	case eventSlug != "" && marketSlug != "":
		return p.siteBase + "/" + eventSlug + "/" + marketSlug
	case eventSlug != "":
		return p.siteBase + "/" + eventSlug
	default:
		return ""
	}
}

func (p *Parser) detectOracle(hasBond bool, resolvedBy, description string) (model.OracleType, string) {
	if hasBond {
		return model.OracleUMA, p.explorerLink(resolvedBy)
	}
	if link := ExtractChainlinkURL(description); link != "" {
		return model.OracleChainlink, link
	}
	return model.OracleUnknown, ""
}

func (p *Parser) explorerLink(address string) string {
	if address == "" {
		return ""
	}
	if common.IsHexAddress(address) {
		address = common.HexToAddress(address).Hex()
	}
	return p.explorerBase + "/" + address
}

// ExtractChainlinkURL returns the first Chainlink data-feed URL in text with
// trailing punctuation removed, or "".
func ExtractChainlinkURL(text string) string {
	match := chainlinkFeedPattern.FindString(text)
	return strings.TrimRight(match, ".,;:!?'")
}

// outcomeFields keeps outcomes and prices aligned: a malformed value or a
// length mismatch empties both.
func outcomeFields(raw map[string]any) ([]string, []string) {
	outcomes, outcomesOK := sliceField(raw, "outcomes")
	prices, pricesOK := sliceField(raw, "outcomePrices")

	if !outcomesOK || !pricesOK {
		return []string{}, []string{}
	}
	if len(outcomes) > 0 && len(prices) > 0 && len(outcomes) != len(prices) {
		return []string{}, []string{}
	}
	return outcomes, prices
}

func parseTags(v any) []model.Tag {
	items, _ := v.([]any)
	tags := make([]model.Tag, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		tag := model.Tag{
			ID:    stringField(rec, "id"),
			Label: stringField(rec, "label"),
			Slug:  stringField(rec, "slug"),
		}
		if tag.ID != "" {
			if _, dup := seen[tag.ID]; dup {
				continue
			}
			seen[tag.ID] = struct{}{}
		}
		tags = append(tags, tag)
	}
	return tags
}
