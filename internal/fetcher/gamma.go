package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"polymarket-scraper/internal/model"
	"polymarket-scraper/internal/normalize"
)

const (
	eventsPath = "/events"
	tagsPath   = "/tags"

	defaultPageLimit   = 100
	defaultMaxPages    = 50
	defaultMaxAttempts = 3
	defaultTimeout     = 15 * time.Second
	defaultBackoffBase = time.Second
	defaultUserAgent   = "PolymarketScraper/1.0"
)

// ErrInvalidBaseURL is returned by New for an unusable API root.
var ErrInvalidBaseURL = errors.New("fetcher: invalid base url")

// Options parameterise pagination and retry behaviour.
type Options struct {
	BaseURL      string
	UserAgent    string
	PageLimit    int
	MaxPages     int
	MaxAttempts  int
	RequestDelay time.Duration
	Timeout      time.Duration
	// BackoffBase is multiplied by 2^attempt between retries.
	BackoffBase time.Duration
}

func (o Options) withDefaults() Options {
	if o.PageLimit <= 0 {
		o.PageLimit = defaultPageLimit
	}
	if o.MaxPages <= 0 {
		o.MaxPages = defaultMaxPages
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.RequestDelay < 0 {
		o.RequestDelay = 0
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = defaultBackoffBase
	}
	if strings.TrimSpace(o.UserAgent) == "" {
		o.UserAgent = defaultUserAgent
	}
	return o
}

// Fetcher pages through the Gamma API. Page failures never surface as
// errors: pagination stops and the records gathered so far are returned.
type Fetcher struct {
	opts    Options
	baseURL string
	client  *resty.Client
	logger  zerolog.Logger
}

// New validates the base URL and constructs a Fetcher.
func New(opts Options, logger zerolog.Logger) (*Fetcher, error) {
	base, err := validateBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", opts.UserAgent)

	return &Fetcher{
		opts:    opts,
		baseURL: base,
		client:  client,
		logger:  logger.With().Str("component", "gamma_fetcher").Logger(),
	}, nil
}

func validateBaseURL(raw string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidBaseURL)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidBaseURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidBaseURL)
	}
	return trimmed, nil
}

// FetchEvents pages through active, open events ordered by 24h volume.
func (f *Fetcher) FetchEvents(ctx context.Context) []Record {
	filter := url.Values{}
	filter.Set("active", "true")
	filter.Set("closed", "false")
	filter.Set("order", "volume24hr")
	filter.Set("ascending", "false")
	return f.FetchAll(ctx, eventsPath, filter)
}

// FetchAll requests resource page by page until a short page, MaxPages, or
// the first page that cannot be retrieved.
func (f *Fetcher) FetchAll(ctx context.Context, resource string, filter url.Values) []Record {
	records := make([]Record, 0)
	limit := f.opts.PageLimit

	for page := 0; page < f.opts.MaxPages; page++ {
		params := url.Values{}
		for k, vs := range filter {
			params[k] = append([]string(nil), vs...)
		}
		params.Set("limit", strconv.Itoa(limit))
		params.Set("offset", strconv.Itoa(page*limit))

		body, err := f.get(ctx, resource, params)
		if err != nil {
			f.logger.Error().Err(err).Int("page", page).Int("records", len(records)).
				Msg("page fetch failed; returning partial result")
			break
		}

		batch, size, err := decodeRecords(body)
		if err != nil {
			f.logger.Error().Err(err).Int("page", page).Int("records", len(records)).
				Msg("malformed page body; returning partial result")
			break
		}
		records = append(records, batch...)

		if size < limit {
			break
		}
		if page < f.opts.MaxPages-1 && f.opts.RequestDelay > 0 {
			if err := sleep(ctx, f.opts.RequestDelay); err != nil {
				f.logger.Warn().Err(err).Int("page", page).Msg("pagination interrupted")
				break
			}
		}
	}

	f.logger.Debug().Str("resource", resource).Int("records", len(records)).Msg("pagination finished")
	return records
}

// FetchTags lists every tag exposed by the API.
func (f *Fetcher) FetchTags(ctx context.Context) ([]model.Tag, error) {
	body, err := f.get(ctx, tagsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch tags: %w", err)
	}
	items, _, err := decodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}

	tags := make([]model.Tag, 0, len(items))
	for _, item := range items {
		id, _ := normalize.ToString(item["id"])
		label, _ := normalize.ToString(item["label"])
		slug, _ := normalize.ToString(item["slug"])
		tags = append(tags, model.Tag{ID: id, Label: label, Slug: slug})
	}
	return tags, nil
}

// get performs one logical GET with retries on rate limiting, server errors
// and transport failures.
func (f *Fetcher) get(ctx context.Context, resource string, params url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < f.opts.MaxAttempts; attempt++ {
		body, err := f.doRequest(ctx, resource, params)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isRetryable(err) {
			return nil, err
		}
		if attempt == f.opts.MaxAttempts-1 {
			break
		}

		wait := f.backoff(attempt)
		f.logger.Warn().Err(err).Int("attempt", attempt+1).Dur("backoff", wait).
			Str("resource", resource).Msg("retrying request")
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("max attempts exceeded: %w", lastErr)
}

func (f *Fetcher) doRequest(ctx context.Context, resource string, params url.Values) ([]byte, error) {
	req := f.client.R().SetContext(ctx)
	if len(params) > 0 {
		req.SetQueryParamsFromValues(params)
	}

	resp, err := req.Get(f.baseURL + resource)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return nil, &APIError{StatusCode: code, Body: resp.Body()}
	}
	return resp.Body(), nil
}

func (f *Fetcher) backoff(attempt int) time.Duration {
	return f.opts.BackoffBase * time.Duration(1<<attempt)
}

// decodeRecords expects a JSON array. Non-object elements are skipped but
// still count towards the page size.
func decodeRecords(body []byte) ([]Record, int, error) {
	var items []any
	if err := normalize.DecodeJSON(body, &items); err != nil {
		return nil, 0, fmt.Errorf("decode page: %w", err)
	}

	records := make([]Record, 0, len(items))
	for _, item := range items {
		if rec, ok := item.(map[string]any); ok {
			records = append(records, rec)
		}
	}
	return records, len(items), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
