package paginator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/jsonpagination/pkg/jsonpath"
	"github.com/Sternrassler/jsonpagination/pkg/transport"
)

// OutcomeKind tags a FetchOutcome.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeAuthError
	OutcomeNetworkError
	OutcomeParseError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeAuthError:
		return "auth_error"
	case OutcomeNetworkError:
		return "network_error"
	case OutcomeParseError:
		return "parse_error"
	default:
		return "unknown"
	}
}

// PageResult is one successfully fetched page.
type PageResult struct {
	// Page is the 1-based index that was requested.
	Page int

	// Records are the page's raw JSON values in response order.
	Records []any

	// HasPagination is false when the pagination fields were absent, which
	// is only tolerated in one-page-only mode.
	HasPagination bool

	CurrentPage int
	PerPage     int
	TotalCount  int

	// TotalPages is ceil(TotalCount / PerPage) as observed on this page.
	TotalPages int
}

// FetchOutcome is the result of one page fetch. Exactly one of Result and
// Err is set, depending on Kind.
type FetchOutcome struct {
	Page       int
	Kind       OutcomeKind
	Result     *PageResult
	StatusCode int
	URL        string
	Err        error
}

// Error converts a failed outcome into a *FetchError. It returns nil on success.
func (o FetchOutcome) Error() error {
	if o.Kind == OutcomeSuccess {
		return nil
	}
	return &FetchError{
		Page:       o.Page,
		Kind:       o.Kind,
		StatusCode: o.StatusCode,
		URL:        o.URL,
		Err:        o.Err,
	}
}

// PageFetcher fetches and decodes single pages of a collection.
type PageFetcher struct {
	transport transport.Transport
	config    Config
	baseURL   *url.URL
	logger    zerolog.Logger
}

// NewPageFetcher creates a fetcher for cfg.BaseURL.
func NewPageFetcher(tr transport.Transport, cfg Config, logger zerolog.Logger) (*PageFetcher, error) {
	cfg = cfg.withDefaults()
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %v", ErrInvalidConfig, err)
	}
	return &PageFetcher{
		transport: tr,
		config:    cfg,
		baseURL:   u,
		logger:    logger,
	}, nil
}

// PageURL returns the request URL for page.
func (f *PageFetcher) PageURL(page int) string {
	u := *f.baseURL
	q := u.Query()
	for k, vs := range f.config.Params {
		q.Del(k)
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if f.config.PerPage > 0 {
		q.Set(f.config.PerPageField, strconv.Itoa(f.config.PerPage))
	}
	q.Set(f.config.PageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

// FetchPage fetches page, attaching token as a bearer credential when set.
// It never returns an error directly; failures are reported in the outcome.
func (f *PageFetcher) FetchPage(ctx context.Context, page int, token string) FetchOutcome {
	pageURL := f.PageURL(page)
	out := FetchOutcome{Page: page, URL: pageURL}

	header := http.Header{}
	for k, v := range f.config.Headers {
		header.Set(k, v)
	}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	f.logger.Debug().Int("page", page).Str("url", pageURL).Msg("Fetching page")

	PagesInFlight.Inc()
	start := time.Now()
	defer func() {
		PagesInFlight.Dec()
		PageFetchDuration.Observe(time.Since(start).Seconds())
		PageFetchesTotal.WithLabelValues(out.Kind.String()).Inc()
	}()

	resp, err := f.transport.Do(ctx, &transport.Request{
		Method: http.MethodGet,
		URL:    pageURL,
		Header: header,
	})
	if err != nil {
		out.Kind = OutcomeNetworkError
		out.Err = err
		return out
	}
	out.StatusCode = resp.StatusCode

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		out.Kind = OutcomeAuthError
		out.Err = fmt.Errorf("%w: status %d", ErrAuthenticationFailed, resp.StatusCode)
		return out
	case !transport.IsSuccess(resp.StatusCode):
		out.Kind = OutcomeNetworkError
		out.Err = fmt.Errorf("unexpected status %d", resp.StatusCode)
		return out
	}

	result, err := f.decode(page, resp.Body)
	if err != nil {
		out.Kind = OutcomeParseError
		out.Err = err
		return out
	}

	out.Kind = OutcomeSuccess
	out.Result = result
	return out
}

func (f *PageFetcher) decode(page int, body []byte) (*PageResult, error) {
	doc, err := jsonpath.Parse(body)
	if err != nil {
		return nil, err
	}

	records, err := f.records(doc)
	if err != nil {
		return nil, err
	}

	result := &PageResult{
		Page:       page,
		Records:    records,
		TotalPages: 1,
	}

	totalCount, errTotal := jsonpath.Int(doc, f.config.TotalCountField)
	perPage, errPer := jsonpath.Int(doc, f.config.PerPageField)
	switch {
	case errTotal != nil || errPer != nil:
		if !f.config.DownloadOnePageOnly {
			return nil, fmt.Errorf("%w: %v", ErrPaginationFields, firstErr(errTotal, errPer))
		}
		return result, nil
	case perPage <= 0 || totalCount < 0:
		if !f.config.DownloadOnePageOnly {
			return nil, fmt.Errorf("%w: %s=%d %s=%d", ErrPaginationFields,
				f.config.PerPageField, perPage, f.config.TotalCountField, totalCount)
		}
		return result, nil
	}

	pages := totalCount / perPage
	if totalCount%perPage != 0 {
		pages++
	}
	if pages > MaxTotalPages && !f.config.DownloadOnePageOnly {
		return nil, fmt.Errorf("%w: %s=%d %s=%d gives %d pages, limit is %d", ErrPaginationFields,
			f.config.TotalCountField, totalCount, f.config.PerPageField, perPage, pages, MaxTotalPages)
	}

	result.HasPagination = true
	result.PerPage = perPage
	result.TotalCount = totalCount
	result.TotalPages = pages

	if current, err := jsonpath.Int(doc, f.config.CurrentPageField); err == nil {
		result.CurrentPage = current
		if current != page {
			f.logger.Warn().
				Int("page", page).
				Int("reported_page", current).
				Msg("API reported a different page than requested")
		}
	}

	return result, nil
}

// records extracts the data payload. Arrays yield their elements, an object
// is a single record, and a missing or null payload is an empty page.
func (f *PageFetcher) records(doc any) ([]any, error) {
	v, ok := jsonpath.Get(doc, f.config.DataField)
	if !ok || v == nil {
		return []any{}, nil
	}
	switch data := v.(type) {
	case []any:
		return data, nil
	case map[string]any:
		return []any{data}, nil
	default:
		return nil, fmt.Errorf("data field %q holds %T, want array or object", f.config.DataField, v)
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
