package paginator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/jsonpagination/pkg/flatten"
	"github.com/Sternrassler/jsonpagination/pkg/transport"
)

// progressEvery is how often, in merged pages, progress is logged.
const progressEvery = 50

// Option customizes a Paginator.
type Option func(*Paginator)

// WithTransport sets the HTTP capability. The default is a transport.HTTPTransport
// with transport.DefaultConfig.
func WithTransport(tr transport.Transport) Option {
	return func(p *Paginator) {
		p.transport = tr
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Paginator) {
		p.logger = logger
	}
}

// Paginator downloads every page of a collection and merges the records.
type Paginator struct {
	config    Config
	transport transport.Transport
	fetcher   *PageFetcher
	auth      *Authenticator
	logger    zerolog.Logger

	mu         sync.Mutex
	state      State
	results    []any
	totalCount int
	hasTotal   bool
	totalPages int
}

// New creates a paginator for cfg.
func New(cfg Config, opts ...Option) (*Paginator, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Paginator{
		config: cfg,
		logger: log.With().Str("component", "paginator").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.transport == nil {
		tr, err := transport.NewHTTP(transport.DefaultConfig(), p.logger)
		if err != nil {
			return nil, fmt.Errorf("create transport: %w", err)
		}
		p.transport = tr
	}

	fetcher, err := NewPageFetcher(p.transport, cfg, p.logger)
	if err != nil {
		return nil, err
	}
	p.fetcher = fetcher
	p.auth = NewAuthenticator(p.transport, cfg, p.logger)

	return p, nil
}

// State returns the current state.
func (p *Paginator) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Paginator) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Results returns the records of the last successful run, ordered by page
// and in-page offset. It fails with ErrInvalidState unless the state is Done.
func (p *Paginator) Results() ([]any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateDone {
		return nil, fmt.Errorf("%w: results unavailable in state %s", ErrInvalidState, p.state)
	}
	out := make([]any, len(p.results))
	copy(out, p.results)
	return out, nil
}

// TotalCount returns the record total reported on page 1 of the last run.
// ok is false when the API did not report one.
func (p *Paginator) TotalCount() (total int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalCount, p.hasTotal
}

// TotalPages returns the number of pages the last run fetched or planned.
func (p *Paginator) TotalPages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalPages
}

// DownloadAllPages authenticates if configured, fetches page 1 to learn the
// page count, fetches the remaining pages concurrently and merges them in
// page order. Any failure discards the partial results. Errors are
// *LoginError or *FetchError; calling it during a run returns ErrInvalidState.
func (p *Paginator) DownloadAllPages(ctx context.Context) error {
	p.mu.Lock()
	if p.state.Running() {
		state := p.state
		p.mu.Unlock()
		return fmt.Errorf("%w: download already running (%s)", ErrInvalidState, state)
	}
	// Claim the run before unlocking so a concurrent caller sees Running().
	p.state = StateFetchingFirstPage
	if p.needsLogin() {
		p.state = StateAuthenticating
	}
	p.results = nil
	p.totalCount, p.hasTotal, p.totalPages = 0, false, 0
	p.mu.Unlock()

	logger := p.logger.With().Str("run_id", uuid.NewString()).Logger()
	start := time.Now()

	records, err := p.run(ctx, logger)
	if err != nil {
		p.setState(StateFailed)
		RunsTotal.WithLabelValues(StateFailed.String()).Inc()
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Download failed")
		return err
	}

	p.mu.Lock()
	p.results = records
	p.state = StateDone
	totalPages := p.totalPages
	p.mu.Unlock()

	RunsTotal.WithLabelValues(StateDone.String()).Inc()
	RecordsDownloadedTotal.Add(float64(len(records)))
	logger.Info().
		Int("pages", totalPages).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Msg("Download complete")

	return nil
}

func (p *Paginator) needsLogin() bool {
	return p.config.Token == "" && p.config.LoginConfigured()
}

func (p *Paginator) run(ctx context.Context, logger zerolog.Logger) ([]any, error) {
	token := p.config.Token
	if p.needsLogin() {
		t, err := p.auth.Authenticate(ctx, p.config.LoginURL, p.config.Username, p.config.Password)
		if err != nil {
			return nil, err
		}
		token = t
	}

	p.setState(StateFetchingFirstPage)
	first := p.fetcher.FetchPage(ctx, 1, token)
	if err := first.Error(); err != nil {
		return nil, err
	}

	totalPages := first.Result.TotalPages
	if p.config.DownloadOnePageOnly || totalPages < 1 {
		totalPages = 1
	}

	p.mu.Lock()
	p.totalCount, p.hasTotal = first.Result.TotalCount, first.Result.HasPagination
	p.totalPages = totalPages
	p.mu.Unlock()

	logger.Info().
		Int("total_pages", totalPages).
		Int("total_count", first.Result.TotalCount).
		Int("per_page", first.Result.PerPage).
		Msg("Starting page fetch")

	store := NewResultStore()
	store.Reserve(totalPages)
	store.Put(1, first.Result.Records)
	p.reportProgress(store, totalPages, 1, first.Result.Records)

	if totalPages > 1 {
		p.setState(StateFetchingRemaining)
		if err := p.fetchRemaining(ctx, logger, store, token, totalPages); err != nil {
			return nil, err
		}
	}

	p.setState(StateAggregating)
	records := store.Finalize()
	if p.config.Flatten {
		records = flatten.Records(records, p.config.FlattenSeparator)
	}

	if first.Result.HasPagination && !p.config.DownloadOnePageOnly && len(records) != first.Result.TotalCount {
		logger.Warn().
			Int("records", len(records)).
			Int("total_count", first.Result.TotalCount).
			Msg("Record count differs from reported total")
	}

	return records, nil
}

// fetchRemaining dispatches pages 2..totalPages over at most MaxThreads
// concurrent fetches. Outcomes are merged here, in a single goroutine. The
// first failure is latched; fetches already running drain and their
// outcomes are discarded, pages not yet started are skipped.
func (p *Paginator) fetchRemaining(ctx context.Context, logger zerolog.Logger, store *ResultStore, token string, totalPages int) error {
	outcomes := make(chan FetchOutcome, p.config.MaxThreads)
	var failed atomic.Bool

	go func() {
		var g errgroup.Group
		g.SetLimit(p.config.MaxThreads)
		for page := 2; page <= totalPages; page++ {
			if failed.Load() {
				break
			}
			page := page
			g.Go(func() error {
				if failed.Load() {
					return nil
				}
				outcomes <- p.fetcher.FetchPage(ctx, page, token)
				return nil
			})
		}
		g.Wait()
		close(outcomes)
	}()

	var runErr error
	for outcome := range outcomes {
		if runErr != nil {
			OutcomesDiscardedTotal.Inc()
			logger.Debug().
				Int("page", outcome.Page).
				Str("kind", outcome.Kind.String()).
				Msg("Discarding page outcome after failure")
			continue
		}

		if err := outcome.Error(); err != nil {
			runErr = err
			failed.Store(true)
			logger.Error().
				Err(outcome.Err).
				Int("page", outcome.Page).
				Str("kind", outcome.Kind.String()).
				Int("status", outcome.StatusCode).
				Msg("Page fetch failed")
			continue
		}

		if !store.Put(outcome.Page, outcome.Result.Records) {
			logger.Warn().Int("page", outcome.Page).Msg("Page already merged, ignoring duplicate")
			continue
		}
		p.reportProgress(store, totalPages, outcome.Page, outcome.Result.Records)

		if n := store.PagesStored(); n%progressEvery == 0 {
			logger.Info().
				Int("fetched", n).
				Int("total", totalPages).
				Float64("progress_pct", float64(n)/float64(totalPages)*100).
				Msg("Fetch progress")
		}
	}

	return runErr
}

func (p *Paginator) reportProgress(store *ResultStore, totalPages, page int, data []any) {
	if p.config.OnProgress == nil {
		return
	}
	p.config.OnProgress(Progress{
		PagesFetched: store.PagesStored(),
		TotalPages:   totalPages,
		Records:      store.Len(),
		Page:         page,
		Data:         data,
	})
}
