// Package collector pages through the Censys hosts and certificates indexes
// and turns hits into domain records.
package collector

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"censys-toolkit/internal/api"
	"censys-toolkit/internal/logging"
	"censys-toolkit/internal/metrics"
	"censys-toolkit/internal/model"
)

// ErrDone is returned by Pager.Next once every stream is exhausted.
var ErrDone = errors.New("collector: no more pages")

type Options struct {
	MaxRetries int
	Backoff    BackoffFunc
	// RateLimit is the request ceiling per second; zero disables pacing.
	RateLimit float64
	// CacheDir enables the on-disk page cache when set.
	CacheDir string
	CacheTTL time.Duration
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Now      func() time.Time
	// OnPage is called after every fetched page.
	OnPage func(Page)
}

type Collector struct {
	searcher Searcher
	opts     Options
	logger   *slog.Logger
}

// New wraps s with pacing, instrumentation and, when configured, the page cache.
func New(s Searcher, opts Options) *Collector {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Backoff == nil {
		opts.Backoff = DefaultBackoff
	}
	logger := logging.OrDiscard(opts.Logger).With("component", "collector")

	var searcher Searcher = newLimitedSearcher(s, opts.RateLimit, opts.Metrics, logger)
	if opts.CacheDir != "" {
		searcher = &cachedSearcher{
			next:    searcher,
			dir:     opts.CacheDir,
			ttl:     opts.CacheTTL,
			now:     opts.Now,
			metrics: opts.Metrics,
			logger:  logger,
		}
	}
	return &Collector{searcher: searcher, opts: opts, logger: logger}
}

// Page is one fetched page after extraction.
type Page struct {
	Index   api.Index
	Number  int
	Records []model.DomainRecord
	Skipped int
	Total   int
}

type stream struct {
	index  api.Index
	query  string
	fields []string
}

// Pager walks the streams of one query, hosts before certificates.
type Pager struct {
	c       *Collector
	query   model.CollectionQuery
	streams []stream

	cur    int
	cursor string
	number int
	err    error

	pages   int
	skipped int
}

// Collect validates q and returns a pager over its result pages. No request is made yet.
func (c *Collector) Collect(q model.CollectionQuery) (*Pager, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	cutoff := q.Freshness.Cutoff(c.opts.Now())

	var streams []stream
	if q.DataType.IncludesDNS() {
		query, fields := api.BuildDNSQuery(q.Domain, cutoff)
		streams = append(streams, stream{index: api.IndexHosts, query: query, fields: fields})
	}
	if q.DataType.IncludesCertificates() {
		query, fields := api.BuildCertificateQuery(q.Domain, cutoff)
		streams = append(streams, stream{index: api.IndexCertificates, query: query, fields: fields})
	}
	return &Pager{c: c, query: q, streams: streams}, nil
}

// Next fetches the next page. It returns ErrDone when all streams are
// exhausted; any other error is terminal and repeated on later calls.
func (p *Pager) Next(ctx context.Context) (Page, error) {
	if p.err != nil {
		return Page{}, p.err
	}
	for p.cur < len(p.streams) {
		s := p.streams[p.cur]
		if p.query.MaxPages != model.UnboundedPages && p.number >= p.query.MaxPages {
			p.c.logger.Info("page limit reached", "index", s.index, "pages", p.number)
			p.advance()
			continue
		}

		page, err := p.fetch(ctx, s)
		if err != nil {
			p.err = err
			return Page{}, err
		}
		p.number++
		p.pages++

		out := Page{Index: s.index, Number: p.number, Total: page.Total}
		switch s.index {
		case api.IndexHosts:
			out.Records, out.Skipped = extractHosts(page.Hits, p.c.logger)
		case api.IndexCertificates:
			out.Records, out.Skipped = extractCertificates(page.Hits, p.c.logger)
		}
		p.skipped += out.Skipped
		p.record(out)

		switch {
		case len(page.Hits) == 0, page.Next == "":
			p.advance()
		case page.Next == p.cursor:
			p.c.logger.Warn("service repeated a cursor; stopping stream", "index", s.index, "page", p.number)
			p.advance()
		default:
			p.cursor = page.Next
		}

		if p.c.opts.OnPage != nil {
			p.c.opts.OnPage(out)
		}
		return out, nil
	}
	return Page{}, ErrDone
}

func (p *Pager) fetch(ctx context.Context, s stream) (*api.SearchPage, error) {
	req := api.SearchRequest{
		Query:   s.query,
		PerPage: p.query.PageSize,
		Cursor:  p.cursor,
		Fields:  s.fields,
	}

	retrier := &Retrier{
		Index:      s.index,
		MaxRetries: p.c.opts.MaxRetries,
		Backoff:    p.c.opts.Backoff,
		OnBackoff: func(retry int, wait time.Duration, err error) {
			p.c.opts.Metrics.IncRetry(string(s.index))
			p.c.logger.Warn("transient error, backing off",
				"index", s.index,
				"page", p.number+1,
				"retry", retry,
				"wait", wait,
				"error", err,
			)
		},
	}

	var page *api.SearchPage
	err := retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		page, err = p.c.searcher.Search(ctx, s.index, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (p *Pager) record(page Page) {
	counts := make(map[model.Source]int)
	for _, rec := range page.Records {
		counts[rec.Sources]++
	}
	for src, n := range counts {
		p.c.opts.Metrics.AddRecords(src.String(), n)
	}
	p.c.opts.Metrics.AddSkipped(string(page.Index), page.Skipped)
	p.c.logger.Debug("page collected",
		"index", page.Index,
		"page", page.Number,
		"records", len(page.Records),
		"skipped", page.Skipped,
		"total", page.Total,
	)
}

func (p *Pager) advance() {
	p.cur++
	p.cursor = ""
	p.number = 0
}

// Pages is the number of pages fetched so far across all streams.
func (p *Pager) Pages() int { return p.pages }

// Skipped is the number of names dropped during extraction so far.
func (p *Pager) Skipped() int { return p.skipped }

// Drain fetches every remaining page and returns the concatenated records.
// Records already fetched are returned alongside an error.
func Drain(ctx context.Context, p *Pager) ([]model.DomainRecord, error) {
	var records []model.DomainRecord
	for {
		page, err := p.Next(ctx)
		if errors.Is(err, ErrDone) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, page.Records...)
	}
}
