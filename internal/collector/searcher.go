package collector

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"censys-toolkit/internal/api"
	"censys-toolkit/internal/metrics"
)

// Searcher fetches one page of an index. *api.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, index api.Index, req api.SearchRequest) (*api.SearchPage, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, index api.Index, req api.SearchRequest) (*api.SearchPage, error)

func (f SearcherFunc) Search(ctx context.Context, index api.Index, req api.SearchRequest) (*api.SearchPage, error) {
	return f(ctx, index, req)
}

// limitedSearcher paces requests and records their outcome.
type limitedSearcher struct {
	next    Searcher
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func newLimitedSearcher(next Searcher, perSecond float64, m *metrics.Metrics, logger *slog.Logger) *limitedSearcher {
	var limiter *rate.Limiter
	if perSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return &limitedSearcher{next: next, limiter: limiter, metrics: m, logger: logger}
}

func (s *limitedSearcher) Search(ctx context.Context, index api.Index, req api.SearchRequest) (*api.SearchPage, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
	}

	start := time.Now()
	page, err := s.next.Search(ctx, index, req)
	elapsed := time.Since(start)
	s.metrics.ObserveRequest(string(index), outcome(err), elapsed)
	s.logger.Debug("search request",
		"index", index,
		"cursor", req.Cursor,
		"duration", elapsed,
		"outcome", outcome(err),
	)
	return page, err
}

func outcome(err error) string {
	var (
		authErr *api.AuthenticationError
		reqErr  *api.RequestError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &reqErr):
		return "rejected"
	case api.IsRetryable(err):
		return "transient"
	}
	return "error"
}
