package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"censys-toolkit/internal/api"
	"censys-toolkit/internal/fsutil"
	"censys-toolkit/internal/metrics"
)

type cacheEntry struct {
	StoredAt time.Time       `json:"stored_at"`
	Page     *api.SearchPage `json:"page"`
}

// cachedSearcher keeps successful pages on disk for ttl. Errors are never cached.
type cachedSearcher struct {
	next    Searcher
	dir     string
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func cacheKey(index api.Index, req api.SearchRequest) string {
	var sb strings.Builder
	sb.WriteString(string(index))
	sb.WriteByte('|')
	sb.WriteString(req.Query)
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(req.PerPage))
	sb.WriteByte('|')
	sb.WriteString(req.Cursor)
	sb.WriteByte('|')
	sb.WriteString(strings.Join(req.Fields, ","))
	return fmt.Sprintf("%s-%016x.json", index, xxh3.HashString(sb.String()))
}

func (c *cachedSearcher) Search(ctx context.Context, index api.Index, req api.SearchRequest) (*api.SearchPage, error) {
	path := filepath.Join(c.dir, cacheKey(index, req))

	if page, ok := c.load(path); ok {
		c.metrics.IncCacheHit(string(index))
		c.logger.Debug("cache hit", "index", index, "cursor", req.Cursor)
		return page, nil
	}

	page, err := c.next.Search(ctx, index, req)
	if err != nil {
		return nil, err
	}
	if err := c.store(path, page); err != nil {
		c.logger.Warn("could not write cache entry", "path", path, "error", err)
	}
	return page, nil
}

func (c *cachedSearcher) load(path string) (*api.SearchPage, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug("cache read failed", "path", path, "error", err)
		}
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Page == nil {
		c.logger.Debug("discarding corrupt cache entry", "path", path)
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(entry.StoredAt) > c.ttl {
		return nil, false
	}
	return entry.Page, true
}

func (c *cachedSearcher) store(path string, page *api.SearchPage) error {
	entry := cacheEntry{StoredAt: c.now().UTC(), Page: page}
	return fsutil.WriteAtomic(path, 0o600, func(w io.Writer) error {
		return json.NewEncoder(w).Encode(entry)
	})
}
