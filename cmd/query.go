package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"censys-toolkit/internal/api"
	"censys-toolkit/internal/collector"
	"censys-toolkit/internal/model"
)

var (
	queryIndex    string
	queryPages    int
	queryPageSize int
	queryFields   []string
)

var queryCmd = &cobra.Command{
	Use:   "query <censys-query>",
	Short: "Run a raw Censys search query and print hits as JSON lines",
	Long: `Run a raw query against the hosts or certificates index.
Each hit is printed as one JSON object per line.

Examples:
  censys-toolkit query 'dns.names: example.com' --index hosts --pages 2
  censys-toolkit query 'names: example.com' --index certificates --fields names,added_at`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer s.Close()

		client, err := newClient(s.cfg)
		if err != nil {
			return err
		}
		req := api.SearchRequest{Query: args[0], PerPage: queryPageSize, Fields: queryFields}
		return runQuery(cmd.Context(), client, api.Index(queryIndex), req, queryPages, s.cfg.MaxRetries, s.logger, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVar(&queryIndex, "index", string(api.IndexHosts), "Index to search: hosts or certificates")
	queryCmd.Flags().IntVar(&queryPages, "pages", 1, "Pages to fetch, -1 for all")
	queryCmd.Flags().IntVar(&queryPageSize, "page-size", 50, "Results per page, 1-100")
	queryCmd.Flags().StringSliceVar(&queryFields, "fields", nil, "Fields to return, comma separated")
}

func runQuery(ctx context.Context, s collector.Searcher, index api.Index, req api.SearchRequest, pages, maxRetries int, logger *slog.Logger, out io.Writer) error {
	if index != api.IndexHosts && index != api.IndexCertificates {
		return &model.ConfigurationError{Setting: "index", Value: string(index), Reason: "choose hosts or certificates"}
	}
	if strings.TrimSpace(req.Query) == "" {
		return &model.ConfigurationError{Setting: "query", Reason: "must not be empty"}
	}
	if req.PerPage < 1 || req.PerPage > model.MaxPageSize {
		return &model.ConfigurationError{Setting: "page size", Value: fmt.Sprint(req.PerPage), Reason: "must be between 1 and 100"}
	}
	if pages != model.UnboundedPages && pages < 1 {
		return &model.ConfigurationError{Setting: "pages", Value: fmt.Sprint(pages), Reason: "use -1 for all pages or a positive count"}
	}

	retrier := &collector.Retrier{
		Index:      index,
		MaxRetries: maxRetries,
		OnBackoff: func(retry int, wait time.Duration, err error) {
			logger.Warn("transient error, backing off", "retry", retry, "wait", wait, "error", err)
		},
	}

	w := bufio.NewWriter(out)
	defer w.Flush()

	var line bytes.Buffer
	hits := 0
	for page := 1; pages == model.UnboundedPages || page <= pages; page++ {
		var result *api.SearchPage
		err := retrier.Do(ctx, func(ctx context.Context) error {
			var err error
			result, err = s.Search(ctx, index, req)
			return err
		})
		if err != nil {
			return err
		}
		for _, hit := range result.Hits {
			line.Reset()
			if err := json.Compact(&line, hit); err != nil {
				logger.Warn("skipping malformed hit", "error", err)
				continue
			}
			line.WriteByte('\n')
			if _, err := w.Write(line.Bytes()); err != nil {
				return err
			}
		}
		hits += len(result.Hits)
		logger.Info("page fetched", "index", index, "page", page, "hits", len(result.Hits), "total", result.Total)

		if len(result.Hits) == 0 || result.Next == "" || result.Next == req.Cursor {
			break
		}
		req.Cursor = result.Next
	}
	logger.Debug("query finished", "hits", hits)
	return w.Flush()
}
