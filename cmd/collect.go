package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"censys-toolkit/internal/api"
	"censys-toolkit/internal/collector"
	"censys-toolkit/internal/config"
	"censys-toolkit/internal/formatter"
	"censys-toolkit/internal/fsutil"
	"censys-toolkit/internal/masterlist"
	"censys-toolkit/internal/metrics"
	"censys-toolkit/internal/model"
	"censys-toolkit/internal/processor"
)

type collectOptions struct {
	Domain            string
	DataType          string
	Days              string
	PageSize          int
	MaxPages          int
	Output            string
	Format            string
	CollapseWildcards bool
	Master            string
	Mode              string
	MetricsAddr       string
	SummaryLimit      int
	Quiet             bool
}

var collectOpts collectOptions

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect domains for a target from DNS and certificate data",
	Example: `  censys-toolkit collect --domain example.com
  censys-toolkit collect --domain example.com --data-type certificate --days 7 --format text -o certs.txt
  censys-toolkit collect --domain example.com --master master.txt --mode append`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer s.Close()

		opts := collectOpts
		opts.Quiet = flagQuiet
		applyCollectDefaults(cmd, &opts, s.cfg)
		return runCollect(cmd.Context(), s.cfg, opts, s.logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.AddCommand(collectCmd)
	f := collectCmd.Flags()
	f.StringVarP(&collectOpts.Domain, "domain", "d", "", "Target domain, e.g. example.com (required)")
	f.StringVarP(&collectOpts.DataType, "data-type", "t", "both", "Data to collect: dns, certificate or both")
	f.StringVar(&collectOpts.Days, "days", "all", "Only keep records seen in the last 1, 3 or 7 days, or all (default DATA_AGE)")
	f.IntVar(&collectOpts.PageSize, "page-size", 50, "Results per page, 1-100 (default DEFAULT_PAGE_SIZE)")
	f.IntVar(&collectOpts.MaxPages, "max-pages", -1, "Pages per index, -1 for all (default MAX_PAGES)")
	f.StringVarP(&collectOpts.Output, "output", "o", "", "Output file; relative paths go under OUTPUT_DIR, '-' writes to stdout")
	f.StringVarP(&collectOpts.Format, "format", "f", "json", "Output format: json or text (default OUTPUT_FORMAT)")
	f.BoolVar(&collectOpts.CollapseWildcards, "collapse-wildcards", false, "Fold *.name into name")
	f.StringVar(&collectOpts.Master, "master", "", "Also merge the results into this master list")
	f.StringVar(&collectOpts.Mode, "mode", "update", "Master list mode: update, append or replace")
	f.StringVar(&collectOpts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while collecting, e.g. :9090")
	f.IntVar(&collectOpts.SummaryLimit, "show", 10, "Domains listed in the console summary")
	_ = collectCmd.MarkFlagRequired("domain")
}

// applyCollectDefaults fills flags the user did not set from configuration.
func applyCollectDefaults(cmd *cobra.Command, opts *collectOptions, cfg config.Config) {
	flags := cmd.Flags()
	if !flags.Changed("page-size") {
		opts.PageSize = cfg.PageSize
	}
	if !flags.Changed("max-pages") {
		opts.MaxPages = cfg.MaxPages
	}
	if !flags.Changed("days") {
		opts.Days = cfg.DataAge.String()
	}
	if !flags.Changed("format") {
		opts.Format = string(cfg.OutputFormat)
	}
}

func runCollect(ctx context.Context, cfg config.Config, opts collectOptions, logger *slog.Logger, out, errOut io.Writer) error {
	// Everything that can be rejected locally is checked before the first request.
	dataType, err := model.ParseDataType(opts.DataType)
	if err != nil {
		return err
	}
	freshness, err := model.ParseFreshness(opts.Days)
	if err != nil {
		return err
	}
	kind, err := formatter.ParseKind(opts.Format)
	if err != nil {
		return err
	}
	var mode masterlist.Mode
	if opts.Master != "" {
		if mode, err = masterlist.ParseMode(opts.Mode); err != nil {
			return err
		}
	}
	query, err := model.NewCollectionQuery(opts.Domain, dataType, freshness, opts.PageSize, opts.MaxPages)
	if err != nil {
		return err
	}
	outputPath := resolveOutput(opts.Output, cfg.OutputDir, query, kind, time.Now())

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	if err := client.ValidateCredentials(ctx); err != nil {
		var authErr *api.AuthenticationError
		if errors.As(err, &authErr) || errors.Is(err, context.Canceled) {
			return err
		}
		logger.Warn("could not verify credentials; continuing", "error", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	coll := collector.New(client, collector.Options{
		MaxRetries: cfg.MaxRetries,
		RateLimit:  cfg.RateLimit,
		CacheDir:   cfg.CacheDir,
		CacheTTL:   cfg.CacheTTL,
		Logger:     logger,
		Metrics:    m,
		OnPage: func(p collector.Page) {
			logger.Info("page fetched", "index", p.Index, "page", p.Number, "records", len(p.Records), "total_hits", p.Total)
		},
	})
	pager, err := coll.Collect(query)
	if err != nil {
		return err
	}

	logger.Info("collecting", "domain", query.Domain, "data_type", query.DataType, "days", query.Freshness, "page_size", query.PageSize, "max_pages", query.MaxPages)
	var records []model.DomainRecord
	g, gctx := errgroup.WithContext(ctx)
	pipelineCtx, stopPipeline := context.WithCancel(gctx)
	defer stopPipeline()
	if opts.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.Serve(pipelineCtx, opts.MetricsAddr, reg, logger)
		})
	}
	g.Go(func() error {
		defer stopPipeline()
		var err error
		records, err = collector.Drain(pipelineCtx, pager)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	result := processor.Dedup(query, records, processor.Options{CollapseWildcards: opts.CollapseWildcards})
	logger.Info("collection finished",
		"pages", pager.Pages(),
		"raw_records", len(records),
		"skipped", pager.Skipped(),
		"unique", result.Stats.Total,
		"out_of_scope", result.Stats.OutOfScope,
		"stale", result.Stats.Stale,
	)

	summaryOut := out
	if outputPath == "-" {
		if err := formatter.Format(out, result, kind); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		summaryOut = errOut
	} else {
		err := fsutil.WriteAtomic(outputPath, 0o644, func(w io.Writer) error {
			return formatter.Format(w, result, kind)
		})
		if err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	if !opts.Quiet {
		formatter.Summary(summaryOut, result, opts.SummaryLimit)
		if outputPath != "-" {
			fmt.Fprintf(summaryOut, "\n%s %s\n", color.GreenString("Results saved to"), outputPath)
		}
	}

	if opts.Master != "" {
		res, err := masterlist.New(masterlist.Options{Logger: logger}).Update(opts.Master, result.Names(), mode)
		if err != nil {
			return err
		}
		if !opts.Quiet {
			fmt.Fprintf(summaryOut, "%s %s (%s): %d added, %d total\n",
				color.GreenString("Master list updated:"), opts.Master, mode, res.Added, res.Total)
		}
	}
	return nil
}

var unsafeFilename = regexp.MustCompile(`[\\/:*?"<>|]`)

// sanitizeFilename replaces characters that are unsafe in file names.
func sanitizeFilename(name string) string {
	safe := unsafeFilename.ReplaceAllString(name, "_")
	safe = strings.Trim(safe, " .")
	if safe == "" {
		return "censys_result"
	}
	return safe
}

// resolveOutput picks the output path. An empty flag generates a name from
// the query; relative paths are placed under outputDir when it is set.
func resolveOutput(output, outputDir string, q model.CollectionQuery, kind formatter.Kind, now time.Time) string {
	if output == "-" {
		return output
	}
	if output == "" {
		ext := ".json"
		if kind == formatter.KindText {
			ext = ".txt"
		}
		domain := strings.ReplaceAll(q.Domain, ".", "_")
		output = sanitizeFilename(fmt.Sprintf("censys_%s_%s_%s", domain, q.DataType, now.UTC().Format("20060102_150405"))) + ext
	}
	if outputDir != "" && !filepath.IsAbs(output) {
		return filepath.Join(outputDir, output)
	}
	return output
}
