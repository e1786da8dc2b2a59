package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/app"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/common"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/server"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir       = pflag.StringP("dir", "d", "", "directory of .txt tax documents (required)")
		status    = pflag.StringP("status", "s", string(constants.Single), "filing status")
		year      = pflag.IntP("year", "y", 2024, "tax year")
		format    = pflag.StringP("format", "f", string(constants.FormatText), "output format: json, xml, irs_efile, mail_ready, text")
		out       = pflag.StringP("out", "o", "", "write the rendered filing to this file instead of stdout")
		xlsx      = pflag.String("xlsx", "", "also write the filing workbook to this path")
		extractor = pflag.String("extractor", "", "override EXTRACTOR (stub, rules, anthropic, vertex)")
		store     = pflag.String("store", "", "override STORE_DRIVER (memory, sqlite)")
		hidden    = pflag.Bool("include-hidden", false, "ingest hidden files and directories")
	)
	pflag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	filingStatus, ok := constants.CanonicalizeFilingStatus(*status)
	if !ok {
		printError("Error: unknown --status %q\n", *status)
		os.Exit(1)
	}
	outputFormat, ok := constants.CanonicalizeOutputFormat(*format)
	if !ok {
		printError("Error: unknown --format %q, using text\n", *format)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	opts := batchOptions{
		dir:       *dir,
		status:    filingStatus,
		year:      *year,
		format:    outputFormat,
		out:       *out,
		xlsx:      *xlsx,
		extractor: *extractor,
		store:     *store,
		hidden:    *hidden,
	}
	if err := run(context.Background(), logger, opts); err != nil {
		logger.Error("tax-batch failed", "error", err)
		os.Exit(1)
	}
}

type batchOptions struct {
	dir       string
	status    constants.FilingStatus
	year      int
	format    constants.OutputFormat
	out       string
	xlsx      string
	extractor string
	store     string
	hidden    bool
}

// run returns instead of exiting so the application is always closed.
func run(ctx context.Context, logger *slog.Logger, opts batchOptions) error {
	cfg := common.LoadConfig()
	if opts.extractor != "" {
		cfg.Extraction.Adapter = opts.extractor
	}
	if opts.store != "" {
		cfg.Store.Driver = opts.store
	}
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}
	defer a.Close()

	logger.Info("starting ingestion", "dir", opts.dir)
	results, stats, err := a.Ingestor.IngestDirectory(ctx, opts.dir, !opts.hidden)
	if err != nil {
		return fmt.Errorf("ingest directory: %w", err)
	}

	var ids []string
	for _, r := range results {
		if r.Err != "" || r.Deduplicated {
			continue
		}
		ids = append(ids, r.DocumentID)
	}
	logger.Info("ingestion complete", "matched", stats.Matched, "documents", len(ids), "failed", stats.Failed)

	for _, id := range ids {
		doc, err := a.Docs.Get(ctx, id)
		if err != nil {
			continue
		}
		v := a.Processor.Validator.Validate(doc)
		for _, e := range v.Errors {
			logger.Warn("validation.error", "file", doc.Filename, "error", e)
		}
		for _, w := range v.Warnings {
			logger.Info("validation.warning", "file", doc.Filename, "warning", w)
		}
	}

	res, err := a.Processor.GenerateFiling(ctx, ids, opts.status, opts.year, opts.format)
	if err != nil {
		return fmt.Errorf("generate filing: %w", err)
	}

	text := server.FormatFiling(res)
	if opts.out == "" {
		fmt.Print(text)
	} else {
		if err := os.WriteFile(opts.out, []byte(text), 0o644); err != nil {
			return fmt.Errorf("write filing %s: %w", opts.out, err)
		}
		logger.Info("filing written", "path", opts.out)
	}

	if opts.xlsx != "" {
		b, err := a.Exporter.FilingXLSX(ctx, res)
		if err != nil {
			return fmt.Errorf("export workbook: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(opts.xlsx), 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		if err := os.WriteFile(opts.xlsx, b, 0o644); err != nil {
			return fmt.Errorf("write workbook %s: %w", opts.xlsx, err)
		}
		logger.Info("workbook written", "path", opts.xlsx, "bytes", len(b))
	}
	return nil
}
