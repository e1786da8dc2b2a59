package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/app"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/common"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/llm"
)

// extract runs the configured extraction adapter on the given files, several
// times if asked, and prints the extracted filing data. Repeated runs show
// whether a live model answers consistently.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var (
		status    = pflag.StringP("status", "s", string(constants.Single), "filing status")
		year      = pflag.IntP("year", "y", 2024, "tax year")
		times     = pflag.IntP("times", "n", 1, "number of extraction runs")
		extractor = pflag.String("extractor", "", "override EXTRACTOR (stub, rules, anthropic, vertex)")
		raw       = pflag.Bool("raw", false, "print the normalized JSON the adapter returned")
	)
	pflag.Parse()

	if pflag.NArg() == 0 {
		logger.Error("usage: extract [flags] <file.txt>...")
		os.Exit(2)
	}

	var docs []llm.SourceDocument
	for _, path := range pflag.Args() {
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Error("read document", "path", path, "error", err)
			os.Exit(1)
		}
		docs = append(docs, llm.SourceDocument{
			Filename: filepath.Base(path),
			Type:     constants.DocumentTypeFromFilename(path),
			Content:  string(content),
		})
	}

	filingStatus, _ := constants.CanonicalizeFilingStatus(*status)
	req := llm.ExtractRequest{Documents: docs, FilingStatus: filingStatus, TaxYear: *year}

	failures, err := run(context.Background(), logger, req, *extractor, *times, *raw)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	logger.Info("done", "times", *times, "failures", failures)
	if failures > 0 {
		os.Exit(1)
	}
}

// run builds the application, extracts times times and reports how many
// runs failed. The application is closed before it returns.
func run(ctx context.Context, logger *slog.Logger, req llm.ExtractRequest, adapter string, times int, raw bool) (int, error) {
	cfg := common.LoadConfig()
	if adapter != "" {
		cfg.Extraction.Adapter = adapter
	}
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return 0, err
	}
	defer a.Close()

	failures := 0
	for i := 1; i <= times; i++ {
		runCtx, cancel := context.WithTimeout(ctx, cfg.Extraction.Timeout)
		start := time.Now()
		logger.Info("extract.run.start", "iter", i, "documents", len(req.Documents), "adapter", cfg.Extraction.Adapter)

		data, payload, err := a.Extractor.Extract(runCtx, req)
		cancel()
		if err != nil {
			failures++
			logger.Error("extract.run.error", "iter", i, "error", err)
			continue
		}
		logger.Info("extract.run.ok", "iter", i,
			"total_income", data.Income.TotalIncome,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)

		if raw {
			fmt.Println(string(payload))
			continue
		}
		out, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(out))
	}
	return failures, nil
}
