package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/graceskyliz/ocr3/internal/app"
	"github.com/graceskyliz/ocr3/internal/common"
	"github.com/graceskyliz/ocr3/internal/core"
	"github.com/graceskyliz/ocr3/internal/core/async"
	"github.com/graceskyliz/ocr3/internal/export"
	"github.com/graceskyliz/ocr3/internal/ingest"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		printError("Error: loading .env: %v\n", err)
		os.Exit(1)
	}
	cfg := common.LoadConfig()

	flags := ff.NewFlagSet("ocr3-batch")
	var (
		dir      = flags.StringLong("dir", "", "directory to ingest documents from (required)")
		tenant   = flags.StringLong("tenant", "local", "tenant the documents belong to")
		out      = flags.StringLong("out", "", "output XLSX file path (optional, defaults to parent directory)")
		fromStr  = flags.StringLong("from", "", "export from issue date YYYY-MM-DD")
		toStr    = flags.StringLong("to", "", "export to issue date YYYY-MM-DD")
		inmem    = flags.BoolLong("inmem", "use a throwaway SQLite database")
		watch    = flags.BoolLong("watch", "keep watching --dir and process new files until interrupted")
		workers  = flags.IntLong("workers", cfg.Pipeline.Workers, "number of concurrent workers")
		engine   = flags.StringLong("text-engine", cfg.Pipeline.TextEngine, "engine for PDFs and images: 'pattern' or 'vision'")
		timeout  = flags.StringLong("timeout", cfg.Pipeline.ProcessTimeout.String(), "per-document processing timeout")
		debounce = flags.StringLong("debounce", "500ms", "coalesce file events in --watch mode")
	)
	if err := ff.Parse(flags, os.Args[1:], ff.WithEnvVarPrefix("OCR3")); err != nil {
		printError("%s\n", ffhelp.Flags(flags))
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "invoices.xlsx")
	}

	from, err := parseDate(*fromStr)
	if err != nil {
		printError("Error: invalid --from date format, use YYYY-MM-DD: %v\n", err)
		os.Exit(1)
	}
	to, err := parseDate(*toStr)
	if err != nil {
		printError("Error: invalid --to date format, use YYYY-MM-DD: %v\n", err)
		os.Exit(1)
	}
	perDoc, err := time.ParseDuration(*timeout)
	if err != nil {
		printError("Error: invalid --timeout: %v\n", err)
		os.Exit(1)
	}
	debounceWait, err := time.ParseDuration(*debounce)
	if err != nil {
		printError("Error: invalid --debounce: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if *inmem {
		tmp, err := os.MkdirTemp("", "ocr3-batch-*")
		if err != nil {
			logger.Error("failed to create temp dir", "error", err)
			os.Exit(1)
		}
		defer func() { _ = os.RemoveAll(tmp) }()
		cfg.Database.Driver = "sqlite"
		cfg.Database.DSN = "file:" + filepath.Join(tmp, "batch.db")
		cfg.Database.AutoMigrate = true
	}
	cfg.Pipeline.Workers = *workers
	cfg.Pipeline.TextEngine = *engine
	cfg.Pipeline.ProcessTimeout = perDoc
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	var processed, failures atomic.Int32
	queue := async.NewProcessorQueue(a.Processor, logger,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithProcessTimeout(perDoc),
		async.WithResultHandler(func(_ async.Job, _ core.Result, err error) {
			if err != nil {
				failures.Add(1)
				return
			}
			processed.Add(1)
		}),
	)

	ingestor := ingest.NewFSIngestor(a.Documents, logger)
	enqueue := func(r ingest.IngestionResult) {
		if r.Err != "" {
			return
		}
		id, err := uuid.Parse(r.DocumentID)
		if err != nil {
			logger.Error("failed to parse document ID", "document_id", r.DocumentID, "error", err)
			return
		}
		if err := queue.Enqueue(ctx, async.Job{DocumentID: id, TraceID: uuid.NewString()}); err != nil {
			logger.Warn("failed to enqueue document", "document_id", id, "error", err)
		}
	}

	logger.Info("starting ingestion", "dir", *dir, "tenant", *tenant)
	results, stats, err := ingestor.IngestDirectory(ctx, *tenant, *dir, true)
	if err != nil {
		logger.Error("failed to ingest directory", "error", err)
		os.Exit(1)
	}
	for _, r := range results {
		enqueue(r)
	}
	logger.Info("ingestion complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"deduplicated", stats.Deduplicated)

	if *watch {
		events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:    []string{*dir},
			Debounce: debounceWait,
			Logger:   logger,
		})
		if err != nil {
			logger.Error("failed to start watcher", "error", err)
			os.Exit(1)
		}
		logger.Info("watching for new documents", "dir", *dir)
	loop:
		for {
			select {
			case p, ok := <-events:
				if !ok {
					break loop
				}
				r, err := ingestor.IngestPath(ctx, *tenant, p)
				if err != nil {
					logger.Warn("failed to ingest file", "path", p, "error", err)
					continue
				}
				if !r.Deduplicated {
					enqueue(r)
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				logger.Warn("watcher error", "error", err)
			case <-ctx.Done():
				break loop
			}
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), perDoc+30*time.Second)
	queue.Shutdown(shutdownCtx)
	cancel()

	logger.Info("exporting to XLSX", "output", *out)
	exporter := export.NewService(a.Invoices, a.Providers, logger)
	xlsxBytes, err := exporter.ExportInvoicesXLSX(context.Background(), *tenant, from, to)
	if err != nil {
		logger.Error("failed to export invoices", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"documents_processed", processed.Load(),
		"failures", failures.Load(),
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Documents ingested: %d\n", stats.Succeeded)
	fmt.Printf("- Documents processed: %d\n", processed.Load())
	fmt.Printf("- Failures: %d\n", failures.Load())
	fmt.Printf("- Output: %s\n", *out)
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
