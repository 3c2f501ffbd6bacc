package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joseph-ayodele/ocr-service/internal/app"
	"github.com/joseph-ayodele/ocr-service/internal/export"
	"github.com/joseph-ayodele/ocr-service/internal/ingest"
	"github.com/joseph-ayodele/ocr-service/internal/ocr"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		dir      = flag.String("dir", "", "directory to process documents from (required)")
		outDir   = flag.String("out", "", "directory for extracted .txt files (optional, defaults to <dir>-text)")
		language = flag.String("language", ocr.DefaultSelector, "language selector: kh, en or both")
		xlsxPath = flag.String("xlsx", "", "summary XLSX path (optional, defaults to parent directory)")
		watch    = flag.Bool("watch", false, "keep running and process new or changed documents")
		debounce = flag.Duration("debounce", 500*time.Millisecond, "watch mode debounce window")
	)
	flag.Parse()

	// Validate required flags
	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if _, ok := ocr.LanguageCode(*language); !ok {
		printError("Error: invalid --language %q, use one of %v\n", *language, ocr.Selectors())
		os.Exit(1)
	}
	root := filepath.Clean(*dir)
	if *outDir == "" {
		*outDir = root + "-text"
	}
	if *xlsxPath == "" {
		*xlsxPath = filepath.Join(filepath.Dir(root), "ocr-summary.xlsx")
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		printError("Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := app.Build(cfg, logger)
	batch := ingest.NewBatch(c.Pipeline, c.Store, *outDir, *language, logger)
	exporter := export.NewService(logger)

	writeSummary := func(results []ingest.Result, stats ingest.DirStats) error {
		b, err := exporter.SummaryXLSX(results, stats)
		if err != nil {
			return err
		}
		return os.WriteFile(*xlsxPath, b, 0o644)
	}

	logger.Info("starting batch", "dir", root, "out", *outDir, "language", *language)
	results, stats, err := batch.ProcessDirectory(ctx, root)
	if err != nil {
		logger.Error("failed to process directory", "error", err)
		os.Exit(1)
	}
	if err := writeSummary(results, stats); err != nil {
		logger.Error("failed to write summary", "path", *xlsxPath, "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"summary", *xlsxPath)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files matched: %d\n", stats.Matched)
	fmt.Printf("- Succeeded: %d\n", stats.Succeeded)
	fmt.Printf("- Failures: %d\n", stats.Failed)
	fmt.Printf("- Text: %s\n", *outDir)
	fmt.Printf("- Summary: %s\n", *xlsxPath)

	if !*watch {
		if stats.Failed > 0 {
			os.Exit(2)
		}
		return
	}

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:      []string{root},
		Debounce:   *debounce,
		SkipHidden: true,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}
	logger.Info("watching for changes", "dir", root)

	// latest result per source path
	index := make(map[string]int, len(results))
	for i, r := range results {
		index[r.SourcePath] = i
	}
	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher stopped")
			return
		case err, ok := <-errs:
			if !ok {
				return
			}
			logger.Error("watcher error", "error", err)
		case path, ok := <-events:
			if !ok {
				return
			}
			r := batch.ProcessPath(ctx, root, path)
			if i, seen := index[path]; seen {
				prev := results[i]
				results[i] = r
				adjust(&stats, prev, -1)
			} else {
				index[path] = len(results)
				results = append(results, r)
				stats.Scanned++
				stats.Matched++
			}
			adjust(&stats, r, 1)
			if err := writeSummary(results, stats); err != nil {
				logger.Error("failed to write summary", "path", *xlsxPath, "error", err)
			}
		}
	}
}

// adjust adds (sign 1) or removes (sign -1) r's outcome from the counters.
func adjust(stats *ingest.DirStats, r ingest.Result, sign int) {
	counter := &stats.Succeeded
	if r.Err != "" {
		counter = &stats.Failed
	}
	if sign > 0 {
		*counter++
	} else if *counter > 0 {
		*counter--
	}
}
